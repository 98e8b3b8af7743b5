package console

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/yrain/smart-cache/pkg/admin"
)

// Filter returns the items whose key contains text, ignoring case. Empty
// text returns items unchanged. The input slice is never modified.
func Filter[T any](items []T, text string, key func(T) string) []T {
	if text == "" {
		return items
	}
	fold := cases.Fold()
	needle := fold.String(text)
	out := make([]T, 0, len(items))
	for _, item := range items {
		if strings.Contains(fold.String(key(item)), needle) {
			out = append(out, item)
		}
	}
	return out
}

func FilterNamespaces(names []string, text string) []string {
	return Filter(names, text, func(n string) string { return n })
}

func FilterKeys(keys []admin.KeyEntry, text string) []admin.KeyEntry {
	return Filter(keys, text, func(k admin.KeyEntry) string { return k.Key })
}

func FilterHosts(hosts []admin.HostRecord, text string) []admin.HostRecord {
	return Filter(hosts, text, admin.HostRecord.Identifier)
}

// FilterText holds the filter typed for each tier.
type FilterText struct {
	Namespaces string
	Keys       string
	Hosts      string
}

// Visible is what remains of a Snapshot's lists after filtering.
type Visible struct {
	Namespaces []string
	Keys       []admin.KeyEntry
	Hosts      []admin.HostRecord
}

func (f FilterText) Apply(s Snapshot) Visible {
	return Visible{
		Namespaces: FilterNamespaces(s.Namespaces, f.Namespaces),
		Keys:       FilterKeys(s.Keys, f.Keys),
		Hosts:      FilterHosts(s.Hosts, f.Hosts),
	}
}
