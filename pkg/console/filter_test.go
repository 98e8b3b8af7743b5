package console

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yrain/smart-cache/pkg/admin"
)

func TestFilterEmptyTextIsIdentity(t *testing.T) {
	names := []string{"b", "a"}
	got := FilterNamespaces(names, "")
	assert.Equal(t, names, got)
	assert.Same(t, &names[0], &got[0])
}

func TestFilterIsCaseInsensitiveSubstring(t *testing.T) {
	names := []string{"UserSessions", "orders", "users", "Éclair", "eclair"}
	assert.Equal(t, []string{"UserSessions", "users"}, FilterNamespaces(names, "USER"))
	assert.Equal(t, []string{"Éclair"}, FilterNamespaces(names, "éCL"))
	assert.Empty(t, FilterNamespaces(names, "zzz"))
	assert.Equal(t, []string{"UserSessions", "orders", "users", "Éclair", "eclair"}, names)
}

func TestFilterResultIsSubsequence(t *testing.T) {
	keys := []admin.KeyEntry{{Key: "k10"}, {Key: "a"}, {Key: "K1"}}
	assert.Equal(t, []admin.KeyEntry{{Key: "k10"}, {Key: "K1"}}, FilterKeys(keys, "k1"))
}

func TestFilterHostsUsesIdentifier(t *testing.T) {
	hosts := []admin.HostRecord{{ID: "node-a"}, {Host: "10.0.0.7"}, {ID: "node-b", Host: "10.0.0.8"}}
	assert.Equal(t, []admin.HostRecord{{Host: "10.0.0.7"}}, FilterHosts(hosts, "10.0"))
	assert.Len(t, FilterHosts(hosts, "NODE"), 2)
}

func TestFilterTextApply(t *testing.T) {
	snap := Snapshot{
		Namespaces: []string{"users", "orders"},
		Keys:       []admin.KeyEntry{{Key: "u1"}, {Key: "x"}},
		Hosts:      []admin.HostRecord{{ID: "a"}, {ID: "b"}},
	}
	v := FilterText{Namespaces: "ord", Hosts: "B"}.Apply(snap)
	assert.Equal(t, []string{"orders"}, v.Namespaces)
	assert.Equal(t, snap.Keys, v.Keys)
	assert.Equal(t, []admin.HostRecord{{ID: "b"}}, v.Hosts)
}
