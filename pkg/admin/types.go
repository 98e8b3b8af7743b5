// Package admin is the HTTP client for the cache admin API. Every call is
// normalized into a Result; callers never see transport errors.
package admin

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result is the normalized outcome of a read against the admin API.
// OK is false for transport failures, malformed bodies and server-reported
// failures alike. Msg carries the server's message when it sent one.
type Result[T any] struct {
	OK   bool
	Data T
	Msg  string
}

// Succeed wraps v as a successful Result.
func Succeed[T any](v T) Result[T] { return Result[T]{OK: true, Data: v} }

// Fail returns a failed Result holding the zero value of T.
func Fail[T any](msg string) Result[T] { return Result[T]{Msg: msg} }

// Value is an opaque JSON value stored under a key. nil means absent.
type Value = json.RawMessage

// KeyEntry is one key of a namespace. The wire may send a bare string or an
// object with a "key" field; objects are kept whole in Meta.
type KeyEntry struct {
	Key  string          `json:"key"`
	Meta json.RawMessage `json:"meta,omitempty"`
}

// HostRecord is the copy of a key's value held by one cache host.
type HostRecord struct {
	ID    string          `json:"id,omitempty"`
	Host  string          `json:"host,omitempty"`
	Name  string          `json:"name,omitempty"`
	Key   string          `json:"key,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
	TTL   int64           `json:"ttl,omitempty"`
	Level string          `json:"level,omitempty"`
}

// Identifier is the host id, falling back to the host address.
func (h HostRecord) Identifier() string {
	if h.ID != "" {
		return h.ID
	}
	return h.Host
}

func isNull(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}

func decodeNames(payload json.RawMessage) ([]string, error) {
	if isNull(payload) {
		return []string{}, nil
	}
	var raw []*string
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode names: %w", err)
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != nil && *s != "" {
			out = append(out, *s)
		}
	}
	return out, nil
}

func decodeKeys(payload json.RawMessage) ([]KeyEntry, error) {
	if isNull(payload) {
		return []KeyEntry{}, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode keys: %w", err)
	}
	out := make([]KeyEntry, 0, len(raw))
	for _, item := range raw {
		if isNull(item) {
			continue
		}
		item = bytes.TrimSpace(item)
		if item[0] == '"' {
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return nil, fmt.Errorf("decode key: %w", err)
			}
			if s != "" {
				out = append(out, KeyEntry{Key: s})
			}
			continue
		}
		var obj struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return nil, fmt.Errorf("decode key: %w", err)
		}
		if obj.Key == "" {
			continue
		}
		out = append(out, KeyEntry{Key: obj.Key, Meta: append(json.RawMessage(nil), item...)})
	}
	return out, nil
}

func decodeHosts(payload json.RawMessage) ([]HostRecord, error) {
	if isNull(payload) {
		return []HostRecord{}, nil
	}
	var raw []*HostRecord
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode hosts: %w", err)
	}
	out := make([]HostRecord, 0, len(raw))
	for _, h := range raw {
		if h != nil {
			out = append(out, *h)
		}
	}
	return out, nil
}

func decodeValue(payload json.RawMessage) Value {
	if isNull(payload) {
		return nil
	}
	return append(Value(nil), bytes.TrimSpace(payload)...)
}
