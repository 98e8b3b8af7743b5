package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/yrain/smart-cache/pkg/config"
)

// adminStub is a small admin API: namespace -> key -> JSON value.
type adminStub struct {
	mu   sync.Mutex
	data map[string]map[string]string
	fail map[string]string
	hits []string
}

func newAdminStub(t *testing.T) (*adminStub, string) {
	t.Helper()
	s := &adminStub{
		data: map[string]map[string]string{
			"users":  {"u1": `{"name":"bob","age":7}`, "u2": `"plain"`},
			"orders": {"o1": `[1,2]`},
		},
		fail: map[string]string{},
	}
	srv := httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(srv.Close)
	return s, srv.URL + "/"
}

func (s *adminStub) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op := strings.TrimPrefix(r.URL.Path, "/")
	s.hits = append(s.hits, op)
	if msg, ok := s.fail[op]; ok {
		_, _ = w.Write([]byte(`{"code":-1,"msg":"` + msg + `"}`))
		return
	}
	ns, key := r.URL.Query().Get("name"), r.URL.Query().Get("key")
	reply := func(v any) {
		b, _ := json.Marshal(map[string]any{"code": 1, "data": v})
		_, _ = w.Write(b)
	}
	switch op {
	case "names":
		names := []string{}
		for n := range s.data {
			names = append(names, n)
		}
		reply(names)
	case "keys":
		keys := []string{}
		for k := range s.data[ns] {
			keys = append(keys, k)
		}
		reply(keys)
	case "get":
		v, ok := s.data[ns][key]
		if !ok {
			reply(nil)
			return
		}
		reply(json.RawMessage(v))
	case "fetch":
		v := s.data[ns][key]
		reply([]map[string]any{
			{"id": "node-b", "host": "10.0.0.2", "ttl": 60, "level": "L2", "value": json.RawMessage(v)},
			{"id": "node-a", "host": "10.0.0.1", "ttl": 30, "level": "L1", "value": json.RawMessage(v)},
		})
	case "del":
		delete(s.data[ns], key)
	case "rem":
		delete(s.data, ns)
	case "cls":
		s.data = map[string]map[string]string{}
	default:
		http.NotFound(w, r)
	}
}

func (s *adminStub) has(ns, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[ns][key]
	return ok
}

func (s *adminStub) failOn(op, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = msg
}

// cacheArgs points a command at server with an otherwise empty config.
func cacheArgs(t *testing.T, server string, args ...string) []string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	if err := config.Save(cfgPath, config.Config{}); err != nil {
		t.Fatalf("save config: %v", err)
	}
	return append(args, "--config", cfgPath, "--server", server)
}

func TestNamesSortedOnePerLine(t *testing.T) {
	_, server := newAdminStub(t)
	got, err := runCLI(t, "", cacheArgs(t, server, "names")...)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got != "orders\nusers\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestNamesJSON(t *testing.T) {
	_, server := newAdminStub(t)
	got, err := runCLI(t, "", cacheArgs(t, server, "ns", "-o", "json")...)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	var names []string
	if err := json.Unmarshal([]byte(got), &names); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(names) != 2 || names[0] != "orders" {
		t.Fatalf("unexpected names %v", names)
	}
}

func TestNamesFailureReportsServerMessage(t *testing.T) {
	stub, server := newAdminStub(t)
	stub.failOn("names", "boom")
	got, err := runCLI(t, "", cacheArgs(t, server, "names")...)
	if err != errRequestFailed {
		t.Fatalf("expected errRequestFailed, got %v", err)
	}
	if !strings.Contains(got, "error: boom") {
		t.Fatalf("expected error notice, got %q", got)
	}
}

func TestKeysFiltered(t *testing.T) {
	_, server := newAdminStub(t)
	got, err := runCLI(t, "", cacheArgs(t, server, "keys", "users", "--filter", "U2")...)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got != "u2\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestGetRendersJSONAndYAML(t *testing.T) {
	_, server := newAdminStub(t)

	got, err := runCLI(t, "", cacheArgs(t, server, "get", "users", "u1")...)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got != "{\n  \"name\": \"bob\",\n  \"age\": 7\n}\n" {
		t.Fatalf("unexpected json output %q", got)
	}

	got, err = runCLI(t, "", cacheArgs(t, server, "get", "users", "u1", "-o", "yaml")...)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got != "age: 7\nname: bob\n" {
		t.Fatalf("unexpected yaml output %q", got)
	}
}

func TestGetMissingValue(t *testing.T) {
	_, server := newAdminStub(t)
	got, err := runCLI(t, "", cacheArgs(t, server, "get", "users", "nope")...)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got != "(absent)\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestFetchSortedByHost(t *testing.T) {
	_, server := newAdminStub(t)
	got, err := runCLI(t, "", cacheArgs(t, server, "fetch", "orders", "o1")...)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	want := strings.Join([]string{
		"node-a (host=10.0.0.1 ttl=30 level=L1) [1,2]",
		"node-b (host=10.0.0.2 ttl=60 level=L2) [1,2]",
		"",
	}, "\n")
	if got != want {
		t.Fatalf("output mismatch\nwant:\n%q\ngot:\n%q", want, got)
	}
}

func TestDelWithYes(t *testing.T) {
	stub, server := newAdminStub(t)
	got, err := runCLI(t, "", cacheArgs(t, server, "del", "users", "u1", "--yes")...)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if stub.has("users", "u1") {
		t.Fatalf("expected u1 deleted")
	}
	if !strings.Contains(got, "success: success.") {
		t.Fatalf("expected success notice, got %q", got)
	}
}

func TestDelPromptsAndAborts(t *testing.T) {
	stub, server := newAdminStub(t)
	got, err := runCLI(t, "n\n", cacheArgs(t, server, "del", "users", "u1")...)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(got, `Remove key "u1" from "users"? [y/N]`) {
		t.Fatalf("expected prompt, got %q", got)
	}
	if !strings.Contains(got, "aborted") {
		t.Fatalf("expected aborted, got %q", got)
	}
	if !stub.has("users", "u1") {
		t.Fatalf("u1 should survive an aborted delete")
	}
}

func TestRemConfirmedOnStdin(t *testing.T) {
	stub, server := newAdminStub(t)
	if _, err := runCLI(t, "y\n", cacheArgs(t, server, "rem", "orders")...); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if stub.has("orders", "o1") {
		t.Fatalf("expected orders cleared")
	}
}

func TestClsFailureIsWarning(t *testing.T) {
	stub, server := newAdminStub(t)
	stub.failOn("cls", "nope")
	got, err := runCLI(t, "", cacheArgs(t, server, "cls", "-y")...)
	if err != errRequestFailed {
		t.Fatalf("expected errRequestFailed, got %v", err)
	}
	if !strings.Contains(got, "warning: failed to clear cache") {
		t.Fatalf("expected warning notice, got %q", got)
	}
}

func TestCacheCommandNeedsTarget(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	if err := config.Save(cfgPath, config.Config{}); err != nil {
		t.Fatalf("save config: %v", err)
	}
	_, err := runCLI(t, "", "names", "--config", cfgPath)
	if err == nil || !strings.Contains(err.Error(), "no target selected") {
		t.Fatalf("expected no target error, got %v", err)
	}
}

func TestCacheCommandUsesCurrentTarget(t *testing.T) {
	_, server := newAdminStub(t)
	cfgPath := saveTestConfig(t, config.Config{
		Targets:       []config.Target{{Name: "dev", Server: server}},
		CurrentTarget: "dev",
	})
	got, err := runCLI(t, "", "keys", "orders", "--config", cfgPath)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got != "o1\n" {
		t.Fatalf("unexpected output %q", got)
	}
}
