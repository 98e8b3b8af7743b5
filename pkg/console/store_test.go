package console

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yrain/smart-cache/pkg/admin"
)

func TestReloadLoadsNamespaces(t *testing.T) {
	h := newHarness()
	h.store.Reload()
	h.store.Wait()

	snap := h.store.Snapshot()
	assert.Equal(t, []string{"orders", "users"}, snap.Namespaces)
	assert.Equal(t, Selection{}, snap.Selection)
	assert.False(t, snap.Loading.Any())
}

func TestSelectNamespaceLoadsKeys(t *testing.T) {
	h := newHarness()
	h.drill("users", "")

	snap := h.store.Snapshot()
	assert.Equal(t, Selection{Namespace: "users"}, snap.Selection)
	assert.Equal(t, []admin.KeyEntry{{Key: "u1"}, {Key: "u2"}}, snap.Keys)
	assert.Equal(t, 1, h.gw.count("keys:users"))
}

func TestSelectSameNamespaceIsNoop(t *testing.T) {
	h := newHarness()
	h.drill("users", "u1")
	h.store.SelectHost("node-a")

	h.store.SelectNamespace("users")
	h.store.Wait()

	snap := h.store.Snapshot()
	assert.Equal(t, Selection{Namespace: "users", Key: "u1", Host: "node-a"}, snap.Selection)
	assert.Equal(t, 1, h.gw.count("keys:users"))
	assert.Len(t, snap.Hosts, 2)
}

func TestSelectNamespaceClearsDependentsBeforeLoading(t *testing.T) {
	h := newHarness()
	h.drill("users", "u1")
	h.store.SelectHost("node-b")

	release := h.gw.gate("keys:orders")
	defer release()
	h.store.SelectNamespace("orders")

	snap := h.store.Snapshot()
	assert.Equal(t, Selection{Namespace: "orders"}, snap.Selection)
	assert.Empty(t, snap.Keys)
	assert.Empty(t, snap.Hosts)
	assert.Nil(t, snap.Local)
	assert.True(t, snap.Loading.Keys)

	release()
	h.store.Wait()
	assert.Equal(t, []admin.KeyEntry{{Key: "o1"}}, h.store.Snapshot().Keys)
}

func TestSelectKeyRequiresNamespace(t *testing.T) {
	h := newHarness()
	h.store.SelectKey("u1")
	h.store.Wait()

	assert.Equal(t, Selection{}, h.store.Snapshot().Selection)
	assert.Empty(t, h.gw.Calls())
}

func TestSelectKeyLoadsLocalAndHosts(t *testing.T) {
	h := newHarness()
	h.drill("users", "u1")

	snap := h.store.Snapshot()
	assert.Equal(t, Selection{Namespace: "users", Key: "u1"}, snap.Selection)
	assert.JSONEq(t, `{"name":"bob"}`, string(snap.Local))
	require.Len(t, snap.Hosts, 2)
	assert.Equal(t, 1, h.gw.count("get:users/u1"))
	assert.Equal(t, 1, h.gw.count("fetch:users/u1"))

	h.store.SelectKey("u1")
	h.store.Wait()
	assert.Equal(t, 1, h.gw.count("fetch:users/u1"))
}

func TestSelectOtherKeyClearsHost(t *testing.T) {
	h := newHarness()
	h.drill("users", "u1")
	h.store.SelectHost("node-a")

	h.store.SelectKey("u2")
	snap := h.store.Snapshot()
	assert.Equal(t, Selection{Namespace: "users", Key: "u2"}, snap.Selection)
	assert.Empty(t, snap.Hosts)
	assert.Nil(t, snap.Local)
	h.store.Wait()
}

func TestSelectHost(t *testing.T) {
	h := newHarness()
	h.drill("users", "")
	h.store.SelectHost("node-a")
	assert.Equal(t, "", h.store.Snapshot().Selection.Host)

	h.store.SelectKey("u1")
	h.store.Wait()
	h.store.SelectHost("node-b")

	snap := h.store.Snapshot()
	assert.Equal(t, "node-b", snap.Selection.Host)
	rec, ok := snap.SelectedHost()
	require.True(t, ok)
	assert.Equal(t, `2`, string(rec.Value))

	rec, ok = h.store.HostRecord("node-a")
	require.True(t, ok)
	assert.Equal(t, "node-a", rec.ID)
	_, ok = h.store.HostRecord("node-z")
	assert.False(t, ok)
}

func TestStaleKeysAreDiscarded(t *testing.T) {
	h := newHarness()
	h.drill("", "")

	release := h.gw.gate("keys:users")
	defer release()
	h.store.SelectNamespace("users")
	h.store.SelectNamespace("orders")

	require.Eventually(t, func() bool {
		return len(h.store.Snapshot().Keys) == 1
	}, time.Second, time.Millisecond)

	release()
	h.store.Wait()
	snap := h.store.Snapshot()
	assert.Equal(t, "orders", snap.Selection.Namespace)
	assert.Equal(t, []admin.KeyEntry{{Key: "o1"}}, snap.Keys)
	assert.False(t, snap.Loading.Keys)
}

func TestStaleFailureIsNotReported(t *testing.T) {
	h := newHarness()
	h.gw.keys["users"] = admin.Fail[[]admin.KeyEntry]("no such cache")
	h.drill("", "")

	release := h.gw.gate("keys:users")
	defer release()
	h.store.SelectNamespace("users")
	h.store.SelectNamespace("orders")
	release()
	h.store.Wait()

	snap := h.store.Snapshot()
	assert.Equal(t, Selection{Namespace: "orders"}, snap.Selection)
	assert.Equal(t, []admin.KeyEntry{{Key: "o1"}}, snap.Keys)
	assert.Empty(t, h.notices.All())
}

func TestStaleHostValuesAreDiscarded(t *testing.T) {
	h := newHarness()
	h.drill("users", "")

	release := h.gw.gate("fetch:users/u1")
	defer release()
	h.store.SelectKey("u1")
	h.store.SelectKey("u2")
	release()
	h.store.Wait()

	snap := h.store.Snapshot()
	assert.Equal(t, "u2", snap.Selection.Key)
	assert.Empty(t, snap.Hosts)
	assert.Nil(t, snap.Local)
}

func TestReloadResetsSelection(t *testing.T) {
	h := newHarness()
	h.drill("users", "u1")
	h.store.SelectHost("node-a")

	release := h.gw.gate("names")
	defer release()
	h.store.Reload()

	snap := h.store.Snapshot()
	assert.Equal(t, Selection{}, snap.Selection)
	assert.Empty(t, snap.Namespaces)
	assert.Empty(t, snap.Keys)
	assert.Empty(t, snap.Hosts)
	assert.Nil(t, snap.Local)
	assert.True(t, snap.Loading.Namespaces)

	release()
	h.store.Wait()
	assert.Equal(t, []string{"orders", "users"}, h.store.Snapshot().Namespaces)
}

func TestReloadKeys(t *testing.T) {
	h := newHarness()
	h.drill("users", "u1")

	h.store.ReloadKeys()
	snap := h.store.Snapshot()
	assert.Equal(t, Selection{Namespace: "users"}, snap.Selection)
	h.store.Wait()

	assert.Len(t, h.store.Snapshot().Keys, 2)
	assert.Equal(t, 2, h.gw.count("keys:users"))
	assert.Empty(t, h.notices.All())
}

func TestReloadKeysWithoutNamespace(t *testing.T) {
	h := newHarness()
	h.store.ReloadKeys()
	h.store.Wait()

	assert.Empty(t, h.store.Snapshot().Keys)
	assert.Empty(t, h.gw.Calls())
	assert.Equal(t, []Notice{{Level: LevelInfo, Text: "select a namespace first"}}, h.notices.All())
}

func TestFailedLoadLeavesListEmpty(t *testing.T) {
	h := newHarness()
	h.gw.keys["users"] = admin.Fail[[]admin.KeyEntry]("no such cache")
	h.drill("users", "")

	snap := h.store.Snapshot()
	assert.Equal(t, "users", snap.Selection.Namespace)
	assert.Empty(t, snap.Keys)
	assert.Equal(t, []Notice{{Level: LevelError, Text: "no such cache"}}, h.notices.All())
}

func TestClosedStoreStartsNoLoads(t *testing.T) {
	h := newHarness()
	h.drill("users", "")
	h.store.Close()

	h.store.ReloadKeys()
	h.store.SelectNamespace("orders")
	h.store.Wait()

	assert.Equal(t, 1, h.gw.count("keys:users"))
	assert.Zero(t, h.gw.count("keys:orders"))
	assert.False(t, h.store.Snapshot().Loading.Any())
}

func TestCancelledStoreStartsNoLoads(t *testing.T) {
	gw := newFakeGateway()
	lc := NewLifecycle(0, &noticeLog{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewStore(ctx, gw, lc)

	store.Reload()
	store.Wait()

	assert.Empty(t, gw.Calls())
	assert.False(t, store.Snapshot().Loading.Namespaces)
}

func TestSubscribersObserveTransitions(t *testing.T) {
	h := newHarness()
	var mu sync.Mutex
	var seen []Snapshot
	cancel := h.store.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	h.store.Reload()
	h.store.Wait()

	mu.Lock()
	require.NotEmpty(t, seen)
	first, last := seen[0], seen[len(seen)-1]
	count := len(seen)
	mu.Unlock()

	assert.Empty(t, first.Namespaces)
	assert.Equal(t, []string{"orders", "users"}, last.Namespaces)
	assert.False(t, last.Loading.Namespaces)

	loadingSeen := false
	mu.Lock()
	for _, s := range seen {
		if s.Loading.Namespaces {
			loadingSeen = true
		}
	}
	mu.Unlock()
	assert.True(t, loadingSeen)

	cancel()
	h.store.SelectNamespace("users")
	h.store.Wait()
	mu.Lock()
	assert.Equal(t, count, len(seen))
	mu.Unlock()
}

func TestSnapshotIsACopy(t *testing.T) {
	h := newHarness()
	h.drill("users", "")
	snap := h.store.Snapshot()
	snap.Keys[0].Key = "mutated"
	assert.Equal(t, "u1", h.store.Snapshot().Keys[0].Key)
}
