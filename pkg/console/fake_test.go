package console

import (
	"context"
	"sync"

	"github.com/yrain/smart-cache/pkg/admin"
)

type fakeGateway struct {
	mu         sync.Mutex
	namespaces admin.Result[[]string]
	keys       map[string]admin.Result[[]admin.KeyEntry]
	local      map[string]admin.Result[admin.Value]
	hosts      map[string]admin.Result[[]admin.HostRecord]
	mutations  map[string]bool
	gates      map[string]chan struct{}
	calls      []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		namespaces: admin.Succeed([]string{"orders", "users"}),
		keys: map[string]admin.Result[[]admin.KeyEntry]{
			"users":  admin.Succeed([]admin.KeyEntry{{Key: "u1"}, {Key: "u2"}}),
			"orders": admin.Succeed([]admin.KeyEntry{{Key: "o1"}}),
		},
		local: map[string]admin.Result[admin.Value]{
			"users/u1": admin.Succeed(admin.Value(`{"name":"bob"}`)),
		},
		hosts: map[string]admin.Result[[]admin.HostRecord]{
			"users/u1": admin.Succeed([]admin.HostRecord{
				{ID: "node-a", Value: []byte(`1`)},
				{ID: "node-b", Value: []byte(`2`)},
			}),
		},
		mutations: map[string]bool{"del": true, "rem": true, "cls": true},
		gates:     map[string]chan struct{}{},
	}
}

// gate makes the call named name block until the returned func is called.
func (f *fakeGateway) gate(name string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[name] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *fakeGateway) enter(ctx context.Context, name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	g := f.gates[name]
	f.mu.Unlock()
	if g != nil {
		select {
		case <-g:
		case <-ctx.Done():
		}
	}
}

func (f *fakeGateway) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeGateway) count(name string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeGateway) ListNamespaces(ctx context.Context) admin.Result[[]string] {
	f.enter(ctx, "names")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.namespaces
}

func (f *fakeGateway) ListKeys(ctx context.Context, namespace string) admin.Result[[]admin.KeyEntry] {
	f.enter(ctx, "keys:"+namespace)
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.keys[namespace]; ok {
		return r
	}
	return admin.Succeed([]admin.KeyEntry{})
}

func (f *fakeGateway) GetLocalValue(ctx context.Context, namespace, key string) admin.Result[admin.Value] {
	f.enter(ctx, "get:"+namespace+"/"+key)
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.local[namespace+"/"+key]; ok {
		return r
	}
	return admin.Succeed[admin.Value](nil)
}

func (f *fakeGateway) ListHostValues(ctx context.Context, namespace, key string) admin.Result[[]admin.HostRecord] {
	f.enter(ctx, "fetch:"+namespace+"/"+key)
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.hosts[namespace+"/"+key]; ok {
		return r
	}
	return admin.Succeed([]admin.HostRecord{})
}

func (f *fakeGateway) DeleteKey(ctx context.Context, namespace, key string) bool {
	f.enter(ctx, "del:"+namespace+"/"+key)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutations["del"]
}

func (f *fakeGateway) ClearNamespace(ctx context.Context, namespace string) bool {
	f.enter(ctx, "rem:"+namespace)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutations["rem"]
}

func (f *fakeGateway) ClearAll(ctx context.Context) bool {
	f.enter(ctx, "cls")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mutations["cls"]
}

type noticeLog struct {
	mu   sync.Mutex
	list []Notice
}

func (n *noticeLog) Notify(x Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, x)
}

func (n *noticeLog) All() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.list...)
}

type harness struct {
	gw      *fakeGateway
	notices *noticeLog
	lc      *Lifecycle
	store   *Store
}

func newHarness() *harness {
	gw := newFakeGateway()
	notices := &noticeLog{}
	lc := NewLifecycle(0, notices, nil)
	return &harness{gw: gw, notices: notices, lc: lc, store: NewStore(context.Background(), gw, lc)}
}

// drill selects namespace and key and waits for every load.
func (h *harness) drill(namespace, key string) {
	h.store.Reload()
	h.store.Wait()
	h.store.SelectNamespace(namespace)
	h.store.Wait()
	if key != "" {
		h.store.SelectKey(key)
		h.store.Wait()
	}
}
