package console

import (
	"context"
	"slices"
	"sync"

	"github.com/yrain/smart-cache/pkg/admin"
	"github.com/yrain/smart-cache/pkg/log"
)

// Selection is the current drill-down path. Empty means nothing selected.
// Key is only set with Namespace, Host only with Key.
type Selection struct {
	Namespace string
	Key       string
	Host      string
}

// Snapshot is an immutable copy of the Store's state.
type Snapshot struct {
	Selection  Selection
	Namespaces []string
	Keys       []admin.KeyEntry
	Hosts      []admin.HostRecord
	Local      admin.Value
	Loading    Loading
}

// SelectedHost returns the record of the selected host, if it is loaded.
func (s Snapshot) SelectedHost() (admin.HostRecord, bool) {
	if s.Selection.Host == "" {
		return admin.HostRecord{}, false
	}
	for _, h := range s.Hosts {
		if h.Identifier() == s.Selection.Host {
			return h, true
		}
	}
	return admin.HostRecord{}, false
}

// token identifies the state a load was issued for.
type token struct {
	tier Tier
	gen  uint64
	sel  Selection
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// Store owns the selection and the lists loaded for it. Transitions are
// synchronous; the loads they trigger run in their own goroutines and
// apply their result only if the state they were issued for is still
// current.
type Store struct {
	ctx    context.Context
	gw     Gateway
	lc     *Lifecycle
	logger log.Logger

	mu         sync.Mutex
	sel        Selection
	namespaces []string
	keys       []admin.KeyEntry
	hosts      []admin.HostRecord
	local      admin.Value
	gens       [tierCount]uint64
	subs       []subscriber
	nextSub    int
	closed     bool

	// pubMu serializes publication so listeners see snapshots in order.
	pubMu sync.Mutex
	wg    sync.WaitGroup
}

// NewStore returns an empty Store. ctx bounds every load it starts.
func NewStore(ctx context.Context, gw Gateway, lc *Lifecycle) *Store {
	s := &Store{ctx: ctx, gw: gw, lc: lc, logger: lc.Logger()}
	lc.OnChange(s.publish)
	return s
}

// Subscribe registers fn for every published snapshot and returns a
// cancel func. fn must not call back into the Store.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscriber) bool { return sub.id == id })
	}
}

func (s *Store) Snapshot() Snapshot {
	flags := s.lc.Flags()
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(flags)
}

func (s *Store) snapshotLocked(flags Loading) Snapshot {
	return Snapshot{
		Selection:  s.sel,
		Namespaces: slices.Clone(s.namespaces),
		Keys:       slices.Clone(s.keys),
		Hosts:      slices.Clone(s.hosts),
		Local:      slices.Clone(s.local),
		Loading:    flags,
	}
}

// HostRecord returns the loaded record for host id.
func (s *Store) HostRecord(id string) (admin.HostRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.hosts {
		if h.Identifier() == id {
			return h, true
		}
	}
	return admin.HostRecord{}, false
}

// Wait blocks until every load started so far has been applied or dropped.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Close stops the Store from starting loads and waits for the ones in
// flight. Cancel the Store's context first so pending calls return.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Store) SelectNamespace(namespace string) {
	s.mu.Lock()
	if namespace == s.sel.Namespace {
		s.mu.Unlock()
		return
	}
	s.sel = Selection{Namespace: namespace}
	s.resetKeysLocked()
	tok := s.tokenLocked(TierKeys)
	s.mu.Unlock()

	s.publish()
	if namespace != "" {
		s.loadKeys(tok)
	}
}

func (s *Store) SelectKey(key string) {
	s.mu.Lock()
	if s.sel.Namespace == "" || key == s.sel.Key {
		s.mu.Unlock()
		return
	}
	s.sel.Key = key
	s.sel.Host = ""
	s.resetDetailLocked()
	local, hosts := s.tokenLocked(TierLocal), s.tokenLocked(TierHosts)
	s.mu.Unlock()

	s.publish()
	if key != "" {
		s.loadLocal(local)
		s.loadHosts(hosts)
	}
}

func (s *Store) SelectHost(host string) {
	s.mu.Lock()
	if s.sel.Key == "" || host == s.sel.Host {
		s.mu.Unlock()
		return
	}
	s.sel.Host = host
	s.mu.Unlock()
	s.publish()
}

// Reload drops the whole selection and loads namespaces again.
func (s *Store) Reload() {
	s.mu.Lock()
	s.sel = Selection{}
	s.namespaces = nil
	s.gens[TierNamespaces]++
	s.resetKeysLocked()
	tok := s.tokenLocked(TierNamespaces)
	s.mu.Unlock()

	s.publish()
	s.loadNamespaces(tok)
}

// ReloadKeys drops the key and host selection and reloads the keys of the
// selected namespace.
func (s *Store) ReloadKeys() {
	s.mu.Lock()
	s.sel.Key = ""
	s.sel.Host = ""
	s.resetKeysLocked()
	namespace := s.sel.Namespace
	tok := s.tokenLocked(TierKeys)
	s.mu.Unlock()

	s.publish()
	if namespace == "" {
		s.lc.Notify(Notice{Level: LevelInfo, Text: "select a namespace first"})
		return
	}
	s.loadKeys(tok)
}

func (s *Store) resetKeysLocked() {
	s.keys = nil
	s.gens[TierKeys]++
	s.resetDetailLocked()
}

func (s *Store) resetDetailLocked() {
	s.hosts = nil
	s.local = nil
	s.gens[TierLocal]++
	s.gens[TierHosts]++
}

func (s *Store) tokenLocked(t Tier) token {
	return token{tier: t, gen: s.gens[t], sel: s.sel}
}

func (s *Store) currentLocked(tok token) bool {
	if s.gens[tok.tier] != tok.gen {
		return false
	}
	switch tok.tier {
	case TierKeys:
		return s.sel.Namespace == tok.sel.Namespace
	case TierLocal, TierHosts:
		return s.sel.Namespace == tok.sel.Namespace && s.sel.Key == tok.sel.Key
	}
	return true
}

// run loads one tier in the background. The tier stays flagged until the
// result is applied, so listeners never see it idle with stale data. A
// stale result is dropped along with its failure notice. Nothing starts
// once the Store is closed or its context is done.
func (s *Store) run(tok token, load func(ctx context.Context) (apply func(), fail *Notice)) {
	s.mu.Lock()
	if s.closed || s.ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	s.lc.adjust(tok.tier, 1)
	go func() {
		defer s.wg.Done()
		defer s.lc.adjust(tok.tier, -1)

		apply, fail := load(s.ctx)
		s.mu.Lock()
		if !s.currentLocked(tok) {
			s.mu.Unlock()
			s.logger.Debug("stale load dropped", log.Fields{
				"tier":      tok.tier.String(),
				"namespace": tok.sel.Namespace,
				"key":       tok.sel.Key,
				"failed":    fail != nil,
			})
			return
		}
		if fail == nil {
			apply()
		}
		s.mu.Unlock()
		if fail != nil {
			s.lc.Notify(*fail)
			return
		}
		s.publish()
	}()
}

func (s *Store) loadNamespaces(tok token) {
	s.run(tok, func(ctx context.Context) (func(), *Notice) {
		res, fail := track(ctx, s.lc, TierNamespaces, s.gw.ListNamespaces)
		return func() { s.namespaces = res.Data }, fail
	})
}

func (s *Store) loadKeys(tok token) {
	s.run(tok, func(ctx context.Context) (func(), *Notice) {
		res, fail := track(ctx, s.lc, TierKeys, func(ctx context.Context) admin.Result[[]admin.KeyEntry] {
			return s.gw.ListKeys(ctx, tok.sel.Namespace)
		})
		return func() { s.keys = res.Data }, fail
	})
}

func (s *Store) loadLocal(tok token) {
	s.run(tok, func(ctx context.Context) (func(), *Notice) {
		res, fail := track(ctx, s.lc, TierLocal, func(ctx context.Context) admin.Result[admin.Value] {
			return s.gw.GetLocalValue(ctx, tok.sel.Namespace, tok.sel.Key)
		})
		return func() { s.local = res.Data }, fail
	})
}

func (s *Store) loadHosts(tok token) {
	s.run(tok, func(ctx context.Context) (func(), *Notice) {
		res, fail := track(ctx, s.lc, TierHosts, func(ctx context.Context) admin.Result[[]admin.HostRecord] {
			return s.gw.ListHostValues(ctx, tok.sel.Namespace, tok.sel.Key)
		})
		return func() { s.hosts = res.Data }, fail
	})
}

func (s *Store) publish() {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	flags := s.lc.Flags()
	s.mu.Lock()
	snap := s.snapshotLocked(flags)
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(snap)
	}
}
