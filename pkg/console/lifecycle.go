package console

import (
	"context"
	"sync"
	"time"

	"github.com/yrain/smart-cache/pkg/admin"
	"github.com/yrain/smart-cache/pkg/log"
)

// DefaultMinDelay is the shortest time a tracked call appears to take.
const DefaultMinDelay = 600 * time.Millisecond

// Tier names one loaded list of the console.
type Tier int

const (
	TierNamespaces Tier = iota
	TierKeys
	TierLocal
	TierHosts
	tierCount
)

func (t Tier) String() string {
	switch t {
	case TierNamespaces:
		return "namespaces"
	case TierKeys:
		return "keys"
	case TierLocal:
		return "local value"
	case TierHosts:
		return "host values"
	default:
		return "unknown"
	}
}

// Loading reports which tiers have a load in flight.
type Loading struct {
	Namespaces bool
	Keys       bool
	Local      bool
	Hosts      bool
}

// Any is true while any tier is loading.
func (l Loading) Any() bool { return l.Namespaces || l.Keys || l.Local || l.Hosts }

// Lifecycle wraps gateway calls with a busy flag per tier, a minimum
// perceived latency, and failure notices.
type Lifecycle struct {
	minDelay time.Duration
	notifier Notifier
	logger   log.Logger

	mu       sync.Mutex
	inflight [tierCount]int
	onChange func()
}

// NewLifecycle returns a Lifecycle. A negative minDelay disables the floor.
func NewLifecycle(minDelay time.Duration, n Notifier, l log.Logger) *Lifecycle {
	if minDelay < 0 {
		minDelay = 0
	}
	if n == nil {
		n = NotifierFunc(func(Notice) {})
	}
	return &Lifecycle{minDelay: minDelay, notifier: n, logger: log.OrNop(l)}
}

// OnChange registers fn to run after every flag change. fn runs without
// any Lifecycle lock held.
func (lc *Lifecycle) OnChange(fn func()) {
	lc.mu.Lock()
	lc.onChange = fn
	lc.mu.Unlock()
}

func (lc *Lifecycle) Loading(t Tier) bool {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.inflight[t] > 0
}

func (lc *Lifecycle) Flags() Loading {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return Loading{
		Namespaces: lc.inflight[TierNamespaces] > 0,
		Keys:       lc.inflight[TierKeys] > 0,
		Local:      lc.inflight[TierLocal] > 0,
		Hosts:      lc.inflight[TierHosts] > 0,
	}
}

// Notify forwards n to the injected Notifier.
func (lc *Lifecycle) Notify(n Notice) {
	lc.notifier.Notify(n)
}

func (lc *Lifecycle) Logger() log.Logger { return lc.logger }

func (lc *Lifecycle) adjust(t Tier, delta int) {
	lc.mu.Lock()
	before := lc.inflight[t] > 0
	lc.inflight[t] += delta
	after := lc.inflight[t] > 0
	fn := lc.onChange
	lc.mu.Unlock()
	if before != after && fn != nil {
		fn()
	}
}

// hold waits until minDelay has passed since start or ctx is done.
func (lc *Lifecycle) hold(ctx context.Context, start time.Time) {
	rest := lc.minDelay - time.Since(start)
	if rest <= 0 {
		return
	}
	timer := time.NewTimer(rest)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Do runs a mutation call under the latency floor. No tier flag is raised.
func (lc *Lifecycle) Do(ctx context.Context, call func(context.Context) bool) bool {
	start := time.Now()
	ok := call(ctx)
	lc.hold(ctx, start)
	return ok
}

// Track runs call as a load of tier t. The tier reads as loading until the
// call has returned and the latency floor has passed. On failure the
// result holds the zero value of T and an error notice is emitted.
func Track[T any](ctx context.Context, lc *Lifecycle, t Tier, call func(context.Context) admin.Result[T]) admin.Result[T] {
	res, fail := track(ctx, lc, t, call)
	if fail != nil {
		lc.Notify(*fail)
	}
	return res
}

// track is Track without the notice; the caller decides whether fail is
// still worth showing.
func track[T any](ctx context.Context, lc *Lifecycle, t Tier, call func(context.Context) admin.Result[T]) (admin.Result[T], *Notice) {
	lc.adjust(t, 1)
	defer lc.adjust(t, -1)

	start := time.Now()
	res := call(ctx)
	lc.hold(ctx, start)

	if !res.OK {
		text := res.Msg
		if text == "" {
			text = "failed to load " + t.String()
		}
		lc.logger.Warn("load failed", log.Fields{"tier": t.String(), "msg": res.Msg})
		return admin.Fail[T](res.Msg), &Notice{Level: LevelError, Text: text}
	}
	return res, nil
}
