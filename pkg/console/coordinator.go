package console

import (
	"context"
	"fmt"

	"github.com/yrain/smart-cache/pkg/log"
)

// Outcome is how a confirmed mutation ended.
type Outcome int

const (
	Cancelled Outcome = iota
	Succeeded
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "cancelled"
	}
}

var failText = map[string]string{
	"del": "failed to delete key",
	"rem": "failed to clear namespace",
	"cls": "failed to clear cache",
}

// Syncer is refreshed after a successful mutation. *Store satisfies it.
type Syncer interface {
	Reload()
	ReloadKeys()
}

// Coordinator runs destructive calls behind a confirmation and brings the
// Syncer back in line afterwards.
type Coordinator struct {
	gw      Gateway
	lc      *Lifecycle
	confirm Confirmer
	sync    Syncer
	logger  log.Logger
}

// NewCoordinator returns a Coordinator. sync may be nil for one-shot use.
func NewCoordinator(gw Gateway, lc *Lifecycle, confirm Confirmer, sync Syncer) *Coordinator {
	return &Coordinator{gw: gw, lc: lc, confirm: confirm, sync: sync, logger: lc.Logger()}
}

func (c *Coordinator) DeleteKey(ctx context.Context, namespace, key string) Outcome {
	prompt := Prompt{Title: "Confirm", Text: fmt.Sprintf("Remove key %q from %q?", key, namespace)}
	return c.mutate(ctx, "del", prompt, LevelError,
		func(ctx context.Context) bool { return c.gw.DeleteKey(ctx, namespace, key) },
		func(s Syncer) { s.ReloadKeys() },
		log.Fields{"namespace": namespace, "key": key})
}

func (c *Coordinator) ClearNamespace(ctx context.Context, namespace string) Outcome {
	prompt := Prompt{Title: "Confirm", Text: fmt.Sprintf("Remove namespace %q?", namespace)}
	return c.mutate(ctx, "rem", prompt, LevelError,
		func(ctx context.Context) bool { return c.gw.ClearNamespace(ctx, namespace) },
		Syncer.Reload,
		log.Fields{"namespace": namespace})
}

func (c *Coordinator) ClearAll(ctx context.Context) Outcome {
	prompt := Prompt{Title: "Confirm", Text: "Clean all?"}
	return c.mutate(ctx, "cls", prompt, LevelWarning,
		c.gw.ClearAll,
		Syncer.Reload,
		log.Fields{})
}

func (c *Coordinator) mutate(ctx context.Context, op string, p Prompt, failLevel Level,
	call func(context.Context) bool, resync func(Syncer), fields log.Fields) Outcome {
	fields["op"] = op
	if !c.confirm.Confirm(ctx, p) {
		c.logger.Info("mutation cancelled", fields)
		return Cancelled
	}
	if !c.lc.Do(ctx, call) {
		c.logger.Warn("mutation failed", fields)
		c.lc.Notify(Notice{Level: failLevel, Text: failText[op]})
		return Failed
	}
	c.logger.Info("mutation applied", fields)
	c.lc.Notify(Notice{Level: LevelSuccess, Text: "success."})
	if c.sync != nil {
		resync(c.sync)
	}
	return Succeeded
}
