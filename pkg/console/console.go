// Package console holds the cache console's state: the cascading
// namespace, key and host selection, the request lifecycle wrapped around
// every gateway call, the mutation flows, and list filtering.
//
// Rendering, prompting and transport are injected through the interfaces
// below so the same core drives both the CLI and the TUI.
package console

import (
	"context"

	"github.com/yrain/smart-cache/pkg/admin"
)

// Gateway is the cache admin API. Implementations never return errors;
// failures surface as a Result with OK false or a false bool.
type Gateway interface {
	ListNamespaces(ctx context.Context) admin.Result[[]string]
	ListKeys(ctx context.Context, namespace string) admin.Result[[]admin.KeyEntry]
	GetLocalValue(ctx context.Context, namespace, key string) admin.Result[admin.Value]
	ListHostValues(ctx context.Context, namespace, key string) admin.Result[[]admin.HostRecord]
	DeleteKey(ctx context.Context, namespace, key string) bool
	ClearNamespace(ctx context.Context, namespace string) bool
	ClearAll(ctx context.Context) bool
}

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a transient user-facing message.
type Notice struct {
	Level Level
	Text  string
}

type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Prompt is the question put to the user before a destructive call.
type Prompt struct {
	Title string
	Text  string
}

// Confirmer asks the user to accept a Prompt. It blocks until the user
// answers or ctx is done; a done context counts as a refusal.
type Confirmer interface {
	Confirm(ctx context.Context, p Prompt) bool
}

type ConfirmFunc func(ctx context.Context, p Prompt) bool

func (f ConfirmFunc) Confirm(ctx context.Context, p Prompt) bool { return f(ctx, p) }
