// Package daemon keeps one authenticated gateway session open and serves
// it to other cachectl processes over a Unix socket.
package daemon

import (
	"context"
	"errors"

	srvipc "github.com/yrain/smart-cache/internal/ipc"
	"github.com/yrain/smart-cache/pkg/admin"
	"github.com/yrain/smart-cache/pkg/console"
	ipcmsg "github.com/yrain/smart-cache/pkg/ipc"
	"github.com/yrain/smart-cache/pkg/log"
)

var (
	errNameRequired = errors.New("name is required")
	errKeyRequired  = errors.New("key is required")
)

// gatewayError carries a failed gateway result back to the client. An
// empty message is sent as is so the client falls back to its own text.
type gatewayError struct{ msg string }

func (e gatewayError) Error() string { return e.msg }

// Service holds daemon state.
type Service struct {
	gw         console.Gateway
	target     string
	server     string
	socketPath string
	logger     log.Logger
}

// NewService returns a Service forwarding requests to gw. target and
// server only describe gw in ping replies.
func NewService(gw console.Gateway, target, server, socketPath string, logger log.Logger) *Service {
	return &Service{gw: gw, target: target, server: server, socketPath: socketPath, logger: log.OrNop(logger)}
}

// Serve runs the IPC server until ctx is done.
func (s *Service) Serve(ctx context.Context) error {
	s.logger.Info("daemon listening", log.Fields{"socket": s.socketPath, "target": s.target})
	return srvipc.Serve(ctx, s.socketPath, s.Handle)
}

// Handle answers one request.
func (s *Service) Handle(ctx context.Context, req ipcmsg.Request) (interface{}, error) {
	s.logger.Debug("daemon request", log.Fields{"method": req.Method, "namespace": req.Name, "key": req.Key})
	switch req.Method {
	case ipcmsg.MethodPing:
		return map[string]string{"target": s.target, "server": s.server}, nil
	case ipcmsg.MethodNames:
		return unwrap(s.gw.ListNamespaces(ctx))
	case ipcmsg.MethodKeys:
		if req.Name == "" {
			return nil, errNameRequired
		}
		return unwrap(s.gw.ListKeys(ctx, req.Name))
	case ipcmsg.MethodGet:
		if err := needKey(req); err != nil {
			return nil, err
		}
		return unwrap(s.gw.GetLocalValue(ctx, req.Name, req.Key))
	case ipcmsg.MethodFetch:
		if err := needKey(req); err != nil {
			return nil, err
		}
		return unwrap(s.gw.ListHostValues(ctx, req.Name, req.Key))
	case ipcmsg.MethodDelete:
		if err := needKey(req); err != nil {
			return nil, err
		}
		return done(s.gw.DeleteKey(ctx, req.Name, req.Key))
	case ipcmsg.MethodRemove:
		if req.Name == "" {
			return nil, errNameRequired
		}
		return done(s.gw.ClearNamespace(ctx, req.Name))
	case ipcmsg.MethodClear:
		return done(s.gw.ClearAll(ctx))
	default:
		return nil, srvipc.ErrNotImplemented
	}
}

func needKey(req ipcmsg.Request) error {
	if req.Name == "" {
		return errNameRequired
	}
	if req.Key == "" {
		return errKeyRequired
	}
	return nil
}

func unwrap[T any](r admin.Result[T]) (interface{}, error) {
	if !r.OK {
		return nil, gatewayError{msg: r.Msg}
	}
	return r.Data, nil
}

func done(ok bool) (interface{}, error) {
	if !ok {
		return nil, gatewayError{}
	}
	return true, nil
}
