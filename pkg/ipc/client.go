package ipc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/yrain/smart-cache/pkg/admin"
	"github.com/yrain/smart-cache/pkg/log"
)

// Method names understood by the daemon.
const (
	MethodPing   = "ping"
	MethodNames  = "names"
	MethodKeys   = "keys"
	MethodGet    = "get"
	MethodFetch  = "fetch"
	MethodDelete = "del"
	MethodRemove = "rem"
	MethodClear  = "cls"
)

// Client is a cache Gateway that forwards every call to a running daemon.
// Each call uses its own connection.
type Client struct {
	socketPath string
	timeout    time.Duration
	logger     log.Logger
}

func NewClient(socketPath string, timeout time.Duration, logger log.Logger) *Client {
	return &Client{socketPath: socketPath, timeout: timeout, logger: log.OrNop(logger)}
}

// Ping returns the daemon's description of the target it serves.
func (c *Client) Ping(ctx context.Context) (map[string]string, error) {
	resp, err := c.roundTrip(ctx, Request{Method: MethodPing})
	if err != nil {
		return nil, err
	}
	var out map[string]string
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) roundTrip(ctx context.Context, req Request) (rawResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	conn, err := DialContext(ctx, c.socketPath)
	if err != nil {
		return rawResponse{}, err
	}
	defer conn.Close()
	if err := conn.SendRequest(req); err != nil {
		return rawResponse{}, err
	}
	var resp rawResponse
	if err := conn.ReadResponse(&resp); err != nil {
		return rawResponse{}, err
	}
	return resp, nil
}

// call performs req and decodes a successful payload into out.
func (c *Client) call(ctx context.Context, req Request, out any) (bool, string) {
	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		c.logger.Error("daemon call failed", log.Fields{"method": req.Method, "err": err.Error()})
		return false, ""
	}
	if !resp.OK {
		return false, resp.Error
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			c.logger.Error("daemon response rejected", log.Fields{"method": req.Method, "err": err.Error()})
			return false, ""
		}
	}
	return true, ""
}

func result[T any](ok bool, msg string, v T) admin.Result[T] {
	if !ok {
		return admin.Fail[T](msg)
	}
	return admin.Succeed(v)
}

func (c *Client) ListNamespaces(ctx context.Context) admin.Result[[]string] {
	out := []string{}
	ok, msg := c.call(ctx, Request{Method: MethodNames}, &out)
	return result(ok, msg, out)
}

func (c *Client) ListKeys(ctx context.Context, namespace string) admin.Result[[]admin.KeyEntry] {
	out := []admin.KeyEntry{}
	ok, msg := c.call(ctx, Request{Method: MethodKeys, Name: namespace}, &out)
	return result(ok, msg, out)
}

func (c *Client) GetLocalValue(ctx context.Context, namespace, key string) admin.Result[admin.Value] {
	var out admin.Value
	ok, msg := c.call(ctx, Request{Method: MethodGet, Name: namespace, Key: key}, &out)
	if string(out) == "null" {
		out = nil
	}
	return result(ok, msg, out)
}

func (c *Client) ListHostValues(ctx context.Context, namespace, key string) admin.Result[[]admin.HostRecord] {
	out := []admin.HostRecord{}
	ok, msg := c.call(ctx, Request{Method: MethodFetch, Name: namespace, Key: key}, &out)
	return result(ok, msg, out)
}

func (c *Client) DeleteKey(ctx context.Context, namespace, key string) bool {
	ok, _ := c.call(ctx, Request{Method: MethodDelete, Name: namespace, Key: key}, nil)
	return ok
}

func (c *Client) ClearNamespace(ctx context.Context, namespace string) bool {
	ok, _ := c.call(ctx, Request{Method: MethodRemove, Name: namespace}, nil)
	return ok
}

func (c *Client) ClearAll(ctx context.Context) bool {
	ok, _ := c.call(ctx, Request{Method: MethodClear}, nil)
	return ok
}
