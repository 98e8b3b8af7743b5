// Package ipc is the wire format spoken over the daemon's Unix socket and
// a Gateway client for it.
package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Request represents an IPC request.
type Request struct {
	Method string `json:"method"`
	Name   string `json:"name,omitempty"`
	Key    string `json:"key,omitempty"`
}

// Response represents an IPC response.
type Response struct {
	OK    bool        `json:"ok"`
	Error string      `json:"error,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// rawResponse is Response as read by the client.
type rawResponse struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Conn wraps a Unix socket connection with framed JSON.
type Conn struct {
	conn net.Conn
	rw   *bufio.ReadWriter
}

// Dial connects to a Unix socket.
func Dial(socketPath string) (*Conn, error) {
	return DialContext(context.Background(), socketPath)
}

// DialContext connects to a Unix socket. The context deadline, if any,
// also bounds every later read and write on the connection.
func DialContext(ctx context.Context, socketPath string) (*Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.SetDeadline(deadline)
	}
	return &Conn{conn: c, rw: bufio.NewReadWriter(bufio.NewReader(c), bufio.NewWriter(c))}, nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// SetDeadline bounds the next reads and writes.
func (c *Conn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// SendRequest writes a framed JSON request.
func (c *Conn) SendRequest(req Request) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if _, err := c.rw.Write(append(b, '\n')); err != nil {
		return err
	}
	return c.rw.Flush()
}

// ReadResponse reads one framed JSON response.
func (c *Conn) ReadResponse(resp interface{}) error {
	line, err := c.rw.ReadBytes('\n')
	if err != nil {
		return err
	}
	if err := json.Unmarshal(line, resp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
