package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"

	ipcmsg "github.com/yrain/smart-cache/pkg/ipc"
)

// HandlerFunc processes a request and returns a response payload or error.
type HandlerFunc func(ctx context.Context, req ipcmsg.Request) (interface{}, error)

// Listen removes any stale socket at socketPath and listens on it.
func Listen(socketPath string) (net.Listener, error) {
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	if err := os.Chmod(socketPath, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}
	return ln, nil
}

// Serve starts a Unix socket server and handles requests with the provided
// handler until ctx is done.
func Serve(ctx context.Context, socketPath string, handler HandlerFunc) error {
	ln, err := Listen(socketPath)
	if err != nil {
		return err
	}
	return ServeListener(ctx, ln, handler)
}

// ServeListener handles connections from ln until ctx is done. It closes ln.
func ServeListener(ctx context.Context, ln net.Listener, handler HandlerFunc) error {
	defer ln.Close()
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go handleConn(ctx, conn, handler)
	}
}

func handleConn(ctx context.Context, c net.Conn, handler HandlerFunc) {
	defer c.Close()
	rw := bufio.NewReadWriter(bufio.NewReader(c), bufio.NewWriter(c))
	for {
		line, err := rw.ReadBytes('\n')
		if err != nil {
			return
		}
		var req ipcmsg.Request
		if err := json.Unmarshal(line, &req); err != nil {
			writeResp(rw, ipcmsg.Response{OK: false, Error: "invalid request"})
			continue
		}
		data, err := handler(ctx, req)
		if err != nil {
			writeResp(rw, ipcmsg.Response{OK: false, Error: err.Error()})
			continue
		}
		writeResp(rw, ipcmsg.Response{OK: true, Data: data})
	}
}

func writeResp(w *bufio.ReadWriter, resp ipcmsg.Response) {
	b, err := json.Marshal(resp)
	if err != nil {
		return
	}
	b = append(b, '\n')
	_, _ = w.Write(b)
	_ = w.Flush()
}

// ErrNotImplemented is returned for unknown methods.
var ErrNotImplemented = errors.New("method not implemented")
