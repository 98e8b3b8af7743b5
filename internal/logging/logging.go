// Package logging builds the configured log backend. Output always goes to
// a file so nothing is written over the TUI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yrain/smart-cache/pkg/config"
	"github.com/yrain/smart-cache/pkg/log"
	logruslog "github.com/yrain/smart-cache/pkg/log/logrus"
	zaplog "github.com/yrain/smart-cache/pkg/log/zap"
)

// New returns a Logger for opts and a func that flushes and closes it.
// An empty LogFile disables logging.
func New(opts config.Options) (log.Logger, func() error, error) {
	if opts.LogFile == "" {
		return log.Nop{}, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	l, closer, err := NewWriter(opts.Logger, opts.LogLevel, f)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return l, func() error {
		_ = closer()
		return f.Close()
	}, nil
}

// NewWriter builds backend ("zap" or "logrus") writing JSON lines to w.
func NewWriter(backend, level string, w io.Writer) (log.Logger, func() error, error) {
	if level == "" {
		level = "info"
	}
	switch strings.ToLower(backend) {
	case "", "zap":
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), lvl)
		zl := zap.New(core).Named("cachectl")
		return zaplog.ZapLogger{L: zl}, func() error { _ = zl.Sync(); return nil }, nil
	case "logrus":
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		lr := logrus.New()
		lr.SetOutput(w)
		lr.SetLevel(lvl)
		lr.SetFormatter(&logrus.JSONFormatter{})
		return logruslog.LogrusLogger{E: logrus.NewEntry(lr).WithField("logger", "cachectl")}, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown logger %q (want zap or logrus)", backend)
	}
}
