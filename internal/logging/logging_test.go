package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yrain/smart-cache/pkg/config"
	"github.com/yrain/smart-cache/pkg/log"
)

func TestZapWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l, closeFn, err := NewWriter("zap", "debug", &buf)
	require.NoError(t, err)
	l.Info("admin call", log.Fields{"op": "names"})
	require.NoError(t, closeFn())

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "admin call", line["msg"])
	assert.Equal(t, "names", line["op"])
}

func TestLogrusRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l, _, err := NewWriter("logrus", "warn", &buf)
	require.NoError(t, err)
	l.Info("hidden", nil)
	l.Warn("shown", log.Fields{"tier": "keys"})

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "keys", line["tier"])
}

func TestUnknownBackendAndLevel(t *testing.T) {
	_, _, err := NewWriter("slog", "info", &bytes.Buffer{})
	assert.Error(t, err)
	_, _, err = NewWriter("zap", "loud", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cachectl.log")
	l, closeFn, err := New(config.Options{LogFile: path, Logger: "zap"})
	require.NoError(t, err)
	l.Error("boom", nil)
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"boom"`)
}

func TestNewWithoutFileIsNop(t *testing.T) {
	l, closeFn, err := New(config.Options{})
	require.NoError(t, err)
	assert.IsType(t, log.Nop{}, l)
	assert.NoError(t, closeFn())
}
