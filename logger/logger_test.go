package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/programme-lv/scorer/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, logger.ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, logger.ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, logger.ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, logger.ParseLevel("verbose"))
}

func TestContextLogger(t *testing.T) {
	assert.Same(t, slog.Default(), logger.FromContext(context.Background()))

	var buf bytes.Buffer
	ctx := logger.WithLogger(context.Background(), logger.NewJSON(&buf, slog.LevelInfo))
	ctx = logger.WithRequestID(ctx, "req-1")
	ctx = logger.WithSubm(ctx, "0b9b6a2e")
	logger.FromContext(ctx).Info("scored")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "scored", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "0b9b6a2e", line["subm_uuid"])
}

func TestNewTerminalWritesPlainToBuffer(t *testing.T) {
	var buf bytes.Buffer
	logger.NewTerminal(&buf, slog.LevelWarn).Info("hidden")
	logger.NewTerminal(&buf, slog.LevelWarn).Warn("shown", "task", "kvadrputekl")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "task=kvadrputekl")
	assert.NotContains(t, out, "\x1b[")
}

func TestNewTerminalPlainToRegularFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "scorer.log"))
	require.NoError(t, err)
	defer f.Close()

	logger.NewTerminal(f, slog.LevelInfo).Error("rescore failed", "task", "summa")
	require.NoError(t, f.Sync())

	out, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Contains(t, string(out), "rescore failed")
	assert.NotContains(t, string(out), "\x1b[")
}
