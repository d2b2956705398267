package clog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level string, opts ...Option) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	opts = append(opts, WithWriter(&buf))
	logger, err := New(&Config{Level: level, Format: "json", Output: "buffer"}, opts...)
	require.NoError(t, err)
	return logger, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNew(t *testing.T) {
	t.Run("nil 配置使用开发默认值", func(t *testing.T) {
		logger, err := New(nil)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("非法级别", func(t *testing.T) {
		_, err := New(&Config{Level: "verbose"})
		assert.Error(t, err)
	})

	t.Run("非法格式", func(t *testing.T) {
		_, err := New(&Config{Level: "info", Format: "xml"})
		assert.Error(t, err)
	})

	t.Run("buffer 输出必须提供 writer", func(t *testing.T) {
		_, err := New(&Config{Output: "buffer"})
		assert.Error(t, err)
	})
}

func TestLevels(t *testing.T) {
	logger, buf := newBufferLogger(t, "info")

	logger.Debug("hidden")
	logger.Info("shown")
	require.NoError(t, logger.SetLevel(DebugLevel))
	logger.Debug("now shown")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "DEBUG", entries[1]["level"])
}

func TestNamespaceAndFields(t *testing.T) {
	logger, buf := newBufferLogger(t, "debug", WithNamespace("scoregate"))

	child := logger.WithNamespace("provider", "espn").With(String("component", "client"))
	child.Warn("upstream slow", Int("status", 503), Error(errors.New("boom")))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "scoregate.provider.espn", entries[0][NamespaceKey])
	assert.Equal(t, "client", entries[0]["component"])
	assert.Equal(t, float64(503), entries[0]["status"])
	assert.Equal(t, "boom", entries[0]["err_msg"])
}

func TestStandardContext(t *testing.T) {
	logger, buf := newBufferLogger(t, "info", WithStandardContext())

	ctx := WithRequestID(context.Background(), "req-1")
	logger.InfoContext(ctx, "handled")

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-1", entries[0]["request_id"])
	assert.Equal(t, "req-1", RequestIDFrom(ctx))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		err  bool
	}{
		{"DEBUG", DebugLevel, false},
		{"warning", WarnLevel, false},
		{"fatal", FatalLevel, false},
		{"loud", InfoLevel, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.err, err != nil, tt.in)
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	assert.NotPanics(t, func() {
		logger.With(String("k", "v")).WithNamespace("x").Info("ignored")
		_ = logger.SetLevel(ErrorLevel)
		logger.Flush()
	})
}
