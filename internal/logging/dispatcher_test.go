package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thingforge/thingforge/internal/dispatcher"
)

var _ dispatcher.Logger = (*DispatcherLogger)(nil)

func newTestLogger(level zerolog.Level) (*DispatcherLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewDispatcherLogger(zerolog.New(&buf).Level(level)), &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestDispatcherLogger_Debug(t *testing.T) {
	dl, buf := newTestLogger(zerolog.DebugLevel)

	dl.Debug("test message", "key1", "value1", "key2", 42)

	entry := decode(t, buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "test message", entry["message"])
	assert.Equal(t, "value1", entry["key1"])
	assert.Equal(t, float64(42), entry["key2"])
}

func TestDispatcherLogger_Info(t *testing.T) {
	dl, buf := newTestLogger(zerolog.InfoLevel)

	dl.Info("info message", "status", "ok")

	entry := decode(t, buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "ok", entry["status"])
}

func TestDispatcherLogger_Error(t *testing.T) {
	dl, buf := newTestLogger(zerolog.ErrorLevel)

	dl.Error("error occurred", "code", 500, "reason", "internal")

	entry := decode(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, float64(500), entry["code"])
	assert.Equal(t, "internal", entry["reason"])
}

func TestDispatcherLogger_FiltersByLevel(t *testing.T) {
	dl, buf := newTestLogger(zerolog.InfoLevel)

	dl.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestToFields(t *testing.T) {
	tests := []struct {
		name string
		in   []any
		want map[string]any
	}{
		{"empty", nil, map[string]any{}},
		{"pairs", []any{"a", 1, "b", "two"}, map[string]any{"a": 1, "b": "two"}},
		{"odd count drops the tail", []any{"a", 1, "b"}, map[string]any{"a": 1}},
		{"non-string key skipped", []any{3, "x", "c", true}, map[string]any{"c": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toFields(tt.in))
		})
	}
}

func TestDispatcherLogger_ErrorField(t *testing.T) {
	dl, buf := newTestLogger(zerolog.InfoLevel)

	dl.Error("command failed", "command", "get_thing", "error", errors.New("id 7 out of range"))

	entry := decode(t, buf)
	assert.Equal(t, "id 7 out of range", entry["error"])
	assert.Equal(t, "get_thing", entry["command"])
}
