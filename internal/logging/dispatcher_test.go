package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestDispatcherLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		log   func(*DispatcherLogger)
	}{
		{"debug", func(l *DispatcherLogger) { l.Debug("test message", "key1", "value1", "key2", 42) }},
		{"info", func(l *DispatcherLogger) { l.Info("test message", "key1", "value1", "key2", 42) }},
		{"error", func(l *DispatcherLogger) { l.Error("test message", "key1", "value1", "key2", 42) }},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)))

			entry := decodeLine(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "test message", entry["message"])
			assert.Equal(t, "value1", entry["key1"])
			assert.Equal(t, float64(42), entry["key2"])
		})
	}
}

func TestToFields(t *testing.T) {
	assert.Equal(t, map[string]any{"a": 1}, toFields([]any{"a", 1, "dangling"}))
	assert.Equal(t, map[string]any{"b": 2}, toFields([]any{3, "x", "b", 2}))
	assert.Empty(t, toFields(nil))
}

func TestNewZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerolog(&buf, "warn")

	logger.Info().Msg("filtered")
	assert.Zero(t, buf.Len())

	logger.Warn().Msg("kept")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, InstrumentationName, entry["component"])
	assert.Contains(t, entry, "time")
}

func TestNewZerolog_BadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerolog(&buf, "loud")

	logger.Debug().Msg("filtered")
	assert.Zero(t, buf.Len())
	logger.Info().Msg("kept")
	assert.NotZero(t, buf.Len())
}
