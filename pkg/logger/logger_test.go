package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel(" warning "))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestSlogLogger_ErrorfWritesErrorField(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLoggerWithWriter(&buf, "info")

	log.Errorf(errors.New("boom"), "submit failed for %s", "ISS-000001")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "submit failed for ISS-000001", entry["msg"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "pharmacy-counter", entry["service"])
}

func TestSlogLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLoggerWithWriter(&buf, "warn")

	log.Infof("hidden")
	log.Debugf("hidden")
	assert.Zero(t, buf.Len())

	log.With("session_id", "s-1").Warnf("visible")
	assert.Contains(t, buf.String(), `"session_id":"s-1"`)
}
