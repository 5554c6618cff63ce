package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrNop(t *testing.T) {
	var typed *slogPrintfLogger
	assert.True(t, IsNil(typed))
	assert.True(t, IsNil(nil))

	l := OrNop(typed)
	assert.NotPanics(t, func() { l.Info("hello %s", "world") })
}

func TestComponentLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn").Component("tagedit")

	log.Info("dropped %d", 1)
	log.Warn("kept %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept 2")
	assert.Contains(t, out, "component=tagedit")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
