package logutil

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, slog.LevelInfo, Level(false, false))
	assert.Equal(t, slog.LevelDebug, Level(true, false))
	assert.Equal(t, LevelTrace, Level(true, true))
	assert.Equal(t, LevelTrace, Level(false, true))
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelTrace)

	Trace(context.Background(), logger, "fragment", "text", `{"a"`)
	out := buf.String()
	assert.Contains(t, out, "level=TRACE")
	assert.Contains(t, out, "source=logutil_test.go:")
	assert.Contains(t, out, "msg=fragment")

	buf.Reset()
	logger = NewLogger(&buf, slog.LevelDebug)
	Trace(context.Background(), logger, "fragment")
	assert.Empty(t, buf.String())
}
