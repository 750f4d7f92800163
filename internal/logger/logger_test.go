package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	var buf bytes.Buffer
	Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level}))
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var rec map[string]any
		require.NoError(t, sonic.Unmarshal(line, &rec), string(line))
		out = append(out, rec)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestLevelHelpers(t *testing.T) {
	buf := capture(t, slog.LevelDebug)

	LogDebug("seed loaded", "students", 3)
	LogWarn("seed sections are empty", "sections", []string{"teachers"})
	LogErrorWithContext("provisioning failed", errors.New("boom"), map[string]any{"seed": "seed.json"})

	recs := lines(t, buf)
	require.Len(t, recs, 3)
	assert.Equal(t, "DEBUG", recs[0]["level"])
	assert.Equal(t, float64(3), recs[0]["students"])
	assert.Equal(t, "WARN", recs[1]["level"])
	assert.Equal(t, "ERROR", recs[2]["level"])
	assert.Equal(t, "boom", recs[2]["error"])
	assert.Equal(t, "seed.json", recs[2]["seed"])
}

func TestDebugSuppressedAtInfo(t *testing.T) {
	buf := capture(t, slog.LevelInfo)

	LogDebug("hidden")
	LogInfo("shown")

	recs := lines(t, buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "shown", recs[0]["msg"])
}

func TestContextLogger(t *testing.T) {
	buf := capture(t, slog.LevelInfo)

	ctx := WithContext(context.Background(), "request_id", "abc-123")
	FromContext(ctx).Info("request")
	FromContext(context.Background()).Info("no request")

	recs := lines(t, buf)
	require.Len(t, recs, 2)
	assert.Equal(t, "abc-123", recs[0]["request_id"])
	assert.NotContains(t, recs[1], "request_id")
}
