package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf), WithLevel(LevelDebug), WithService("test"))

	logger.Info("fetch complete", "provider", "codex", "accounts", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "test", entry["service"])
	assert.Equal(t, "fetch complete", entry["message"])
	fields, ok := entry["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "codex", fields["provider"])
	assert.Equal(t, float64(3), fields["accounts"])
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf), WithLevel(LevelWarn))

	logger.Debug("dropped")
	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Error("kept")
	assert.NotZero(t, buf.Len())
}

func TestLoggerCorrelationIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf))

	ctx := WithCorrelationID(context.Background(), "cid-123")
	logger.InfoWithContext(ctx, "scoped message")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "cid-123", entry["correlation_id"])
}

func TestCorrelationIDHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetCorrelationID(ctx))

	ctx = WithCorrelationID(ctx, "cid")
	assert.Equal(t, "cid", GetCorrelationID(ctx))
	assert.Equal(t, "cid", MustGetCorrelationID(ctx))

	assert.NotEmpty(t, MustGetCorrelationID(context.Background()))
}
