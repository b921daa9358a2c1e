package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_StructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf), WithService("finbridge-test"))

	logger.Info("quote served", "provider", "marketdata", "ticker", "AAPL")

	entry := captureEntry(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "finbridge-test", entry["service"])
	assert.Equal(t, "quote served", entry["message"])

	fields, ok := entry["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "marketdata", fields["provider"])
	assert.Equal(t, "AAPL", fields["ticker"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf), WithLevel(LevelWarn))

	logger.Debug("dropped")
	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	logger.Error("kept too")
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))
}

func TestLogger_CorrelationIDFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WithOutput(&buf))

	ctx := WithCorrelationID(context.Background(), "corr-123")
	logger.InfoWithContext(ctx, "request completed", "status", 200)

	entry := captureEntry(t, &buf)
	assert.Equal(t, "corr-123", entry["correlation_id"])
}

func TestParseFields(t *testing.T) {
	t.Run("pairs", func(t *testing.T) {
		correlationID, fields := parseFields([]interface{}{"a", 1, "b", "two"})
		assert.Empty(t, correlationID)
		assert.Equal(t, 1, fields["a"])
		assert.Equal(t, "two", fields["b"])
	})

	t.Run("correlation id extracted", func(t *testing.T) {
		correlationID, fields := parseFields([]interface{}{"correlation_id", "corr-1", "a", 1})
		assert.Equal(t, "corr-1", correlationID)
		assert.NotContains(t, fields, "correlation_id")
	})

	t.Run("odd trailing key ignored", func(t *testing.T) {
		_, fields := parseFields([]interface{}{"a", 1, "dangling"})
		assert.Len(t, fields, 1)
	})
}

func TestGenerateCorrelationID(t *testing.T) {
	first := GenerateCorrelationID()
	second := GenerateCorrelationID()
	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}

func TestGetCorrelationID_Absent(t *testing.T) {
	assert.Empty(t, GetCorrelationID(context.Background()))
}
