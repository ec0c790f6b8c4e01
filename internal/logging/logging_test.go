package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/rickgao/perp-research/internal/config"
)

func TestTextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, flush, err := New(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)
	require.NoError(t, err)
	defer flush()

	logger.Info("hidden")
	logger.Warn("shown", "exchange", "dydx")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "exchange=dydx"))
}

func TestJSONLogger(t *testing.T) {
	logger, flush, err := New(config.LoggingConfig{Level: "debug", Format: "json"}, nil)
	require.NoError(t, err)
	defer flush()
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestInvalidConfig(t *testing.T) {
	_, _, err := New(config.LoggingConfig{Level: "loud"}, nil)
	assert.Error(t, err)

	_, _, err = New(config.LoggingConfig{Format: "xml"}, nil)
	assert.Error(t, err)
}

func TestZapLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, zapLevel(slog.LevelDebug))
	assert.Equal(t, zapcore.InfoLevel, zapLevel(slog.LevelInfo))
	assert.Equal(t, zapcore.WarnLevel, zapLevel(slog.LevelWarn))
	assert.Equal(t, zapcore.ErrorLevel, zapLevel(slog.LevelError))
}
