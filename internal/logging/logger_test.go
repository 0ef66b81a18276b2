package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
		debug bool
		info  bool
	}{
		{level: "debug", debug: true, info: true},
		{level: "info", debug: false, info: true},
		{level: "warn", debug: false, info: false},
		{level: "error", debug: false, info: false},
		{level: "unknown", debug: false, info: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewLogger(Config{Level: tt.level, Format: "text"})
			assert.Equal(t, tt.debug, logger.Enabled(context.Background(), slog.LevelDebug))
			assert.Equal(t, tt.info, logger.Enabled(context.Background(), slog.LevelInfo))
		})
	}
}

func TestLoggerContext(t *testing.T) {
	logger := NewLogger(Config{Level: "info", Format: "json"})
	ctx := WithLogger(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
}

func TestFromContext_Default(t *testing.T) {
	logger := FromContext(context.Background())
	require.NotNil(t, logger)
	require.NotNil(t, logger.Logger)
}

func TestQuestionIDContext(t *testing.T) {
	ctx := WithQuestionIDContext(context.Background(), "q-123")
	assert.Equal(t, "q-123", GetQuestionID(ctx))
	assert.Empty(t, GetQuestionID(context.Background()))
}

func TestWithQuestionID_ReturnsDerivedLogger(t *testing.T) {
	logger := NewLogger(Config{Level: "info", Format: "text"})
	derived := logger.WithQuestionID("q-123")

	require.NotNil(t, derived)
	assert.NotSame(t, logger, derived)
}
