package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWith(t *testing.T) {
	ctx := context.Background()

	t.Run("level gates lower records", func(t *testing.T) {
		log := NewWith("warn", "json")
		assert.False(t, log.Enabled(ctx, slog.LevelInfo))
		assert.True(t, log.Enabled(ctx, slog.LevelWarn))
	})

	t.Run("text format selects the text handler", func(t *testing.T) {
		log := NewWith("info", "text")
		_, ok := log.Handler().(*slog.TextHandler)
		assert.True(t, ok)
	})

	t.Run("unknown values fall back to info and json", func(t *testing.T) {
		log := NewWith("loud", "yaml")
		_, ok := log.Handler().(*slog.JSONHandler)
		assert.True(t, ok)
		assert.True(t, log.Enabled(ctx, slog.LevelInfo))
		assert.False(t, log.Enabled(ctx, slog.LevelDebug))
	})
}
