package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New returns the default process logger: JSON at info level. Services
// receive loggers via constructor injection; nothing reads the slog default.
func New() *slog.Logger {
	return NewWith("", "")
}

// NewWith builds a logger for the given level (debug, info, warn, error)
// and format (json or text). Unknown values fall back to info and json.
func NewWith(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// Discard returns a logger that drops everything, for tests that do not
// assert on log output.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
