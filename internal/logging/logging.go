// Package logging builds the application's slog.Logger from configuration.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// New creates a logger writing to out. Format "pretty" selects colorized
// human-readable output for local development; anything else gets JSON.
func New(out io.Writer, format, level string) *slog.Logger {
	lvl := parseLevel(level)

	if format == "pretty" {
		return slog.New(tint.NewHandler(out, &tint.Options{
			Level:      lvl,
			TimeFormat: time.TimeOnly,
		}))
	}

	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: lvl}))
}

func parseLevel(level string) slog.Level {
	switch level {
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
