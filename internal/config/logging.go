package config

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the process logger described by conf.
func NewLogger(conf LoggingConf, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(conf.Level)}
	if conf.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
