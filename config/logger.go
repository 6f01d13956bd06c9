package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewLogger builds a *slog.Logger from LogConfig and installs it as the
// default logger. "json" is meant for production, "text" adds source
// locations for development. Output goes to os.Stderr.
func NewLogger(cfg LogConfig) *slog.Logger {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: strings.EqualFold(cfg.Format, "text"),
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
