package config

import (
	"io"
	"log/slog"
)

// NewLogger builds a slog logger writing to w in the configured format.
// An unknown level falls back to info; Validate reports it.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
