package config

import (
	"log/slog"
	"os"
)

// NewLogger returns the process logger. Production emits JSON for log
// shipping; everything else uses the text handler. LOG_LEVEL accepts
// debug, info, warn or error (default info).
func NewLogger() *slog.Logger {
	level := slog.LevelInfo
	if s := os.Getenv("LOG_LEVEL"); s != "" {
		if err := level.UnmarshalText([]byte(s)); err != nil {
			level = slog.LevelInfo
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	if os.Getenv("GO_ENV") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
