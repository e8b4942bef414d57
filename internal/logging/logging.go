// Package logging builds the slog loggers shared by every component.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelSilent is above every standard level
const LevelSilent = slog.Level(100)

// NewLogger creates a text logger writing to w at level
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewStderrLogger creates a logger writing to stderr
func NewStderrLogger(level slog.Level) *slog.Logger {
	return NewLogger(os.Stderr, level)
}

// NewDiscardLogger creates a logger that drops everything.
// Components fall back to it when no logger is configured.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: LevelSilent}))
}

// LevelFromString converts debug, info, warn or error (any case) to a level.
// Unrecognized strings map to info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "silent", "off", "none":
		return LevelSilent
	default:
		return slog.LevelInfo
	}
}

// LevelFromVerbosity picks a level from CLI flags: warn by default, debug with -v.
// An explicit level string wins when set.
func LevelFromVerbosity(verbose bool, explicit string) slog.Level {
	if explicit != "" {
		return LevelFromString(explicit)
	}
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}
