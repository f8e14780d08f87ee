// Package logging builds the leveled slog.Logger used by the CLI.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "debug", "info", "warn", "error" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
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

// ValidLevel reports whether s is a level name ParseLevel understands.
// The empty string is valid and means the default.
func ValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	default:
		return false
	}
}

// NewLogger creates a leveled slog.Logger writing text records to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// NewJSONLogger creates a leveled slog.Logger writing one JSON object per
// record to w, for machine-read output.
func NewJSONLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
