// Package logger configures the process-wide slog logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ParseLevel maps a level name to a slog level. Unknown names fall back
// to info and report false.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug", "dbg":
		return slog.LevelDebug, true
	case "info", "inf", "":
		return slog.LevelInfo, true
	case "warn", "wrn":
		return slog.LevelWarn, true
	case "error", "err":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Init installs a text handler writing to w as the default logger.
func Init(w io.Writer, level string) *slog.Logger {
	l, _ := ParseLevel(level)

	// slog defaults to logging in the order of time, level, msg, and other attributes.
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// InitFile appends log output to path, creating its directory. The
// returned file must be closed by the caller.
func InitFile(path, level string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	Init(f, level)
	return f, nil
}
