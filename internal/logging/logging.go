// Package logging builds the slog.Logger used across the dashboard.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashita-ai/ideaforge/internal/config"
)

// NewFromConfig creates a logger from configuration. When cfg.LogFile is set
// the logger writes there and the returned io.Closer must be closed by the
// caller; otherwise it writes to stderr and the closer is nil.
func NewFromConfig(cfg config.Config) (*slog.Logger, io.Closer, error) {
	level := ParseLevel(cfg.LogLevel)
	if cfg.LogFile == "" {
		return slog.New(newHandler(cfg.LogFormat, os.Stderr, level)), nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(newHandler(cfg.LogFormat, file, level)), file, nil
}

// NewForTest creates a silent logger for tests.
func NewForTest() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// Discard returns a logger that drops everything. The terminal view uses it
// when no log file is configured so log lines never corrupt the screen.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel converts a config level name to a slog.Level. Unknown names map
// to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func newHandler(format string, w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}
