// Package logging configures the process-wide slog default. The pipeline is
// cron-invoked, so the primary sink is an append-only file with size-based
// rotation; stderr is used when no file is configured.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions describes the rotating file sink.
type FileOptions struct {
	Path      string // empty = log to stderr
	MaxSizeMB int    // rotation threshold per generation
	Backups   int    // rotated generations kept before the oldest is dropped
}

// Init configures the global slog default with the given level and format.
// If w is nil, os.Stderr is used. Format must be "text" or "json".
func Init(level slog.Level, format string, w ...io.Writer) {
	var writer io.Writer = os.Stderr
	if len(w) > 0 && w[0] != nil {
		writer = w[0]
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(writer, opts)
	default:
		handler = slog.NewTextHandler(writer, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// InitFile configures the default logger with a rotating file sink. The log
// directory is created if missing. Returns the sink so callers can Close it
// on shutdown.
func InitFile(level slog.Level, format string, opts FileOptions) (io.Closer, error) {
	if opts.Path == "" {
		Init(level, format)
		return nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, err
	}
	sink := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.Backups,
	}
	Init(level, format, sink)
	return sink, nil
}

// New returns a logger with a "component" attribute for module-scoped logging.
func New(component string) *slog.Logger {
	return slog.Default().With(slog.String("component", component))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
