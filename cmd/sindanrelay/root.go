package main

import (
	"fmt"
	"io"
	"log/slog"

	"sindanrelay/internal/config"
	"sindanrelay/internal/logging"
)

var rootFlags struct {
	configPath string
	logLevel   string
	logFormat  string
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.configPath, "config", "c", "", "Path to config file (YAML or JSON); defaults apply when omitted")
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text, json)")
}

// setup loads the configuration and wires the log sink. The returned closer
// flushes the rotating file sink; callers defer it.
func setup() (*config.Config, io.Closer, error) {
	cfg := config.Default()
	if rootFlags.configPath != "" {
		loaded, err := config.LoadFromPath(rootFlags.configPath)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	level, err := parseLevel(rootFlags.logLevel)
	if err != nil {
		return nil, nil, err
	}
	sink, err := logging.InitFile(level, rootFlags.logFormat, logging.FileOptions{
		Path:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
		Backups:   cfg.LogBackups,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open log sink: %w", err)
	}
	return cfg, sink, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
