package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFromPath reads a config file (YAML or JSON), applies it over the
// defaults, expands "~" in path fields, and validates the result. Format is
// detected by extension (.yaml/.yml/.json) or by content.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses config from bytes. ext is the file extension for format hint;
// empty = detect from content.
func Load(data []byte, ext string) (*Config, error) {
	cfg := Default()

	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	if ext == "" {
		if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
			ext = ".json"
		} else {
			ext = ".yaml"
		}
	}

	switch ext {
	case ".yaml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	cfg.UnsentDir = expandHome(cfg.UnsentDir)
	cfg.SentDir = expandHome(cfg.SentDir)
	cfg.LogFile = expandHome(cfg.LogFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants every component relies on.
func (c *Config) Validate() error {
	if c.UnsentDir == "" {
		return fmt.Errorf("config: unsent_dir is required")
	}
	if c.SentDir == "" {
		return fmt.Errorf("config: sent_dir is required")
	}
	if c.TopicBase == "" {
		return fmt.Errorf("config: topic_base is required")
	}
	if c.QoS < 0 || c.QoS > 2 {
		return fmt.Errorf("config: qos must be 0, 1 or 2, got %d", c.QoS)
	}
	if c.Window <= 0 {
		return fmt.Errorf("config: window must be positive")
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("config: publish_timeout must be positive")
	}
	if c.Retention <= 0 {
		return fmt.Errorf("config: retention must be positive")
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be at least 1")
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
