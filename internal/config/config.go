// Package config holds the immutable pipeline configuration. It is loaded
// once at startup and passed into components; nothing mutates it afterwards.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can say "10m" or "720h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full configuration surface of the pipeline.
type Config struct {
	UnsentDir string `yaml:"unsent_dir" json:"unsent_dir"`
	SentDir   string `yaml:"sent_dir" json:"sent_dir"`
	LogFile   string `yaml:"log_file" json:"log_file"`

	Broker   string `yaml:"broker" json:"broker"`
	ClientID string `yaml:"client_id" json:"client_id"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`

	TopicBase string `yaml:"topic_base" json:"topic_base"`
	QoS       int    `yaml:"qos" json:"qos"`
	Retain    bool   `yaml:"retain" json:"retain"`

	Window         Duration `yaml:"window" json:"window"`
	PublishTimeout Duration `yaml:"publish_timeout" json:"publish_timeout"`
	Retention      Duration `yaml:"retention" json:"retention"`

	LogMaxSizeMB int `yaml:"log_max_size_mb" json:"log_max_size_mb"`
	LogBackups   int `yaml:"log_backups" json:"log_backups"`

	Workers int `yaml:"workers" json:"workers"`
}

// Default returns the configuration before any file is applied. Path fields
// are already home-expanded so a config-less invocation operates on the real
// directories.
func Default() *Config {
	return &Config{
		UnsentDir:      expandHome("~/log/tmp"),
		SentDir:        expandHome("~/log/sent"),
		Broker:         "tcp://127.0.0.1:1883",
		ClientID:       "sindanrelay",
		TopicBase:      "sindan",
		QoS:            0,
		Retain:         false,
		Window:         Duration(10 * time.Minute),
		PublishTimeout: Duration(30 * time.Second),
		Retention:      Duration(30 * 24 * time.Hour),
		LogMaxSizeMB:   10,
		LogBackups:     4,
		Workers:        1,
	}
}
