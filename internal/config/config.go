// Package config loads the on-disk defaults file the CLI falls back
// to for flags the user left unset, the same YAML-first convention
// the teacher uses for its URL-list batch format.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults holds the CLI's fallback values for a subset of
// engine.DownloaderConfig plus the HTTP client's timeout and user
// agent.
type Defaults struct {
	PartSize        int64         `yaml:"part_size"`
	MaxPartCount    int           `yaml:"max_part_count"`
	MaxRetryCount   int           `yaml:"max_retry_count"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	AllowResuming   bool          `yaml:"allow_resuming"`
	Timeout         time.Duration `yaml:"timeout"`
	UserAgent       string        `yaml:"user_agent"`
}

// DefaultDefaults is what a fresh install gets when no defaults file
// is present, matching engine.DefaultConfig's own values.
func DefaultDefaults() Defaults {
	return Defaults{
		PartSize:        8 * 1024 * 1024,
		MaxPartCount:    4,
		MaxRetryCount:   3,
		WriteBufferSize: 32 * 1024,
		AllowResuming:   true,
		Timeout:         3 * time.Minute,
		UserAgent:       "fetchctl/dev",
	}
}

// Load reads path, falling back to DefaultDefaults if the file does
// not exist yet.
func Load(path string) (Defaults, error) {
	d := DefaultDefaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return d, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return d, nil
}

// Save writes d to path, creating or overwriting it.
func Save(path string, d Defaults) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("config: encoding: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
