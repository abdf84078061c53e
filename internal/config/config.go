// Package config loads engine configuration from an optional YAML file in
// the data directory, falling back to defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/mnemo/internal/assemble"
	"github.com/rcliao/mnemo/internal/session"
)

// Config holds all tunable engine settings.
type Config struct {
	// SessionGapMinutes is the inactivity threshold for session boundaries.
	SessionGapMinutes int `yaml:"session_gap_minutes"`

	// Budgets caps items per context category.
	Budgets assemble.Budgets `yaml:"budgets"`

	// ArchiveThresholdBytes triggers a status warning suggesting the
	// permanent store be archived.
	ArchiveThresholdBytes int64 `yaml:"archive_threshold_bytes"`
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		SessionGapMinutes:     int(session.DefaultGap / time.Minute),
		Budgets:               assemble.DefaultBudgets(),
		ArchiveThresholdBytes: 256 * 1024,
	}
}

// Load reads the config file at path. A missing file yields defaults; a
// present but invalid file is an error rather than a silent fallback.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.SessionGapMinutes <= 0 {
		cfg.SessionGapMinutes = int(session.DefaultGap / time.Minute)
	}
	return cfg, nil
}

// Gap returns the session gap as a duration.
func (c Config) Gap() time.Duration {
	return time.Duration(c.SessionGapMinutes) * time.Minute
}
