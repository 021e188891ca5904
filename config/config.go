// Package config loads this library's ambient configuration: the
// analysis timeout, report sink, logging level, metrics, and archive
// policy, adapted from the teacher's yaml-plus-env-override convention.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for a wired LockManager.
type Config struct {
	AnalysisTimeout time.Duration       `yaml:"analysis_timeout" env:"DEADLOCK_ANALYSIS_TIMEOUT"`
	ReportSinkPath  string              `yaml:"report_sink_path" env:"NO_DEADLOCKS"`
	Logging         LoggingConfig       `yaml:"logging"`
	Metrics         MetricsConfig       `yaml:"metrics"`
	Archive         ReportArchiveConfig `yaml:"archive"`
}

// LoggingConfig configures the ambient structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level" env:"DEADLOCK_LOG_LEVEL"`
	Component string `yaml:"component" env:"DEADLOCK_LOG_COMPONENT"`
}

// MetricsConfig configures Prometheus metrics export.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"DEADLOCK_METRICS_ENABLED"`
}

// ReportArchiveConfig configures report-file rotation and compression.
type ReportArchiveConfig struct {
	Enabled       bool  `yaml:"enabled" env:"DEADLOCK_ARCHIVE_ENABLED"`
	MinSizeBytes  int64 `yaml:"min_size_bytes" env:"DEADLOCK_ARCHIVE_MIN_SIZE_BYTES"`
	ZstdAboveByte int64 `yaml:"zstd_above_bytes" env:"DEADLOCK_ARCHIVE_ZSTD_ABOVE_BYTES"`
}

// Default returns a Config with sensible defaults, matching the
// zero-config behavior the rest of this package documents.
func Default() *Config {
	return &Config{
		AnalysisTimeout: 10 * time.Millisecond,
		ReportSinkPath:  "",
		Logging: LoggingConfig{
			Level:     "info",
			Component: "deadlock",
		},
		Metrics: MetricsConfig{Enabled: false},
		Archive: ReportArchiveConfig{
			Enabled:       false,
			MinSizeBytes:  1 << 20,
			ZstdAboveByte: 16 << 20,
		},
	}
}

// Load reads a YAML file at path into a Config seeded with Default,
// then overlays any matching environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.LoadFromEnv()
	return cfg, nil
}

// LoadFromEnv overlays environment variables onto c, taking precedence
// over whatever was loaded from YAML. Matches the teacher's own
// env-wins-over-yaml precedence.
func (c *Config) LoadFromEnv() {
	if v := os.Getenv("DEADLOCK_ANALYSIS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.AnalysisTimeout = d
		}
	}
	if v := os.Getenv("NO_DEADLOCKS"); v != "" {
		c.ReportSinkPath = v
	}
	if v := os.Getenv("DEADLOCK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DEADLOCK_LOG_COMPONENT"); v != "" {
		c.Logging.Component = v
	}
	if v := os.Getenv("DEADLOCK_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("DEADLOCK_ARCHIVE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Archive.Enabled = b
		}
	}
	if v := os.Getenv("DEADLOCK_ARCHIVE_MIN_SIZE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Archive.MinSizeBytes = n
		}
	}
	if v := os.Getenv("DEADLOCK_ARCHIVE_ZSTD_ABOVE_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Archive.ZstdAboveByte = n
		}
	}
}
