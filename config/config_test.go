package config

import (
	"os"
	"testing"
	"time"
)

func TestDefaultMatchesZeroConfigBehavior(t *testing.T) {
	cfg := Default()
	if cfg.AnalysisTimeout != 10*time.Millisecond {
		t.Fatalf("expected default analysis timeout of 10ms, got %v", cfg.AnalysisTimeout)
	}
	if cfg.Metrics.Enabled {
		t.Fatal("expected metrics disabled by default")
	}
	if cfg.Archive.Enabled {
		t.Fatal("expected archiving disabled by default")
	}
}

func TestLoadFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("DEADLOCK_ANALYSIS_TIMEOUT", "25ms")
	t.Setenv("NO_DEADLOCKS", "/tmp/report.log")
	t.Setenv("DEADLOCK_LOG_LEVEL", "debug")
	t.Setenv("DEADLOCK_METRICS_ENABLED", "true")

	cfg := Default()
	cfg.LoadFromEnv()

	if cfg.AnalysisTimeout != 25*time.Millisecond {
		t.Fatalf("expected analysis timeout 25ms, got %v", cfg.AnalysisTimeout)
	}
	if cfg.ReportSinkPath != "/tmp/report.log" {
		t.Fatalf("expected report sink path override, got %q", cfg.ReportSinkPath)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected log level override, got %q", cfg.Logging.Level)
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("expected metrics enabled override to take effect")
	}
}

func TestLoadReadsYAMLAndAppliesEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	yaml := "analysis_timeout: 50ms\nlogging:\n  level: warn\n  component: test\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("failed to write fixture config: %v", err)
	}

	t.Setenv("DEADLOCK_LOG_LEVEL", "error")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}
	if cfg.AnalysisTimeout != 50*time.Millisecond {
		t.Fatalf("expected YAML analysis timeout of 50ms, got %v", cfg.AnalysisTimeout)
	}
	if cfg.Logging.Level != "error" {
		t.Fatalf("expected env to win over YAML for log level, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Component != "test" {
		t.Fatalf("expected YAML-only field to survive the env overlay, got %q", cfg.Logging.Component)
	}
}
