package deadlock

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mantis-labs/deadlock/advanced/deadlockmetrics"
	"github.com/mantis-labs/deadlock/advanced/logging"
	"github.com/mantis-labs/deadlock/advanced/reportarchive"
	"github.com/mantis-labs/deadlock/config"
	"github.com/mantis-labs/deadlock/internal/registry"
)

// LockManager is the process-wide registry of live locks and the engine
// that builds the wait-for graph on demand. Most programs never
// construct one directly; New/NewRwLock register with the global
// instance returned by GetGlobalManager.
type LockManager = registry.Manager

// GetGlobalManager returns the process-wide LockManager, creating it on
// first use.
func GetGlobalManager() *LockManager {
	return registry.Global()
}

// NewManager constructs an isolated LockManager, useful in tests that
// want a registry the global instance's state can't leak into.
func NewManager() *LockManager {
	return registry.NewManager()
}

// WithAnalysisTimeout sets how long an acquisition loop spins before a
// blocked goroutine escalates to wait-for graph analysis. Lower values
// detect deadlocks sooner at the cost of more frequent analysis passes
// under real contention.
func WithAnalysisTimeout(manager *LockManager, timeout time.Duration) {
	manager.SetAnalysisTimeout(timeout)
}

// logLevel maps a config level name to the logging package's LogLevel,
// defaulting to INFO for an unrecognized or empty value.
func logLevel(name string) logging.LogLevel {
	switch name {
	case "debug":
		return logging.DEBUG
	case "warn":
		return logging.WARN
	case "error":
		return logging.ERROR
	default:
		return logging.INFO
	}
}

// NewManagerFromConfig builds a LockManager wired according to cfg: the
// analysis timeout, a structured logger at the configured level, and,
// if enabled, a Prometheus recorder registered with reg. A nil reg uses
// the default Prometheus registry.
func NewManagerFromConfig(cfg *config.Config, reg prometheus.Registerer) *LockManager {
	manager := registry.NewManager()
	manager.SetAnalysisTimeout(cfg.AnalysisTimeout)

	logger := logging.NewStructuredLogger(logging.Config{
		Level:     logLevel(cfg.Logging.Level),
		Component: cfg.Logging.Component,
	})
	manager.SetLogger(logger)

	if cfg.Metrics.Enabled {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		recorder := deadlockmetrics.NewRecorder()
		recorder.RegisterWith(reg)
		manager.SetRecorder(recorder)
	}

	if cfg.Archive.Enabled {
		policy := reportarchive.NewSizePolicy(cfg.Archive.MinSizeBytes, cfg.Archive.ZstdAboveByte)
		manager.SetReportRotator(reportarchive.NewEngine(policy))
	}

	return manager
}
