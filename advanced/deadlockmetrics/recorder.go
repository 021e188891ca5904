// Package deadlockmetrics exports Prometheus metrics for lock
// contention, wait times, timeouts, and detected deadlocks. Attach a
// Recorder to a LockManager to have it populated automatically.
package deadlockmetrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mantis-labs/deadlock/internal/registry"
)

// Recorder implements registry.Recorder, translating lock events into
// Prometheus series. Register it with a registry via RegisterWith
// before attaching it to a manager.
type Recorder struct {
	acquisitions *prometheus.CounterVec
	releases     *prometheus.CounterVec
	timeouts     *prometheus.CounterVec
	waitSeconds  *prometheus.HistogramVec
	deadlocks    prometheus.Counter
	cycleLength  prometheus.Histogram
}

// NewRecorder builds a Recorder with its metrics instantiated but not
// yet registered.
func NewRecorder() *Recorder {
	return &Recorder{
		acquisitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deadlock",
			Name:      "lock_acquisitions_total",
			Help:      "Total number of successful lock acquisitions, by lock id and mode.",
		}, []string{"lock_id", "mode"}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deadlock",
			Name:      "lock_releases_total",
			Help:      "Total number of lock releases, by lock id and mode.",
		}, []string{"lock_id", "mode"}),
		timeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deadlock",
			Name:      "analysis_timeouts_total",
			Help:      "Total number of times a blocked acquisition escalated to wait-for graph analysis.",
		}, []string{"lock_id", "mode"}),
		waitSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deadlock",
			Name:      "lock_wait_seconds",
			Help:      "Time spent blocked before acquiring a lock.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"lock_id", "mode"}),
		deadlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deadlock",
			Name:      "detected_total",
			Help:      "Total number of detected deadlock cycles that included the reporting goroutine.",
		}),
		cycleLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "deadlock",
			Name:      "cycle_length",
			Help:      "Length of detected wait-for cycles, in nodes (goroutines + locks).",
			Buckets:   []float64{2, 3, 4, 6, 8, 12, 16},
		}),
	}
}

// RegisterWith registers every metric with reg. Call once at startup.
func (r *Recorder) RegisterWith(reg prometheus.Registerer) {
	reg.MustRegister(r.acquisitions, r.releases, r.timeouts, r.waitSeconds, r.deadlocks, r.cycleLength)
}

// ObserveWait records how long a goroutine waited before acquiring lockID.
func (r *Recorder) ObserveWait(lockID uint64, mode registry.Mode, waited time.Duration) {
	r.waitSeconds.WithLabelValues(strconv.FormatUint(lockID, 10), mode.String()).Observe(waited.Seconds())
}

// RecordTimeout records that an acquisition loop escalated to analysis.
func (r *Recorder) RecordTimeout(lockID uint64, mode registry.Mode) {
	r.timeouts.WithLabelValues(strconv.FormatUint(lockID, 10), mode.String()).Inc()
}

// RecordDeadlock records a detected cycle including the reporting goroutine.
func (r *Recorder) RecordDeadlock(cycleLength int) {
	r.deadlocks.Inc()
	r.cycleLength.Observe(float64(cycleLength))
}

// RecordAcquire records a successful acquisition.
func (r *Recorder) RecordAcquire(lockID uint64, mode registry.Mode) {
	r.acquisitions.WithLabelValues(strconv.FormatUint(lockID, 10), mode.String()).Inc()
}

// RecordRelease records a lock release.
func (r *Recorder) RecordRelease(lockID uint64, mode registry.Mode) {
	r.releases.WithLabelValues(strconv.FormatUint(lockID, 10), mode.String()).Inc()
}
