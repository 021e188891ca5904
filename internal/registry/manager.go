package registry

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/mantis-labs/deadlock/internal/capture"
	"github.com/mantis-labs/deadlock/internal/graph"
	"github.com/mantis-labs/deadlock/internal/report"
)

// spinRW is a multi-reader/single-writer spinlock built directly on an
// int32, not on sync.RWMutex. The manager uses it to protect its own
// bookkeeping, and acquiring it must never itself be able to participate
// in the wait-for graph it is helping build, so it cannot be one of the
// instrumented locks this library hands out.
//
// Convention: 0 means idle, n > 0 means n active readers, -1 means one
// active writer.
type spinRW struct {
	state int32
}

func (s *spinRW) rLock() {
	for {
		state := atomic.LoadInt32(&s.state)
		if state == -1 {
			runtime.Gosched()
			continue
		}
		if atomic.CompareAndSwapInt32(&s.state, state, state+1) {
			return
		}
	}
}

func (s *spinRW) rUnlock() {
	atomic.AddInt32(&s.state, -1)
}

func (s *spinRW) lock() {
	for {
		if atomic.CompareAndSwapInt32(&s.state, 0, -1) {
			return
		}
		runtime.Gosched()
	}
}

func (s *spinRW) unlock() {
	atomic.StoreInt32(&s.state, 0)
}

// Logger is the structured-logging surface a Manager optionally reports
// through. Satisfied by *advanced/logging.StructuredLogger; kept as an
// interface here so this package never imports the logging package.
type Logger interface {
	ErrorWithMetadata(message string, metadata map[string]interface{})
	DebugWithMetadata(message string, metadata map[string]interface{})
}

// Recorder is the metrics surface a Manager optionally reports through.
// Satisfied by *advanced/deadlockmetrics.Recorder.
type Recorder interface {
	ObserveWait(lockID uint64, mode Mode, waited time.Duration)
	RecordTimeout(lockID uint64, mode Mode)
	RecordDeadlock(cycleLength int)
	RecordAcquire(lockID uint64, mode Mode)
	RecordRelease(lockID uint64, mode Mode)
}

// ReportRotator optionally rotates and compresses a file-backed report
// sink once a report has been fully written to it. Satisfied by
// *advanced/reportarchive.Engine.
type ReportRotator interface {
	RotateIfNeeded(path string, now time.Time) (string, error)
}

// Manager is the process-wide registry of live locks. It builds the
// wait-for graph on demand and decides, for a specific blocked goroutine,
// whether the cycle it is about to complete actually includes it.
type Manager struct {
	mutex spinRW
	locks map[uint64]*LockRepresentation

	nextLockID int64 // atomic

	analysisTimeout time.Duration
	logger          Logger
	recorder        Recorder
	rotator         ReportRotator
}

const defaultAnalysisTimeout = 10 * time.Millisecond

// NewManager constructs an empty Manager. Most callers want the process
// singleton via Global instead.
func NewManager() *Manager {
	return &Manager{
		locks:           make(map[uint64]*LockRepresentation),
		analysisTimeout: defaultAnalysisTimeout,
	}
}

// SetLogger attaches a structured logger. Safe to call once at startup;
// not synchronized against concurrent CreateLock/Analyse traffic.
func (m *Manager) SetLogger(logger Logger) { m.logger = logger }

// SetRecorder attaches a metrics recorder, same caveat as SetLogger.
func (m *Manager) SetRecorder(recorder Recorder) { m.recorder = recorder }

// SetReportRotator attaches a rotator that runs once against the report
// sink file immediately after a deadlock report is written to it, same
// caveat as SetLogger.
func (m *Manager) SetReportRotator(rotator ReportRotator) { m.rotator = rotator }

// SetAnalysisTimeout changes how long an acquisition loop spins before
// escalating to wait-for graph analysis.
func (m *Manager) SetAnalysisTimeout(d time.Duration) { m.analysisTimeout = d }

// AnalysisTimeout reports the currently configured timeout.
func (m *Manager) AnalysisTimeout() time.Duration { return m.analysisTimeout }

// CreateLock registers a new lock and returns its representation.
func (m *Manager) CreateLock() *LockRepresentation {
	id := uint64(atomic.AddInt64(&m.nextLockID, 1))
	lock := newLockRepresentation(id)

	m.mutex.lock()
	m.locks[id] = lock
	m.mutex.unlock()

	return lock
}

// RemoveLock drops a lock from the registry; removing an id that is not
// registered is a no-op. Mutex[T] and RwLock[T] have no Close method and
// never call it, so their entries stay registered for the manager's
// lifetime.
func (m *Manager) RemoveLock(id uint64) {
	m.mutex.lock()
	delete(m.locks, id)
	m.mutex.unlock()
}

// The Record*/Observe* methods forward to the attached Recorder, if any,
// so Mutex[T]/RwLock[T] never need a nil check of their own. They are
// called internally by Acquire/TryAcquire/Release while the write-lock
// is held; they do not take it themselves.

func (m *Manager) recordAcquire(lockID uint64, mode Mode) {
	if m.recorder != nil {
		m.recorder.RecordAcquire(lockID, mode)
	}
}

func (m *Manager) recordRelease(lockID uint64, mode Mode) {
	if m.recorder != nil {
		m.recorder.RecordRelease(lockID, mode)
	}
}

func (m *Manager) recordTimeout(lockID uint64, mode Mode) {
	if m.recorder != nil {
		m.recorder.RecordTimeout(lockID, mode)
	}
}

func (m *Manager) observeWait(lockID uint64, mode Mode, waited time.Duration) {
	if m.recorder != nil {
		m.recorder.ObserveWait(lockID, mode, waited)
	}
}

// TryAcquire attempts lockRep in mode for self without blocking, under a
// single hold of the manager's write-lock, per spec.md's "take manager
// write-lock, locate entry, invoke try_write_lock/try_read_lock" — the
// non-blocking path never subscribes and never calls analyse.
func (m *Manager) TryAcquire(lockRep *LockRepresentation, self GoroutineID, mode Mode, site capture.Site) bool {
	m.mutex.lock()
	defer m.mutex.unlock()

	ok := lockRep.tryLock(self, mode, site)
	if ok {
		m.recordAcquire(lockRep.ID(), mode)
	}
	return ok
}

// Acquire implements one iteration of the instrumented lock's blocking
// acquisition loop body: under a single hold of the manager's
// write-lock, try to acquire; on success return true. On failure, if
// start is more than the analysis timeout in the past, subscribe the
// pending request and run analysis — which may panic — before
// returning false. This mirrors spec.md §4.3's pseudocode exactly:
// "take manager write-lock as G" covers the try, the conditional
// subscribe, and the conditional analyse as one atomic step, so no
// holder or request can change between them.
func (m *Manager) Acquire(lockRep *LockRepresentation, self GoroutineID, mode Mode, site capture.Site, start time.Time) bool {
	m.mutex.lock()
	defer m.mutex.unlock()

	if lockRep.tryLock(self, mode, site) {
		m.recordAcquire(lockRep.ID(), mode)
		m.observeWait(lockRep.ID(), mode, time.Since(start))
		return true
	}

	if time.Since(start) > m.analysisTimeout {
		m.recordTimeout(lockRep.ID(), mode)
		lockRep.subscribe(self, mode, site)
		m.analyseLocked(self)
	}
	return false
}

// Release releases self's hold on lockRep under the manager's
// write-lock and records the release with the attached recorder, if
// any.
func (m *Manager) Release(lockRep *LockRepresentation, self GoroutineID) Mode {
	m.mutex.lock()
	defer m.mutex.unlock()

	mode := lockRep.unlock(self)
	m.recordRelease(lockRep.ID(), mode)
	return mode
}

// Analyse builds the current wait-for graph and checks whether it
// contains a cycle that includes the calling goroutine's own pending
// request, taking the manager's write-lock itself first. Exposed for
// callers (tests, and any future direct analysis trigger) that do not
// already hold it; Acquire calls analyseLocked instead, since it already
// holds the lock.
func (m *Manager) Analyse(self GoroutineID) {
	m.mutex.lock()
	defer m.mutex.unlock()
	m.analyseLocked(self)
}

// analyseLocked is Analyse's body, assuming the caller already holds the
// manager's write-lock — required so graph construction observes a
// consistent snapshot and no requests/holders change mid-analysis.
// If a cycle is found that includes self, it renders a report and
// panics; analyseLocked never returns in that case. Otherwise it
// returns normally so the caller's acquisition loop can keep retrying.
func (m *Manager) analyseLocked(self GoroutineID) {
	g := graph.New[report.Node]()
	allHolders := make(map[uint64][]holder, len(m.locks))
	allRequests := make(map[uint64][]request, len(m.locks))

	for _, lock := range m.locks {
		holders, requests := lock.snapshot()
		if len(holders) == 0 && len(requests) == 0 {
			continue
		}
		allHolders[lock.id] = holders
		allRequests[lock.id] = requests

		lockNode := report.Node{Kind: report.LockNode, LockID: lock.id}
		for _, h := range holders {
			g.AddEdgeAndNodes(lockNode, report.Node{Kind: report.ThreadNode, GoroutineID: uint64(h.goroutine)})
		}
		// A Thread(T) -> Lock(L) edge is emitted only for Write
		// requests, or for Read requests while L is write-held: a
		// Read request against a Read-held lock would be satisfied
		// immediately if no writer were pending, so it must not
		// appear to be waiting on anything.
		for _, r := range requests {
			if r.mode == WriteMode || lock.writeHeld {
				g.AddEdgeAndNodes(report.Node{Kind: report.ThreadNode, GoroutineID: uint64(r.goroutine)}, lockNode)
			}
		}
	}

	cycle, found := g.FindLoop()
	if !found {
		return
	}

	selfNode := report.Node{Kind: report.ThreadNode, GoroutineID: uint64(self)}
	participates := false
	for _, n := range cycle {
		if n == selfNode {
			participates = true
			break
		}
	}
	if !participates {
		return
	}

	if m.recorder != nil {
		m.recorder.RecordDeadlock(len(cycle))
	}

	locksInCycle := make(map[uint64]struct{})
	for _, n := range cycle {
		if n.Kind == report.LockNode {
			locksInCycle[n.LockID] = struct{}{}
		}
	}
	details := make([]report.LockDetail, 0, len(locksInCycle))
	for lockID := range locksInCycle {
		detail := report.LockDetail{LockID: lockID}
		for _, h := range allHolders[lockID] {
			detail.BlockedBy = append(detail.BlockedBy, report.Holder{
				GoroutineID: uint64(h.goroutine),
				Frames:      h.site.ResolveTrimmed(),
			})
		}
		for _, r := range allRequests[lockID] {
			detail.Blocking = append(detail.Blocking, report.Requester{
				GoroutineID: uint64(r.goroutine),
				Mode:        r.mode.String(),
				Frames:      r.site.ResolveTrimmed(),
			})
		}
		details = append(details, detail)
	}

	var loggerAdapter report.Logger
	if m.logger != nil {
		loggerAdapter = m.logger
	}

	var afterWrite func(sinkName string)
	if m.rotator != nil {
		rotator := m.rotator
		afterWrite = func(sinkName string) {
			if sinkName == "stderr" {
				return
			}
			if _, err := rotator.RotateIfNeeded(sinkName, time.Now()); err != nil && m.logger != nil {
				m.logger.ErrorWithMetadata("report rotation failed", map[string]interface{}{
					"sink":  sinkName,
					"error": err.Error(),
				})
			}
		}
	}

	report.Write(cycle, details, loggerAdapter, afterWrite)
}

var global atomic.Pointer[Manager]

// Global returns the process-wide Manager, lazily creating it on first
// use. Safe for concurrent use; the CAS ensures exactly one winner
// constructs the singleton even under a race at startup.
func Global() *Manager {
	if m := global.Load(); m != nil {
		return m
	}
	candidate := NewManager()
	global.CompareAndSwap(nil, candidate)
	return global.Load()
}
