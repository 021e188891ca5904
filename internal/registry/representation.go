package registry

import (
	"github.com/mantis-labs/deadlock/internal/capture"
)

// Mode distinguishes a read (shared) acquisition from a write (exclusive)
// one. A plain Mutex always acquires in WriteMode.
type Mode int

const (
	WriteMode Mode = iota
	ReadMode
)

func (m Mode) String() string {
	if m == ReadMode {
		return "read"
	}
	return "write"
}

// holder records one goroutine currently holding a lock, attributed to
// the call site where it acquired.
type holder struct {
	goroutine GoroutineID
	mode      Mode
	site      capture.Site
}

// request records one goroutine currently blocked waiting for a lock,
// attributed to the call site of the blocked acquisition.
type request struct {
	goroutine GoroutineID
	mode      Mode
	site      capture.Site
}

// LockRepresentation is the registry's view of a single instrumented
// lock: who holds it, in what mode, and who is waiting. Every Mutex[T]
// and RwLock[T] owns exactly one of these, created through a Manager.
//
// It carries no mutex of its own: every field here is mutated only
// while the owning Manager's write-lock is held (see Manager.Acquire/
// Release/TryAcquire and analyseLocked), exactly as spec.md §5(ii)
// requires, so a consistent cross-lock snapshot never needs to be
// assembled from independently-locked pieces.
type LockRepresentation struct {
	id uint64

	holders   map[GoroutineID]holder
	requests  map[GoroutineID]request
	writeHeld bool
}

func newLockRepresentation(id uint64) *LockRepresentation {
	return &LockRepresentation{
		id:       id,
		holders:  make(map[GoroutineID]holder),
		requests: make(map[GoroutineID]request),
	}
}

// ID returns the lock's registry-assigned identity.
func (l *LockRepresentation) ID() uint64 {
	return l.id
}

// tryLock attempts to acquire in the given mode without blocking. On
// success, the goroutine is recorded as a holder and any pending request
// it had is cleared. Caller must hold the owning Manager's write-lock.
func (l *LockRepresentation) tryLock(goroutineID GoroutineID, mode Mode, site capture.Site) bool {
	if _, reentrant := l.holders[goroutineID]; reentrant {
		return false
	}

	switch mode {
	case WriteMode:
		if l.writeHeld || len(l.holders) > 0 {
			return false
		}
		l.writeHeld = true
	case ReadMode:
		if l.writeHeld {
			return false
		}
	}

	l.holders[goroutineID] = holder{goroutine: goroutineID, mode: mode, site: site}
	delete(l.requests, goroutineID)
	return true
}

// subscribe records goroutineID as blocked on this lock in the given
// mode, for wait-for graph construction. Call only after a failed
// tryLock, while still intending to retry. Caller must hold the owning
// Manager's write-lock.
func (l *LockRepresentation) subscribe(goroutineID GoroutineID, mode Mode, site capture.Site) {
	l.requests[goroutineID] = request{goroutine: goroutineID, mode: mode, site: site}
}

// unsubscribe clears a goroutine's pending request, e.g. after it gives
// up waiting or has successfully acquired. Caller must hold the owning
// Manager's write-lock.
func (l *LockRepresentation) unsubscribe(goroutineID GoroutineID) {
	delete(l.requests, goroutineID)
}

// unlock releases goroutineID's hold on the lock and returns the mode it
// held it in. Caller must hold the owning Manager's write-lock.
func (l *LockRepresentation) unlock(goroutineID GoroutineID) Mode {
	mode := WriteMode
	if h, ok := l.holders[goroutineID]; ok {
		mode = h.mode
		if mode == WriteMode {
			l.writeHeld = false
		}
	}
	delete(l.holders, goroutineID)
	return mode
}

// snapshot returns copies of the current holders and requests, used by
// the manager while building the wait-for graph and while rendering a
// report. Caller must hold the owning Manager's write-lock.
func (l *LockRepresentation) snapshot() ([]holder, []request) {
	holders := make([]holder, 0, len(l.holders))
	for _, h := range l.holders {
		holders = append(holders, h)
	}
	requests := make([]request, 0, len(l.requests))
	for _, r := range l.requests {
		requests = append(requests, r)
	}
	return holders, requests
}
