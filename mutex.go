// Package deadlock provides drop-in, deadlock-detecting replacements for
// sync.Mutex, a read-write lock, and a condition variable. Each blocked
// acquisition that would complete a wait-for cycle involving the calling
// goroutine panics with a report describing the cycle instead of hanging
// forever.
package deadlock

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/mantis-labs/deadlock/internal/capture"
	"github.com/mantis-labs/deadlock/internal/registry"
)

// Mutex is an instrumented, generic, non-reentrant mutual-exclusion lock
// guarding a value of type T. The zero value is not usable; construct
// one with New or NewWithManager.
type Mutex[T any] struct {
	value    T
	lock     *registry.LockRepresentation
	manager  *registry.Manager
	poisoned atomic.Bool
}

// New constructs a Mutex guarding value, registered with the process-wide
// manager.
func New[T any](value T) *Mutex[T] {
	return NewWithManager(value, registry.Global())
}

// NewWithManager constructs a Mutex guarding value, registered with a
// specific manager. Most callers want New; an explicit manager is useful
// in tests that want an isolated registry.
func NewWithManager[T any](value T, manager *registry.Manager) *Mutex[T] {
	return &Mutex[T]{
		value:   value,
		lock:    manager.CreateLock(),
		manager: manager,
	}
}

// Lock blocks until the mutex is acquired and returns a guard granting
// access to the protected value. If acquiring would complete a wait-for
// cycle that includes the calling goroutine, Lock panics instead of
// blocking forever. If a previous holder panicked while holding the
// mutex, the returned error wraps the guard in a *PoisonError.
func (m *Mutex[T]) Lock() (*MutexGuard[T], error) {
	self := registry.CurrentGoroutine()
	start := time.Now()

	for {
		site := capture.Capture(1)
		if m.manager.Acquire(m.lock, self, registry.WriteMode, site, start) {
			guard := &MutexGuard[T]{mutex: m}
			if m.poisoned.Load() {
				return guard, &PoisonError[*MutexGuard[T]]{guard: guard}
			}
			return guard, nil
		}
		runtime.Gosched()
	}
}

// TryLock attempts to acquire the mutex without blocking. It returns
// ErrWouldBlock if the mutex is currently held, or a *PoisonError
// wrapping the acquired guard if a previous holder panicked while
// holding it.
func (m *Mutex[T]) TryLock() (*MutexGuard[T], error) {
	self := registry.CurrentGoroutine()
	if !m.manager.TryAcquire(m.lock, self, registry.WriteMode, capture.Capture(1)) {
		return nil, ErrWouldBlock
	}
	guard := &MutexGuard[T]{mutex: m}
	if m.poisoned.Load() {
		return guard, &PoisonError[*MutexGuard[T]]{guard: guard}
	}
	return guard, nil
}

// Poisoned reports whether a prior guard was released while its owning
// goroutine was panicking, leaving the protected value in a possibly
// inconsistent state.
func (m *Mutex[T]) Poisoned() bool {
	return m.poisoned.Load()
}

// ID returns the registry identity of the lock backing this mutex, as
// printed in deadlock reports.
func (m *Mutex[T]) ID() uint64 {
	return m.lock.ID()
}
