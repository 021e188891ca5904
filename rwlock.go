package deadlock

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/mantis-labs/deadlock/internal/capture"
	"github.com/mantis-labs/deadlock/internal/registry"
)

// RwLock is an instrumented, generic read-write lock guarding a value of
// type T. Multiple readers may hold it concurrently; a writer is
// exclusive. The zero value is not usable; construct one with NewRwLock
// or NewRwLockWithManager.
type RwLock[T any] struct {
	value    T
	lock     *registry.LockRepresentation
	manager  *registry.Manager
	poisoned atomic.Bool
}

// NewRwLock constructs an RwLock guarding value, registered with the
// process-wide manager.
func NewRwLock[T any](value T) *RwLock[T] {
	return NewRwLockWithManager(value, registry.Global())
}

// NewRwLockWithManager constructs an RwLock guarding value, registered
// with a specific manager.
func NewRwLockWithManager[T any](value T, manager *registry.Manager) *RwLock[T] {
	return &RwLock[T]{
		value:   value,
		lock:    manager.CreateLock(),
		manager: manager,
	}
}

// Read blocks until a shared read hold is acquired. Panics instead of
// blocking forever if doing so would complete a wait-for cycle that
// includes the calling goroutine. If a previous holder panicked while
// holding the lock, the returned error wraps the guard in a
// *PoisonError.
func (r *RwLock[T]) Read() (*ReadGuard[T], error) {
	self := registry.CurrentGoroutine()
	start := time.Now()

	for {
		site := capture.Capture(1)
		if r.manager.Acquire(r.lock, self, registry.ReadMode, site, start) {
			guard := &ReadGuard[T]{rwlock: r}
			if r.poisoned.Load() {
				return guard, &PoisonError[*ReadGuard[T]]{guard: guard}
			}
			return guard, nil
		}
		runtime.Gosched()
	}
}

// Write blocks until the exclusive write hold is acquired, with the same
// deadlock-panic and poison behavior as Read.
func (r *RwLock[T]) Write() (*WriteGuard[T], error) {
	self := registry.CurrentGoroutine()
	start := time.Now()

	for {
		site := capture.Capture(1)
		if r.manager.Acquire(r.lock, self, registry.WriteMode, site, start) {
			guard := &WriteGuard[T]{rwlock: r}
			if r.poisoned.Load() {
				return guard, &PoisonError[*WriteGuard[T]]{guard: guard}
			}
			return guard, nil
		}
		runtime.Gosched()
	}
}

// TryRead attempts to acquire a shared read hold without blocking. It
// returns ErrWouldBlock if the lock is currently write-held, or a
// *PoisonError wrapping the acquired guard if a previous holder
// panicked while holding it.
func (r *RwLock[T]) TryRead() (*ReadGuard[T], error) {
	self := registry.CurrentGoroutine()
	if !r.manager.TryAcquire(r.lock, self, registry.ReadMode, capture.Capture(1)) {
		return nil, ErrWouldBlock
	}
	guard := &ReadGuard[T]{rwlock: r}
	if r.poisoned.Load() {
		return guard, &PoisonError[*ReadGuard[T]]{guard: guard}
	}
	return guard, nil
}

// TryWrite attempts to acquire the exclusive write hold without
// blocking, with the same error semantics as TryRead.
func (r *RwLock[T]) TryWrite() (*WriteGuard[T], error) {
	self := registry.CurrentGoroutine()
	if !r.manager.TryAcquire(r.lock, self, registry.WriteMode, capture.Capture(1)) {
		return nil, ErrWouldBlock
	}
	guard := &WriteGuard[T]{rwlock: r}
	if r.poisoned.Load() {
		return guard, &PoisonError[*WriteGuard[T]]{guard: guard}
	}
	return guard, nil
}

// Poisoned reports whether a prior guard was released while its owning
// goroutine was panicking.
func (r *RwLock[T]) Poisoned() bool {
	return r.poisoned.Load()
}

// ID returns the registry identity of the lock backing this RwLock, as
// printed in deadlock reports.
func (r *RwLock[T]) ID() uint64 {
	return r.lock.ID()
}
