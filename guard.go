package deadlock

import "github.com/mantis-labs/deadlock/internal/registry"

// MutexGuard grants access to a Mutex[T]'s protected value for as long
// as it is held. Release it with Unlock, typically via defer.
type MutexGuard[T any] struct {
	mutex *Mutex[T]
}

// Value returns a pointer to the protected value. Valid only until
// Unlock is called.
func (g *MutexGuard[T]) Value() *T {
	return &g.mutex.value
}

// Unlock releases the mutex. If Unlock runs while its goroutine is
// unwinding from a panic (i.e. it was deferred and a panic is in
// flight), the mutex is marked poisoned before the panic continues to
// propagate.
func (g *MutexGuard[T]) Unlock() {
	if r := recover(); r != nil {
		g.mutex.poisoned.Store(true)
		g.release()
		panic(r)
	}
	g.release()
}

func (g *MutexGuard[T]) release() {
	self := registry.CurrentGoroutine()
	g.mutex.manager.Release(g.mutex.lock, self)
}

// ReadGuard grants read access to an RwLock[T]'s protected value.
type ReadGuard[T any] struct {
	rwlock *RwLock[T]
}

// Value returns a pointer to the protected value. Valid only until
// Unlock is called. Mutating through it while other readers are active
// races; it is exposed for read access only by convention, not by the
// type system.
func (g *ReadGuard[T]) Value() *T {
	return &g.rwlock.value
}

// Unlock releases the read hold, poisoning the lock first if released
// while panicking.
func (g *ReadGuard[T]) Unlock() {
	if r := recover(); r != nil {
		g.rwlock.poisoned.Store(true)
		g.release()
		panic(r)
	}
	g.release()
}

func (g *ReadGuard[T]) release() {
	self := registry.CurrentGoroutine()
	g.rwlock.manager.Release(g.rwlock.lock, self)
}

// WriteGuard grants exclusive write access to an RwLock[T]'s protected
// value.
type WriteGuard[T any] struct {
	rwlock *RwLock[T]
}

// Value returns a pointer to the protected value. Valid only until
// Unlock is called.
func (g *WriteGuard[T]) Value() *T {
	return &g.rwlock.value
}

// Unlock releases the write hold, poisoning the lock first if released
// while panicking.
func (g *WriteGuard[T]) Unlock() {
	if r := recover(); r != nil {
		g.rwlock.poisoned.Store(true)
		g.release()
		panic(r)
	}
	g.release()
}

func (g *WriteGuard[T]) release() {
	self := registry.CurrentGoroutine()
	g.rwlock.manager.Release(g.rwlock.lock, self)
}
