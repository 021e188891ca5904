package deadlock

import (
	"sync"
	"time"
)

// Condvar is a condition variable that releases a Mutex[T] guard while
// waiting and reacquires it (through the normal, deadlock-detecting
// acquisition path) before returning. It wraps its own internal mutex
// purely for sync.Cond's bookkeeping; it never itself appears in the
// wait-for graph.
type Condvar struct {
	mutex sync.Mutex
	cond  *sync.Cond
}

// NewCondvar constructs a ready-to-use Condvar.
func NewCondvar() *Condvar {
	c := &Condvar{}
	c.cond = sync.NewCond(&c.mutex)
	return c
}

// Wait releases guard's mutex, blocks until notified, then reacquires
// the mutex and returns a fresh guard. The reacquisition goes through
// the normal Lock path, so it can itself detect and panic on a
// deadlock, and if the reacquisition finds the mutex poisoned, the
// returned error wraps the guard in a *PoisonError exactly as Lock
// itself would.
func Wait[T any](c *Condvar, guard *MutexGuard[T]) (*MutexGuard[T], error) {
	mutex := guard.mutex
	guard.Unlock()

	c.mutex.Lock()
	c.cond.Wait()
	c.mutex.Unlock()

	return mutex.Lock()
}

// WaitTimeout behaves like Wait but gives up after dur, additionally
// reporting whether it returned because of a timeout.
func WaitTimeout[T any](c *Condvar, guard *MutexGuard[T], dur time.Duration) (*MutexGuard[T], bool, error) {
	mutex := guard.mutex
	guard.Unlock()

	timedOut := false
	timer := time.AfterFunc(dur, func() {
		c.mutex.Lock()
		timedOut = true
		c.cond.Broadcast()
		c.mutex.Unlock()
	})

	c.mutex.Lock()
	if !timedOut {
		c.cond.Wait()
	}
	timedOutResult := timedOut
	c.mutex.Unlock()
	timer.Stop()

	reacquired, err := mutex.Lock()
	return reacquired, timedOutResult, err
}

// WaitWhile reacquires the mutex and calls condition in a loop,
// continuing to wait for as long as condition returns true. It stops
// early, returning whatever guard and error the last reacquisition
// produced, if that reacquisition came back poisoned.
func WaitWhile[T any](c *Condvar, guard *MutexGuard[T], condition func(*T) bool) (*MutexGuard[T], error) {
	var err error
	for condition(guard.Value()) {
		guard, err = Wait(c, guard)
		if err != nil {
			return guard, err
		}
	}
	return guard, nil
}

// WaitTimeoutWhile combines WaitTimeout and WaitWhile: it reacquires the
// mutex and calls condition in a loop, waking on notification or on the
// overall dur elapsing, whichever comes first. It returns the final
// guard, whether the deadline was reached before condition turned
// false, and any poison error from the last reacquisition.
func WaitTimeoutWhile[T any](c *Condvar, guard *MutexGuard[T], dur time.Duration, condition func(*T) bool) (*MutexGuard[T], bool, error) {
	deadline := time.Now().Add(dur)
	for condition(guard.Value()) {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return guard, true, nil
		}
		var (
			timedOut bool
			err      error
		)
		guard, timedOut, err = WaitTimeout(c, guard, remaining)
		if err != nil {
			return guard, timedOut, err
		}
		if timedOut {
			return guard, true, nil
		}
	}
	return guard, false, nil
}

// NotifyOne wakes one goroutine blocked in Wait, if any.
func (c *Condvar) NotifyOne() {
	c.cond.Signal()
}

// NotifyAll wakes every goroutine blocked in Wait.
func (c *Condvar) NotifyAll() {
	c.cond.Broadcast()
}
