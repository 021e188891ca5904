package deadlock

import "errors"

// ErrWouldBlock is returned by the non-blocking Try variants when the
// lock is currently held and cannot be acquired immediately.
var ErrWouldBlock = errors.New("deadlock: lock would block")

// PoisonError reports that a guard was released while its owning
// goroutine was unwinding from a panic, leaving the protected value in a
// possibly inconsistent state. It carries the guard itself so a caller
// that chooses to proceed anyway still has access to it, mirroring
// std's PoisonError in spirit: poisoning is advisory, not enforced.
type PoisonError[G any] struct {
	guard G
}

func (e *PoisonError[G]) Error() string {
	return "deadlock: lock poisoned by a panic in a previous holder"
}

// IntoGuard returns the wrapped guard for advisory use despite poisoning.
func (e *PoisonError[G]) IntoGuard() G {
	return e.guard
}
