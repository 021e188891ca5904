package registry

import (
	"testing"

	"github.com/mantis-labs/deadlock/internal/capture"
)

func TestTryLockExclusion(t *testing.T) {
	lock := newLockRepresentation(1)
	site := capture.Capture(0)

	if !lock.tryLock(1, WriteMode, site) {
		t.Fatal("expected first write acquisition to succeed")
	}
	if lock.tryLock(2, WriteMode, site) {
		t.Fatal("expected a second write acquisition to fail while held")
	}
	if lock.tryLock(2, ReadMode, site) {
		t.Fatal("expected a read acquisition to fail while write-held")
	}
}

func TestTryLockRejectsReentrance(t *testing.T) {
	lock := newLockRepresentation(1)
	site := capture.Capture(0)

	if !lock.tryLock(1, WriteMode, site) {
		t.Fatal("expected first acquisition to succeed")
	}
	if lock.tryLock(1, WriteMode, site) {
		t.Fatal("expected a second acquisition by the same goroutine to be rejected as reentrance")
	}
}

func TestTryLockAllowsConcurrentReaders(t *testing.T) {
	lock := newLockRepresentation(1)
	site := capture.Capture(0)

	if !lock.tryLock(1, ReadMode, site) {
		t.Fatal("expected first read acquisition to succeed")
	}
	if !lock.tryLock(2, ReadMode, site) {
		t.Fatal("expected a second, different goroutine's read acquisition to succeed")
	}
}

func TestUnlockReturnsReleasedModeAndClearsHold(t *testing.T) {
	lock := newLockRepresentation(1)
	site := capture.Capture(0)

	lock.tryLock(1, ReadMode, site)
	if mode := lock.unlock(1); mode != ReadMode {
		t.Fatalf("expected released mode %v, got %v", ReadMode, mode)
	}
	if !lock.tryLock(2, WriteMode, site) {
		t.Fatal("expected lock to be free for a write acquisition after unlock")
	}
}

func TestSubscribeUnsubscribeTracksRequests(t *testing.T) {
	lock := newLockRepresentation(1)
	site := capture.Capture(0)

	lock.subscribe(5, WriteMode, site)
	_, requests := lock.snapshot()
	if len(requests) != 1 || requests[0].goroutine != 5 {
		t.Fatalf("expected one pending request for goroutine 5, got %+v", requests)
	}

	lock.unsubscribe(5)
	_, requests = lock.snapshot()
	if len(requests) != 0 {
		t.Fatalf("expected no pending requests after unsubscribe, got %+v", requests)
	}
}
