package registry

import (
	"testing"

	"github.com/mantis-labs/deadlock/internal/capture"
)

func TestAnalyseReturnsWhenNoCycleExists(t *testing.T) {
	manager := NewManager()
	lock := manager.CreateLock()
	site := capture.Capture(0)

	lock.tryLock(1, WriteMode, site)
	lock.subscribe(2, WriteMode, site)

	// No deadlock: this should return normally rather than panic.
	manager.Analyse(2)
}

func TestAnalyseSuppressesNonParticipants(t *testing.T) {
	manager := NewManager()
	a := manager.CreateLock()
	b := manager.CreateLock()
	site := capture.Capture(0)

	// Goroutines 1 and 2 form a cycle over a and b; goroutine 3 is
	// unrelated and must never see a panic from this cycle.
	a.tryLock(1, WriteMode, site)
	a.subscribe(2, WriteMode, site)
	b.tryLock(2, WriteMode, site)
	b.subscribe(1, WriteMode, site)

	manager.Analyse(3)
}

func TestAnalysePanicsForParticipant(t *testing.T) {
	manager := NewManager()
	a := manager.CreateLock()
	b := manager.CreateLock()
	site := capture.Capture(0)

	a.tryLock(1, WriteMode, site)
	a.subscribe(2, WriteMode, site)
	b.tryLock(2, WriteMode, site)
	b.subscribe(1, WriteMode, site)

	defer func() {
		if recover() == nil {
			t.Fatal("expected Analyse to panic for a goroutine participating in the cycle")
		}
	}()
	manager.Analyse(1)
}

func TestRemoveLockDropsFromRegistry(t *testing.T) {
	manager := NewManager()
	lock := manager.CreateLock()
	manager.RemoveLock(lock.ID())

	manager.mutex.rLock()
	_, present := manager.locks[lock.ID()]
	manager.mutex.rUnlock()
	if present {
		t.Fatal("expected lock to be removed from the registry")
	}
}

func TestGlobalReturnsSameInstance(t *testing.T) {
	first := Global()
	second := Global()
	if first != second {
		t.Fatal("expected Global to return the same Manager instance across calls")
	}
}
