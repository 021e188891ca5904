// Package registry holds the process-wide lock registry: the set of
// live lock representations, the wait-for graph built across them, and
// the manager that drives acquisition, subscription, and analysis.
package registry

import "github.com/petermattis/goid"

// GoroutineID identifies the calling goroutine for wait-for graph nodes.
// It is read directly from the Go runtime rather than minted locally, so
// two goroutines are never confused even across manager instances.
type GoroutineID uint64

// CurrentGoroutine returns the id of the calling goroutine.
func CurrentGoroutine() GoroutineID {
	return GoroutineID(goid.Get())
}
