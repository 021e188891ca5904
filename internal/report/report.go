// Package report renders a deadlock report in the format described by
// the library's external interface and selects its output sink.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mantis-labs/deadlock/internal/capture"
)

// NodeKind distinguishes the two kinds of node in a reported cycle.
type NodeKind int

const (
	ThreadNode NodeKind = iota
	LockNode
)

// Node is one element of the reported dependency cycle.
type Node struct {
	Kind        NodeKind
	GoroutineID uint64
	LockID      uint64
}

func (n Node) String() string {
	if n.Kind == LockNode {
		return fmt.Sprintf("Lock(%d)", n.LockID)
	}
	return fmt.Sprintf("Thread(%d)", n.GoroutineID)
}

// Requester describes a goroutine blocked on a lock, attributed to its
// pending-request call site.
type Requester struct {
	GoroutineID uint64
	Mode        string
	Frames      []capture.Frame
}

// Holder describes a goroutine currently holding a lock, attributed to
// its acquisition call site.
type Holder struct {
	GoroutineID uint64
	Frames      []capture.Frame
}

// LockDetail carries everything a report needs to print BLOCKING and
// BLOCKED BY sections for one lock participating in a cycle.
type LockDetail struct {
	LockID    uint64
	Blocking  []Requester
	BlockedBy []Holder
}

// Logger is the minimal structured-logging surface report needs; it is
// satisfied structurally so this package never imports the logging
// package's concrete type.
type Logger interface {
	ErrorWithMetadata(message string, metadata map[string]interface{})
}

// SelectSink picks the deadlock-report destination: the NO_DEADLOCKS
// environment variable if set and openable, else stderr. Returns the
// writer, its printable name, and a cleanup to invoke once done.
func SelectSink() (io.Writer, string, func()) {
	if path := os.Getenv("NO_DEADLOCKS"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			return f, path, func() { _ = f.Close() }
		}
	}
	return os.Stderr, "stderr", func() {}
}

// Write renders the report for cycle to the selected sink, logs a
// structured summary line first if logger is non-nil, closes the sink,
// invokes afterWrite with the sink's name if non-nil (used to rotate or
// compress a file sink once the report is fully flushed), and finally
// panics naming the sink. It never returns.
func Write(cycle []Node, locks []LockDetail, logger Logger, afterWrite func(sinkName string)) {
	sink, name, cleanup := SelectSink()

	if logger != nil {
		logger.ErrorWithMetadata("deadlock detected", map[string]interface{}{
			"sink":         name,
			"cycle_length": len(cycle),
		})
	}

	fmt.Fprintln(sink, "=========== REPORT START ===========")
	if len(cycle) == 2 {
		writeReentrance(sink, locks)
	} else {
		writeCycle(sink, cycle, locks)
	}
	fmt.Fprintln(sink, "=========== REPORT END ===========")
	cleanup()

	if afterWrite != nil {
		afterWrite(name)
	}

	panic(fmt.Sprintf("DEADLOCK DETECTED! See %s for details", name))
}

func writeReentrance(sink io.Writer, locks []LockDetail) {
	fmt.Fprintln(sink, "A reentrance has been attempted: this thread already holds the lock it is "+
		"requesting again. This library's locks are not reentrant, so this is reported as a deadlock.")
	if len(locks) == 0 {
		return
	}
	lock := locks[0]
	if len(lock.BlockedBy) > 0 {
		fmt.Fprintln(sink, "Lock taken at:")
		fmt.Fprintln(sink, capture.FormatFrames(lock.BlockedBy[0].Frames))
	}
	if len(lock.Blocking) > 0 {
		fmt.Fprintln(sink, "Reentrance attempted at:")
		fmt.Fprintln(sink, capture.FormatFrames(lock.Blocking[0].Frames))
	}
}

func writeCycle(sink io.Writer, cycle []Node, locks []LockDetail) {
	names := make([]string, len(cycle))
	for i, n := range cycle {
		names[i] = n.String()
	}
	fmt.Fprintf(sink, "A deadlock has been detected, here's the dependency cycle: %s\n",
		strings.Join(names, " -> "))

	for _, lock := range locks {
		fmt.Fprintf(sink, "LOCK %d:\n", lock.LockID)
		fmt.Fprintln(sink, "BLOCKING:")
		for _, req := range lock.Blocking {
			fmt.Fprintf(sink, " THREAD %d requesting %s rights at:\n", req.GoroutineID, req.Mode)
			fmt.Fprintln(sink, capture.FormatFrames(req.Frames))
		}
		fmt.Fprintln(sink, "BLOCKED BY:")
		for _, holder := range lock.BlockedBy {
			fmt.Fprintf(sink, " THREAD %d blocked at:\n", holder.GoroutineID)
			fmt.Fprintln(sink, capture.FormatFrames(holder.Frames))
		}
	}
}
