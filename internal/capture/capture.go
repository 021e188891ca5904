// Package capture records call stacks cheaply at acquisition time and
// symbolicates them only when a report is actually printed.
package capture

import (
	"fmt"
	"runtime"
	"strings"
)

// DefaultSkipFrames is the number of innermost frames trimmed from a
// resolved trace to hide this library's own acquisition-loop frames.
// Empirical; retune if the shape of the acquisition loop changes.
const DefaultSkipFrames = 6

// maxFrames bounds how deep a single capture walks. Deep recursive call
// stacks are rare in lock-acquisition paths; this keeps capture cheap.
const maxFrames = 64

// Frame is one resolved stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

func (f Frame) String() string {
	return fmt.Sprintf("%s\n\t%s:%d", f.Function, f.File, f.Line)
}

// Site is an unresolved call stack, cheap to capture and expensive to
// resolve. Where the stack begins is fixed at capture time by Capture's
// skip argument.
type Site struct {
	pcs []uintptr
}

// Capture records the call stack of the calling goroutine. skip counts
// frames above Capture itself (0 == immediate caller).
func Capture(skip int) Site {
	var pcs [maxFrames]uintptr
	n := runtime.Callers(skip+2, pcs[:])
	captured := make([]uintptr, n)
	copy(captured, pcs[:n])
	return Site{pcs: captured}
}

// Resolve symbolicates every captured frame. Expensive; call only when a
// report is actually being written.
func (s Site) Resolve() []Frame {
	if len(s.pcs) == 0 {
		return nil
	}
	frames := runtime.CallersFrames(s.pcs)
	resolved := make([]Frame, 0, len(s.pcs))
	for {
		f, more := frames.Next()
		resolved = append(resolved, Frame{Function: f.Function, File: f.File, Line: f.Line})
		if !more {
			break
		}
	}
	return resolved
}

// ResolveTrimmed resolves the site and drops the top DefaultSkipFrames
// frames, which belong to this library's own lock and manager internals.
func (s Site) ResolveTrimmed() []Frame {
	frames := s.Resolve()
	if len(frames) <= DefaultSkipFrames {
		return frames
	}
	return frames[DefaultSkipFrames:]
}

// FormatFrames renders frames the way a deadlock report prints them.
func FormatFrames(frames []Frame) string {
	if len(frames) == 0 {
		return "\t<no frames captured>"
	}
	lines := make([]string, len(frames))
	for i, f := range frames {
		lines[i] = f.String()
	}
	return strings.Join(lines, "\n")
}
