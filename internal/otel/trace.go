package otel

import (
	"os"
	"sync/atomic"
)

// TraceEnv turns on debug-level events when set to any non-empty value.
const TraceEnv = "FEEDKEEPER_TRACE"

var trace atomic.Bool

func init() {
	trace.Store(os.Getenv(TraceEnv) != "")
}

// TraceEnabled reports whether debug events are being recorded.
func TraceEnabled() bool { return trace.Load() }

// SetTrace switches debug events on or off at runtime and returns the
// previous setting.
func SetTrace(on bool) bool { return trace.Swap(on) }
