package otel

import (
	"maps"
	"sync"
)

// DefaultRingSize is the capacity used for the watch screen's debug panel.
const DefaultRingSize = 1024

// RingBuffer keeps the most recent events in memory for the debug overlay.
// Safe for concurrent use.
type RingBuffer struct {
	mu     sync.Mutex
	events []Event
	next   int  // slot the next Push writes
	full   bool // every slot holds an event
}

// NewRingBuffer returns a buffer holding up to size events. A non-positive
// size means DefaultRingSize.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{events: make([]Event, size)}
}

// Push stores e, evicting the oldest event when full. Extra is copied so a
// caller reusing its map cannot change what was recorded.
func (r *RingBuffer) Push(e Event) {
	if e.Extra != nil {
		e.Extra = maps.Clone(e.Extra)
	}
	r.mu.Lock()
	r.events[r.next] = e
	r.next++
	if r.next == len(r.events) {
		r.next, r.full = 0, true
	}
	r.mu.Unlock()
}

// Snapshot returns every buffered event, oldest first.
func (r *RingBuffer) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tail(r.lenLocked())
}

// Last returns the n most recent events, oldest first. n larger than the
// buffer returns everything; n <= 0 returns nil.
func (r *RingBuffer) Last(n int) []Event {
	if n <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tail(min(n, r.lenLocked()))
}

// Errors returns up to n of the most recent events that carry an error,
// oldest first.
func (r *RingBuffer) Errors(n int) []Event {
	if n <= 0 {
		return nil
	}
	r.mu.Lock()
	all := r.tail(r.lenLocked())
	r.mu.Unlock()

	var out []Event
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		if all[i].Err != "" {
			out = append(out, all[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Len returns how many events are buffered.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lenLocked()
}

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int {
	return len(r.events)
}

// Stats counts buffered events by kind.
func (r *RingBuffer) Stats() map[EventKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[EventKind]int)
	for _, e := range r.tail(r.lenLocked()) {
		counts[e.Kind]++
	}
	return counts
}

func (r *RingBuffer) lenLocked() int {
	if r.full {
		return len(r.events)
	}
	return r.next
}

// tail copies the n newest events in order. Caller holds mu.
func (r *RingBuffer) tail(n int) []Event {
	if n == 0 {
		return nil
	}
	out := make([]Event, 0, n)
	start := r.next - n
	if start < 0 {
		out = append(out, r.events[len(r.events)+start:]...)
		start = 0
	}
	return append(out, r.events[start:r.next]...)
}
