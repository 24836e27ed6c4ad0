// Package notify fans collection events out to consumers such as the watch
// screen badge and the CLI.
package notify

import (
	"sync"
	"sync/atomic"
)

// Kind names a notification.
type Kind string

const (
	// RecordsAppended follows every successful save.
	RecordsAppended Kind = "recordsAppended"
	// SummaryReady follows every stored summary.
	SummaryReady Kind = "summaryReady"
)

// Event is what consumers receive. NewCount is the size of the date's bucket
// after the save; Added is how many records that save appended.
type Event struct {
	Event    Kind   `json:"event"`
	Date     string `json:"date"`
	NewCount int    `json:"newCount"`
	Added    int    `json:"added,omitempty"`
}

// Bus delivers events to every subscriber over buffered channels.
// Publish never blocks: a subscriber whose buffer is full misses the event.
type Bus struct {
	mu      sync.Mutex
	subs    map[int]chan Event
	next    int
	size    int
	closed  bool
	dropped atomic.Uint64
}

// NewBus creates a Bus whose subscriber channels hold bufferSize events.
func NewBus(bufferSize int) *Bus {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Bus{subs: make(map[int]chan Event), size: bufferSize}
}

// Subscribe returns a channel of events and a cancel func that closes it.
// Subscribing to a closed Bus yields an already-closed channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.size)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

// Publish sends e to all subscribers without blocking.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns how many deliveries were skipped because a subscriber
// was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close closes every subscriber channel. Safe to call multiple times.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
