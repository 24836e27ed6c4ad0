package otel

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// queueSize bounds how many encoded events may wait for the writer before
// Emit starts dropping.
const queueSize = 4096

// pending is one encoded line plus the event it came from. The ring gets the
// event itself so Dur survives.
type pending struct {
	line []byte
	ev   Event
}

// Logger appends events to an io.Writer as JSONL. Emit never blocks: lines are
// queued and a single writer goroutine owns w, so callers on the collection
// path are never held up by disk I/O.
type Logger struct {
	session string
	queue   chan pending
	w       io.Writer
	done    chan struct{}

	mu   sync.Mutex
	ring *RingBuffer

	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewLogger starts a Logger writing to w. Close must be called to flush.
func NewLogger(w io.Writer) *Logger {
	l := &Logger{
		session: newSessionID(),
		queue:   make(chan pending, queueSize),
		w:       w,
		done:    make(chan struct{}),
	}
	go l.run()
	return l
}

// NewNullLogger returns a Logger that writes nowhere. Attached ring buffers
// still receive events.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

func newSessionID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

func (l *Logger) run() {
	defer close(l.done)
	for p := range l.queue {
		if _, err := l.w.Write(p.line); err != nil {
			l.dropped.Add(1)
		}
		if rb := l.ringBuffer(); rb != nil {
			rb.Push(p.ev)
		}
	}
}

func (l *Logger) ringBuffer() *RingBuffer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ring
}

// Emit stamps e with the session and, if unset, the current time, then
// queues it. A full queue or a closed logger counts the event as dropped.
func (l *Logger) Emit(e Event) {
	if l.closed.Load() {
		l.dropped.Add(1)
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.session

	line, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}
	l.enqueue(pending{line: append(line, '\n'), ev: e})
}

// enqueue tolerates a concurrent Close closing the queue under it.
func (l *Logger) enqueue(p pending) {
	defer func() {
		if recover() != nil {
			l.dropped.Add(1)
		}
	}()
	select {
	case l.queue <- p:
	default:
		l.dropped.Add(1)
	}
}

// Debug emits only when FEEDKEEPER_TRACE is set.
func (l *Logger) Debug(kind EventKind, comp, msg string) {
	if TraceEnabled() {
		l.Emit(Event{Level: LevelDebug, Kind: kind, Comp: comp, Msg: msg})
	}
}

func (l *Logger) Info(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

func (l *Logger) Warn(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

func (l *Logger) Error(kind EventKind, comp string, err error) {
	l.Emit(Event{Level: LevelError, Kind: kind, Comp: comp, Err: errText(err)})
}

// SetRingBuffer mirrors every written event into rb. Events already written
// are not replayed.
func (l *Logger) SetRingBuffer(rb *RingBuffer) {
	l.mu.Lock()
	l.ring = rb
	l.mu.Unlock()
}

// Dropped reports how many events never reached the writer.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close drains the queue and stops the writer. Later Emits are dropped.
// Idempotent.
func (l *Logger) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.queue)
		<-l.done
		if n := l.dropped.Load(); n > 0 {
			fmt.Fprintf(os.Stderr, "feedkeeper: %d events dropped during session %s\n", n, l.session)
		}
	})
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Scope is a Logger bound to one component. The zero Scope discards events,
// which lets packages take a Scope without caring whether logging is wired.
type Scope struct {
	l    *Logger
	comp string
}

func (l *Logger) Scope(comp string) Scope {
	return Scope{l: l, comp: comp}
}

// Emit fills Comp when the event leaves it empty.
func (s Scope) Emit(e Event) {
	if s.l == nil {
		return
	}
	if e.Comp == "" {
		e.Comp = s.comp
	}
	s.l.Emit(e)
}

func (s Scope) Info(kind EventKind, msg string) {
	s.Emit(Event{Level: LevelInfo, Kind: kind, Msg: msg})
}

func (s Scope) Warn(kind EventKind, msg string) {
	s.Emit(Event{Level: LevelWarn, Kind: kind, Msg: msg})
}

func (s Scope) Error(kind EventKind, err error) {
	s.Emit(Event{Level: LevelError, Kind: kind, Err: errText(err)})
}

// Debug forces LevelDebug and emits only under FEEDKEEPER_TRACE.
func (s Scope) Debug(e Event) {
	if !TraceEnabled() {
		return
	}
	e.Level = LevelDebug
	s.Emit(e)
}
