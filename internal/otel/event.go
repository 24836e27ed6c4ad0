// Package otel provides structured observability for feedkeeper.
//
// Events are typed structs serialized as JSONL lines. The Logger writes
// events asynchronously via a buffered channel and background drain goroutine.
// An optional RingBuffer keeps recent events in memory for the watch screen.
package otel

import (
	"encoding/json"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an observability event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Collection pipeline
	KindPassStart       EventKind = "pass.start"
	KindPassComplete    EventKind = "pass.complete"
	KindPassSkipped     EventKind = "pass.skipped"
	KindSnapshotError   EventKind = "snapshot.error"
	KindRecordCollected EventKind = "record.collected"
	KindRecordDuplicate EventKind = "record.duplicate"
	KindRecordPromoted  EventKind = "record.promoted"
	KindFieldError      EventKind = "extract.field_error"

	// Persistence
	KindSave       EventKind = "store.save"
	KindStoreError EventKind = "store.error"

	// Summaries
	KindSummaryGenerated EventKind = "summary.generated"
	KindSummaryFallback  EventKind = "summary.fallback"

	// Automation side effects
	KindAutomationScheduled EventKind = "automation.scheduled"
	KindAutomationDone      EventKind = "automation.commented"
	KindAutomationError     EventKind = "automation.error"

	// Session lifecycle
	KindCollectStart EventKind = "session.start"
	KindCollectStop  EventKind = "session.stop"
	KindReset        EventKind = "session.reset"

	// System events
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"
	KindError    EventKind = "sys.error"
)

// Event is the universal observability record. Every field except Kind and
// Time is optional. Serialized as a single JSONL line.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // component: "coord", "extract", "store", "cli"
	SessionID string         `json:"session_id,omitempty"` // random hex, same for entire app run
	PassID    int64          `json:"pass,omitempty"`       // collection pass sequence number
	Dur       time.Duration  `json:"-"`                    // not serialized directly
	DurMs     float64        `json:"dur_ms,omitempty"`     // computed from Dur at marshal time
	Count     int            `json:"count,omitempty"`
	Date      string         `json:"date,omitempty"`   // day bucket key
	Record    string         `json:"record,omitempty"` // post record ID
	Field     string         `json:"field,omitempty"`  // extractor field name
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`   // free text
	Extra     map[string]any `json:"extra,omitempty"` // escape hatch for unusual fields
}

// MarshalJSON implements json.Marshaler, converting Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type Alias Event
	a := struct {
		Alias
	}{Alias: Alias(e)}
	if e.Dur > 0 {
		a.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(a)
}
