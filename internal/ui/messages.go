// Package ui provides the Bubble Tea watch screen for feedkeeper.
package ui

import (
	"time"

	"github.com/abelbrown/feedkeeper/internal/model"
)

// StatusLoaded carries a fresh view of collection state.
type StatusLoaded struct {
	Collecting  bool
	AutoComment bool
	Buffered    int
	Processed   int
	TodayCount  int
	Summary     *model.Summary // latest stored summary, if any
	Err         error
}

// PassDone is sent after every collection pass.
type PassDone struct {
	At         time.Time
	Candidates int
	New        int
	Saved      int
	Dur        time.Duration
	Err        error
}

// CountUpdated is sent when records are appended to a day bucket.
type CountUpdated struct {
	Date  string
	Count int
}

// SummaryDone is sent when a summary has been generated and stored.
type SummaryDone struct {
	Summary model.Summary
	Success bool
	Err     error // summarizer or storage failure
}

// CollectingChanged is sent after a start or stop request completes.
type CollectingChanged struct {
	On  bool
	Err error
}

// AutoCommentChanged is sent after the auto-comment toggle is persisted.
type AutoCommentChanged struct {
	On  bool
	Err error
}

// RefreshTick triggers periodic refresh.
type RefreshTick struct{}
