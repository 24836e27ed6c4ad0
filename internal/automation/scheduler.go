// Package automation runs optional engagement side effects (auto-comments)
// for newly collected records.
//
// The collection pass only reports that a record is eligible. Whether and
// when anything happens is decided here, on separate goroutines, so a slow
// or failing side effect never touches collection.
package automation

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/feedkeeper/internal/model"
	"github.com/abelbrown/feedkeeper/internal/otel"
)

// DefaultTemplates is the built-in comment pool.
var DefaultTemplates = []string{
	"Great insights! Thanks for sharing.",
	"This is really valuable information. Thanks for posting!",
	"Interesting perspective. I appreciate you sharing this.",
	"Thanks for sharing these thoughts. Very insightful!",
	"I found this very helpful. Thanks for posting!",
	"Great content as always!",
	"This resonates with me. Thanks for sharing your perspective.",
	"Valuable information! Thanks for putting this out there.",
}

// Commenter performs the side effect for one record.
type Commenter interface {
	Comment(ctx context.Context, rec model.PostRecord, text string) error
}

// Options tunes the scheduler.
type Options struct {
	Enabled     bool
	Probability float64       // chance per eligible record
	MinDelay    time.Duration // delay is uniform in [MinDelay, MaxDelay)
	MaxDelay    time.Duration
	PerMinute   int // side effects per minute; 0 means unlimited
	Templates   []string
}

// DefaultOptions mirrors the collector's historical behaviour: disabled,
// 10% of records, 2 to 7 seconds after capture.
func DefaultOptions() Options {
	return Options{
		Probability: 0.1,
		MinDelay:    2 * time.Second,
		MaxDelay:    7 * time.Second,
		PerMinute:   6,
		Templates:   DefaultTemplates,
	}
}

// Scheduler decides which eligible records get a side effect and runs it
// after a random delay.
type Scheduler struct {
	ctx       context.Context
	opts      Options
	commenter Commenter
	limiter   *rate.Limiter
	log       otel.Scope

	enabled atomic.Bool
	wg      sync.WaitGroup

	// Seams for tests.
	float func() float64
	intn  func(int) int
}

// NewScheduler creates a Scheduler. Side effects run under ctx, which should
// live as long as the process: stopping collection does not cancel work that
// is already scheduled.
func NewScheduler(ctx context.Context, opts Options, c Commenter, log otel.Scope) *Scheduler {
	if len(opts.Templates) == 0 {
		opts.Templates = DefaultTemplates
	}
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}
	limit := rate.Inf
	if opts.PerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.PerMinute))
	}
	s := &Scheduler{
		ctx:       ctx,
		opts:      opts,
		commenter: c,
		limiter:   rate.NewLimiter(limit, 1),
		log:       log,
		float:     rand.Float64,
		intn:      rand.IntN,
	}
	s.enabled.Store(opts.Enabled)
	return s
}

// SetEnabled toggles auto-commenting at runtime.
func (s *Scheduler) SetEnabled(on bool) {
	s.enabled.Store(on)
}

// Enabled reports whether auto-commenting is on.
func (s *Scheduler) Enabled() bool {
	return s.enabled.Load()
}

// Eligible is called once per newly collected record. It never blocks.
// It reports whether a side effect was scheduled.
func (s *Scheduler) Eligible(rec model.PostRecord) bool {
	if s == nil || s.commenter == nil || !s.Enabled() {
		return false
	}
	if s.float() >= s.opts.Probability {
		return false
	}

	text := s.opts.Templates[s.intn(len(s.opts.Templates))]
	delay := s.opts.MinDelay
	if span := s.opts.MaxDelay - s.opts.MinDelay; span > 0 {
		delay += time.Duration(s.float() * float64(span))
	}

	s.log.Emit(otel.Event{
		Level:  otel.LevelInfo,
		Kind:   otel.KindAutomationScheduled,
		Record: rec.ID,
		Dur:    delay,
	})

	s.wg.Add(1)
	go s.run(rec, text, delay)
	return true
}

func (s *Scheduler) run(rec model.PostRecord, text string, delay time.Duration) {
	defer s.wg.Done()

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-s.ctx.Done():
		return
	case <-t.C:
	}

	if err := s.limiter.Wait(s.ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.fail(rec, err)
		}
		return
	}
	if err := s.commenter.Comment(s.ctx, rec, text); err != nil {
		s.fail(rec, err)
		return
	}
	s.log.Emit(otel.Event{
		Level:  otel.LevelInfo,
		Kind:   otel.KindAutomationDone,
		Record: rec.ID,
		Msg:    text,
	})
}

// fail logs and swallows a side-effect error.
func (s *Scheduler) fail(rec model.PostRecord, err error) {
	s.log.Emit(otel.Event{
		Level:  otel.LevelWarn,
		Kind:   otel.KindAutomationError,
		Record: rec.ID,
		Err:    err.Error(),
	})
}

// Wait blocks until every scheduled side effect has finished or been
// abandoned because the scheduler context ended.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
