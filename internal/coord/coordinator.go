// Package coord runs collection for feedkeeper: passes over feed snapshots,
// the collecting state machine, and the daily summary job.
package coord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/feedkeeper/internal/automation"
	"github.com/abelbrown/feedkeeper/internal/extract"
	"github.com/abelbrown/feedkeeper/internal/fetch"
	"github.com/abelbrown/feedkeeper/internal/history"
	"github.com/abelbrown/feedkeeper/internal/model"
	"github.com/abelbrown/feedkeeper/internal/notify"
	"github.com/abelbrown/feedkeeper/internal/otel"
	"github.com/abelbrown/feedkeeper/internal/rollup"
	"github.com/abelbrown/feedkeeper/internal/store"
)

// DefaultInterval is the time between timer-driven passes.
const DefaultInterval = 5 * time.Second

// passTimeout bounds one snapshot plus save.
const passTimeout = 30 * time.Second

// DefaultSummarySchedule runs the daily summary at 23:55 local time.
const DefaultSummarySchedule = "55 23 * * *"

// State is the persisted collection state, restored on startup.
type State struct {
	IsCollecting bool `json:"isCollecting"`
	AutoComment  bool `json:"autoComment"`
}

// Status is the coordinator's view for the CLI and the watch screen.
type Status struct {
	Collecting  bool
	AutoComment bool
	Buffered    int
	Processed   int
	Passes      int64
}

// Options configures a Coordinator.
type Options struct {
	Interval  time.Duration
	WatchPath string // snapshot file to watch for changes; empty disables
	Prompt    string // default summary prompt

	// OnPass, if set, is called after every pass from the collecting
	// goroutine. It must not block.
	OnPass func(PassResult, error)
}

// Coordinator drives a Session from a snapshot Source.
// Uses context cancellation as the ONLY stop mechanism of its loops.
type Coordinator struct {
	session *Session
	source  fetch.Source
	x       *extract.Extractor
	store   *store.Store
	bus     *notify.Bus
	gen     *rollup.Generator
	auto    *automation.Scheduler // optional
	opts    Options
	log     otel.Scope
	now     func() time.Time

	trigger chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc // non-nil while collecting
	done   chan struct{}
	cron   *cron.Cron
}

// New creates a Coordinator. gen, bus and auto may be nil.
func New(sess *Session, src fetch.Source, x *extract.Extractor, s *store.Store, bus *notify.Bus, gen *rollup.Generator, auto *automation.Scheduler, opts Options, log otel.Scope) *Coordinator {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if gen == nil {
		gen = &rollup.Generator{}
	}
	return &Coordinator{
		session: sess,
		source:  src,
		x:       x,
		store:   s,
		bus:     bus,
		gen:     gen,
		auto:    auto,
		opts:    opts,
		log:     log,
		now:     time.Now,
		trigger: make(chan struct{}, 1),
	}
}

// Session returns the underlying session.
func (c *Coordinator) Session() *Session { return c.session }

// Start begins collecting: one pass immediately, then a pass on every tick
// and on every change notification. Calling Start while collecting is a
// no-op. The loops stop when ctx is done or Stop is called.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel, c.done = cancel, done
	c.mu.Unlock()

	select {
	case <-c.trigger:
	default:
	}

	c.log.Info(otel.KindCollectStart, c.source.Name())
	if err := c.saveState(ctx); err != nil {
		c.log.Error(otel.KindStoreError, err)
	}

	go func() {
		defer close(done)
		if err := c.run(runCtx); err != nil {
			c.log.Error(otel.KindError, err)
		}
	}()
	return nil
}

// Stop halts ticks and detaches the watcher. A pass already running
// completes and saves before Stop returns. Scheduled automation keeps
// running.
func (c *Coordinator) Stop(ctx context.Context) error {
	if !c.halt() {
		return nil
	}
	return c.saveState(ctx)
}

// halt cancels the loops and waits for them. It reports whether they were
// running.
func (c *Coordinator) halt() bool {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()
	if cancel == nil {
		return false
	}

	cancel()
	<-done
	c.log.Info(otel.KindCollectStop, c.source.Name())
	return true
}

// Collecting reports whether the loops are running.
func (c *Coordinator) Collecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// Trigger requests a pass. Redundant requests made while one is pending
// coalesce. It never blocks and is ignored while idle.
func (c *Coordinator) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// run owns the collecting loops until ctx is done.
func (c *Coordinator) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.Pass(gctx)

		ticker := time.NewTicker(c.opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			case <-c.trigger:
			}
			c.Pass(gctx)
		}
	})

	if c.opts.WatchPath != "" {
		g.Go(func() error {
			// Timer passes continue without the watcher.
			if err := fetch.Watch(gctx, c.opts.WatchPath, c.Trigger); err != nil {
				c.log.Error(otel.KindSnapshotError, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Pass takes one snapshot and processes it. Cancelling ctx does not abort a
// pass that has started; it runs to completion under passTimeout.
func (c *Coordinator) Pass(ctx context.Context) (PassResult, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), passTimeout)
	defer cancel()

	res, err := c.pass(ctx)
	if c.opts.OnPass != nil {
		c.opts.OnPass(res, err)
	}
	return res, err
}

func (c *Coordinator) pass(ctx context.Context) (PassResult, error) {
	snap, err := c.source.Snapshot(ctx)
	if err != nil {
		c.log.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindSnapshotError, Err: err.Error()})
		// Earlier records may still be waiting on a failed save.
		if _, serr := c.session.Save(ctx); serr != nil {
			err = errors.Join(err, serr)
		}
		return PassResult{}, fmt.Errorf("snapshot %s: %w", c.source.Name(), err)
	}
	return c.session.ProcessSnapshot(ctx, c.x.Candidates(snap.Doc.Selection), snap.Page)
}

// Status reports collecting state and session counters.
func (c *Coordinator) Status() Status {
	ss := c.session.Status()
	return Status{
		Collecting:  c.Collecting(),
		AutoComment: c.auto != nil && c.auto.Enabled(),
		Buffered:    ss.Buffered,
		Processed:   ss.Processed,
		Passes:      ss.Passes,
	}
}

// SetAutoComment toggles automation and persists the choice.
func (c *Coordinator) SetAutoComment(ctx context.Context, on bool) error {
	if c.auto == nil {
		return errors.New("automation is not configured")
	}
	c.auto.SetEnabled(on)
	return c.saveState(ctx)
}

func (c *Coordinator) saveState(ctx context.Context) error {
	st := State{IsCollecting: c.Collecting(), AutoComment: c.auto != nil && c.auto.Enabled()}
	if err := c.store.SetJSON(ctx, store.KeyCollectionState, st); err != nil {
		return fmt.Errorf("save collection state: %w", err)
	}
	return nil
}

// Restore applies the persisted state: automation is toggled to match and,
// when resume is set and collection was on, collecting starts again.
func (c *Coordinator) Restore(ctx context.Context, resume bool) (State, error) {
	var st State
	if _, err := c.store.GetJSON(ctx, store.KeyCollectionState, &st); err != nil {
		return st, err
	}
	if c.auto != nil {
		c.auto.SetEnabled(st.AutoComment)
	}
	if resume && st.IsCollecting {
		return st, c.Start(ctx)
	}
	return st, nil
}

// Clear resets the session and deletes stored history and summaries.
func (c *Coordinator) Clear(ctx context.Context) error {
	c.session.Reset()
	if err := c.store.Delete(ctx, store.KeyFeedHistory, store.KeySummaries, store.KeyLastSummaryDate); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	c.bus.Publish(notify.Event{Event: notify.RecordsAppended, Date: model.DateKey(c.now())})
	return nil
}

// History returns the stored history.
func (c *Coordinator) History(ctx context.Context) (history.History, error) {
	got, err := c.store.Get(ctx, store.KeyFeedHistory)
	if err != nil {
		return nil, err
	}
	return history.Decode(got[store.KeyFeedHistory])
}
