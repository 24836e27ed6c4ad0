package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/feedkeeper/internal/config"
	"github.com/abelbrown/feedkeeper/internal/coord"
	"github.com/abelbrown/feedkeeper/internal/history"
	"github.com/abelbrown/feedkeeper/internal/logging"
	"github.com/abelbrown/feedkeeper/internal/model"
	"github.com/abelbrown/feedkeeper/internal/notify"
	"github.com/abelbrown/feedkeeper/internal/otel"
	"github.com/abelbrown/feedkeeper/internal/ui"
)

// refreshEvery is how often the watch screen reloads status on its own.
const refreshEvery = 10 * time.Second

func newWatchCmd(cfg *config.Config) *cobra.Command {
	var (
		src      sourceFlags
		interval time.Duration
		resume   bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open the watch screen and collect from a snapshot source",
		Long: `Open the watch screen. Collection starts with 's' and runs a pass
immediately, then on every interval and whenever the snapshot file changes.

Examples:
  feedkeeper watch --file ~/Downloads/feed.html
  feedkeeper watch --feed https://example.com/rss --interval 1m
  feedkeeper watch --resume      # continue collecting if it was on at exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cfg, src, interval, resume)
		},
	}
	cmd.Flags().StringVar(&src.file, "file", "", "saved HTML snapshot")
	cmd.Flags().StringVar(&src.url, "url", "", "HTML page to fetch")
	cmd.Flags().StringVar(&src.feed, "feed", "", "RSS or Atom feed URL")
	cmd.Flags().DurationVar(&interval, "interval", 0, "time between passes (default from config)")
	cmd.Flags().BoolVar(&resume, "resume", false, "resume collecting if it was on at last exit")
	return cmd
}

func runWatch(parent context.Context, cfg *config.Config, sf sourceFlags, interval time.Duration, resume bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	src, err := newSource(cfg, sf)
	if err != nil {
		return err
	}

	// The program is created after the runtime, so OnPass reaches it
	// through this variable. It is set before anything can start a pass.
	var program *tea.Program
	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}

	rt, err := newRuntime(ctx, cfg, src, coord.Options{
		Interval:  interval,
		WatchPath: watchPath(cfg, src),
		OnPass: func(res coord.PassResult, err error) {
			if err != nil {
				logging.Warn("pass failed", "err", err)
			} else {
				logging.Debug("pass complete", "pass", res.Pass, "new", res.New, "saved", res.Saved)
			}
			send(ui.PassDone{
				At:         time.Now(),
				Candidates: res.Candidates,
				New:        res.New,
				Saved:      res.Saved,
				Dur:        res.Dur,
				Err:        err,
			})
		},
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	c := rt.coord

	app := ui.NewApp(watchActions(ctx, c), rt.ring)
	program = tea.NewProgram(app, tea.WithAltScreen())

	if _, err := c.Restore(ctx, resume); err != nil {
		rt.logger.Error(otel.KindStoreError, "cli", err)
		logging.Warn("restore collection state", "err", err)
	}
	if cfg.Summary.Enabled {
		if err := c.StartSummaries(ctx, cfg.Summary.Schedule); err != nil {
			return err
		}
	}

	events, unsubscribe := rt.bus.Subscribe()
	defer unsubscribe()
	go forwardBus(ctx, events, program)
	go refreshLoop(ctx, program)

	_, err = program.Run()
	cancel()
	return err
}

// watchActions adapts the coordinator to the watch screen. Each action runs
// off the UI goroutine and reports back with a message.
func watchActions(ctx context.Context, c *coord.Coordinator) ui.Actions {
	return ui.Actions{
		LoadStatus: func() tea.Cmd {
			return func() tea.Msg { return loadStatus(ctx, c) }
		},
		SetCollecting: func(on bool) tea.Cmd {
			return func() tea.Msg {
				var err error
				if on {
					err = c.Start(ctx)
				} else {
					err = c.Stop(ctx)
				}
				return ui.CollectingChanged{On: c.Collecting(), Err: err}
			}
		},
		PassNow: func() tea.Cmd {
			return func() tea.Msg {
				if c.Collecting() {
					// The loop reports the pass through OnPass.
					c.Trigger()
					return nil
				}
				// OnPass reports the pass.
				c.Pass(ctx)
				return nil
			}
		},
		Summarize: func() tea.Cmd {
			return func() tea.Msg {
				res, err := c.GenerateSummary(ctx, model.DateKey(time.Now()), "")
				if err != nil {
					return ui.SummaryDone{Err: err}
				}
				return ui.SummaryDone{Summary: res.Summary, Success: res.Success, Err: res.Err}
			}
		},
		SetAutoComment: func(on bool) tea.Cmd {
			return func() tea.Msg {
				err := c.SetAutoComment(ctx, on)
				return ui.AutoCommentChanged{On: on && err == nil, Err: err}
			}
		},
	}
}

func loadStatus(ctx context.Context, c *coord.Coordinator) tea.Msg {
	st := c.Status()
	h, err := c.History(ctx)
	if err != nil {
		return ui.StatusLoaded{Err: err}
	}
	msg := ui.StatusLoaded{
		Collecting:  st.Collecting,
		AutoComment: st.AutoComment,
		Buffered:    st.Buffered,
		Processed:   st.Processed,
		TodayCount:  history.Count(h, model.DateKey(time.Now())),
	}
	sum, ok, err := c.LatestSummary(ctx)
	if err != nil {
		msg.Err = err
		return msg
	}
	if ok {
		msg.Summary = &sum
	}
	return msg
}

// forwardBus turns store notifications into badge updates.
func forwardBus(ctx context.Context, events <-chan notify.Event, p *tea.Program) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Event {
			case notify.RecordsAppended:
				p.Send(ui.CountUpdated{Date: ev.Date, Count: ev.NewCount})
			case notify.SummaryReady:
				p.Send(ui.RefreshTick{})
			}
		}
	}
}

func refreshLoop(ctx context.Context, p *tea.Program) {
	t := time.NewTicker(refreshEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.Send(ui.RefreshTick{})
		}
	}
}
