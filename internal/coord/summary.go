package coord

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/abelbrown/feedkeeper/internal/history"
	"github.com/abelbrown/feedkeeper/internal/model"
	"github.com/abelbrown/feedkeeper/internal/notify"
	"github.com/abelbrown/feedkeeper/internal/otel"
	"github.com/abelbrown/feedkeeper/internal/rollup"
	"github.com/abelbrown/feedkeeper/internal/store"
)

// Summaries maps a date to its stored summary.
type Summaries map[string]model.Summary

// GenerateSummary summarizes date's stored records and saves the result as
// that date's summary. An empty prompt uses the configured default. The
// returned error is set only when nothing was stored; a summarizer failure
// is reported in Result.Err alongside the fallback text that was saved.
func (c *Coordinator) GenerateSummary(ctx context.Context, date, prompt string) (rollup.Result, error) {
	if prompt == "" {
		prompt = c.opts.Prompt
	}
	h, err := c.History(ctx)
	if err != nil {
		return rollup.Result{}, err
	}

	res := c.gen.Generate(ctx, date, h[date], prompt)
	if len(h[date]) == 0 {
		return res, res.Err
	}

	kind, level := otel.KindSummaryGenerated, otel.LevelInfo
	if !res.Success {
		kind = otel.KindSummaryFallback
		if res.Err != nil {
			level = otel.LevelWarn
		}
	}
	ev := otel.Event{Level: level, Kind: kind, Date: date, Count: res.Summary.PostCount}
	if res.Err != nil {
		ev.Err = res.Err.Error()
	}
	c.log.Emit(ev)

	sums, err := c.Summaries(ctx)
	if err != nil {
		return res, err
	}
	sums[date] = res.Summary
	raw, err := json.Marshal(sums)
	if err != nil {
		return res, fmt.Errorf("encode summaries: %w", err)
	}
	dateRaw, _ := json.Marshal(date)
	if err := c.store.Set(ctx, map[string]json.RawMessage{
		store.KeySummaries:       raw,
		store.KeyLastSummaryDate: dateRaw,
	}); err != nil {
		c.log.Error(otel.KindStoreError, err)
		return res, fmt.Errorf("save summary: %w", err)
	}

	c.bus.Publish(notify.Event{Event: notify.SummaryReady, Date: date, NewCount: res.Summary.PostCount})
	return res, nil
}

// SummaryDue returns the date the daily job should summarize: today when
// today has records, else yesterday when it has records. ok is false when
// neither does.
func SummaryDue(h history.History, today, yesterday string) (date string, ok bool) {
	switch {
	case history.Count(h, today) > 0:
		return today, true
	case history.Count(h, yesterday) > 0:
		return yesterday, true
	}
	return "", false
}

// DailySummary runs the scheduled summary with the default prompt.
func (c *Coordinator) DailySummary(ctx context.Context) error {
	h, err := c.History(ctx)
	if err != nil {
		return err
	}
	now := c.now()
	date, ok := SummaryDue(h, model.DateKey(now), model.DateKey(now.AddDate(0, 0, -1)))
	if !ok {
		c.log.Info(otel.KindSummaryFallback, "no records for today or yesterday")
		return nil
	}
	_, err = c.GenerateSummary(ctx, date, "")
	return err
}

// StartSummaries schedules DailySummary on a cron spec in local time. The
// job runs under ctx, independent of collection.
func (c *Coordinator) StartSummaries(ctx context.Context, spec string) error {
	if spec == "" {
		spec = DefaultSummarySchedule
	}
	cr := cron.New()
	if _, err := cr.AddFunc(spec, func() {
		if err := c.DailySummary(ctx); err != nil {
			c.log.Error(otel.KindError, err)
		}
	}); err != nil {
		return fmt.Errorf("summary schedule %q: %w", spec, err)
	}

	c.mu.Lock()
	if c.cron != nil {
		c.cron.Stop()
	}
	c.cron = cr
	c.mu.Unlock()

	cr.Start()
	return nil
}

// Close stops collecting and the summary schedule, waiting for a running
// summary job to finish. Unlike Stop it leaves the persisted state alone, so
// a later Restore with resume continues collecting.
func (c *Coordinator) Close(ctx context.Context) error {
	c.halt()

	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()
	if cr == nil {
		return nil
	}
	select {
	case <-cr.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Summaries returns the stored summaries.
func (c *Coordinator) Summaries(ctx context.Context) (Summaries, error) {
	sums := Summaries{}
	if _, err := c.store.GetJSON(ctx, store.KeySummaries, &sums); err != nil {
		return nil, err
	}
	if sums == nil {
		sums = Summaries{}
	}
	return sums, nil
}

// LatestSummary returns the summary named by lastSummaryDate.
func (c *Coordinator) LatestSummary(ctx context.Context) (model.Summary, bool, error) {
	var date string
	if _, err := c.store.GetJSON(ctx, store.KeyLastSummaryDate, &date); err != nil {
		return model.Summary{}, false, err
	}
	if date == "" {
		return model.Summary{}, false, nil
	}
	sums, err := c.Summaries(ctx)
	if err != nil {
		return model.Summary{}, false, err
	}
	s, ok := sums[date]
	return s, ok, nil
}
