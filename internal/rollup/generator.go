package rollup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/feedkeeper/internal/model"
)

// ErrNoRecords is returned when there is nothing to summarize.
var ErrNoRecords = errors.New("no records to summarize")

// Summarizer produces narrative text for a day's records. Implementations
// must not keep state between calls.
type Summarizer interface {
	Available() bool
	Summarize(ctx context.Context, records []model.PostRecord, prompt string) (string, error)
}

// Result is the outcome of Generate. Summary.Text is always usable: it is
// the summarizer's text when Success is set, FallbackText otherwise. Err
// carries the summarizer failure, if any, so callers can show both.
type Result struct {
	Summary      model.Summary
	Success      bool
	Err          error
	FallbackText string
}

// Generator builds summaries. The zero value uses only the fallback text.
type Generator struct {
	Summarizer Summarizer // nil or unavailable means fallback only
	Disabled   bool       // skip the summarizer even when available
	TopN       int
	Now        func() time.Time
}

// Generate summarizes date's records.
func (g *Generator) Generate(ctx context.Context, date string, records []model.PostRecord, prompt string) Result {
	if len(records) == 0 {
		return Result{
			Err:          fmt.Errorf("%s: %w", date, ErrNoRecords),
			FallbackText: EmptyText,
		}
	}

	n := g.TopN
	if n <= 0 {
		n = DefaultTopN
	}
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	res := Result{
		Summary: model.Summary{
			Date:           date,
			Timestamp:      now().UnixMilli(),
			PostCount:      len(records),
			TopAuthors:     TopAuthors(records, n),
			TopEngagements: TopEngagements(records, n),
		},
	}

	if !g.Disabled && g.Summarizer != nil && g.Summarizer.Available() {
		text, err := g.Summarizer.Summarize(ctx, records, prompt)
		switch {
		case err != nil:
			res.Err = fmt.Errorf("summarize %s: %w", date, err)
		case strings.TrimSpace(text) == "":
			res.Err = fmt.Errorf("summarize %s: empty response", date)
		default:
			res.Success = true
			res.Summary.Text = text
			return res
		}
	}

	res.FallbackText = Fallback(records, prompt)
	res.Summary.Text = res.FallbackText
	return res
}
