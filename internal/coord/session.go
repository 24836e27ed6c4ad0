package coord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/abelbrown/feedkeeper/internal/automation"
	"github.com/abelbrown/feedkeeper/internal/dedup"
	"github.com/abelbrown/feedkeeper/internal/extract"
	"github.com/abelbrown/feedkeeper/internal/history"
	"github.com/abelbrown/feedkeeper/internal/identity"
	"github.com/abelbrown/feedkeeper/internal/model"
	"github.com/abelbrown/feedkeeper/internal/notify"
	"github.com/abelbrown/feedkeeper/internal/otel"
	"github.com/abelbrown/feedkeeper/internal/store"
)

// ErrPersist marks a failed save. The buffered records are kept and the
// next pass retries them.
var ErrPersist = errors.New("persist records")

// PassResult counts what one pass did with its candidate nodes.
type PassResult struct {
	Pass       int64
	Candidates int
	Promoted   int // skipped as sponsored
	Duplicates int // repeated within the pass
	Known      int // already processed in an earlier pass
	New        int // appended to the buffer
	Saved      int // appended to stored history by this pass's save
	Dur        time.Duration
}

// SessionStatus is a point-in-time view of a Session.
type SessionStatus struct {
	Buffered  int
	Processed int
	Passes    int64
}

// SessionOptions configures a Session.
type SessionOptions struct {
	Limits       history.Limits
	SkipPromoted bool
}

// Session owns cross-pass state: the set of processed IDs and the buffer of
// records not yet saved. Passes are serialized by mu, held from extraction
// through save.
type Session struct {
	x     *extract.Extractor
	ids   *identity.Resolver
	store *store.Store
	bus   *notify.Bus
	auto  *automation.Scheduler // optional
	opts  SessionOptions
	log   otel.Scope
	now   func() time.Time

	mu        sync.Mutex
	processed map[string]struct{}
	buffer    map[string][]model.PostRecord
	passes    int64
}

// NewSession creates a Session. bus and auto may be nil.
func NewSession(x *extract.Extractor, ids *identity.Resolver, s *store.Store, bus *notify.Bus, auto *automation.Scheduler, opts SessionOptions, log otel.Scope) *Session {
	if opts.Limits == (history.Limits{}) {
		opts.Limits = history.DefaultLimits()
	}
	return &Session{
		x:         x,
		ids:       ids,
		store:     s,
		bus:       bus,
		auto:      auto,
		opts:      opts,
		log:       log,
		now:       time.Now,
		processed: make(map[string]struct{}),
		buffer:    make(map[string][]model.PostRecord),
	}
}

// ProcessSnapshot runs one pass over nodes, in document order. page is the
// snapshot URL, used to resolve relative links. A save failure is returned
// wrapped in ErrPersist together with the counts of the pass.
func (s *Session) ProcessSnapshot(ctx context.Context, nodes []*goquery.Selection, page string) (PassResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.passes++
	res := PassResult{Pass: s.passes, Candidates: len(nodes)}
	s.log.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindPassStart, PassID: res.Pass, Count: len(nodes)})

	batch := dedup.NewBatch()
	for _, node := range nodes {
		if s.opts.SkipPromoted && s.x.Promoted(node) {
			res.Promoted++
			s.log.Debug(otel.Event{Kind: otel.KindRecordPromoted, PassID: res.Pass})
			continue
		}

		rec := s.x.Record(node, page)
		// A failed extraction carries no content to compare.
		if rec.Content != model.ContentFailed && batch.Seen(rec.Content) {
			res.Duplicates++
			s.log.Debug(otel.Event{Kind: otel.KindRecordDuplicate, PassID: res.Pass, Msg: model.Excerpt(rec.Content, 40)})
			continue
		}

		captured := s.now()
		rec.Timestamp = captured.UTC().Format(time.RFC3339Nano)
		rec.ID = s.ids.Resolve(node, rec)
		if _, ok := s.processed[rec.ID]; ok {
			res.Known++
			continue
		}
		s.processed[rec.ID] = struct{}{}

		date := model.DateKey(captured)
		s.buffer[date] = append(s.buffer[date], rec)
		res.New++
		s.log.Debug(otel.Event{Kind: otel.KindRecordCollected, PassID: res.Pass, Record: rec.ID, Date: date})

		s.auto.Eligible(rec)
	}

	var err error
	if len(s.buffer) > 0 {
		res.Saved, err = s.save(ctx)
	}
	res.Dur = time.Since(start)

	s.log.Emit(otel.Event{
		Level:  otel.LevelInfo,
		Kind:   otel.KindPassComplete,
		PassID: res.Pass,
		Count:  res.New,
		Dur:    res.Dur,
		Extra: map[string]any{
			"candidates": res.Candidates,
			"promoted":   res.Promoted,
			"duplicates": res.Duplicates,
			"known":      res.Known,
			"saved":      res.Saved,
		},
	})
	return res, err
}

// Save merges the buffer into stored history. It returns the number of
// records appended.
func (s *Session) Save(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx)
}

func (s *Session) save(ctx context.Context) (int, error) {
	if len(s.buffer) == 0 {
		return 0, nil
	}

	got, err := s.store.Get(ctx, store.KeyFeedHistory)
	if err != nil {
		return 0, s.persistFailed(err)
	}
	h, err := history.Decode(got[store.KeyFeedHistory])
	if err != nil {
		return 0, s.persistFailed(err)
	}

	dates := make([]string, 0, len(s.buffer))
	for d := range s.buffer {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	added := make(map[string]int, len(dates))
	total := 0
	for _, d := range dates {
		var n int
		h, n = history.Merge(h, d, s.buffer[d], s.opts.Limits)
		added[d] = n
		total += n
	}

	raw, err := json.Marshal(h)
	if err != nil {
		return 0, s.persistFailed(err)
	}
	if err := s.store.Set(ctx, map[string]json.RawMessage{store.KeyFeedHistory: raw}); err != nil {
		return 0, s.persistFailed(err)
	}

	clear(s.buffer)
	for _, d := range dates {
		s.log.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindSave, Date: d, Count: added[d]})
		s.bus.Publish(notify.Event{
			Event:    notify.RecordsAppended,
			Date:     d,
			NewCount: history.Count(h, d),
			Added:    added[d],
		})
	}
	return total, nil
}

func (s *Session) persistFailed(err error) error {
	s.log.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindStoreError, Err: err.Error()})
	return fmt.Errorf("%w: %w", ErrPersist, err)
}

// Reset forgets every processed ID and drops the unsaved buffer. Stored
// history is untouched, so records seen again merge as no-ops.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.processed)
	clear(s.buffer)
	s.log.Info(otel.KindReset, "session reset")
}

// Status returns buffer and processed-ID counts.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.buffer {
		n += len(b)
	}
	return SessionStatus{Buffered: n, Processed: len(s.processed), Passes: s.passes}
}
