package coord

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/abelbrown/feedkeeper/internal/automation"
	"github.com/abelbrown/feedkeeper/internal/fetch"
	"github.com/abelbrown/feedkeeper/internal/history"
	"github.com/abelbrown/feedkeeper/internal/model"
	"github.com/abelbrown/feedkeeper/internal/notify"
	"github.com/abelbrown/feedkeeper/internal/otel"
	"github.com/abelbrown/feedkeeper/internal/rollup"
	"github.com/abelbrown/feedkeeper/internal/store"
)

// mockSource implements fetch.Source for testing.
type mockSource struct {
	mu    sync.Mutex
	html  string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) Snapshot(ctx context.Context) (*fetch.Snapshot, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(m.html))
	if err != nil {
		return nil, err
	}
	return &fetch.Snapshot{Doc: doc, Page: testPage, Taken: time.Now()}, nil
}

type harness struct {
	store  *store.Store
	bus    *notify.Bus
	src    *mockSource
	coord  *Coordinator
	passes chan PassResult
}

func newHarness(t *testing.T, html string, auto *automation.Scheduler) *harness {
	t.Helper()
	h := &harness{
		store:  openStore(t),
		bus:    notify.NewBus(16),
		src:    &mockSource{html: html},
		passes: make(chan PassResult, 16),
	}
	sess := newSession(t, h.store, h.bus, auto)
	h.coord = New(sess, h.src, sess.x, h.store, h.bus, &rollup.Generator{}, auto, Options{
		Interval: time.Hour,
		Prompt:   "Default prompt",
		OnPass: func(r PassResult, err error) {
			select {
			case h.passes <- r:
			default:
			}
		},
	}, otel.Scope{})
	h.coord.now = func() time.Time { return testNow }
	return h
}

func (h *harness) waitPass(t *testing.T) PassResult {
	t.Helper()
	select {
	case r := <-h.passes:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for pass")
		return PassResult{}
	}
}

func (h *harness) state(t *testing.T) State {
	t.Helper()
	var st State
	if _, err := h.store.GetJSON(context.Background(), store.KeyCollectionState, &st); err != nil {
		t.Fatal(err)
	}
	return st
}

func TestCoordinatorStartPassesImmediately(t *testing.T) {
	h := newHarness(t, twoNodes, nil)
	ctx := context.Background()

	if err := h.coord.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if r := h.waitPass(t); r.New != 2 {
		t.Errorf("expected 2 new records, got %+v", r)
	}
	if !h.coord.Collecting() || !h.state(t).IsCollecting {
		t.Error("expected collecting state to be on and persisted")
	}

	// Starting again is a no-op.
	if err := h.coord.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if err := h.coord.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	if h.coord.Collecting() || h.state(t).IsCollecting {
		t.Error("expected collecting state to be off and persisted")
	}
	if got := h.src.calls.Load(); got != 1 {
		t.Errorf("expected 1 snapshot, got %d", got)
	}
}

func TestCoordinatorTriggerRunsPass(t *testing.T) {
	h := newHarness(t, twoNodes, nil)
	ctx := context.Background()
	if err := h.coord.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer h.coord.Stop(ctx)
	h.waitPass(t)

	h.coord.Trigger()
	if r := h.waitPass(t); r.Known != 2 || r.New != 0 {
		t.Errorf("triggered pass should find only known records, got %+v", r)
	}
}

func TestCoordinatorTriggerCoalesces(t *testing.T) {
	h := newHarness(t, twoNodes, nil)
	for range 5 {
		h.coord.Trigger()
	}
	if n := len(h.coord.trigger); n != 1 {
		t.Errorf("expected 1 pending trigger, got %d", n)
	}
}

func TestCoordinatorStopWaitsForInFlightPass(t *testing.T) {
	h := newHarness(t, twoNodes, nil)
	h.src.delay = 200 * time.Millisecond
	ctx := context.Background()

	if err := h.coord.Start(ctx); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if err := h.coord.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	// The pass that was running when Stop was called has saved.
	hist, err := h.coord.History(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n := history.Total(hist); n != 2 {
		t.Errorf("expected in-flight pass to save 2 records, got %d", n)
	}
}

func TestCoordinatorSnapshotError(t *testing.T) {
	h := newHarness(t, twoNodes, nil)
	h.src.err = errors.New("tab closed")

	_, err := h.coord.Pass(context.Background())
	if err == nil || !strings.Contains(err.Error(), "tab closed") {
		t.Errorf("expected snapshot error, got %v", err)
	}
	if errors.Is(err, ErrPersist) {
		t.Error("snapshot failure is not a persistence failure")
	}
}

func TestCoordinatorRestore(t *testing.T) {
	auto := automation.NewScheduler(context.Background(), automation.Options{}, &recordingCommenter{}, otel.Scope{})
	h := newHarness(t, twoNodes, auto)
	ctx := context.Background()

	if err := h.store.SetJSON(ctx, store.KeyCollectionState, State{IsCollecting: true, AutoComment: true}); err != nil {
		t.Fatal(err)
	}

	st, err := h.coord.Restore(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if !st.IsCollecting || h.coord.Collecting() {
		t.Error("restore without resume must not start collecting")
	}
	if !auto.Enabled() {
		t.Error("auto-comment should be restored")
	}

	if _, err := h.coord.Restore(ctx, true); err != nil {
		t.Fatal(err)
	}
	defer h.coord.Stop(ctx)
	h.waitPass(t)
	if !h.coord.Collecting() {
		t.Error("restore with resume should start collecting")
	}
}

func TestCoordinatorSetAutoComment(t *testing.T) {
	auto := automation.NewScheduler(context.Background(), automation.Options{}, &recordingCommenter{}, otel.Scope{})
	h := newHarness(t, twoNodes, auto)
	ctx := context.Background()

	if err := h.coord.SetAutoComment(ctx, true); err != nil {
		t.Fatal(err)
	}
	if !h.state(t).AutoComment || !h.coord.Status().AutoComment {
		t.Error("auto-comment should be on and persisted")
	}

	noAuto := newHarness(t, twoNodes, nil)
	if err := noAuto.coord.SetAutoComment(ctx, true); err == nil {
		t.Error("expected error without a scheduler")
	}
}

func TestCoordinatorClear(t *testing.T) {
	h := newHarness(t, twoNodes, nil)
	ctx := context.Background()
	if _, err := h.coord.Pass(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := h.coord.GenerateSummary(ctx, model.DateKey(testNow), ""); err != nil {
		t.Fatal(err)
	}

	events, cancel := h.bus.Subscribe()
	defer cancel()
	if err := h.coord.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	hist, _ := h.coord.History(ctx)
	sums, _ := h.coord.Summaries(ctx)
	if len(hist) != 0 || len(sums) != 0 {
		t.Errorf("expected empty history and summaries, got %d/%d", len(hist), len(sums))
	}
	if st := h.coord.Status(); st.Processed != 0 || st.Buffered != 0 {
		t.Errorf("expected reset session, got %+v", st)
	}
	select {
	case ev := <-events:
		if ev.Event != notify.RecordsAppended || ev.NewCount != 0 {
			t.Errorf("unexpected event %+v", ev)
		}
	default:
		t.Error("expected badge reset event")
	}

	// Records seen before the clear are collected again.
	if r, _ := h.coord.Pass(ctx); r.New != 2 || r.Saved != 2 {
		t.Errorf("expected records to be collected again, got %+v", r)
	}
}

func TestGenerateSummaryStoresAndPublishes(t *testing.T) {
	h := newHarness(t, threeNodes, nil)
	ctx := context.Background()
	if _, err := h.coord.Pass(ctx); err != nil {
		t.Fatal(err)
	}

	events, cancel := h.bus.Subscribe()
	defer cancel()

	date := model.DateKey(testNow)
	res, err := h.coord.GenerateSummary(ctx, date, "")
	if err != nil {
		t.Fatalf("GenerateSummary: %v", err)
	}
	if res.Success {
		t.Error("no summarizer configured, expected fallback")
	}
	if !strings.HasPrefix(res.Summary.Text, "Default prompt\n\nFeed Summary:") {
		t.Errorf("fallback should use the default prompt, got %q", res.Summary.Text)
	}
	if res.Summary.PostCount != 2 {
		t.Errorf("expected 2 posts, got %d", res.Summary.PostCount)
	}

	latest, ok, err := h.coord.LatestSummary(ctx)
	if err != nil || !ok {
		t.Fatalf("LatestSummary: ok=%v err=%v", ok, err)
	}
	if latest.Date != date || latest.Text != res.Summary.Text {
		t.Errorf("unexpected stored summary %+v", latest)
	}

	select {
	case ev := <-events:
		if ev.Event != notify.SummaryReady || ev.Date != date {
			t.Errorf("unexpected event %+v", ev)
		}
	default:
		t.Error("expected summaryReady event")
	}
}

func TestGenerateSummaryNoRecords(t *testing.T) {
	h := newHarness(t, twoNodes, nil)
	_, err := h.coord.GenerateSummary(context.Background(), "2026-01-01", "")
	if !errors.Is(err, rollup.ErrNoRecords) {
		t.Errorf("expected ErrNoRecords, got %v", err)
	}
	if _, ok, _ := h.coord.LatestSummary(context.Background()); ok {
		t.Error("nothing should be stored")
	}
}

func TestSummaryDue(t *testing.T) {
	rec := []model.PostRecord{{ID: "a"}}
	tests := []struct {
		name   string
		h      history.History
		want   string
		wantOK bool
	}{
		{"today", history.History{"2026-10-19": rec, "2026-10-18": rec}, "2026-10-19", true},
		{"yesterday", history.History{"2026-10-18": rec}, "2026-10-18", true},
		{"neither", history.History{"2026-10-10": rec}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SummaryDue(tt.h, "2026-10-19", "2026-10-18")
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("SummaryDue = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDailySummaryFallsBackToYesterday(t *testing.T) {
	h := newHarness(t, twoNodes, nil)
	ctx := context.Background()
	yesterday := model.DateKey(testNow.AddDate(0, 0, -1))
	seed := history.History{yesterday: {{ID: "y1", Content: "Yesterday's post", Author: model.Author{Name: "Ada"}}}}
	if err := h.store.SetJSON(ctx, store.KeyFeedHistory, seed); err != nil {
		t.Fatal(err)
	}

	if err := h.coord.DailySummary(ctx); err != nil {
		t.Fatal(err)
	}
	latest, ok, err := h.coord.LatestSummary(ctx)
	if err != nil || !ok {
		t.Fatalf("LatestSummary: ok=%v err=%v", ok, err)
	}
	if latest.Date != yesterday {
		t.Errorf("expected summary for %s, got %s", yesterday, latest.Date)
	}
}

func TestStartSummariesRejectsBadSpec(t *testing.T) {
	h := newHarness(t, twoNodes, nil)
	if err := h.coord.StartSummaries(context.Background(), "not a cron spec"); err == nil {
		t.Error("expected error for bad spec")
	}
	if err := h.coord.StartSummaries(context.Background(), ""); err != nil {
		t.Fatal(err)
	}
	if err := h.coord.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestCoordinatorCloseKeepsCollectingState(t *testing.T) {
	h := newHarness(t, twoNodes, nil)
	ctx := context.Background()
	if err := h.coord.Start(ctx); err != nil {
		t.Fatal(err)
	}
	h.waitPass(t)

	if err := h.coord.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if h.coord.Collecting() {
		t.Error("expected loops stopped after Close")
	}
	if !h.state(t).IsCollecting {
		t.Error("Close should leave the persisted state on so resume restarts")
	}
}
