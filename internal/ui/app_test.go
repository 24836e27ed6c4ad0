package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/feedkeeper/internal/model"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// recorder tracks which actions the App issued.
type recorder struct {
	loads      int
	collecting []bool
	passes     int
	summaries  int
	auto       []bool
}

func (r *recorder) actions() Actions {
	return Actions{
		LoadStatus: func() tea.Cmd {
			r.loads++
			return func() tea.Msg { return StatusLoaded{Collecting: true, TodayCount: 7, Processed: 3} }
		},
		SetCollecting: func(on bool) tea.Cmd {
			r.collecting = append(r.collecting, on)
			return func() tea.Msg { return CollectingChanged{On: on} }
		},
		PassNow: func() tea.Cmd {
			r.passes++
			return func() tea.Msg { return PassDone{At: time.Now(), New: 1} }
		},
		Summarize: func() tea.Cmd {
			r.summaries++
			return nil
		},
		SetAutoComment: func(on bool) tea.Cmd {
			r.auto = append(r.auto, on)
			return func() tea.Msg { return AutoCommentChanged{On: on} }
		},
	}
}

func sized(t *testing.T, a App) App {
	t.Helper()
	m, _ := a.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m.(App)
}

func TestAppInit(t *testing.T) {
	r := &recorder{}
	app := NewApp(r.actions(), nil)

	if cmd := app.Init(); cmd == nil {
		t.Fatal("Init should return a command")
	}
	if r.loads != 1 {
		t.Errorf("Init should load status once, got %d", r.loads)
	}
}

func TestAppInitNoActions(t *testing.T) {
	app := NewApp(Actions{}, nil)
	if cmd := app.Init(); cmd == nil {
		t.Fatal("Init should still start the spinner")
	}
}

func TestAppViewBeforeReady(t *testing.T) {
	app := NewApp(Actions{}, nil)
	if got := app.View(); got != "Loading..." {
		t.Errorf("View before size = %q", got)
	}
}

func TestAppStatusLoaded(t *testing.T) {
	app := sized(t, NewApp(Actions{}, nil))
	sum := &model.Summary{Date: "2026-10-19", Text: "A quiet day.", PostCount: 1234}

	m, _ := app.Update(StatusLoaded{Collecting: true, AutoComment: true, Processed: 2500, TodayCount: 1500, Summary: sum})
	app = m.(App)

	if !app.Collecting() {
		t.Error("should be collecting")
	}
	if app.Today() != 1500 {
		t.Errorf("Today = %d, want 1500", app.Today())
	}
	view := app.View()
	for _, want := range []string{"1,500 today", "processed 2,500", "auto-comment on", "Summary for 2026-10-19 (1,234 posts)", "A quiet day."} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestAppStatusLoadedError(t *testing.T) {
	app := sized(t, NewApp(Actions{}, nil))
	m, _ := app.Update(StatusLoaded{Err: errors.New("db locked")})
	app = m.(App)
	if !strings.Contains(app.View(), "db locked") {
		t.Errorf("error not shown:\n%s", app.View())
	}
}

func TestAppToggleCollecting(t *testing.T) {
	r := &recorder{}
	app := sized(t, NewApp(r.actions(), nil))

	m, cmd := app.Update(keyRunes("s"))
	app = m.(App)
	if len(r.collecting) != 1 || !r.collecting[0] {
		t.Fatalf("s should request start, got %v", r.collecting)
	}
	if cmd == nil {
		t.Fatal("s should return a command")
	}

	// A second press while the request is pending is ignored.
	app.Update(keyRunes("s"))
	if len(r.collecting) != 1 {
		t.Errorf("pending toggle should block, got %v", r.collecting)
	}

	m, _ = app.Update(cmd())
	app = m.(App)
	if !app.Collecting() {
		t.Error("CollectingChanged should set state")
	}

	app.Update(keyRunes("s"))
	if len(r.collecting) != 2 || r.collecting[1] {
		t.Errorf("second s should request stop, got %v", r.collecting)
	}
}

func TestAppCollectingChangedError(t *testing.T) {
	app := sized(t, NewApp(Actions{}, nil))
	m, _ := app.Update(CollectingChanged{On: true, Err: errors.New("persist state")})
	app = m.(App)
	if app.Collecting() {
		t.Error("failed start should not flip state")
	}
	if !strings.Contains(app.View(), "persist state") {
		t.Error("error should be shown")
	}
}

func TestAppPassNowRefreshesStatus(t *testing.T) {
	r := &recorder{}
	app := sized(t, NewApp(r.actions(), nil))

	m, cmd := app.Update(keyRunes("p"))
	app = m.(App)
	if r.passes != 1 || cmd == nil {
		t.Fatalf("p should run a pass, passes=%d", r.passes)
	}

	m, cmd = app.Update(cmd())
	app = m.(App)
	if cmd == nil {
		t.Error("PassDone should reload status")
	}
	if r.loads != 1 {
		t.Errorf("loads = %d, want 1", r.loads)
	}
	if !strings.Contains(app.View(), "1 new") {
		t.Errorf("last pass not shown:\n%s", app.View())
	}
}

func TestAppPassFailed(t *testing.T) {
	app := sized(t, NewApp(Actions{}, nil))
	m, _ := app.Update(PassDone{At: time.Now(), Err: errors.New("snapshot: timeout")})
	app = m.(App)
	view := app.View()
	if !strings.Contains(view, "failed") || !strings.Contains(view, "snapshot: timeout") {
		t.Errorf("failed pass not shown:\n%s", view)
	}
}

func TestAppCountUpdatedOnlyToday(t *testing.T) {
	app := sized(t, NewApp(Actions{}, nil))
	app.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local) }

	m, _ := app.Update(CountUpdated{Date: "2026-10-18", Count: 99})
	app = m.(App)
	if app.Today() != 0 {
		t.Errorf("other day should not change badge, got %d", app.Today())
	}

	m, _ = app.Update(CountUpdated{Date: "2026-10-19", Count: 12})
	app = m.(App)
	if app.Today() != 12 {
		t.Errorf("Today = %d, want 12", app.Today())
	}
}

func TestAppSummaryDone(t *testing.T) {
	r := &recorder{}
	app := sized(t, NewApp(r.actions(), nil))

	m, _ := app.Update(keyRunes("g"))
	app = m.(App)
	if r.summaries != 1 {
		t.Fatal("g should request a summary")
	}

	m, _ = app.Update(SummaryDone{
		Summary: model.Summary{Date: "2026-10-19", Text: "Feed Summary: 3 posts", PostCount: 3},
		Success: false,
		Err:     errors.New("openai: 429"),
	})
	app = m.(App)
	view := app.View()
	if !strings.Contains(view, "Feed Summary: 3 posts") {
		t.Errorf("fallback summary not shown:\n%s", view)
	}
	if !strings.Contains(view, "openai: 429") {
		t.Errorf("summarizer error not shown:\n%s", view)
	}
}

func TestAppToggleAutoComment(t *testing.T) {
	r := &recorder{}
	app := sized(t, NewApp(r.actions(), nil))

	m, cmd := app.Update(keyRunes("a"))
	app = m.(App)
	m, _ = app.Update(cmd())
	app = m.(App)
	if len(r.auto) != 1 || !r.auto[0] {
		t.Fatalf("a should enable auto-comment, got %v", r.auto)
	}
	if !strings.Contains(app.View(), "auto-comment on") {
		t.Error("view should show auto-comment on")
	}

	app.Update(keyRunes("a"))
	if len(r.auto) != 2 || r.auto[1] {
		t.Errorf("second a should disable, got %v", r.auto)
	}
}

func TestAppKeyClearsError(t *testing.T) {
	app := sized(t, NewApp(Actions{}, nil))
	m, _ := app.Update(AutoCommentChanged{Err: errors.New("no scheduler")})
	app = m.(App)
	m, _ = app.Update(keyRunes("x"))
	app = m.(App)
	if strings.Contains(app.View(), "no scheduler") {
		t.Error("key press should dismiss error")
	}
}

func TestAppQuit(t *testing.T) {
	app := NewApp(Actions{}, nil)
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should return tea.Quit")
	}
}

func TestAppSmoothScrollSettlesOnTarget(t *testing.T) {
	app := sized(t, NewApp(Actions{}, nil))
	long := strings.Repeat("line\n", 100)
	m, _ := app.Update(SummaryDone{Summary: model.Summary{Date: "2026-10-19", Text: long, Timestamp: 1}})
	app = m.(App)

	m, cmd := app.Update(keyRunes("j"))
	app = m.(App)
	if cmd == nil {
		t.Fatal("j should start the scroll animation")
	}
	// Further presses while animating only move the target.
	for i := 0; i < 4; i++ {
		m, cmd = app.Update(keyRunes("j"))
		app = m.(App)
		if cmd != nil {
			t.Fatal("no extra frame ticks while animating")
		}
	}

	for i := 0; i < 1000 && app.scrolling; i++ {
		m, _ = app.Update(scrollFrame{})
		app = m.(App)
	}
	if app.scrolling {
		t.Fatal("scroll animation did not settle")
	}
	if app.viewport.YOffset != 5 {
		t.Errorf("YOffset = %d, want 5", app.viewport.YOffset)
	}

	// The target is clamped at the top.
	m, _ = app.Update(tea.KeyMsg{Type: tea.KeyPgUp})
	app = m.(App)
	if app.scrollTarget != 0 {
		t.Errorf("scrollTarget = %v, want 0", app.scrollTarget)
	}
}

func TestAppRefreshKeepsScroll(t *testing.T) {
	app := sized(t, NewApp(Actions{}, nil))
	sum := &model.Summary{Date: "2026-10-19", Text: strings.Repeat("line\n", 100), Timestamp: 7}
	m, _ := app.Update(StatusLoaded{Summary: sum})
	app = m.(App)
	app.scrollTarget = 3

	same := *sum
	m, _ = app.Update(StatusLoaded{Summary: &same})
	app = m.(App)
	if app.scrollTarget != 3 {
		t.Error("refresh with the same summary should keep the scroll position")
	}

	newer := same
	newer.Timestamp = 8
	m, _ = app.Update(StatusLoaded{Summary: &newer})
	app = m.(App)
	if app.scrollTarget != 0 {
		t.Error("a new summary should reset the scroll position")
	}
}
