package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/abelbrown/feedkeeper/internal/model"
	"github.com/abelbrown/feedkeeper/internal/otel"
)

// Actions are the commands the watch screen can issue. Any may be nil.
type Actions struct {
	LoadStatus     func() tea.Cmd
	SetCollecting  func(on bool) tea.Cmd
	PassNow        func() tea.Cmd
	Summarize      func() tea.Cmd
	SetAutoComment func(on bool) tea.Cmd
}

// App is the root Bubble Tea model.
// IMPORTANT: App does NOT hold the store or the coordinator. It receives
// state via messages.
type App struct {
	act  Actions
	ring *otel.RingBuffer // optional, for the debug overlay
	now  func() time.Time

	collecting  bool
	autoComment bool
	today       int
	processed   int
	buffered    int
	lastPass    *PassDone
	summary     *model.Summary
	busy        string // pending action shown next to the spinner
	err         error
	showDebug   bool

	spinner  spinner.Model
	viewport viewport.Model
	width    int
	height   int
	ready    bool

	// Smooth summary scrolling with harmonica spring physics
	scrollSpring   harmonica.Spring
	scrollPos      float64
	scrollVelocity float64
	scrollTarget   float64
	scrolling      bool // a frame tick is pending
}

// scrollFrame advances the scroll animation by one frame.
type scrollFrame struct{}

const scrollFPS = 60

// NewApp creates an App. ring may be nil.
func NewApp(act Actions, ring *otel.RingBuffer) App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(live)
	return App{
		act:          act,
		ring:         ring,
		now:          time.Now,
		spinner:      s,
		viewport:     viewport.New(80, 10),
		scrollSpring: harmonica.NewSpring(harmonica.FPS(scrollFPS), 6.0, 0.8),
	}
}

// Init loads the initial status and starts the spinner.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.spinner.Tick}
	if a.act.LoadStatus != nil {
		cmds = append(cmds, a.act.LoadStatus())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.viewport.Width = msg.Width
		a.viewport.Height = max(msg.Height-headerLines-1, 1)
		a.setSummaryContent()
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case StatusLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.collecting = msg.Collecting
		a.autoComment = msg.AutoComment
		a.buffered = msg.Buffered
		a.processed = msg.Processed
		a.today = msg.TodayCount
		if msg.Summary != nil && !sameSummary(a.summary, msg.Summary) {
			a.summary = msg.Summary
			a.setSummaryContent()
		}
		return a, nil

	case PassDone:
		a.lastPass = &msg
		if a.busy == "pass" {
			a.busy = ""
		}
		if msg.Err != nil {
			a.err = msg.Err
		}
		return a, a.loadStatus()

	case CountUpdated:
		if msg.Date == model.DateKey(a.now()) {
			a.today = msg.Count
		}
		return a, nil

	case SummaryDone:
		a.busy = ""
		a.err = msg.Err
		if msg.Summary.Date != "" {
			s := msg.Summary
			a.summary = &s
			a.setSummaryContent()
		}
		return a, nil

	case CollectingChanged:
		a.busy = ""
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.collecting = msg.On
		return a, nil

	case AutoCommentChanged:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.autoComment = msg.On
		return a, nil

	case RefreshTick:
		return a, a.loadStatus()

	case scrollFrame:
		return a.stepScroll()
	}

	return a, nil
}

func (a App) loadStatus() tea.Cmd {
	if a.act.LoadStatus == nil {
		return nil
	}
	return a.act.LoadStatus()
}

// handleKeyMsg processes keyboard input.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Clear any existing error on key press
	if a.err != nil {
		a.err = nil
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "s":
		if a.act.SetCollecting != nil && a.busy == "" {
			if a.collecting {
				a.busy = "stopping"
			} else {
				a.busy = "starting"
			}
			return a, a.act.SetCollecting(!a.collecting)
		}
		return a, nil

	case "p":
		if a.act.PassNow != nil && a.busy == "" {
			a.busy = "pass"
			return a, a.act.PassNow()
		}
		return a, nil

	case "g":
		if a.act.Summarize != nil && a.busy == "" {
			a.busy = "summarizing"
			return a, a.act.Summarize()
		}
		return a, nil

	case "a":
		if a.act.SetAutoComment != nil {
			return a, a.act.SetAutoComment(!a.autoComment)
		}
		return a, nil

	case "D":
		a.showDebug = !a.showDebug
		return a, nil

	case "up", "k":
		return a.scrollBy(-1)
	case "down", "j":
		return a.scrollBy(1)
	case "pgup":
		return a.scrollBy(-a.viewport.Height)
	case "pgdown":
		return a.scrollBy(a.viewport.Height)
	}

	return a, nil
}

// scrollBy moves the scroll target by n lines and starts the animation.
func (a App) scrollBy(n int) (tea.Model, tea.Cmd) {
	maxOffset := float64(max(a.viewport.TotalLineCount()-a.viewport.Height, 0))
	a.scrollTarget = math.Max(0, math.Min(maxOffset, a.scrollTarget+float64(n)))
	if a.scrolling {
		return a, nil
	}
	a.scrolling = true
	return a, nextScrollFrame()
}

func (a App) stepScroll() (tea.Model, tea.Cmd) {
	a.scrollPos, a.scrollVelocity = a.scrollSpring.Update(a.scrollPos, a.scrollVelocity, a.scrollTarget)
	if math.Abs(a.scrollPos-a.scrollTarget) < 0.01 && math.Abs(a.scrollVelocity) < 0.01 {
		a.scrollPos, a.scrollVelocity = a.scrollTarget, 0
		a.scrolling = false
	}
	a.viewport.SetYOffset(int(math.Round(a.scrollPos)))
	if !a.scrolling {
		return a, nil
	}
	return a, nextScrollFrame()
}

func nextScrollFrame() tea.Cmd {
	return tea.Tick(time.Second/scrollFPS, func(time.Time) tea.Msg { return scrollFrame{} })
}

// headerLines is the height of the header block above the summary.
const headerLines = 5

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}
	if a.showDebug && a.ring != nil {
		return debugOverlay(a.ring, a.width, a.height-1) + "\n" + a.statusBar()
	}

	var b strings.Builder
	b.WriteString(a.header())
	b.WriteString("\n")
	b.WriteString(StatLine.Render(a.stats()))
	b.WriteString("\n")
	b.WriteString(StatLine.Render(a.passLine()))
	b.WriteString("\n")
	b.WriteString(SummaryHeader.Render(a.summaryTitle()))
	b.WriteString("\n")
	b.WriteString(a.viewport.View())
	b.WriteString("\n")
	if a.err != nil {
		b.WriteString(ErrorStyle.Width(a.width).Render("Error: " + a.err.Error() + " (press any key to dismiss)"))
		b.WriteString("\n")
	}
	b.WriteString(a.statusBar())
	return b.String()
}

func (a App) header() string {
	state := Idle.Render("○ Idle")
	if a.collecting {
		state = Collecting.Render(a.spinner.View() + " Collecting")
	}
	if a.busy != "" {
		state += StatLine.Render(a.spinner.View() + " " + a.busy + "...")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		Title.Render("feedkeeper"),
		state,
		Badge.Render(humanize.Comma(int64(a.today))+" today"),
	)
}

func (a App) stats() string {
	auto := "off"
	if a.autoComment {
		auto = "on"
	}
	return fmt.Sprintf("processed %s · buffered %s · auto-comment %s",
		humanize.Comma(int64(a.processed)), humanize.Comma(int64(a.buffered)), auto)
}

func (a App) passLine() string {
	p := a.lastPass
	if p == nil {
		return "no pass yet"
	}
	when := humanize.RelTime(p.At, a.now(), "ago", "from now")
	if p.Err != nil {
		return fmt.Sprintf("last pass %s failed", when)
	}
	return fmt.Sprintf("last pass %s: %d candidates, %d new, %d saved (%s)",
		when, p.Candidates, p.New, p.Saved, p.Dur.Round(time.Millisecond))
}

func (a App) summaryTitle() string {
	if a.summary == nil {
		return "No summary yet"
	}
	return fmt.Sprintf("Summary for %s (%s posts)", a.summary.Date, humanize.Comma(int64(a.summary.PostCount)))
}

func (a *App) setSummaryContent() {
	a.scrollPos, a.scrollVelocity, a.scrollTarget = 0, 0, 0
	a.viewport.SetYOffset(0)
	if a.summary == nil {
		a.viewport.SetContent("Press g to generate a summary.")
		return
	}
	a.viewport.SetContent(lipgloss.NewStyle().Width(max(a.viewport.Width-2, 10)).Render(a.summary.Text))
}

func sameSummary(a, b *model.Summary) bool {
	return a != nil && b != nil && a.Date == b.Date && a.Timestamp == b.Timestamp
}

func (a App) statusBar() string {
	keys := []struct{ key, desc string }{
		{"s", "start/stop"},
		{"p", "pass"},
		{"g", "summary"},
		{"a", "auto-comment"},
		{"D", "debug"},
		{"q", "quit"},
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = StatusBarKey.Render(k.key) + StatusBarText.Render(":"+k.desc)
	}
	return StatusBar.Width(a.width).Render(strings.Join(parts, "  "))
}

// Collecting reports the displayed state (for testing).
func (a App) Collecting() bool {
	return a.collecting
}

// Today returns the displayed badge count (for testing).
func (a App) Today() int {
	return a.today
}
