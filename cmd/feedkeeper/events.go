package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/feedkeeper/internal/config"
)

const followPoll = 100 * time.Millisecond

// eventRecord is the on-disk shape of one events.jsonl line. It is decoded
// loosely so logs from older builds still display.
type eventRecord struct {
	Time      time.Time      `json:"t"`
	Level     string         `json:"level"`
	Kind      string         `json:"kind"`
	Comp      string         `json:"comp"`
	SessionID string         `json:"session_id"`
	Pass      int64          `json:"pass"`
	DurMs     float64        `json:"dur_ms"`
	Count     int            `json:"count"`
	Date      string         `json:"date"`
	Record    string         `json:"record"`
	Field     string         `json:"field"`
	Err       string         `json:"err"`
	Msg       string         `json:"msg"`
	Extra     map[string]any `json:"extra"`
}

func decodeEvent(raw []byte) (eventRecord, bool) {
	var ev eventRecord
	if len(raw) == 0 || json.Unmarshal(raw, &ev) != nil {
		return ev, false
	}
	return ev, true
}

var levelRanks = map[string]int{"debug": 0, "info": 1, "warn": 2, "error": 3}

// eventFilter is the conjunction of the command's filter flags. Zero fields
// match everything.
type eventFilter struct {
	kind  string // prefix
	level string // minimum
	comp  string
	date  string
	pass  int64
	since time.Time
}

func (f eventFilter) match(ev eventRecord) bool {
	switch {
	case f.kind != "" && !strings.HasPrefix(ev.Kind, f.kind):
	case f.level != "" && levelRanks[ev.Level] < levelRanks[f.level]:
	case f.comp != "" && ev.Comp != f.comp:
	case f.date != "" && ev.Date != f.date:
	case f.pass != 0 && ev.Pass != f.pass:
	case !f.since.IsZero() && ev.Time.Before(f.since):
	default:
		return true
	}
	return false
}

func newEventsCmd() *cobra.Command {
	var (
		f       eventFilter
		since   time.Duration
		tail    int
		follow  bool
		rawJSON bool
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show the JSONL event log",
		Long: `Show recent events from the event log in the data directory.

Examples:
  feedkeeper events --tail 100
  feedkeeper events --kind store --level warn
  feedkeeper events --since 1h --kind summary
  feedkeeper events -f --kind pass`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.EventsPath()
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("no event log at %s (run feedkeeper collect or watch first): %w", path, err)
			}
			defer file.Close()

			if since > 0 {
				f.since = time.Now().Add(-since)
			}
			out := cmd.OutOrStdout()
			show := func(ev eventRecord, raw []byte) {
				if rawJSON {
					fmt.Fprintln(out, string(raw))
					return
				}
				fmt.Fprintln(out, formatEvent(ev))
			}

			for _, l := range readTailLines(file, tail, f.match) {
				show(l.ev, l.raw)
			}
			if !follow {
				return nil
			}
			return followEvents(cmd.Context(), file, f.match, show)
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&tail, "tail", 50, "number of recent matching lines to show")
	fl.BoolVarP(&follow, "follow", "f", false, "keep printing new events until interrupted")
	fl.StringVar(&f.kind, "kind", "", "event kind prefix, e.g. pass or store.error")
	fl.StringVar(&f.level, "level", "", "minimum level: debug, info, warn, error")
	fl.StringVar(&f.comp, "comp", "", "component name")
	fl.StringVar(&f.date, "date", "", "day bucket (YYYY-MM-DD)")
	fl.Int64Var(&f.pass, "pass", 0, "collection pass number")
	fl.DurationVar(&since, "since", 0, "only events newer than this, e.g. 30m")
	fl.BoolVar(&rawJSON, "json", false, "print raw JSON lines")
	return cmd
}

// followEvents polls r for appended lines until ctx ends.
func followEvents(ctx context.Context, r io.Reader, match func(eventRecord) bool, show func(eventRecord, []byte)) error {
	br := bufio.NewReader(r)
	var partial []byte
	for {
		chunk, err := br.ReadBytes('\n')
		partial = append(partial, chunk...)
		switch {
		case err == io.EOF:
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(followPoll):
			}
			continue
		case err != nil:
			return err
		}
		line := bytes.TrimRight(partial, "\r\n")
		partial = nil
		if ev, ok := decodeEvent(line); ok && match(ev) {
			show(ev, line)
		}
	}
}

func formatEvent(ev eventRecord) string {
	lvl := strings.ToUpper(ev.Level)
	if lvl == "" {
		lvl = "?"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s [%-10s] %-22s", ev.Time.Format("15:04:05.000"), lvl, ev.Comp, ev.Kind)

	add := func(s string) {
		b.WriteByte(' ')
		b.WriteString(s)
	}
	if ev.Msg != "" {
		add("- " + ev.Msg)
	}
	if ev.DurMs > 0 {
		add(fmt.Sprintf("(%.*fms)", durPrecision(ev.DurMs), ev.DurMs))
	}
	if ev.Pass > 0 {
		add(fmt.Sprintf("pass=%d", ev.Pass))
	}
	if ev.Count > 0 {
		add(fmt.Sprintf("n=%d", ev.Count))
	}
	for _, kv := range [][2]string{
		{"date", ev.Date},
		{"id", truncate(ev.Record, 40)},
		{"field", ev.Field},
		{"err", ev.Err},
	} {
		if kv[1] != "" {
			add(kv[0] + "=" + kv[1])
		}
	}
	return b.String()
}

type parsedLine struct {
	ev  eventRecord
	raw []byte
}

// readTailLines returns the last n lines of r that decode and satisfy match,
// oldest first. Unparseable lines are skipped.
func readTailLines(r io.Reader, n int, match func(eventRecord) bool) []parsedLine {
	if n <= 0 {
		return nil
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 256*1024)

	ring := make([]parsedLine, n)
	seen := 0
	for sc.Scan() {
		ev, ok := decodeEvent(sc.Bytes())
		if !ok || !match(ev) {
			continue
		}
		ring[seen%n] = parsedLine{ev: ev, raw: bytes.Clone(sc.Bytes())}
		seen++
	}
	if seen <= n {
		return ring[:seen]
	}
	start := seen % n
	return append(ring[start:], ring[:start]...)
}

func durPrecision(ms float64) int {
	switch {
	case ms >= 100:
		return 0
	case ms >= 1:
		return 1
	default:
		return 2
	}
}
