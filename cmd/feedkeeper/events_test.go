package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventLog = `{"t":"2026-10-19T09:00:00Z","level":"info","kind":"pass.start","comp":"session","pass":1}
not json
{"t":"2026-10-19T09:00:01Z","level":"info","kind":"pass.complete","comp":"session","pass":1,"dur_ms":12.5,"count":3}

{"t":"2026-10-19T09:00:02Z","level":"warn","kind":"extract.field_error","comp":"extract","field":"author","err":"boom"}
{"t":"2026-10-19T09:00:03Z","level":"error","kind":"store.error","comp":"session","err":"disk full","date":"2026-10-19"}
{"t":"2026-10-19T09:00:04Z","level":"info","kind":"pass.start","comp":"session","pass":2}
`

func TestReadTailLinesKeepsLastMatching(t *testing.T) {
	all := func(eventRecord) bool { return true }
	lines := readTailLines(strings.NewReader(eventLog), 2, all)
	require.Len(t, lines, 2)
	assert.Equal(t, "store.error", lines[0].ev.Kind)
	assert.Equal(t, int64(2), lines[1].ev.Pass)

	assert.Len(t, readTailLines(strings.NewReader(eventLog), 50, all), 5)
	assert.Empty(t, readTailLines(strings.NewReader(eventLog), 0, all))
}

func TestEventFilter(t *testing.T) {
	count := func(f eventFilter) int {
		return len(readTailLines(strings.NewReader(eventLog), 50, f.match))
	}
	assert.Equal(t, 3, count(eventFilter{kind: "pass"}))
	assert.Equal(t, 2, count(eventFilter{level: "warn"}))
	assert.Equal(t, 1, count(eventFilter{comp: "extract"}))
	assert.Equal(t, 1, count(eventFilter{date: "2026-10-19"}))
	assert.Equal(t, 2, count(eventFilter{pass: 1}))
	assert.Equal(t, 1, count(eventFilter{kind: "pass", pass: 2}))
	assert.Equal(t, 2, count(eventFilter{since: time.Date(2026, 10, 19, 9, 0, 3, 0, time.UTC)}))
}

func TestFollowEventsPrintsAppendedMatches(t *testing.T) {
	// A cancelled context still drains what is already written.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var kinds []string
	show := func(ev eventRecord, _ []byte) { kinds = append(kinds, ev.Kind) }
	f := eventFilter{kind: "pass"}
	require.NoError(t, followEvents(ctx, strings.NewReader(eventLog), f.match, show))
	assert.Equal(t, []string{"pass.start", "pass.complete", "pass.start"}, kinds)
}

func TestFormatEvent(t *testing.T) {
	lines := readTailLines(strings.NewReader(eventLog), 50, func(eventRecord) bool { return true })
	require.Len(t, lines, 5)

	got := formatEvent(lines[1].ev)
	assert.Contains(t, got, "INFO")
	assert.Contains(t, got, "pass.complete")
	assert.Contains(t, got, "(12.5ms)")
	assert.Contains(t, got, "pass=1")
	assert.Contains(t, got, "n=3")

	got = formatEvent(lines[2].ev)
	assert.Contains(t, got, "field=author")
	assert.Contains(t, got, "err=boom")
}

func TestDurPrecision(t *testing.T) {
	assert.Equal(t, 0, durPrecision(250))
	assert.Equal(t, 1, durPrecision(12.5))
	assert.Equal(t, 2, durPrecision(0.25))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
