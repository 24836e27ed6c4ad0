package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/abelbrown/feedkeeper/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
const debugPanelChrome = 4

// debugOverlay renders pipeline counters and recent events. Returns empty
// string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()
	recent := ring.Last(20)

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Pipeline Stats"))
	lines = append(lines, fmt.Sprintf("  Passes:     %d complete, %d snapshot errors",
		stats[otel.KindPassComplete], stats[otel.KindSnapshotError]))
	lines = append(lines, fmt.Sprintf("  Records:    %d collected, %d duplicate, %d promoted",
		stats[otel.KindRecordCollected], stats[otel.KindRecordDuplicate], stats[otel.KindRecordPromoted]))
	lines = append(lines, fmt.Sprintf("  Store:      %d saves, %d errors",
		stats[otel.KindSave], stats[otel.KindStoreError]))
	lines = append(lines, fmt.Sprintf("  Extract:    %d field errors", stats[otel.KindFieldError]))
	lines = append(lines, fmt.Sprintf("  Automation: %d scheduled, %d done, %d errors",
		stats[otel.KindAutomationScheduled], stats[otel.KindAutomationDone], stats[otel.KindAutomationError]))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	if errs := ring.Errors(3); len(errs) > 0 {
		lines = append(lines, DebugHeaderStyle.Render("Last Errors"))
		for _, e := range errs {
			lines = append(lines, fmt.Sprintf("  %-22s  %s", string(e.Kind), truncateRunes(e.Err, 46)))
		}
		lines = append(lines, "")
	}

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range recent {
		line := fmt.Sprintf("  %6s  %-22s", formatAge(time.Since(e.Time)), string(e.Kind))
		if e.Msg != "" {
			line += "  " + truncateRunes(e.Msg, 40)
		}
		if e.Err != "" {
			line += "  ERR:" + truncateRunes(e.Err, 30)
		}
		if e.Record != "" {
			line += "  id:" + truncateRunes(e.Record, 24)
		}
		lines = append(lines, line)
	}

	maxHeight := max(height-debugPanelChrome, 1)
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}
	panelWidth := max(min(76, width-4), 20)

	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// formatAge formats a duration as a compact human string.
// Negative durations from clock skew clamp to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
