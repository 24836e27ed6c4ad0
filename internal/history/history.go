// Package history holds the bounded rolling record history: one bucket of
// records per calendar day, a cap per bucket, and a cap on the number of
// days kept. All functions are pure; callers own persistence.
package history

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"github.com/abelbrown/feedkeeper/internal/model"
)

// History maps a YYYY-MM-DD date to that day's records in capture order.
type History map[string][]model.PostRecord

// Limits bounds a History.
type Limits struct {
	PerDay int // records per bucket; oldest dropped first
	Days   int // buckets kept; oldest date dropped first
}

// DefaultLimits keeps 100 records a day for a week.
func DefaultLimits() Limits {
	return Limits{PerDay: 100, Days: 7}
}

// Merge returns a copy of h with recs appended to the date bucket. Records
// whose ID is already in the bucket are skipped, so merging the same records
// twice is a no-op. added counts the records actually appended, including
// any that the per-day cap then pushed out.
func Merge(h History, date string, recs []model.PostRecord, lim Limits) (out History, added int) {
	out = make(History, len(h)+1)
	for d, b := range h {
		out[d] = b
	}

	bucket := slices.Clone(h[date])
	seen := make(map[string]bool, len(bucket)+len(recs))
	for _, r := range bucket {
		seen[r.ID] = true
	}
	for _, r := range recs {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		bucket = append(bucket, r)
		added++
	}
	if lim.PerDay > 0 && len(bucket) > lim.PerDay {
		bucket = bucket[len(bucket)-lim.PerDay:]
	}
	if len(bucket) > 0 {
		out[date] = bucket
	}

	if lim.Days > 0 {
		dates := Dates(out)
		for len(dates) > lim.Days {
			delete(out, dates[0])
			dates = dates[1:]
		}
	}
	return out, added
}

// Dates returns the bucket dates in ascending order.
func Dates(h History) []string {
	dates := make([]string, 0, len(h))
	for d := range h {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// Count returns the number of records for date.
func Count(h History, date string) int {
	return len(h[date])
}

// Total returns the number of records across all dates.
func Total(h History) int {
	n := 0
	for _, b := range h {
		n += len(b)
	}
	return n
}

// Decode parses a stored history. Empty input is an empty History.
func Decode(raw json.RawMessage) (History, error) {
	h := History{}
	if len(raw) == 0 || string(raw) == "null" {
		return h, nil
	}
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return h, nil
}
