// Package export writes stored history as JSON, CSV or plain text.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/abelbrown/feedkeeper/internal/history"
	"github.com/abelbrown/feedkeeper/internal/model"
)

// Format is an export file format.
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
	Text Format = "txt"
)

// ErrUnsupportedFormat is returned for an unknown format name.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ErrNoData is returned when there is nothing to export.
var ErrNoData = errors.New("no data to export")

// csvHeader is the CSV column row.
var csvHeader = []string{"Date", "Post ID", "Author", "Title", "Content", "Likes", "Comments", "URL"}

// ParseFormat accepts a format name in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case JSON, CSV, Text:
		return f, nil
	case "text":
		return Text, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Filename names an export made at now.
func Filename(f Format, now time.Time) string {
	return "feedkeeper-export-" + now.Format(model.DateLayout) + "." + string(f)
}

// Write encodes h to w in format f. Dates are written oldest first. An
// empty history is ErrNoData.
func Write(w io.Writer, f Format, h history.History) error {
	if len(h) == 0 {
		return ErrNoData
	}
	switch f {
	case JSON:
		return writeJSON(w, h)
	case CSV:
		return writeCSV(w, h)
	case Text:
		return writeText(w, h)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

func writeJSON(w io.Writer, h history.History) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(h)
}

func writeCSV(w io.Writer, h history.History) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, date := range history.Dates(h) {
		for _, r := range h[date] {
			row := []string{
				date,
				r.ID,
				r.Author.Name,
				r.Author.Title,
				r.Content,
				strconv.Itoa(r.Engagement.Likes),
				strconv.Itoa(r.Engagement.Comments),
				r.URL,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeText(w io.Writer, h history.History) error {
	var b strings.Builder
	b.WriteString("FEED EXPORT\n\n")
	for _, date := range history.Dates(h) {
		fmt.Fprintf(&b, "=== %s ===\n\n", date)
		for i, r := range h[date] {
			fmt.Fprintf(&b, "[%d] %s (%s)\n", i+1, r.Author.Name, r.Author.Title)
			fmt.Fprintf(&b, "%s\n", r.Content)
			fmt.Fprintf(&b, "Engagement: %d likes, %d comments\n", r.Engagement.Likes, r.Engagement.Comments)
			fmt.Fprintf(&b, "URL: %s\n\n", r.URL)
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}
