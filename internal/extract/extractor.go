// Package extract turns one feed item node into a best-effort PostRecord.
//
// Every field is extracted independently. A failure in one field degrades
// that field to its default and is reported as an extract.field_error event;
// it never aborts the record or the pass.
package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/abelbrown/feedkeeper/internal/engagement"
	"github.com/abelbrown/feedkeeper/internal/model"
	"github.com/abelbrown/feedkeeper/internal/otel"
)

// Options tunes heuristics that are not selector data.
type Options struct {
	// RepairDuplicateNames collapses names rendered twice back to back,
	// e.g. "Ada LovelaceAda Lovelace".
	RepairDuplicateNames bool
}

// Extractor applies compiled Rules to feed item nodes. Safe for concurrent
// use once built.
type Extractor struct {
	c    *compiled
	opts Options
	log  otel.Scope
}

// New compiles rules into an Extractor. log may be the zero Scope.
func New(rules Rules, opts Options, log otel.Scope) (*Extractor, error) {
	c, err := compile(rules)
	if err != nil {
		return nil, err
	}
	return &Extractor{c: c, opts: opts, log: log}, nil
}

// Candidates returns the candidate item roots under root in document order.
// Overlapping matches are expected; the pass deduplicates them.
func (x *Extractor) Candidates(root *goquery.Selection) []*goquery.Selection {
	var out []*goquery.Selection
	root.FindMatcher(x.c.candidates).Each(func(_ int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out
}

// Promoted reports whether node is marked as sponsored.
func (x *Extractor) Promoted(node *goquery.Selection) bool {
	if x.c.marker == "" {
		return false
	}
	for _, sel := range x.c.promoted {
		if strings.Contains(first(node, sel).Text(), x.c.marker) {
			return true
		}
	}
	return false
}

// Record extracts every field of node. ID and Timestamp are left empty for
// the caller. page is the URL of the snapshot the node came from and is used
// to resolve relative links.
func (x *Extractor) Record(node *goquery.Selection, page string) model.PostRecord {
	var rec model.PostRecord
	rec.Author = guard(x, "author", model.Author{Name: model.UnknownAuthor}, func() model.Author {
		return x.author(node, page)
	})
	rec.Content = guard(x, "content", model.ContentFailed, func() string {
		return x.content(node)
	})
	rec.Engagement = guard(x, "engagement", model.Engagement{}, func() model.Engagement {
		return x.engagement(node)
	})
	rec.URL = guard(x, "url", "", func() string {
		return x.url(node, page)
	})
	return rec
}

func (x *Extractor) engagement(node *goquery.Selection) model.Engagement {
	box := first(node, x.c.countBox)
	if box.Length() == 0 {
		return model.Engagement{}
	}
	return engagement.Parse(
		first(box, x.c.likes).Text(),
		first(box, x.c.comments).Text(),
		first(box, x.c.shares).Text(),
	)
}

// guard runs fn and converts a panic into def plus a field_error event.
func guard[T any](x *Extractor, field string, def T, fn func() T) (out T) {
	defer func() {
		if r := recover(); r != nil {
			out = def
			x.log.Emit(otel.Event{
				Level: otel.LevelWarn,
				Kind:  otel.KindFieldError,
				Field: field,
				Err:   fmt.Sprint(r),
			})
		}
	}()
	return fn()
}
