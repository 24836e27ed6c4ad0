// Package rollup derives a day's Summary from its records. Nothing here
// mutates the records it is given.
package rollup

import (
	"fmt"
	"slices"
	"strings"

	"github.com/abelbrown/feedkeeper/internal/model"
)

// DefaultTopN is how many authors and posts a summary lists.
const DefaultTopN = 5

// ExcerptLen bounds the content quoted in top engagements.
const ExcerptLen = 100

// EmptyText is the summary text for a day without records.
const EmptyText = "No posts available to summarize."

// TopAuthors counts records per author name and returns the n most frequent.
// Ties keep the order in which authors were first seen.
func TopAuthors(records []model.PostRecord, n int) []model.AuthorCount {
	idx := make(map[string]int)
	var counts []model.AuthorCount
	for _, r := range records {
		i, ok := idx[r.Author.Name]
		if !ok {
			i = len(counts)
			idx[r.Author.Name] = i
			counts = append(counts, model.AuthorCount{Name: r.Author.Name})
		}
		counts[i].Count++
	}
	slices.SortStableFunc(counts, func(a, b model.AuthorCount) int {
		return b.Count - a.Count
	})
	return counts[:min(n, len(counts))]
}

// TopEngagements returns the n records with the most likes plus comments.
// Ties keep input order. Content is cut to ExcerptLen runes.
func TopEngagements(records []model.PostRecord, n int) []model.TopEngagement {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b model.PostRecord) int {
		return b.Engagement.Interactions() - a.Engagement.Interactions()
	})
	sorted = sorted[:min(n, len(sorted))]

	out := make([]model.TopEngagement, len(sorted))
	for i, r := range sorted {
		out[i] = model.TopEngagement{
			Author:   r.Author.Name,
			Content:  model.Excerpt(r.Content, ExcerptLen),
			Likes:    r.Engagement.Likes,
			Comments: r.Engagement.Comments,
		}
	}
	return out
}

// breakdownLabels names each content tag in the fallback text.
var breakdownLabels = map[string]string{
	model.TagArticle:  "articles",
	model.TagImage:    "images",
	model.TagVideo:    "videos",
	model.TagDocument: "documents",
	model.TagPoll:     "polls",
	model.TagJob:      "jobs",
	model.TagEvent:    "events",
	model.TagRepost:   "shared posts",
}

// Fallback renders the built-in summary. The output depends only on records
// and prompt.
func Fallback(records []model.PostRecord, prompt string) string {
	if len(records) == 0 {
		return EmptyText
	}

	authors := make(map[string]struct{})
	byTag := make(map[string]int)
	interactions := 0
	for _, r := range records {
		authors[r.Author.Name] = struct{}{}
		byTag[model.ContentType(r.Content)]++
		interactions += r.Engagement.Interactions()
	}

	var b strings.Builder
	if prompt = strings.TrimSpace(prompt); prompt != "" {
		b.WriteString(prompt)
		b.WriteString("\n\n")
	}
	b.WriteString("Feed Summary:\n\n")
	fmt.Fprintf(&b, "- Total posts collected: %d\n", len(records))
	fmt.Fprintf(&b, "- Unique authors: %d\n", len(authors))

	parts := []string{fmt.Sprintf("%d text posts", byTag[""])}
	for _, tag := range model.ContentTags() {
		parts = append(parts, fmt.Sprintf("%d %s", byTag[tag], breakdownLabels[tag]))
	}
	fmt.Fprintf(&b, "- Content breakdown: %s\n", strings.Join(parts, ", "))
	fmt.Fprintf(&b, "- Average engagement per post: %.1f\n", float64(interactions)/float64(len(records)))

	b.WriteString("\nTop authors in your feed:\n")
	for _, a := range TopAuthors(records, DefaultTopN) {
		fmt.Fprintf(&b, "- %s (%d posts)\n", a.Name, a.Count)
	}

	b.WriteString("\nMost engaging content:\n")
	for _, e := range TopEngagements(records, DefaultTopN) {
		fmt.Fprintf(&b, "- \"%s\" by %s (%d interactions)\n", e.Content, e.Author, e.Interactions())
	}
	return strings.TrimRight(b.String(), "\n")
}
