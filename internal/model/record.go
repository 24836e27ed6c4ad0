// Package model defines the records feedkeeper extracts from a feed snapshot
// and the summaries derived from them.
package model

import (
	"strings"
	"time"
)

// DateLayout is the calendar-day key used for day buckets.
const DateLayout = "2006-01-02"

// Content type tags prefixed to extracted content.
const (
	TagArticle  = "[Shared Article]"
	TagImage    = "[Shared Image]"
	TagVideo    = "[Shared Video]"
	TagDocument = "[Shared Document]"
	TagPoll     = "[Poll]"
	TagJob      = "[Job Posting]"
	TagEvent    = "[Event]"
	TagRepost   = "[Shared Post]"

	// NoContent is emitted when a node carries no text at all.
	NoContent = "[No content available]"
	// ContentFailed is emitted when content extraction itself fails.
	ContentFailed = "Content could not be extracted"
)

// UnknownAuthor is the author name used when none can be recovered.
const UnknownAuthor = "Unknown"

// contentTags is ordered by how the breakdown is reported.
var contentTags = []string{
	TagArticle, TagImage, TagVideo, TagDocument, TagPoll, TagJob, TagEvent, TagRepost,
}

// ContentTags returns the known content type tags in report order.
func ContentTags() []string {
	out := make([]string, len(contentTags))
	copy(out, contentTags)
	return out
}

// ContentType returns the leading tag of content, or "" for plain text posts.
func ContentType(content string) string {
	for _, tag := range contentTags {
		if strings.HasPrefix(content, tag) {
			return tag
		}
	}
	return ""
}

// HasContent reports whether content carries real text rather than a
// placeholder.
func HasContent(content string) bool {
	return content != "" && content != NoContent && content != ContentFailed
}

// Author is the best-effort identity of a post's author.
type Author struct {
	Name             string `json:"name"`
	Title            string `json:"title"`
	ConnectionStatus string `json:"connectionStatus"`
	ProfileURL       string `json:"profileUrl"`
	ProfileID        string `json:"profileId"`
	ImageURL         string `json:"imageUrl"`
}

// Engagement holds parsed social counts. Total is always Likes+Comments+Shares.
type Engagement struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Shares   int `json:"shares"`
	Total    int `json:"total"`
}

// NewEngagement builds an Engagement, clamping negatives to zero.
func NewEngagement(likes, comments, shares int) Engagement {
	likes, comments, shares = max(likes, 0), max(comments, 0), max(shares, 0)
	return Engagement{
		Likes:    likes,
		Comments: comments,
		Shares:   shares,
		Total:    likes + comments + shares,
	}
}

// Interactions is likes plus comments, the measure used for ranking.
func (e Engagement) Interactions() int {
	return e.Likes + e.Comments
}

// PostRecord is one observed feed item.
type PostRecord struct {
	ID         string     `json:"id"`
	Timestamp  string     `json:"timestamp"` // capture time, RFC 3339
	Author     Author     `json:"author"`
	Content    string     `json:"content"`
	Engagement Engagement `json:"engagement"`
	URL        string     `json:"url"`
}

// CapturedAt parses Timestamp. Zero time if unparseable.
func (r PostRecord) CapturedAt() time.Time {
	t, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// DateKey returns the local calendar day of t as used for day buckets.
func DateKey(t time.Time) string {
	return t.Local().Format(DateLayout)
}

// Excerpt returns the first n runes of s, followed by "..." when s was longer.
func Excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
