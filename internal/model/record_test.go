package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngagementTotal(t *testing.T) {
	e := NewEngagement(10, 3, 2)
	assert.Equal(t, 15, e.Total)
	assert.Equal(t, 13, e.Interactions())

	neg := NewEngagement(-1, 4, -9)
	assert.Equal(t, Engagement{Likes: 0, Comments: 4, Shares: 0, Total: 4}, neg)
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"[Shared Article] Title - body": TagArticle,
		"[Poll] Which one?":             TagPoll,
		"plain text post":               "",
		NoContent:                       "",
		"text mentioning [Poll] later":  "",
	}
	for content, want := range cases {
		assert.Equal(t, want, ContentType(content), content)
	}
}

func TestPostRecordJSONFieldNames(t *testing.T) {
	r := PostRecord{
		ID:         "urn:li:activity:1",
		Timestamp:  "2026-10-19T08:00:00Z",
		Author:     Author{Name: "Ada", ProfileURL: "https://example.com/in/ada"},
		Content:    "hello",
		Engagement: NewEngagement(1, 2, 3),
		URL:        "https://example.com/p/1",
	}
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"id", "timestamp", "author", "content", "engagement", "url"} {
		assert.Contains(t, raw, key)
	}
	author := raw["author"].(map[string]any)
	assert.Contains(t, author, "profileUrl")
	assert.Contains(t, author, "connectionStatus")
}

func TestCapturedAt(t *testing.T) {
	r := PostRecord{Timestamp: "2026-10-19T08:00:00.123Z"}
	assert.Equal(t, time.Date(2026, 10, 19, 8, 0, 0, 123e6, time.UTC), r.CapturedAt())
	assert.True(t, PostRecord{Timestamp: "nope"}.CapturedAt().IsZero())
}
