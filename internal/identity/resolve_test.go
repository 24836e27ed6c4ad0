package identity

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/feedkeeper/internal/model"
)

func node(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc.Find("body").Children().First()
}

func TestResolveChainOrder(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"urn on root", `<div data-urn="urn:li:activity:1" data-id="x"></div>`, "urn:li:activity:1"},
		{"urn on descendant", `<div><span data-id="d"></span><span data-urn="urn:li:activity:2"></span></div>`, "urn:li:activity:2"},
		{"data-id", `<div><span data-id="id-3"></span><span data-activity-urn="a"></span></div>`, "id-3"},
		{"activity urn", `<div><span data-activity-urn="urn:li:activity:4"></span></div>`, "urn:li:activity:4"},
		{"article link", `<div><a href="https://example.com/pulse?articleId=55&trk=x">a</a></div>`, "article:55"},
		{"update link", `<div><a href="https://www.linkedin.com/feed/update/urn:li:share:66/?x=1">u</a></div>`, "urn:li:share:66"},
		{"empty urn skipped", `<div data-urn=""><span data-id="id-7"></span></div>`, "id-7"},
	}
	r := &Resolver{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(node(t, tt.html), model.PostRecord{Content: "anything"}))
		})
	}
}

func TestResolveContentFallbackIsStable(t *testing.T) {
	r := &Resolver{}
	rec := model.PostRecord{
		Author:  model.Author{Name: "Ada"},
		Content: "The engine might compose elaborate pieces of music of any complexity.",
	}
	n := node(t, `<div><p>no ids here</p></div>`)

	id := r.Resolve(n, rec)
	assert.Equal(t, id, r.Resolve(n, rec))

	wantSeed := "Ada-" + string([]rune(rec.Content)[:FallbackContentLen])
	assert.Equal(t, EncodeFallbackID(ModeBase64, wantSeed), id)
}

func TestSeedFallsBackToProfileIDThenUnknown(t *testing.T) {
	assert.Equal(t, "ada-l-hello", seed(model.PostRecord{
		Author:  model.Author{ProfileID: "ada-l"},
		Content: "hello",
	}))
	assert.Equal(t, "unknown-hello", seed(model.PostRecord{Content: "hello"}))
}

func TestEncodeFallbackID(t *testing.T) {
	// "a>?" encodes to "YT4/", which exercises the stripped "/".
	seed := "a>?"
	require.Equal(t, "YT4/", base64.StdEncoding.EncodeToString([]byte(seed)))
	assert.Equal(t, "YT4", EncodeFallbackID(ModeBase64, seed))
	assert.Equal(t, "YQ", EncodeFallbackID("", "a"))

	h := EncodeFallbackID(ModeHash, seed)
	assert.True(t, strings.HasPrefix(h, "h:"))
	assert.Len(t, h, 2+16)
	assert.Equal(t, h, EncodeFallbackID(ModeHash, seed))
	assert.NotEqual(t, h, EncodeFallbackID(ModeHash, seed+"!"))
}

func TestResolveLastResortIsUniqueNotStable(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	r := &Resolver{}
	rec := model.PostRecord{
		Content:   model.NoContent,
		Timestamp: at.Format(time.RFC3339Nano),
	}
	n := node(t, `<div></div>`)

	a := r.Resolve(n, rec)
	b := r.Resolve(n, rec)
	assert.NotEqual(t, a, b)

	prefix := "unknown-1792402200000-"
	for _, id := range []string{a, b} {
		require.True(t, strings.HasPrefix(id, prefix), id)
		assert.Len(t, strings.TrimPrefix(id, prefix), 8)
	}
}

func TestResolveLastResortUsesClockWithoutTimestamp(t *testing.T) {
	r := &Resolver{Now: func() time.Time { return time.UnixMilli(1234) }}
	id := r.Resolve(node(t, `<div></div>`), model.PostRecord{})
	assert.True(t, strings.HasPrefix(id, "unknown-1234-"), id)
}
