package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FeedSource reads an RSS or Atom feed and renders each entry as a feed
// item node, so the same extraction rules apply to it.
type FeedSource struct {
	URL     string
	Fetcher *Fetcher

	policy *bluemonday.Policy
}

// NewFeedSource creates a FeedSource for url.
func NewFeedSource(url string, f *Fetcher) *FeedSource {
	return &FeedSource{URL: url, Fetcher: f, policy: bluemonday.UGCPolicy()}
}

func (s *FeedSource) Name() string { return "feed:" + s.URL }

func (s *FeedSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	resp, err := s.Fetcher.get(ctx, s.URL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	page := feed.Link
	if page == "" {
		page = s.URL
	}
	return &Snapshot{
		Doc:   goquery.NewDocumentFromNode(s.render(feed)),
		Page:  page,
		Taken: time.Now(),
	}, nil
}

// render builds a document with one update node per entry, using the class
// names of the default extraction rules.
func (s *FeedSource) render(feed *gofeed.Feed) *html.Node {
	policy := s.policy
	if policy == nil {
		policy = bluemonday.UGCPolicy()
	}

	body := element(atom.Body, nil)
	for _, it := range feed.Items {
		body.AppendChild(renderItem(it, feed.Title, policy))
	}
	root := element(atom.Html, nil, body)

	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(root)
	return doc
}

func renderItem(it *gofeed.Item, feedTitle string, policy *bluemonday.Policy) *html.Node {
	id := it.GUID
	if id == "" {
		id = it.Link
	}
	update := element(atom.Div, attrs("class", "feed-shared-update-v2", "data-id", id))

	name := feedTitle
	if it.Author != nil && it.Author.Name != "" {
		name = it.Author.Name
	} else if len(it.Authors) > 0 && it.Authors[0].Name != "" {
		name = it.Authors[0].Name
	}
	if name != "" {
		update.AppendChild(element(atom.Div, attrs("class", "feed-shared-actor"),
			element(atom.Span, attrs("class", "feed-shared-actor__name"), text(name)),
			element(atom.Span, attrs("class", "feed-shared-actor__description"), text(feedTitle)),
		))
	}

	body := it.Description
	if body == "" {
		body = it.Content
	}
	textBox := element(atom.Div, attrs("class", "feed-shared-text"))
	if it.Title != "" {
		textBox.AppendChild(element(atom.Strong, nil, text(it.Title)))
		textBox.AppendChild(text("\n"))
	}
	if body != "" {
		for _, n := range fragment(policy.Sanitize(body), textBox) {
			textBox.AppendChild(n)
		}
	}
	update.AppendChild(textBox)

	if comments := extension(it, "slash", "comments"); comments != "" {
		update.AppendChild(element(atom.Div, attrs("class", "social-details-social-counts"),
			element(atom.Span, attrs("class", "social-details-social-counts__comments"), text(comments+" comments")),
		))
	}

	if it.Link != "" {
		update.AppendChild(element(atom.Div, attrs("class", "feed-shared-update-v2__update-link-container"),
			element(atom.A, attrs("href", it.Link), text(it.Title)),
		))
	}
	return update
}

// fragment parses sanitized markup as children of parent. Unparseable input
// degrades to a single text node.
func fragment(markup string, parent *html.Node) []*html.Node {
	nodes, err := html.ParseFragment(strings.NewReader(markup), parent)
	if err != nil {
		return []*html.Node{text(markup)}
	}
	return nodes
}

func extension(it *gofeed.Item, ns, name string) string {
	exts, ok := it.Extensions[ns][name]
	if !ok || len(exts) == 0 {
		return ""
	}
	return strings.TrimSpace(exts[0].Value)
}

func element(a atom.Atom, attr []html.Attribute, children ...*html.Node) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attr}
	for _, c := range children {
		n.AppendChild(c)
	}
	return n
}

func attrs(kv ...string) []html.Attribute {
	out := make([]html.Attribute, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, html.Attribute{Key: kv[i], Val: kv[i+1]})
	}
	return out
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
