// Package fetch provides feed snapshots for feedkeeper.
//
// A Source yields the current rendered feed as a parsed HTML document. The
// collection pass only ever sees goquery selections, so a saved page, a live
// URL and a syndication feed are interchangeable.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultPage is the page URL assumed for snapshots that carry none. It is
// used to resolve relative links.
const DefaultPage = "https://www.linkedin.com/feed/"

const userAgent = "feedkeeper/1.0 (+https://github.com/abelbrown/feedkeeper)"

// Snapshot is one observation of the feed document.
type Snapshot struct {
	Doc   *goquery.Document
	Page  string // URL the document was rendered at
	Taken time.Time
}

// Source produces snapshots. Implementations must be safe to call from one
// goroutine at a time; the coordinator never overlaps passes.
type Source interface {
	Name() string
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Fetcher performs the HTTP GETs shared by the network sources.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher with the given HTTP client timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// get fetches url and returns the open response. The caller closes the body.
func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}
	return resp, nil
}

// FileSource reads a saved copy of the rendered feed.
type FileSource struct {
	Path string
	Page string // defaults to DefaultPage
}

func (s *FileSource) Name() string { return "file:" + filepath.Base(s.Path) }

func (s *FileSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	page := s.Page
	if page == "" {
		page = DefaultPage
	}
	return parse(f, page)
}

// HTTPSource fetches the rendered feed from a URL, typically a local
// endpoint that mirrors the browser's current document.
type HTTPSource struct {
	URL     string
	Fetcher *Fetcher
}

func (s *HTTPSource) Name() string { return s.URL }

func (s *HTTPSource) Snapshot(ctx context.Context) (*Snapshot, error) {
	resp, err := s.Fetcher.get(ctx, s.URL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return parse(resp.Body, resp.Request.URL.String())
}

func parse(r io.Reader, page string) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &Snapshot{Doc: doc, Page: page, Taken: time.Now()}, nil
}
