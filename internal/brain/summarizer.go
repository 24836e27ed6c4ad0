package brain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/abelbrown/feedkeeper/internal/model"
	"github.com/abelbrown/feedkeeper/internal/otel"
)

// DefaultPrompt is used when neither the caller nor the config supplies one.
const DefaultPrompt = "What are the key trends and insights from my feed today?"

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

// ErrNotConfigured is returned when the provider for the configured model
// has no API key.
var ErrNotConfigured = errors.New("summarizer not configured")

// Options configures a Summarizer. Endpoint overrides exist for tests and
// API-compatible gateways.
type Options struct {
	Model          string
	AnthropicKey   string
	OpenAIKey      string
	DefaultPrompt  string
	ClaudeEndpoint string
	OpenAIEndpoint string
}

// Summarizer writes day summaries with whichever hosted model is configured.
// Models whose name contains "claude" go to Anthropic, everything else to
// OpenAI.
type Summarizer struct {
	router *Router
	model  string
	prompt string
	log    otel.Scope
}

// NewSummarizer builds a Summarizer from opts.
func NewSummarizer(opts Options, log otel.Scope) *Summarizer {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.DefaultPrompt == "" {
		opts.DefaultPrompt = DefaultPrompt
	}

	claude := ClaudeConfig(opts.AnthropicKey, opts.Model)
	if opts.ClaudeEndpoint != "" {
		claude.Endpoint = opts.ClaudeEndpoint
	}
	openai := OpenAIConfig(opts.OpenAIKey, opts.Model)
	if opts.OpenAIEndpoint != "" {
		openai.Endpoint = opts.OpenAIEndpoint
	}

	router := NewRouter(ProviderFor(opts.Model),
		NewHTTPProvider(claude, log),
		NewHTTPProvider(openai, log),
	)
	return &Summarizer{router: router, model: opts.Model, prompt: opts.DefaultPrompt, log: log}
}

// ProviderFor returns the provider name that serves model.
func ProviderFor(model string) string {
	if strings.Contains(strings.ToLower(model), "claude") {
		return "claude"
	}
	return "openai"
}

// Model returns the configured model name.
func (s *Summarizer) Model() string {
	return s.model
}

// Available reports whether the model's provider has credentials.
func (s *Summarizer) Available() bool {
	return s.router.Pick() != nil
}

// Summarize sends records to the model and returns its text. An empty
// prompt uses the configured default.
func (s *Summarizer) Summarize(ctx context.Context, records []model.PostRecord, prompt string) (string, error) {
	p := s.router.Pick()
	if p == nil {
		return "", fmt.Errorf("%s: %w", ProviderFor(s.model), ErrNotConfigured)
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = s.prompt
	}

	user, err := UserPrompt(prompt, records)
	if err != nil {
		return "", err
	}
	resp, err := p.Generate(ctx, Request{Prompt: user})
	if err != nil {
		s.log.Emit(otel.Event{
			Level: otel.LevelWarn,
			Kind:  otel.KindSummaryFallback,
			Err:   err.Error(),
			Count: len(records),
			Extra: map[string]any{"provider": p.Name(), "model": s.model},
		})
		return "", err
	}
	return resp.Text, nil
}

// feedPost is the per-record payload the model sees.
type feedPost struct {
	Author      string         `json:"author"`
	AuthorTitle string         `json:"authorTitle"`
	Content     string         `json:"content"`
	Engagement  feedEngagement `json:"engagement"`
}

type feedEngagement struct {
	Likes    int `json:"likes"`
	Comments int `json:"comments"`
	Shares   int `json:"shares"`
}

// UserPrompt renders prompt followed by the records as indented JSON.
func UserPrompt(prompt string, records []model.PostRecord) (string, error) {
	posts := make([]feedPost, len(records))
	for i, r := range records {
		posts[i] = feedPost{
			Author:      r.Author.Name,
			AuthorTitle: r.Author.Title,
			Content:     r.Content,
			Engagement: feedEngagement{
				Likes:    r.Engagement.Likes,
				Comments: r.Engagement.Comments,
				Shares:   r.Engagement.Shares,
			},
		}
	}
	data, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode feed: %w", err)
	}
	return fmt.Sprintf("%s\n\nHere is my feed data with %d posts:\n%s", prompt, len(records), data), nil
}
