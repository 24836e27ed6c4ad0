package brain

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abelbrown/feedkeeper/internal/model"
	"github.com/abelbrown/feedkeeper/internal/otel"
	"github.com/abelbrown/feedkeeper/internal/rollup"
)

var _ rollup.Summarizer = (*Summarizer)(nil)

var sample = []model.PostRecord{{
	ID:         "urn:li:activity:1",
	Author:     model.Author{Name: "Ada", Title: "Analyst"},
	Content:    "Notes on the engine",
	Engagement: model.NewEngagement(3, 1, 0),
}}

func TestProviderFor(t *testing.T) {
	assert.Equal(t, "claude", ProviderFor("claude-sonnet-4-5"))
	assert.Equal(t, "claude", ProviderFor("Claude-3-Haiku"))
	assert.Equal(t, "openai", ProviderFor("gpt-4o"))
	assert.Equal(t, "openai", ProviderFor(""))
}

func TestAvailableFollowsModelProvider(t *testing.T) {
	s := NewSummarizer(Options{Model: "claude-sonnet-4-5", OpenAIKey: "sk-openai"}, otel.Scope{})
	assert.False(t, s.Available(), "claude model must not fall back to the openai key")

	s = NewSummarizer(Options{Model: "gpt-4o", OpenAIKey: "sk-openai"}, otel.Scope{})
	assert.True(t, s.Available())

	_, err := NewSummarizer(Options{}, otel.Scope{}).Summarize(context.Background(), sample, "")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestUserPrompt(t *testing.T) {
	got, err := UserPrompt("Trends?", sample)
	require.NoError(t, err)

	head, payload, ok := strings.Cut(got, ":\n")
	require.True(t, ok)
	assert.Equal(t, "Trends?\n\nHere is my feed data with 1 posts", head)

	var posts []map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &posts))
	assert.Equal(t, "Ada", posts[0]["author"])
	assert.Equal(t, "Analyst", posts[0]["authorTitle"])
	assert.Equal(t, map[string]any{"likes": 3.0, "comments": 1.0, "shares": 0.0}, posts[0]["engagement"])
}

func TestSummarizeClaude(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		_, _ = io.WriteString(w, `{"model":"claude-x","content":[{"type":"text","text":"Feed is calm."}]}`)
	}))
	defer srv.Close()

	s := NewSummarizer(Options{Model: "claude-x", AnthropicKey: "sk-ant", ClaudeEndpoint: srv.URL}, otel.Scope{})
	text, err := s.Summarize(context.Background(), sample, "")
	require.NoError(t, err)
	assert.Equal(t, "Feed is calm.", text)

	assert.Equal(t, "claude-x", gotBody["model"])
	assert.Equal(t, float64(defaultMaxTokens), gotBody["max_tokens"])
	msgs := gotBody["messages"].([]any)
	content := msgs[0].(map[string]any)["content"].(string)
	assert.True(t, strings.HasPrefix(content, DefaultPrompt+"\n\n"), content)
}

func TestSummarizeOpenAI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-openai", r.Header.Get("Authorization"))
		var body struct {
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
			Temperature float64 `json:"temperature"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, 0.7, body.Temperature)
		_, _ = io.WriteString(w, `{"model":"gpt-4o","choices":[{"message":{"content":"Lots of hiring posts."}}]}`)
	}))
	defer srv.Close()

	s := NewSummarizer(Options{Model: "gpt-4o", OpenAIKey: "sk-openai", OpenAIEndpoint: srv.URL}, otel.Scope{})
	text, err := s.Summarize(context.Background(), sample, "Custom?")
	require.NoError(t, err)
	assert.Equal(t, "Lots of hiring posts.", text)
}

func TestSummarizeSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"Rate limit reached"}}`)
	}))
	defer srv.Close()

	s := NewSummarizer(Options{OpenAIKey: "k", OpenAIEndpoint: srv.URL}, otel.Scope{})
	_, err := s.Summarize(context.Background(), sample, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
	assert.Contains(t, err.Error(), "Rate limit reached")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "openai", apiErr.Provider)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
}

func TestSummarizeEmptyContentIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	s := NewSummarizer(Options{OpenAIKey: "k", OpenAIEndpoint: srv.URL}, otel.Scope{})
	_, err := s.Summarize(context.Background(), sample, "")
	assert.ErrorIs(t, err, errNoContent)
}

func TestParseAPIError(t *testing.T) {
	assert.Equal(t, "bad key", parseAPIError([]byte(`{"error":{"message":"bad key"}}`)))
	assert.Equal(t, "plain", parseAPIError([]byte(`{"error":"plain"}`)))
	assert.Empty(t, parseAPIError([]byte(`not json`)))
}

func TestRouterPick(t *testing.T) {
	claude := NewHTTPProvider(ClaudeConfig("", "m"), otel.Scope{})
	openai := NewHTTPProvider(OpenAIConfig("k", "m"), otel.Scope{})

	first := NewRouter("", claude, openai)
	assert.Equal(t, []string{"openai"}, first.Configured())
	assert.Equal(t, "openai", first.Pick().Name())

	assert.Equal(t, "openai", NewRouter("openai", claude, openai).Pick().Name())
	assert.Nil(t, NewRouter("claude", claude, openai).Pick())
	assert.Nil(t, NewRouter("").Pick())
}
