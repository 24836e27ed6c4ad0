package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/abelbrown/feedkeeper/internal/model"
	"github.com/abelbrown/feedkeeper/internal/otel"
)

// LogCommenter records the comment it would post in the event log. It is
// the default when no delivery endpoint is configured.
type LogCommenter struct {
	Log otel.Scope
}

func (c LogCommenter) Comment(_ context.Context, rec model.PostRecord, text string) error {
	c.Log.Emit(otel.Event{
		Level:  otel.LevelInfo,
		Kind:   otel.KindAutomationDone,
		Record: rec.ID,
		Msg:    "dry run: " + text,
		Extra:  map[string]any{"url": rec.URL},
	})
	return nil
}

// WebhookCommenter hands each comment to an external service that owns the
// actual posting.
type WebhookCommenter struct {
	URL    string
	Client *http.Client
}

// webhookPayload is the JSON body posted to the webhook.
type webhookPayload struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Text string `json:"text"`
}

// NewWebhookCommenter posts to url with a 10s timeout.
func NewWebhookCommenter(url string) *WebhookCommenter {
	return &WebhookCommenter{URL: url, Client: &http.Client{Timeout: 10 * time.Second}}
}

func (c *WebhookCommenter) Comment(ctx context.Context, rec model.PostRecord, text string) error {
	body, err := json.Marshal(webhookPayload{ID: rec.ID, URL: rec.URL, Text: text})
	if err != nil {
		return fmt.Errorf("encode comment: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("post comment: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("post comment: status %d", resp.StatusCode)
	}
	return nil
}
