package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/abelbrown/feedkeeper/internal/otel"
)

var _ Provider = (*HTTPProvider)(nil)

// requestTimeout caps one summary call. Summaries of a busy day can take a
// while to generate.
const requestTimeout = 2 * time.Minute

// ProviderConfig describes one JSON-over-HTTPS model API: where to send the
// request, how to authenticate, and how to translate bodies in both
// directions.
type ProviderConfig struct {
	Name         string
	Endpoint     string
	APIKey       string
	Model        string
	AuthHeader   string // e.g. "x-api-key" or "Authorization"
	AuthPrefix   string // e.g. "Bearer "
	ExtraHeaders map[string]string

	BuildBody     func(cfg *ProviderConfig, req Request) map[string]any
	ParseResponse func(body []byte) (text, model string, err error)
	ParseError    func(body []byte) string // optional
}

// APIError is a non-200 answer from a provider.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.Status, e.Message)
}

// HTTPProvider sends Requests to the API described by its ProviderConfig.
type HTTPProvider struct {
	cfg    *ProviderConfig
	client *http.Client
	log    otel.Scope
}

func NewHTTPProvider(cfg *ProviderConfig, log otel.Scope) *HTTPProvider {
	return &HTTPProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: requestTimeout},
		log:    log,
	}
}

func (p *HTTPProvider) Name() string { return p.cfg.Name }

func (p *HTTPProvider) Available() bool { return p.cfg.APIKey != "" }

// Generate posts req and decodes the reply. Non-200 statuses come back as
// *APIError with Response.Raw holding the body.
func (p *HTTPProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if !p.Available() {
		return Response{}, fmt.Errorf("%s: %w", p.cfg.Name, ErrNotConfigured)
	}
	p.log.Debug(otel.Event{Kind: otel.KindSummaryGenerated, Msg: "request " + p.cfg.Name + " " + p.cfg.Model})

	status, body, err := p.post(ctx, p.cfg.BuildBody(p.cfg, req))
	if err != nil {
		return Response{}, err
	}
	raw := string(body)

	if status != http.StatusOK {
		apiErr := &APIError{Provider: p.cfg.Name, Status: status, Message: http.StatusText(status)}
		if p.cfg.ParseError != nil {
			if m := p.cfg.ParseError(body); m != "" {
				apiErr.Message = m
			}
		}
		return Response{Raw: raw}, apiErr
	}

	text, model, err := p.cfg.ParseResponse(body)
	if err != nil {
		return Response{Raw: raw}, fmt.Errorf("%s: parse response: %w", p.cfg.Name, err)
	}
	return Response{Text: text, Model: model, Raw: raw}, nil
}

func (p *HTTPProvider) post(ctx context.Context, payload map[string]any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.AuthHeader != "" {
		req.Header.Set(p.cfg.AuthHeader, p.cfg.AuthPrefix+p.cfg.APIKey)
	}
	for k, v := range p.cfg.ExtraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s request: %w", p.cfg.Name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s response: %w", p.cfg.Name, err)
	}
	return resp.StatusCode, body, nil
}
