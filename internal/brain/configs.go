package brain

import (
	"encoding/json"
	"errors"
)

// Provider endpoints.
const (
	ClaudeEndpoint = "https://api.anthropic.com/v1/messages"
	OpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
)

const (
	defaultMaxTokens = 1000
	openAITemp       = 0.7
)

// openAISystemPrompt frames the feed data for chat-completion models.
const openAISystemPrompt = "You are an AI assistant that analyzes social feed data and provides insightful summaries. " +
	"Be concise, professional, and focus on extracting valuable insights."

// ClaudeConfig returns the Anthropic Messages API configuration.
func ClaudeConfig(apiKey, model string) *ProviderConfig {
	return &ProviderConfig{
		Name:       "claude",
		Endpoint:   ClaudeEndpoint,
		APIKey:     apiKey,
		Model:      model,
		AuthHeader: "x-api-key",
		ExtraHeaders: map[string]string{
			"anthropic-version": "2023-06-01",
		},
		BuildBody:     buildClaudeBody,
		ParseResponse: parseClaudeResponse,
		ParseError:    parseAPIError,
	}
}

// OpenAIConfig returns the Chat Completions API configuration.
func OpenAIConfig(apiKey, model string) *ProviderConfig {
	return &ProviderConfig{
		Name:          "openai",
		Endpoint:      OpenAIEndpoint,
		APIKey:        apiKey,
		Model:         model,
		AuthHeader:    "Authorization",
		AuthPrefix:    "Bearer ",
		BuildBody:     buildOpenAIBody,
		ParseResponse: parseOpenAIResponse,
		ParseError:    parseAPIError,
	}
}

// Body builders

func buildClaudeBody(cfg *ProviderConfig, req Request) map[string]any {
	body := map[string]any{
		"model":      cfg.Model,
		"max_tokens": maxTokensOr(req.MaxTokens, defaultMaxTokens),
		"messages":   []map[string]string{{"role": "user", "content": req.Prompt}},
	}
	if req.System != "" {
		body["system"] = req.System
	}
	return body
}

func buildOpenAIBody(cfg *ProviderConfig, req Request) map[string]any {
	system := req.System
	if system == "" {
		system = openAISystemPrompt
	}
	return map[string]any{
		"model": cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": req.Prompt},
		},
		"max_tokens":  maxTokensOr(req.MaxTokens, defaultMaxTokens),
		"temperature": openAITemp,
	}
}

func maxTokensOr(n, def int) int {
	if n > 0 {
		return n
	}
	return def
}

// Response parsers

var errNoContent = errors.New("response has no content")

func parseClaudeResponse(body []byte) (string, string, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", err
	}
	for _, c := range resp.Content {
		if c.Type == "text" && c.Text != "" {
			return c.Text, resp.Model, nil
		}
	}
	return "", resp.Model, errNoContent
}

func parseOpenAIResponse(body []byte) (string, string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", resp.Model, errNoContent
	}
	return resp.Choices[0].Message.Content, resp.Model, nil
}

// parseAPIError reads {"error": {"message": ...}} or {"error": "..."}, the
// shapes both APIs use.
func parseAPIError(body []byte) string {
	var withObj struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &withObj) == nil && withObj.Error.Message != "" {
		return withObj.Error.Message
	}
	var withStr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &withStr) == nil {
		return withStr.Error
	}
	return ""
}
