package providers

import (
	"encoding/json"
	"fmt"
)

const (
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"
)

type AnthropicProvider struct {
	settings
}

func NewAnthropicProvider() *AnthropicProvider {
	return &AnthropicProvider{
		settings: settings{model: "claude-3-5-haiku-20241022"},
	}
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Endpoint(string) string {
	return p.endpointOr(anthropicEndpoint)
}

func (p *AnthropicProvider) Headers() map[string]string {
	return map[string]string{
		"Content-Type":      "application/json",
		"x-api-key":         p.APIKey(),
		"anthropic-version": anthropicVersion,
	}
}

// FormatRequest hoists system turns into the top-level system field.
func (p *AnthropicProvider) FormatRequest(model string, req Request) ([]byte, error) {
	system, messages := SplitSystem(req.Messages)

	body := anthropicRequest{
		Model:     model,
		System:    system,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
		Stream:    req.Stream,
	}

	if p.SupportsTemperature(model) {
		t := req.Temperature
		body.Temperature = &t
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	return data, nil
}

func (p *AnthropicProvider) ParseResponse(data []byte) string {
	return joinTexts(data, `content.#(type=="text")#.text`)
}

func (p *AnthropicProvider) ParseStreamChunk(data []byte) string {
	if textAt(data, "type") != "content_block_delta" {
		return ""
	}

	return textAt(data, "delta.text")
}

func (p *AnthropicProvider) SupportsStreaming() bool         { return true }
func (p *AnthropicProvider) IsO1Style(string) bool           { return false }
func (p *AnthropicProvider) SupportsTemperature(string) bool { return true }
func (p *AnthropicProvider) IsFree(string) bool              { return false }
func (p *AnthropicProvider) IsLocal() bool                   { return false }
func (p *AnthropicProvider) RequiresAPIKey() bool            { return true }
