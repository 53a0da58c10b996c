package providers

import (
	"encoding/json"
	"fmt"
)

const DefaultOllamaURL = "http://localhost:11434"

// OllamaProvider talks to a local Ollama daemon. No key is needed.
type OllamaProvider struct {
	settings
}

func NewOllamaProvider() *OllamaProvider {
	return &OllamaProvider{
		settings: settings{model: "llama3.2"},
	}
}

type ollamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []Message     `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  ollamaOptions `json:"options"`
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) BaseURL() string { return p.endpointOr(DefaultOllamaURL) }

func (p *OllamaProvider) SetBaseURL(baseURL string) { p.SetEndpoint(baseURL) }

func (p *OllamaProvider) Endpoint(string) string { return p.BaseURL() + "/api/chat" }

func (p *OllamaProvider) Headers() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
	}
}

func (p *OllamaProvider) FormatRequest(model string, req Request) ([]byte, error) {
	t := req.Temperature

	data, err := json.Marshal(ollamaRequest{
		Model:    model,
		Messages: req.Messages,
		Stream:   req.Stream,
		Options:  ollamaOptions{Temperature: &t, NumPredict: req.MaxTokens},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	return data, nil
}

func (p *OllamaProvider) ParseResponse(data []byte) string {
	return textAt(data, "message.content")
}

// ParseStreamChunk reads one NDJSON line of a streamed chat.
func (p *OllamaProvider) ParseStreamChunk(data []byte) string {
	return textAt(data, "message.content")
}

func (p *OllamaProvider) SupportsStreaming() bool         { return true }
func (p *OllamaProvider) IsO1Style(string) bool           { return false }
func (p *OllamaProvider) SupportsTemperature(string) bool { return true }
func (p *OllamaProvider) IsFree(string) bool              { return true }
func (p *OllamaProvider) IsLocal() bool                   { return true }
func (p *OllamaProvider) RequiresAPIKey() bool            { return false }
