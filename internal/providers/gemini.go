package providers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GoogleProvider talks to the Gemini generateContent API. The key travels in
// the query string, so Headers carries no credentials.
type GoogleProvider struct {
	settings
}

func NewGoogleProvider() *GoogleProvider {
	return &GoogleProvider{
		settings: settings{model: "gemini-2.0-flash"},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

func (p *GoogleProvider) Name() string { return "google" }

func (p *GoogleProvider) Endpoint(model string) string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		p.endpointOr(geminiBaseURL), model, url.QueryEscape(p.APIKey()))
}

func (p *GoogleProvider) Headers() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
	}
}

func (p *GoogleProvider) FormatRequest(model string, req Request) ([]byte, error) {
	system, messages := SplitSystem(req.Messages)

	body := geminiRequest{
		Contents: make([]geminiContent, 0, len(messages)),
		GenerationConfig: geminiGenerationConfig{
			MaxOutputTokens: req.MaxTokens,
		},
	}

	for _, m := range messages {
		role := m.Role
		if role == RoleAssistant {
			role = "model"
		}

		body.Contents = append(body.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	if system != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	if p.SupportsTemperature(model) {
		t := req.Temperature
		body.GenerationConfig.Temperature = &t
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	return data, nil
}

func (p *GoogleProvider) ParseResponse(data []byte) string {
	return joinTexts(data, "candidates.0.content.parts.#.text")
}

func (p *GoogleProvider) ParseStreamChunk(data []byte) string {
	return p.ParseResponse(data)
}

func (p *GoogleProvider) SupportsStreaming() bool         { return false }
func (p *GoogleProvider) IsO1Style(string) bool           { return false }
func (p *GoogleProvider) SupportsTemperature(string) bool { return true }

// IsFree reports the flash tier, which has a free quota.
func (p *GoogleProvider) IsFree(model string) bool { return strings.Contains(model, "flash") }

func (p *GoogleProvider) IsLocal() bool        { return false }
func (p *GoogleProvider) RequiresAPIKey() bool { return true }
