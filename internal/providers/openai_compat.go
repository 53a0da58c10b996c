package providers

import (
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// openAICompatible implements the chat-completions wire format shared by
// most vendors. Vendors differ only in endpoint, auth header and the model
// predicates below.
type openAICompatible struct {
	settings

	name            string
	defaultEndpoint string
	defaultModel    string
	streaming       bool

	free          func(model string) bool
	o1Style       func(model string) bool
	noTemperature func(model string) bool
	extraHeaders  map[string]string
}

// chatRequest shadows go-openai's Temperature, whose omitempty would drop an
// explicit 0 and leave the vendor default in place.
type chatRequest struct {
	openai.ChatCompletionRequest

	Temperature *float32 `json:"temperature,omitempty"`
}

func newOpenAICompatible(name, endpoint, model string) openAICompatible {
	return openAICompatible{
		settings:        settings{model: model},
		name:            name,
		defaultEndpoint: endpoint,
		defaultModel:    model,
		streaming:       true,
		free:            never,
		o1Style:         never,
		noTemperature:   never,
	}
}

func (p *openAICompatible) Name() string { return p.name }

func (p *openAICompatible) Endpoint(string) string {
	return p.endpointOr(p.defaultEndpoint)
}

func (p *openAICompatible) Headers() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	if key := p.APIKey(); key != "" {
		headers["Authorization"] = "Bearer " + key
	}

	for k, v := range p.extraHeaders {
		headers[k] = v
	}

	return headers
}

func (p *openAICompatible) FormatRequest(model string, req Request) ([]byte, error) {
	messages := req.Messages
	if p.o1Style(model) {
		messages = MergeSystemIntoUser(messages)
	}

	body := chatRequest{ChatCompletionRequest: openai.ChatCompletionRequest{
		Model:    model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
		Stream:   req.Stream,
	}}

	for _, m := range messages {
		body.Messages = append(body.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	if p.o1Style(model) {
		body.MaxCompletionTokens = req.MaxTokens
	} else {
		body.MaxTokens = req.MaxTokens
	}

	if p.SupportsTemperature(model) {
		temperature := float32(req.Temperature)
		body.Temperature = &temperature
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", p.name, err)
	}

	return data, nil
}

func (p *openAICompatible) ParseResponse(data []byte) string {
	return textAt(data, "choices.0.message.content")
}

func (p *openAICompatible) ParseStreamChunk(data []byte) string {
	return textAt(data, "choices.0.delta.content")
}

func (p *openAICompatible) SupportsStreaming() bool { return p.streaming }

func (p *openAICompatible) IsO1Style(model string) bool { return p.o1Style(model) }

func (p *openAICompatible) SupportsTemperature(model string) bool {
	return !p.o1Style(model) && !p.noTemperature(model)
}

func (p *openAICompatible) IsFree(model string) bool { return p.free(model) }

func (p *openAICompatible) IsLocal() bool { return false }

func (p *openAICompatible) RequiresAPIKey() bool { return true }
