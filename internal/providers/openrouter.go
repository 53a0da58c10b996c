package providers

import "strings"

const (
	OpenRouterName = "openrouter"

	openRouterEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	openRouterReferer  = "https://github.com/mihaisavezi/llmpanel"
	openRouterTitle    = "llmpanel"
)

type OpenRouterProvider struct {
	openAICompatible
}

func NewOpenRouterProvider() *OpenRouterProvider {
	p := &OpenRouterProvider{
		openAICompatible: newOpenAICompatible(OpenRouterName, openRouterEndpoint, "meta-llama/llama-3.3-70b-instruct:free"),
	}

	p.free = func(model string) bool { return strings.HasSuffix(model, ":free") }
	// Routed OpenAI reasoning models keep the OpenAI restrictions.
	p.o1Style = func(model string) bool {
		return strings.HasPrefix(strings.ToLower(model), "openai/") && hasAnyPrefix(model, "o1", "o3", "o4")
	}
	p.extraHeaders = map[string]string{
		"HTTP-Referer": openRouterReferer,
		"X-Title":      openRouterTitle,
	}

	return p
}
