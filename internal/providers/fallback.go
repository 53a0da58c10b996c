package providers

import "slices"

// DefaultFallbackChains lists, per provider, the models to try in order when
// the selected one fails. Known-good cheap models come first.
var DefaultFallbackChains = map[string][]string{
	OpenRouterName: {
		"meta-llama/llama-3.3-70b-instruct:free",
		"deepseek/deepseek-chat-v3-0324:free",
		"google/gemini-2.0-flash-exp:free",
		"qwen/qwen-2.5-72b-instruct:free",
		"mistralai/mistral-7b-instruct:free",
	},
	"anthropic": {
		"claude-3-5-haiku-20241022",
		"claude-3-5-sonnet-20241022",
		"claude-3-haiku-20240307",
	},
	"openai": {
		"gpt-4o-mini",
		"gpt-4o",
		"gpt-4.1-mini",
		"gpt-3.5-turbo",
	},
	"google": {
		"gemini-2.0-flash",
		"gemini-1.5-flash",
		"gemini-1.5-pro",
	},
	"deepseek": {
		"deepseek-chat",
		"deepseek-reasoner",
	},
	"grok": {
		"grok-3-mini",
		"grok-3",
		"grok-2-1212",
	},
	"groq": {
		"llama-3.3-70b-versatile",
		"llama-3.1-8b-instant",
		"gemma2-9b-it",
	},
	"together": {
		"meta-llama/Llama-3.3-70B-Instruct-Turbo-Free",
		"meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo",
		"mistralai/Mixtral-8x7B-Instruct-v0.1",
	},
	"ollama": {
		"llama3.2",
		"qwen2.5",
		"mistral",
	},
	"morph": {
		"morph-v3-fast",
		"morph-v3-large",
	},
}

// Fallback is the next model to try. SwitchProvider names the provider to
// move to when the model belongs to another vendor.
type Fallback struct {
	Model          string `json:"model"`
	SwitchProvider string `json:"switch_provider,omitempty"`
}

// pickFallback returns the first model in chain that is not current, not
// tried and still healthy.
func pickFallback(chain []string, current string, tried []string, available func(string) bool) (string, bool) {
	for _, model := range chain {
		if model == current || slices.Contains(tried, model) || !available(model) {
			continue
		}

		return model, true
	}

	return "", false
}
