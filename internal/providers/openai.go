package providers

const openAIEndpoint = "https://api.openai.com/v1/chat/completions"

type OpenAIProvider struct {
	openAICompatible
}

func NewOpenAIProvider() *OpenAIProvider {
	p := &OpenAIProvider{
		openAICompatible: newOpenAICompatible("openai", openAIEndpoint, "gpt-4o-mini"),
	}

	// Reasoning models reject the system role and any temperature but the default.
	p.o1Style = func(model string) bool { return hasAnyPrefix(model, "o1", "o3", "o4") }

	return p
}
