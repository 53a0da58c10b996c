package providers

type GrokProvider struct {
	openAICompatible
}

func NewGrokProvider() *GrokProvider {
	return &GrokProvider{
		openAICompatible: newOpenAICompatible("grok", "https://api.x.ai/v1/chat/completions", "grok-3-mini"),
	}
}
