package providers

import "strings"

type DeepSeekProvider struct {
	openAICompatible
}

func NewDeepSeekProvider() *DeepSeekProvider {
	p := &DeepSeekProvider{
		openAICompatible: newOpenAICompatible("deepseek", "https://api.deepseek.com/chat/completions", "deepseek-chat"),
	}

	p.noTemperature = func(model string) bool { return strings.Contains(model, "reasoner") }

	return p
}
