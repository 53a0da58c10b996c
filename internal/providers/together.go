package providers

import "strings"

type TogetherProvider struct {
	openAICompatible
}

func NewTogetherProvider() *TogetherProvider {
	p := &TogetherProvider{
		openAICompatible: newOpenAICompatible("together", "https://api.together.xyz/v1/chat/completions",
			"meta-llama/Llama-3.3-70B-Instruct-Turbo-Free"),
	}

	p.free = func(model string) bool { return strings.HasSuffix(model, "-Free") }

	return p
}
