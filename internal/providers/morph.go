package providers

type MorphProvider struct {
	openAICompatible
}

// NewMorphProvider returns the Morph adapter. Morph's apply models don't
// stream through the chat endpoint.
func NewMorphProvider() *MorphProvider {
	p := &MorphProvider{
		openAICompatible: newOpenAICompatible("morph", "https://api.morphllm.com/v1/chat/completions", "morph-v3-fast"),
	}

	p.streaming = false

	return p
}
