package providers

type GroqProvider struct {
	openAICompatible
}

// NewGroqProvider returns the Groq adapter. Every Groq model is usable on the
// free tier.
func NewGroqProvider() *GroqProvider {
	p := &GroqProvider{
		openAICompatible: newOpenAICompatible("groq", "https://api.groq.com/openai/v1/chat/completions", "llama-3.3-70b-versatile"),
	}

	p.free = always

	return p
}
