package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allProviders() []Provider {
	r := NewRegistry()
	r.Initialize()

	out := make([]Provider, 0, len(r.List()))
	for _, name := range r.List() {
		p, _ := r.Get(name)
		out = append(out, p)
	}

	return out
}

func TestAllProviders_FormatRequestKeepsContent(t *testing.T) {
	req := Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "SYSTEM-PROMPT"},
			{Role: RoleUser, Content: "USER-ONE"},
			{Role: RoleAssistant, Content: "ASSISTANT-ONE"},
			{Role: RoleUser, Content: "USER-TWO"},
		},
		MaxTokens:   100,
		Temperature: 0.3,
	}

	for _, p := range allProviders() {
		models := append([]string{p.Model()}, DefaultFallbackChains[p.Name()]...)

		for _, model := range models {
			t.Run(p.Name()+"/"+model, func(t *testing.T) {
				data, err := p.FormatRequest(model, req)
				require.NoError(t, err)

				body := string(data)
				for _, m := range req.Messages {
					assert.Contains(t, body, m.Content)
				}

				if p.IsO1Style(model) {
					assert.NotContains(t, body, `"role":"system"`)
				}

				if !p.SupportsTemperature(model) {
					assert.NotContains(t, body, "temperature")
				}
			})
		}
	}
}

func TestAllProviders_ParseMalformed(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		[]byte("null"),
		[]byte("[]"),
		[]byte(`{"choices":[{"message":null}]}`),
		[]byte(`{"content":"not-an-array"}`),
		[]byte("\x00\xff{"),
		[]byte(`<html>502 Bad Gateway</html>`),
	}

	for _, p := range allProviders() {
		t.Run(p.Name(), func(t *testing.T) {
			for _, in := range inputs {
				assert.NotPanics(t, func() {
					assert.Equal(t, "", p.ParseResponse(in))
					assert.Equal(t, "", p.ParseStreamChunk(in))
				})
			}
		})
	}
}

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "u"},
		{Role: RoleSystem, Content: "b"},
	})

	assert.Equal(t, "a\n\nb", system)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "u"}}, rest)
}

func TestMergeSystemIntoUser(t *testing.T) {
	tests := []struct {
		name     string
		in       []Message
		expected []Message
	}{
		{
			name:     "no system",
			in:       []Message{{Role: RoleUser, Content: "u"}},
			expected: []Message{{Role: RoleUser, Content: "u"}},
		},
		{
			name: "merged into first user",
			in: []Message{
				{Role: RoleSystem, Content: "s"},
				{Role: RoleAssistant, Content: "a"},
				{Role: RoleUser, Content: "u1"},
				{Role: RoleUser, Content: "u2"},
			},
			expected: []Message{
				{Role: RoleAssistant, Content: "a"},
				{Role: RoleUser, Content: "s\n\nu1"},
				{Role: RoleUser, Content: "u2"},
			},
		},
		{
			name:     "system only",
			in:       []Message{{Role: RoleSystem, Content: "s"}},
			expected: []Message{{Role: RoleUser, Content: "s"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MergeSystemIntoUser(tt.in))
		})
	}
}

func TestParseUsage(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected Usage
	}{
		{"openai", `{"usage":{"prompt_tokens":10,"completion_tokens":5}}`, Usage{10, 5}},
		{"anthropic", `{"usage":{"input_tokens":7,"output_tokens":3}}`, Usage{7, 3}},
		{"gemini", `{"usageMetadata":{"promptTokenCount":4,"candidatesTokenCount":2}}`, Usage{4, 2}},
		{"ollama", `{"prompt_eval_count":9,"eval_count":1}`, Usage{9, 1}},
		{"none", `{"choices":[]}`, Usage{}},
		{"invalid", `{`, Usage{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseUsage([]byte(tt.body))
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.expected.InputTokens+tt.expected.OutputTokens, got.Total())
		})
	}
}

func TestTarget_String(t *testing.T) {
	assert.Equal(t, "groq/gemma2-9b-it", Target{Provider: NewGroqProvider(), Model: "gemma2-9b-it"}.String())
	assert.Equal(t, "m", Target{Model: "m"}.String())
}

func TestIsStreamingContentType(t *testing.T) {
	tests := map[string]bool{
		"text/event-stream":                true,
		"text/event-stream; charset=utf-8": true,
		"application/x-ndjson":             true,
		"application/json":                 false,
		"application/json; charset=utf-8":  false,
		"text/plain":                       false,
	}

	for ct, want := range tests {
		assert.Equal(t, want, IsStreamingContentType(ct), ct)
	}
}
