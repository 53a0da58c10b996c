package providers

import (
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"

	ContentTypeEventStream = "text/event-stream"
	ContentTypeNDJSON      = "application/x-ndjson"
)

// settings is the mutable part every adapter shares.
type settings struct {
	mu     sync.RWMutex
	apiKey string
	model  string
	base   string
}

// SetEndpoint overrides the vendor URL, e.g. to go through a gateway.
func (s *settings) SetEndpoint(endpoint string) {
	s.mu.Lock()
	s.base = strings.TrimRight(endpoint, "/")
	s.mu.Unlock()
}

func (s *settings) endpointOr(def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.base == "" {
		return def
	}

	return s.base
}

func (s *settings) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.model
}

func (s *settings) SetModel(model string) {
	s.mu.Lock()
	s.model = model
	s.mu.Unlock()
}

func (s *settings) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.apiKey
}

func (s *settings) SetAPIKey(key string) {
	s.mu.Lock()
	s.apiKey = key
	s.mu.Unlock()
}

// IsStreamingContentType reports whether a response Content-Type carries a
// stream of chunks rather than one document. Parameters such as charset are
// ignored.
func IsStreamingContentType(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	return mediaType == ContentTypeEventStream ||
		mediaType == ContentTypeNDJSON ||
		strings.HasSuffix(mediaType, "ndjson") ||
		strings.Contains(mediaType, "stream")
}

// SplitSystem separates system turns from the conversation. Multiple system
// messages are joined with a blank line.
func SplitSystem(messages []Message) (string, []Message) {
	var (
		system []string
		rest   = make([]Message, 0, len(messages))
	)

	for _, m := range messages {
		if m.Role == RoleSystem {
			if m.Content != "" {
				system = append(system, m.Content)
			}

			continue
		}

		rest = append(rest, m)
	}

	return strings.Join(system, "\n\n"), rest
}

// MergeSystemIntoUser folds system content into the first user turn for
// models that reject the system role. With no user turn the system content
// becomes one.
func MergeSystemIntoUser(messages []Message) []Message {
	system, rest := SplitSystem(messages)
	if system == "" {
		return rest
	}

	for i, m := range rest {
		if m.Role != RoleUser {
			continue
		}

		merged := make([]Message, len(rest))
		copy(merged, rest)
		merged[i] = Message{Role: RoleUser, Content: system + "\n\n" + m.Content}

		return merged
	}

	return append([]Message{{Role: RoleUser, Content: system}}, rest...)
}

// hasAnyPrefix reports whether the model id, stripped of any "vendor/"
// namespace, starts with one of prefixes.
func hasAnyPrefix(model string, prefixes ...string) bool {
	model = strings.ToLower(model)
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}

	for _, p := range prefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}

	return false
}

func never(string) bool  { return false }
func always(string) bool { return true }

// TokenMapping names the usage fields of one vendor response shape.
type TokenMapping struct {
	InputTokens  string
	OutputTokens string
}

var (
	OpenAITokenMapping    = TokenMapping{InputTokens: "usage.prompt_tokens", OutputTokens: "usage.completion_tokens"}
	AnthropicTokenMapping = TokenMapping{InputTokens: "usage.input_tokens", OutputTokens: "usage.output_tokens"}
	GeminiTokenMapping    = TokenMapping{InputTokens: "usageMetadata.promptTokenCount", OutputTokens: "usageMetadata.candidatesTokenCount"}
	OllamaTokenMapping    = TokenMapping{InputTokens: "prompt_eval_count", OutputTokens: "eval_count"}
)

// Usage is the token accounting a vendor reported for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// ParseUsage reads reported token usage from a response body. The zero value
// means the vendor reported nothing.
func ParseUsage(data []byte) Usage {
	if !gjson.ValidBytes(data) {
		return Usage{}
	}

	for _, m := range []TokenMapping{OpenAITokenMapping, AnthropicTokenMapping, GeminiTokenMapping, OllamaTokenMapping} {
		in := gjson.GetBytes(data, m.InputTokens)
		out := gjson.GetBytes(data, m.OutputTokens)

		if in.Exists() || out.Exists() {
			return Usage{InputTokens: int(in.Int()), OutputTokens: int(out.Int())}
		}
	}

	return Usage{}
}

// textAt returns the string at path, or "" for anything that isn't valid JSON.
func textAt(data []byte, path string) string {
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return ""
	}

	return gjson.GetBytes(data, path).String()
}

// joinTexts concatenates every string matched by a gjson multipath query.
func joinTexts(data []byte, path string) string {
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return ""
	}

	var b strings.Builder

	for _, r := range gjson.GetBytes(data, path).Array() {
		b.WriteString(r.String())
	}

	return b.String()
}
