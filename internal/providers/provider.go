package providers

// Provider adapts the generic chat envelope to one vendor's HTTP API.
type Provider interface {
	Name() string

	// Endpoint returns the fully qualified URL for a call against model.
	Endpoint(model string) string
	Headers() map[string]string
	FormatRequest(model string, req Request) ([]byte, error)

	// ParseResponse extracts the reply text. It returns "" for bodies it
	// doesn't recognise.
	ParseResponse(data []byte) string
	// ParseStreamChunk extracts the text delta from one streamed event.
	ParseStreamChunk(data []byte) string

	Model() string
	SetModel(model string)
	APIKey() string
	SetAPIKey(key string)

	SupportsStreaming() bool
	IsO1Style(model string) bool
	SupportsTemperature(model string) bool
	IsFree(model string) bool
	IsLocal() bool
	RequiresAPIKey() bool
}

// EndpointSetter is implemented by adapters whose endpoint can be pointed at
// a gateway or self-hosted mirror.
type EndpointSetter interface {
	SetEndpoint(endpoint string)
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the vendor-neutral chat request envelope.
type Request struct {
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream,omitempty"`
}

// Target pins the adapter and model used for a single call. The executor
// passes targets around instead of changing the adapter's selected model.
type Target struct {
	Provider Provider
	Model    string
}

func (t Target) String() string {
	if t.Provider == nil {
		return t.Model
	}

	return t.Provider.Name() + "/" + t.Model
}
