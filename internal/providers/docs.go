/*
Package providers implements the vendor adapter layer of llmpanel.

Every supported LLM vendor is one Provider implementation that turns the
vendor-neutral Request into that vendor's JSON body and pulls the reply text
back out of its response. The Registry holds one adapter per vendor for the
lifetime of the process, tracks which one is active, and owns per-model health
and the fallback chains.

# Provider Implementation Guide

## Provider Interface

	type Provider interface {
		Name() string
		Endpoint(model string) string
		Headers() map[string]string
		FormatRequest(model string, req Request) ([]byte, error)
		ParseResponse(data []byte) string
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

The model is always passed in explicitly. The executor builds a Target
{Provider, Model} per call and never changes the adapter's selected model, so
concurrent calls falling back to different models cannot interfere.

## Request Flow

 1. A feature service builds a Request with system and user messages
 2. The executor takes a Target snapshot from the Registry
 3. FormatRequest produces the vendor body for Target.Model
 4. The body is POSTed to Endpoint(model) with Headers()
 5. ParseResponse extracts the reply text

## Wire Formats

OpenAI-compatible vendors (OpenRouter, OpenAI, DeepSeek, Grok, Groq, Together,
Morph) embed openAICompatible and only set their endpoint and model predicates:

	{"model": "...", "messages": [{"role": "system", "content": "..."}], "max_tokens": 1024, "temperature": 0.3}

Reasoning models (IsO1Style) get their system content merged into the first
user message, max_completion_tokens instead of max_tokens, and no temperature.

Anthropic moves system content to a top-level field:

	{"model": "...", "system": "...", "messages": [{"role": "user", "content": "..."}], "max_tokens": 1024}

Gemini uses contents/parts, calls the assistant role "model" and carries the
key in the query string:

	{"contents": [{"role": "user", "parts": [{"text": "..."}]}], "systemInstruction": {"parts": [{"text": "..."}]}}

Ollama posts to {baseURL}/api/chat with generation settings under "options".

## Parsing

ParseResponse and ParseStreamChunk use gjson paths and return "" for empty,
malformed or unexpected bodies. They never panic.

## Adding a Provider

 1. For an OpenAI-compatible API, embed openAICompatible and call
    newOpenAICompatible with the name, endpoint and default model
 2. Otherwise embed settings and implement the remaining methods
 3. Register it in Registry.Initialize
 4. Add its chain to DefaultFallbackChains
 5. Cover FormatRequest and ParseResponse in the table tests
*/
package providers
