package providers

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mihaisavezi/llmpanel/internal/config"
)

var ErrUnknownProvider = errors.New("unknown provider")

// SettingsStore persists provider choices. config.Manager implements it.
type SettingsStore interface {
	Update(fn func(*config.Config)) error
}

// Registry manages provider instances, the active provider and model health.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	order     []string
	current   string
	fallbacks map[string][]string

	store  SettingsStore
	health *Health
	logger *slog.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		current:   OpenRouterName,
		fallbacks: make(map[string][]string),
		health:    NewHealth(time.Now),
		logger:    slog.New(slog.DiscardHandler),
	}
}

// Initialize registers all built-in providers
func (r *Registry) Initialize() {
	r.Register(NewOpenRouterProvider())
	r.Register(NewAnthropicProvider())
	r.Register(NewOpenAIProvider())
	r.Register(NewGoogleProvider())
	r.Register(NewDeepSeekProvider())
	r.Register(NewGrokProvider())
	r.Register(NewGroqProvider())
	r.Register(NewTogetherProvider())
	r.Register(NewOllamaProvider())
	r.Register(NewMorphProvider())
}

func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// SetStore makes every Save* call persist through store.
func (r *Registry) SetStore(store SettingsStore) {
	r.mu.Lock()
	r.store = store
	r.mu.Unlock()
}

// SetClock replaces the health clock and forgets recorded failures.
func (r *Registry) SetClock(now func() time.Time) {
	r.mu.Lock()
	r.health = NewHealth(now)
	r.mu.Unlock()
}

// Register adds a provider to the registry
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[provider.Name()]; !exists {
		r.order = append(r.order, provider.Name())
	}

	r.providers[provider.Name()] = provider
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, exists := r.providers[name]

	return provider, exists
}

// List returns all registered provider names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}

// Current returns the active adapter, OpenRouter when the stored choice is unknown.
func (r *Registry) Current() Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.providers[r.current]; ok {
		return p
	}

	return r.providers[OpenRouterName]
}

func (r *Registry) CurrentName() string {
	if p := r.Current(); p != nil {
		return p.Name()
	}

	return ""
}

// Target snapshots the active adapter and its selected model for one call.
func (r *Registry) Target() Target {
	p := r.Current()
	if p == nil {
		return Target{}
	}

	return Target{Provider: p, Model: p.Model()}
}

func (r *Registry) SetCurrent(name string) error {
	if _, ok := r.Get(name); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	r.mu.Lock()
	r.current = name
	r.mu.Unlock()

	r.log().Info("Active provider changed", "provider", name)

	return r.persist(func(c *config.Config) { c.ActiveProvider = name })
}

func (r *Registry) SaveAPIKey(name, key string) error {
	p, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	p.SetAPIKey(key)

	return r.persist(func(c *config.Config) {
		c.UpdateProvider(name, func(ps *config.ProviderSettings) { ps.APIKey = key })
	})
}

func (r *Registry) SaveModel(name, model string) error {
	p, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}

	p.SetModel(model)

	return r.persist(func(c *config.Config) {
		c.UpdateProvider(name, func(ps *config.ProviderSettings) { ps.Model = model })
	})
}

func (r *Registry) SaveOllamaURL(baseURL string) error {
	p, ok := r.Get("ollama")
	if !ok {
		return fmt.Errorf("%w: ollama", ErrUnknownProvider)
	}

	if o, ok := p.(*OllamaProvider); ok {
		o.SetBaseURL(baseURL)
	}

	return r.persist(func(c *config.Config) {
		c.UpdateProvider("ollama", func(ps *config.ProviderSettings) { ps.BaseURL = baseURL })
	})
}

func (r *Registry) persist(fn func(*config.Config)) error {
	r.mu.RLock()
	store := r.store
	r.mu.RUnlock()

	if store == nil {
		return nil
	}

	if err := store.Update(fn); err != nil {
		return fmt.Errorf("persist provider settings: %w", err)
	}

	return nil
}

// Restore applies persisted settings to the adapters. Keys from
// LLMPANEL_<PROVIDER>_API_KEY take precedence and are never written back.
func (r *Registry) Restore(cfg *config.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, p := range r.providers {
		ps := cfg.Provider(name)

		if ps.APIKey != "" {
			p.SetAPIKey(ps.APIKey)
		}

		if key, ok := os.LookupEnv(EnvKeyName(name)); ok && key != "" {
			p.SetAPIKey(key)
		}

		if ps.Model != "" {
			p.SetModel(ps.Model)
		}

		if ps.BaseURL != "" {
			if s, ok := p.(EndpointSetter); ok {
				s.SetEndpoint(ps.BaseURL)
			}
		}

		if len(ps.Fallbacks) > 0 {
			r.fallbacks[name] = append([]string(nil), ps.Fallbacks...)
		}
	}

	if _, ok := r.providers[cfg.ActiveProvider]; ok {
		r.current = cfg.ActiveProvider
	} else if cfg.ActiveProvider != "" {
		r.logger.Warn("Unknown active provider in settings, using default",
			"provider", cfg.ActiveProvider, "default", OpenRouterName)
		r.current = OpenRouterName
	}
}

// EnvKeyName is the environment variable consulted for name's API key.
func EnvKeyName(name string) string {
	return "LLMPANEL_" + strings.ToUpper(name) + "_API_KEY"
}

// Fallbacks returns the chain for name: the settings override if present,
// otherwise the built-in default.
func (r *Registry) Fallbacks(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if chain, ok := r.fallbacks[name]; ok {
		return append([]string(nil), chain...)
	}

	return append([]string(nil), DefaultFallbackChains[name]...)
}

// NextFallbackModel picks the next model for the active provider.
func (r *Registry) NextFallbackModel(current string, tried []string) (Fallback, bool) {
	return r.NextFallbackFor(r.CurrentName(), current, tried)
}

// NextFallbackFor scans provider's chain, then OpenRouter's when provider is
// exhausted and an OpenRouter key is set. Current, tried and unavailable
// models are skipped.
func (r *Registry) NextFallbackFor(provider, current string, tried []string) (Fallback, bool) {
	if model, ok := pickFallback(r.Fallbacks(provider), current, tried, r.IsModelAvailable); ok {
		return Fallback{Model: model}, true
	}

	if provider == OpenRouterName {
		return Fallback{}, false
	}

	or, ok := r.Get(OpenRouterName)
	if !ok || or.APIKey() == "" {
		return Fallback{}, false
	}

	if model, ok := pickFallback(r.Fallbacks(OpenRouterName), current, tried, r.IsModelAvailable); ok {
		return Fallback{Model: model, SwitchProvider: OpenRouterName}, true
	}

	return Fallback{}, false
}

func (r *Registry) IsModelAvailable(model string) bool {
	return r.healthTracker().IsAvailable(model)
}

func (r *Registry) TrackModelSuccess(model string) {
	r.healthTracker().TrackSuccess(model)
}

func (r *Registry) TrackModelFailure(model string) {
	rec := r.healthTracker().TrackFailure(model)

	if !rec.Available {
		r.log().Warn("Model marked unavailable", "model", model, "failures", rec.FailureCount)
	} else {
		r.log().Debug("Model failure recorded", "model", model, "failures", rec.FailureCount)
	}
}

func (r *Registry) HealthSnapshot() map[string]ModelHealth {
	return r.healthTracker().Snapshot()
}

func (r *Registry) ResetHealth() {
	r.healthTracker().Reset()
}

func (r *Registry) healthTracker() *Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.health
}

func (r *Registry) log() *slog.Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.logger
}
