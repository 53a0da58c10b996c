package handlers

import (
	"log/slog"
	"net/http"

	"github.com/mihaisavezi/llmpanel/internal/providers"
)

type ProviderInfo struct {
	Name       string   `json:"name"`
	Model      string   `json:"model"`
	Active     bool     `json:"active"`
	Configured bool     `json:"configured"`
	Local      bool     `json:"local"`
	Streaming  bool     `json:"streaming"`
	Free       bool     `json:"free"`
	Fallbacks  []string `json:"fallbacks"`
}

type ProvidersHandler struct {
	registry *providers.Registry
	logger   *slog.Logger
}

func NewProvidersHandler(registry *providers.Registry, logger *slog.Logger) *ProvidersHandler {
	return &ProvidersHandler{registry: registry, logger: logger}
}

// Describe lists every registered provider in registration order.
func Describe(registry *providers.Registry) []ProviderInfo {
	current := registry.CurrentName()
	names := registry.List()
	out := make([]ProviderInfo, 0, len(names))

	for _, name := range names {
		p, _ := registry.Get(name)
		model := p.Model()

		out = append(out, ProviderInfo{
			Name:       name,
			Model:      model,
			Active:     name == current,
			Configured: !p.RequiresAPIKey() || p.APIKey() != "",
			Local:      p.IsLocal(),
			Streaming:  p.SupportsStreaming(),
			Free:       p.IsFree(model),
			Fallbacks:  registry.Fallbacks(name),
		})
	}

	return out
}

func (h *ProvidersHandler) List(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, Describe(h.registry))
}

func (h *ProvidersHandler) ModelHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.registry.HealthSnapshot())
}

func (h *ProvidersHandler) ResetModelHealth(w http.ResponseWriter, _ *http.Request) {
	h.registry.ResetHealth()
	h.logger.Info("Model health reset")
	w.WriteHeader(http.StatusNoContent)
}
