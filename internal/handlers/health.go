package handlers

import (
	"log/slog"
	"net/http"
)

type CurrentProvider interface {
	CurrentName() string
}

type HealthHandler struct {
	registry CurrentProvider
	logger   *slog.Logger
}

func NewHealthHandler(registry CurrentProvider, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		registry: registry,
		logger:   logger,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{
		"status":          "ok",
		"active_provider": h.registry.CurrentName(),
	})
}
