package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mihaisavezi/llmpanel/internal/executor"
	"github.com/mihaisavezi/llmpanel/internal/features"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to write response", "error", err)
	}
}

// statusFor maps feature and executor errors to HTTP statuses.
func statusFor(err error) (int, string) {
	var exhausted *executor.ExhaustedError

	switch {
	case features.IsValidation(err):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, features.ErrNeedsConfiguration):
		return http.StatusPreconditionFailed, "needs_configuration"
	case errors.As(err, &exhausted):
		return http.StatusBadGateway, "provider_failed"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code := statusFor(err)

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "status", status, "error", err)
	} else {
		logger.Debug("Request rejected", "status", status, "error", err)
	}

	writeJSON(w, logger, status, errorBody{Error: err.Error(), Code: code})
}
