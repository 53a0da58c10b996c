package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mihaisavezi/llmpanel/internal/features"
)

const maxBodyBytes = 1 << 20

// FeatureRequest is the body accepted by every feature endpoint. Fields a
// feature doesn't use are ignored.
type FeatureRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language,omitempty"`
	Formality      string `json:"formality,omitempty"`
	Tone           string `json:"tone,omitempty"`
	Recipient      string `json:"recipient,omitempty"`
	ResetMemory    bool   `json:"reset_memory,omitempty"`
}

type FeatureHandler struct {
	core            *features.Core
	agent           *features.Agent
	defaultLanguage func() string
	logger          *slog.Logger
}

func NewFeatureHandler(core *features.Core, agent *features.Agent, defaultLanguage func() string, logger *slog.Logger) *FeatureHandler {
	return &FeatureHandler{
		core:            core,
		agent:           agent,
		defaultLanguage: defaultLanguage,
		logger:          logger,
	}
}

func (h *FeatureHandler) decode(w http.ResponseWriter, r *http.Request) (*FeatureRequest, bool) {
	var req FeatureRequest

	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, errorBody{
			Error: fmt.Sprintf("invalid request body: %v", err),
			Code:  "invalid_body",
		})

		return nil, false
	}

	return &req, true
}

func (h *FeatureHandler) Translate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	lang := req.TargetLanguage
	if lang == "" {
		lang = h.defaultLanguage()
	}

	t := features.NewTranslator(h.core, lang)
	t.Formality = req.Formality

	respond(w, h.logger, func() (any, error) { return t.Run(r.Context(), req.Text) })
}

func (h *FeatureHandler) Enhance(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	e := features.NewEnhancer(h.core)
	e.Tone = req.Tone

	respond(w, h.logger, func() (any, error) { return e.Run(r.Context(), req.Text) })
}

func (h *FeatureHandler) Email(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	f := features.NewEmailFormatter(h.core)
	f.Tone = req.Tone
	f.Recipient = req.Recipient

	respond(w, h.logger, func() (any, error) { return f.Run(r.Context(), req.Text) })
}

func (h *FeatureHandler) Agent(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	if req.ResetMemory {
		h.agent.Reset()
	}

	respond(w, h.logger, func() (any, error) { return h.agent.Run(r.Context(), req.Text) })
}

func respond(w http.ResponseWriter, logger *slog.Logger, fn func() (any, error)) {
	out, err := fn()
	if err != nil {
		writeError(w, logger, err)
		return
	}

	writeJSON(w, logger, http.StatusOK, out)
}
