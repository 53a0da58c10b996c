package providers

import (
	"sync"
	"time"
)

const (
	// FailureThreshold is the number of consecutive failures that takes a
	// model out of rotation.
	FailureThreshold = 3
	// RecoveryWindow is how long after its last failure a model is trusted again.
	RecoveryWindow = 5 * time.Minute
)

type ModelHealth struct {
	FailureCount int       `json:"failure_count"`
	Available    bool      `json:"available"`
	LastFailure  time.Time `json:"last_failure,omitempty"`
}

// Health tracks per-model failures in memory.
type Health struct {
	mu      sync.Mutex
	records map[string]*ModelHealth
	now     func() time.Time
}

func NewHealth(now func() time.Time) *Health {
	if now == nil {
		now = time.Now
	}

	return &Health{
		records: make(map[string]*ModelHealth),
		now:     now,
	}
}

// heal resets a record whose last failure is older than the recovery window.
// Callers hold mu.
func (h *Health) heal(rec *ModelHealth) {
	if rec.FailureCount > 0 && h.now().Sub(rec.LastFailure) >= RecoveryWindow {
		rec.FailureCount = 0
		rec.Available = true
		rec.LastFailure = time.Time{}
	}
}

func (h *Health) IsAvailable(model string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.records[model]
	if !ok {
		return true
	}

	h.heal(rec)

	return rec.Available
}

func (h *Health) TrackSuccess(model string) {
	h.mu.Lock()
	h.records[model] = &ModelHealth{Available: true}
	h.mu.Unlock()
}

// TrackFailure records one failure and returns the updated record.
func (h *Health) TrackFailure(model string) ModelHealth {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.records[model]
	if !ok {
		rec = &ModelHealth{Available: true}
		h.records[model] = rec
	}

	h.heal(rec)

	rec.FailureCount++
	rec.LastFailure = h.now()

	if rec.FailureCount >= FailureThreshold {
		rec.Available = false
	}

	return *rec
}

// Snapshot returns a copy of every record, healed as of now.
func (h *Health) Snapshot() map[string]ModelHealth {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]ModelHealth, len(h.records))
	for model, rec := range h.records {
		h.heal(rec)
		out[model] = *rec
	}

	return out
}

func (h *Health) Reset() {
	h.mu.Lock()
	h.records = make(map[string]*ModelHealth)
	h.mu.Unlock()
}
