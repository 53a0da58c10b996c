package features

import (
	"time"

	"github.com/mihaisavezi/llmpanel/internal/storage"
)

const (
	HistoryKey = "translation_history"
	MaxHistory = 50
	// fewShotExamples is how many recent translations are shown to the model.
	fewShotExamples = 3
)

type HistoryEntry struct {
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Timestamp time.Time `json:"timestamp"`
}

// History is the bounded list of past translations, oldest first.
type History struct {
	store *storage.Store
}

func (h *History) Append(e HistoryEntry) error {
	return storage.AppendBounded(h.store, HistoryKey, e, MaxHistory)
}

func (h *History) List() ([]HistoryEntry, error) {
	return storage.List[HistoryEntry](h.store, HistoryKey)
}

// Recent returns up to n of the newest entries, oldest first.
func (h *History) Recent(n int) ([]HistoryEntry, error) {
	list, err := h.List()
	if err != nil {
		return nil, err
	}

	if len(list) > n {
		list = list[len(list)-n:]
	}

	return list, nil
}

func (h *History) Clear() error {
	return h.store.Delete(HistoryKey)
}
