package features

import (
	"time"

	"github.com/mihaisavezi/llmpanel/internal/storage"
)

const (
	FeedbackKey = "feedback_log"
	MaxFeedback = 100
)

type FeedbackEntry struct {
	Feature   string    `json:"feature"`
	Input     string    `json:"input,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Feedback is the bounded log of user ratings.
type Feedback struct {
	store *storage.Store
	now   func() time.Time
}

// Record validates and appends e. A zero Timestamp is set to now.
func (f *Feedback) Record(e FeedbackEntry) error {
	if e.Rating < 1 || e.Rating > 5 {
		return ErrInvalidRating
	}

	if e.Timestamp.IsZero() {
		e.Timestamp = f.now()
	}

	return storage.AppendBounded(f.store, FeedbackKey, e, MaxFeedback)
}

func (f *Feedback) List() ([]FeedbackEntry, error) {
	return storage.List[FeedbackEntry](f.store, FeedbackKey)
}
