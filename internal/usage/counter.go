// Package usage keeps a running total of tokens spent across requests.
package usage

import (
	"log/slog"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/mihaisavezi/llmpanel/internal/storage"
)

const (
	StateKey = "token_count"
	Encoding = "cl100k_base"
)

// Encoder turns text into tokens. *tiktoken.Tiktoken implements it.
type Encoder interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
}

type Counter struct {
	store  *storage.Store
	logger *slog.Logger

	once    sync.Once
	encoder Encoder
	load    func() (Encoder, error)
}

// NewCounter returns a counter that loads the tiktoken encoding on first use.
func NewCounter(store *storage.Store, logger *slog.Logger) *Counter {
	return &Counter{
		store:  store,
		logger: logger,
		load: func() (Encoder, error) {
			return tiktoken.GetEncoding(Encoding)
		},
	}
}

// NewCounterWithEncoder uses enc directly. A nil enc falls back to the
// four-characters-per-token estimate.
func NewCounterWithEncoder(store *storage.Store, enc Encoder, logger *slog.Logger) *Counter {
	return &Counter{
		store:  store,
		logger: logger,
		load:   func() (Encoder, error) { return enc, nil },
	}
}

// Count estimates the number of tokens in text.
func (c *Counter) Count(text string) int {
	c.once.Do(func() {
		enc, err := c.load()
		if err != nil {
			c.logger.Warn("Failed to get tiktoken encoding, using estimate", "error", err)
			return
		}

		c.encoder = enc
	})

	if c.encoder != nil {
		return len(c.encoder.Encode(text, nil, nil))
	}

	n := utf8.RuneCountInString(text)

	return (n + 3) / 4
}

// Add records n tokens and returns the new total.
func (c *Counter) Add(n int) (int, error) {
	var total int

	err := storage.Update(c.store, StateKey, func(cur int) int {
		total = cur + n
		return total
	})

	return total, err
}

func (c *Counter) Total() int {
	var total int
	if _, err := c.store.Get(StateKey, &total); err != nil {
		c.logger.Warn("Failed to read token total", "error", err)
	}

	return total
}

func (c *Counter) Reset() error {
	return c.store.Delete(StateKey)
}
