package executor

import (
	"log/slog"
	"time"
)

type EventKind string

const (
	EventRetry     EventKind = "retry"
	EventFallback  EventKind = "fallback"
	EventExhausted EventKind = "exhausted"
)

// Event describes one retry, fallback or final failure.
type Event struct {
	Kind     EventKind
	Provider string
	Model    string
	Attempt  int
	Delay    time.Duration
	Err      error

	NextProvider string
	NextModel    string
}

// Notifier surfaces executor events to the user.
type Notifier interface {
	Notify(Event)
}

type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// LogNotifier writes events to a structured logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(e Event) {
	attrs := []any{"provider", e.Provider, "model", e.Model, "attempt", e.Attempt}
	if e.Err != nil {
		attrs = append(attrs, "error", e.Err)
	}

	switch e.Kind {
	case EventRetry:
		n.Logger.Warn("Retrying request", append(attrs, "delay", e.Delay)...)
	case EventFallback:
		n.Logger.Warn("Falling back", append(attrs, "next_provider", e.NextProvider, "next_model", e.NextModel)...)
	case EventExhausted:
		n.Logger.Error("All models failed", attrs...)
	}
}
