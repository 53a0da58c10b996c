package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/mihaisavezi/llmpanel/internal/providers"
)

const (
	BaseDelay  = 1000 * time.Millisecond
	MaxDelay   = 10000 * time.Millisecond
	MaxRetries = 3
)

// Registry is the part of providers.Registry the executor needs.
type Registry interface {
	Target() providers.Target
	Get(name string) (providers.Provider, bool)
	TrackModelSuccess(model string)
	TrackModelFailure(model string)
	NextFallbackFor(provider, current string, tried []string) (providers.Fallback, bool)
}

// CallFunc performs one attempt against target.
type CallFunc func(ctx context.Context, target providers.Target) (string, error)

type Options struct {
	// MaxRetries bounds retries and fallback switches together.
	MaxRetries        int
	ShowNotifications bool
	Fallback          bool
}

func DefaultOptions() Options {
	return Options{MaxRetries: MaxRetries, ShowNotifications: true, Fallback: true}
}

type Result struct {
	Text      string
	Provider  string
	Model     string
	Attempts  int
	FellBack  bool
	RequestID string
}

type Executor struct {
	registry Registry
	notifier Notifier
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

func New(registry Registry, notifier Notifier, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}

	return &Executor{
		registry: registry,
		notifier: notifier,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// SetSleeper replaces the backoff sleep, for tests.
func (e *Executor) SetSleeper(sleep func(ctx context.Context, d time.Duration) error) {
	e.sleep = sleep
}

// ExecuteWithFallback runs call against the registry's current target,
// retrying transient failures with exponential backoff and moving down the
// fallback chain when the error suggests another model may succeed. The
// registry's adapters are never modified.
func (e *Executor) ExecuteWithFallback(ctx context.Context, call CallFunc, opts Options) (*Result, error) {
	start := e.registry.Target()
	if start.Provider == nil {
		return nil, fmt.Errorf("execute: %w", ErrAllModelsFailed)
	}

	requestID := RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
		ctx = WithRequestID(ctx, requestID)
	}

	logger := e.logger.With("request_id", requestID)

	var (
		target   = start
		tried    = []string{start.Model}
		retries  int
		attempts int
		lastErr  error
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("execute: %w", err)
		}

		attempts++

		text, err := call(ctx, target)
		if err == nil {
			e.registry.TrackModelSuccess(target.Model)

			logger.Debug("Request succeeded", "provider", target.Provider.Name(), "model", target.Model, "attempts", attempts)

			return &Result{
				Text:      text,
				Provider:  target.Provider.Name(),
				Model:     target.Model,
				Attempts:  attempts,
				FellBack:  target.Model != start.Model || target.Provider.Name() != start.Provider.Name(),
				RequestID: requestID,
			}, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("execute: %w", ctxErr)
		}

		lastErr = err
		e.registry.TrackModelFailure(target.Model)

		logger.Debug("Attempt failed", "provider", target.Provider.Name(), "model", target.Model,
			"attempt", attempts, "error", err)

		if IsRetryable(err) && retries < opts.MaxRetries {
			delay := Delay(retries)
			retries++

			e.notify(opts, Event{
				Kind: EventRetry, Provider: target.Provider.Name(), Model: target.Model,
				Attempt: attempts, Delay: delay, Err: err,
			})

			if err := e.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("execute: %w", err)
			}

			continue
		}

		if opts.Fallback && IsFallbackEligible(err) {
			if next, ok := e.nextTarget(target, tried); ok {
				e.notify(opts, Event{
					Kind: EventFallback, Provider: target.Provider.Name(), Model: target.Model,
					Attempt: attempts, Err: err,
					NextProvider: next.Provider.Name(), NextModel: next.Model,
				})

				target = next
				tried = append(tried, next.Model)
				retries++

				continue
			}
		}

		e.notify(opts, Event{
			Kind: EventExhausted, Provider: target.Provider.Name(), Model: target.Model,
			Attempt: attempts, Err: lastErr,
		})

		return nil, &ExhaustedError{Attempts: attempts, Tried: tried, Err: lastErr}
	}
}

func (e *Executor) nextTarget(current providers.Target, tried []string) (providers.Target, bool) {
	fb, ok := e.registry.NextFallbackFor(current.Provider.Name(), current.Model, tried)
	if !ok {
		return providers.Target{}, false
	}

	if fb.SwitchProvider == "" {
		return providers.Target{Provider: current.Provider, Model: fb.Model}, true
	}

	p, ok := e.registry.Get(fb.SwitchProvider)
	if !ok {
		return providers.Target{}, false
	}

	return providers.Target{Provider: p, Model: fb.Model}, true
}

func (e *Executor) notify(opts Options, ev Event) {
	if opts.ShowNotifications {
		e.notifier.Notify(ev)
	}
}

// Delay returns the wait before retry n (0-based): 1s doubling per retry,
// capped at 10s.
func Delay(n int) time.Duration {
	b := newBackOff()

	d := b.NextBackOff()
	for range n {
		d = b.NextBackOff()
	}

	return d
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = BaseDelay
	b.MaxInterval = MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	return b
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type requestIDKey struct{}

// WithRequestID tags ctx so executor logs can be correlated with the caller.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
