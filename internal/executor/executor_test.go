package executor

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaisavezi/llmpanel/internal/providers"
)

type recorder struct {
	delays []time.Duration
	events []Event
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func (r *recorder) Notify(e Event) { r.events = append(r.events, e) }

func newTestExecutor(t *testing.T, current string) (*Executor, *providers.Registry, *recorder) {
	t.Helper()

	reg := providers.NewRegistry()
	reg.Initialize()
	require.NoError(t, reg.SetCurrent(current))

	rec := &recorder{}
	ex := New(reg, rec, nil)
	ex.SetSleeper(rec.sleep)

	return ex, reg, rec
}

func alwaysFail(status int, calls *[]providers.Target) CallFunc {
	return func(_ context.Context, target providers.Target) (string, error) {
		*calls = append(*calls, target)
		return "", &APIError{StatusCode: status, Message: "nope", Provider: target.Provider.Name(), Model: target.Model}
	}
}

func TestDelay(t *testing.T) {
	expected := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		10000 * time.Millisecond,
		10000 * time.Millisecond,
	}

	for n, want := range expected {
		assert.Equal(t, want, Delay(n), "retry %d", n)
	}
}

func TestExecute_Always429RetriesMaxRetriesTimes(t *testing.T) {
	ex, _, rec := newTestExecutor(t, "google")

	var calls []providers.Target

	_, err := ex.ExecuteWithFallback(context.Background(), alwaysFail(http.StatusTooManyRequests, &calls),
		Options{MaxRetries: 3, Fallback: false})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.ErrorIs(t, err, ErrAllModelsFailed)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)

	assert.Len(t, calls, 4)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, rec.delays)

	for _, c := range calls {
		assert.Equal(t, "gemini-2.0-flash", c.Model)
	}
}

func TestExecute_Always429FallsBackAfterRetries(t *testing.T) {
	ex, reg, rec := newTestExecutor(t, "google")

	var calls []providers.Target

	_, err := ex.ExecuteWithFallback(context.Background(), alwaysFail(http.StatusTooManyRequests, &calls),
		Options{MaxRetries: 3, Fallback: true, ShowNotifications: true})
	require.Error(t, err)

	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, rec.delays)

	models := make([]string, 0, len(calls))
	for _, c := range calls {
		models = append(models, c.Model)
	}

	assert.Equal(t, []string{
		"gemini-2.0-flash", "gemini-2.0-flash", "gemini-2.0-flash", "gemini-2.0-flash",
		"gemini-1.5-flash", "gemini-1.5-pro",
	}, models)

	google, _ := reg.Get("google")
	assert.Equal(t, "gemini-2.0-flash", google.Model(), "adapter model is never changed")
	assert.False(t, reg.IsModelAvailable("gemini-2.0-flash"))

	kinds := make([]EventKind, 0, len(rec.events))
	for _, e := range rec.events {
		kinds = append(kinds, e.Kind)
	}

	assert.Equal(t, []EventKind{EventRetry, EventRetry, EventRetry, EventFallback, EventFallback, EventExhausted}, kinds)
}

func TestExecute_NotFoundFallsBackWithoutSleeping(t *testing.T) {
	ex, reg, rec := newTestExecutor(t, "anthropic")

	var calls []providers.Target

	call := func(_ context.Context, target providers.Target) (string, error) {
		calls = append(calls, target)
		if len(calls) == 1 {
			return "", &APIError{StatusCode: http.StatusNotFound, Message: "model not found"}
		}

		return "ok", nil
	}

	res, err := ex.ExecuteWithFallback(context.Background(), call, DefaultOptions())
	require.NoError(t, err)

	assert.Empty(t, rec.delays)
	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, "anthropic", res.Provider)
	assert.Equal(t, "claude-3-5-sonnet-20241022", res.Model)
	assert.Equal(t, 2, res.Attempts)
	assert.True(t, res.FellBack)
	assert.NotEmpty(t, res.RequestID)

	anthropic, _ := reg.Get("anthropic")
	assert.Equal(t, "claude-3-5-haiku-20241022", anthropic.Model())
}

func TestExecute_CrossProviderSwitch(t *testing.T) {
	ex, reg, _ := newTestExecutor(t, "morph")
	require.NoError(t, reg.SaveAPIKey(providers.OpenRouterName, "or-key"))

	call := func(_ context.Context, target providers.Target) (string, error) {
		if target.Provider.Name() == "morph" {
			return "", &APIError{StatusCode: http.StatusNotFound}
		}

		return "routed", nil
	}

	res, err := ex.ExecuteWithFallback(context.Background(), call, Options{MaxRetries: 3, Fallback: true})
	require.NoError(t, err)

	assert.Equal(t, providers.OpenRouterName, res.Provider)
	assert.Equal(t, providers.DefaultFallbackChains[providers.OpenRouterName][0], res.Model)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, "morph", reg.CurrentName(), "a cross-provider switch doesn't change the active provider")
}

func TestExecute_OverloadMessageIsFallbackEligible(t *testing.T) {
	ex, _, rec := newTestExecutor(t, "deepseek")

	calls := 0
	call := func(_ context.Context, target providers.Target) (string, error) {
		calls++
		if calls == 1 {
			return "", &APIError{StatusCode: http.StatusBadRequest, Message: "Server is overloaded"}
		}

		return target.Model, nil
	}

	res, err := ex.ExecuteWithFallback(context.Background(), call, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "deepseek-reasoner", res.Text)
	assert.Empty(t, rec.delays)
}

func TestExecute_NetworkErrorIsRetried(t *testing.T) {
	ex, reg, rec := newTestExecutor(t, "groq")

	calls := 0
	call := func(_ context.Context, target providers.Target) (string, error) {
		calls++
		if calls < 3 {
			return "", &NetworkError{Provider: "groq", Model: target.Model, Err: errors.New("connection reset")}
		}

		return "done", nil
	}

	res, err := ex.ExecuteWithFallback(context.Background(), call, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "done", res.Text)
	assert.False(t, res.FellBack)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
	assert.Equal(t, 0, reg.HealthSnapshot()[res.Model].FailureCount, "success resets health")
}

func TestExecute_ClientErrorIsTerminal(t *testing.T) {
	ex, _, rec := newTestExecutor(t, "openai")

	var calls []providers.Target

	_, err := ex.ExecuteWithFallback(context.Background(), alwaysFail(http.StatusUnauthorized, &calls), DefaultOptions())

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 1, exhausted.Attempts)
	assert.Len(t, calls, 1)
	assert.Empty(t, rec.delays)
}

func TestExecute_SharedBudget(t *testing.T) {
	ex, _, _ := newTestExecutor(t, "openai")

	var calls []providers.Target

	_, err := ex.ExecuteWithFallback(context.Background(), alwaysFail(http.StatusInternalServerError, &calls),
		Options{MaxRetries: 1, Fallback: true})
	require.Error(t, err)

	models := make([]string, 0, len(calls))
	for _, c := range calls {
		models = append(models, c.Model)
	}

	assert.Equal(t, []string{"gpt-4o-mini", "gpt-4o-mini", "gpt-4o", "gpt-4.1-mini", "gpt-3.5-turbo"}, models)
}

func TestExecute_CancelDuringBackoff(t *testing.T) {
	ex, _, _ := newTestExecutor(t, "openai")

	ctx, cancel := context.WithCancel(context.Background())
	ex.SetSleeper(func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	})

	var calls []providers.Target

	_, err := ex.ExecuteWithFallback(ctx, alwaysFail(http.StatusServiceUnavailable, &calls), DefaultOptions())
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, calls, 1)
}

func TestExecute_NotificationsCanBeSilenced(t *testing.T) {
	ex, _, rec := newTestExecutor(t, "openai")

	var calls []providers.Target

	_, err := ex.ExecuteWithFallback(context.Background(), alwaysFail(http.StatusBadGateway, &calls),
		Options{MaxRetries: 2, Fallback: true, ShowNotifications: false})
	require.Error(t, err)
	assert.Empty(t, rec.events)
}

func TestExecute_RequestIDFromContext(t *testing.T) {
	ex, _, _ := newTestExecutor(t, "openai")

	ctx := WithRequestID(context.Background(), "req-1")

	res, err := ex.ExecuteWithFallback(ctx, func(ctx context.Context, _ providers.Target) (string, error) {
		assert.Equal(t, "req-1", RequestID(ctx))
		return "x", nil
	}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "req-1", res.RequestID)
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		eligible  bool
	}{
		{"429", &APIError{StatusCode: 429}, true, true},
		{"500", &APIError{StatusCode: 500}, true, true},
		{"503", &APIError{StatusCode: 503}, true, true},
		{"404", &APIError{StatusCode: 404}, false, true},
		{"401", &APIError{StatusCode: 401}, false, false},
		{"400 capacity", &APIError{StatusCode: 400, Message: "no capacity for model"}, false, true},
		{"network", &NetworkError{Err: errors.New("dial tcp")}, true, false},
		{"plain overloaded", errors.New("engine overloaded"), false, true},
		{"plain", errors.New("boom"), false, false},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
			assert.Equal(t, tt.eligible, IsFallbackEligible(tt.err))
		})
	}
}
