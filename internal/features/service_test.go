package features

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaisavezi/llmpanel/internal/cache"
	"github.com/mihaisavezi/llmpanel/internal/executor"
	"github.com/mihaisavezi/llmpanel/internal/providers"
	"github.com/mihaisavezi/llmpanel/internal/storage"
	"github.com/mihaisavezi/llmpanel/internal/usage"
)

type fakeCompleter struct {
	mu       sync.Mutex
	reply    func(target providers.Target, req providers.Request) (*executor.Response, error)
	requests []providers.Request
	streamed int
}

func (f *fakeCompleter) Complete(_ context.Context, target providers.Target, req providers.Request) (*executor.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	return f.reply(target, req)
}

// Stream replays the reply in two chunks, as a streaming vendor would.
func (f *fakeCompleter) Stream(ctx context.Context, target providers.Target, req providers.Request, onDelta func(string)) (*executor.Response, error) {
	f.mu.Lock()
	f.streamed++
	f.mu.Unlock()

	resp, err := f.Complete(ctx, target, req)
	if err != nil {
		return nil, err
	}

	half := len(resp.Text) / 2
	onDelta(resp.Text[:half])
	onDelta(resp.Text[half:])

	return resp, nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.requests)
}

func (f *fakeCompleter) last() providers.Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.requests[len(f.requests)-1]
}

func replyText(text string) func(providers.Target, providers.Request) (*executor.Response, error) {
	return func(providers.Target, providers.Request) (*executor.Response, error) {
		return &executor.Response{Text: text}, nil
	}
}

type harness struct {
	core     *Core
	registry *providers.Registry
	fake     *fakeCompleter
	store    *storage.Store
}

func newHarness(t *testing.T, reply func(providers.Target, providers.Request) (*executor.Response, error)) *harness {
	t.Helper()

	reg := providers.NewRegistry()
	reg.Initialize()
	require.NoError(t, reg.SaveAPIKey(providers.OpenRouterName, "or-key"))

	ex := executor.New(reg, nil, nil)
	ex.SetSleeper(func(context.Context, time.Duration) error { return nil })

	fake := &fakeCompleter{reply: reply}
	store := storage.NewMemory()

	core := NewCore(Config{
		Registry: reg,
		Executor: ex,
		Client:   fake,
		Store:    store,
		Counter:  usage.NewCounterWithEncoder(store, nil, slog.New(slog.DiscardHandler)),
		Options:  executor.DefaultOptions(),
	})

	return &harness{core: core, registry: reg, fake: fake, store: store}
}

func TestExtractJSON(t *testing.T) {
	ext, err := extractJSON(`The result is: {"translation":"Hello","formality":"informal"} — done`)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"translation": "Hello", "formality": "informal"}, ext.raw)
	assert.Equal(t, "Hello", ext.str("translation"))
}

func TestExtractJSON_Failures(t *testing.T) {
	tests := []string{
		"no braces at all",
		"} backwards {",
		`{"unterminated": "x"`,
		`{not json}`,
		"",
	}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			_, err := extractJSON(in)
			assert.Error(t, err)
		})
	}
}

func TestExtraction_Lists(t *testing.T) {
	ext, err := extractJSON(`{"a":["x","",{"k":1}],"b":"single","c":null}`)
	require.NoError(t, err)

	assert.Equal(t, []string{"x", `{"k":1}`}, ext.strs("a"))
	assert.Equal(t, []string{"single"}, ext.strs("b"))
	assert.Equal(t, []string{}, ext.strs("c"))
	assert.Equal(t, []string{}, ext.strs("missing"))
}

func TestTranslator_Parsed(t *testing.T) {
	h := newHarness(t, replyText(`Sure! {"translation":"Hello","detected_language":"Spanish","formality":"informal","alternatives":["Hi"],"notes":[]}`))
	tr := NewTranslator(h.core, "English")

	out, err := tr.Run(context.Background(), "  Hola  ")
	require.NoError(t, err)

	assert.False(t, out.Degraded)
	assert.Equal(t, "Hello", out.Value.Translation)
	assert.Equal(t, "Spanish", out.Value.DetectedLanguage)
	assert.Equal(t, []string{"Hi"}, out.Value.Alternatives)
	assert.Equal(t, providers.OpenRouterName, out.Provider)
	assert.Equal(t, "informal", out.Raw["formality"])

	history, err := h.core.History.List()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Hola", history[0].Input)
	assert.Equal(t, "Hello", history[0].Output)

	req := h.fake.last()
	require.Len(t, req.Messages, 2)
	assert.Equal(t, providers.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "English")
	assert.Equal(t, "  Hola  ", req.Messages[1].Content)
}

func TestTranslator_Degraded(t *testing.T) {
	h := newHarness(t, replyText("  Hello there, friend.  \n"))
	tr := NewTranslator(h.core, "English")

	out, err := tr.Run(context.Background(), "Hola amigo")
	require.NoError(t, err)

	assert.True(t, out.Degraded)
	assert.Equal(t, "Hello there, friend.", out.Value.Translation)
	assert.Empty(t, out.Value.Alternatives)
	assert.NotNil(t, out.Value.Alternatives)
	assert.Empty(t, out.Value.Notes)
	assert.NotNil(t, out.Value.Notes)

	history, err := h.core.History.List()
	require.NoError(t, err)
	assert.Empty(t, history, "degraded results are not added to history")
}

func TestTranslator_FewShotFromHistory(t *testing.T) {
	h := newHarness(t, func(_ providers.Target, req providers.Request) (*executor.Response, error) {
		input := req.Messages[len(req.Messages)-1].Content
		return &executor.Response{Text: fmt.Sprintf(`{"translation":"EN-%s"}`, input)}, nil
	})
	tr := NewTranslator(h.core, "English")

	for _, in := range []string{"uno", "dos", "tres", "cuatro", "cinco"} {
		_, err := tr.Run(context.Background(), in)
		require.NoError(t, err)
	}

	system := h.fake.last().Messages[0].Content
	assert.NotContains(t, system, `"uno"`)
	assert.Contains(t, system, `"dos" => "EN-dos"`)
	assert.Contains(t, system, `"cuatro" => "EN-cuatro"`)
}

func TestTranslator_HistoryIsBounded(t *testing.T) {
	h := newHarness(t, func(_ providers.Target, req providers.Request) (*executor.Response, error) {
		input := req.Messages[len(req.Messages)-1].Content
		return &executor.Response{Text: fmt.Sprintf(`{"translation":%q}`, input)}, nil
	})
	tr := NewTranslator(h.core, "French")

	for i := range MaxHistory + 5 {
		_, err := tr.Run(context.Background(), fmt.Sprintf("text %d", i))
		require.NoError(t, err)
	}

	history, err := h.core.History.List()
	require.NoError(t, err)
	require.Len(t, history, MaxHistory)
	assert.Equal(t, "text 5", history[0].Input, "oldest entries are evicted first")
	assert.Equal(t, fmt.Sprintf("text %d", MaxHistory+4), history[MaxHistory-1].Input)
}

func TestValidation_NoNetworkCall(t *testing.T) {
	h := newHarness(t, replyText(`{}`))

	tests := []struct {
		name string
		run  func(string) error
		max  int
	}{
		{"translate", func(s string) error { _, err := NewTranslator(h.core, "").Run(context.Background(), s); return err }, TextLimit},
		{"enhance", func(s string) error { _, err := NewEnhancer(h.core).Run(context.Background(), s); return err }, TextLimit},
		{"email", func(s string) error { _, err := NewEmailFormatter(h.core).Run(context.Background(), s); return err }, TextLimit},
		{"agent", func(s string) error { _, err := NewAgent(h.core, 0).Run(context.Background(), s); return err }, AgentLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := h.fake.calls()

			err := tt.run(strings.Repeat("a", tt.max+1))

			var tooLong *InputTooLongError
			require.ErrorAs(t, err, &tooLong)
			assert.Equal(t, tt.max, tooLong.Limit)
			assert.Equal(t, tt.max+1, tooLong.Length)
			assert.True(t, IsValidation(err))

			require.ErrorIs(t, tt.run(" \n\t "), ErrEmptyInput)
			assert.Equal(t, before, h.fake.calls(), "validation happens before any call")

			require.NoError(t, tt.run(strings.Repeat("é", tt.max)))
			assert.Equal(t, before+1, h.fake.calls())
		})
	}
}

func TestNeedsConfiguration(t *testing.T) {
	h := newHarness(t, replyText(`{"enhanced":"x"}`))
	require.NoError(t, h.registry.SetCurrent("anthropic"))

	_, err := NewEnhancer(h.core).Run(context.Background(), "text")
	require.ErrorIs(t, err, ErrNeedsConfiguration)
	assert.Equal(t, 0, h.fake.calls())

	require.NoError(t, h.registry.SetCurrent("ollama"))

	out, err := NewEnhancer(h.core).Run(context.Background(), "text")
	require.NoError(t, err, "local providers need no key")
	assert.Equal(t, "x", out.Value.Enhanced)
}

func TestExhaustedErrorPropagates(t *testing.T) {
	h := newHarness(t, func(target providers.Target, _ providers.Request) (*executor.Response, error) {
		return nil, &executor.APIError{StatusCode: http.StatusUnauthorized, Message: "bad key", Provider: target.Provider.Name()}
	})

	_, err := NewEmailFormatter(h.core).Run(context.Background(), "notes")

	var exhausted *executor.ExhaustedError
	require.ErrorAs(t, err, &exhausted)

	var apiErr *executor.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "bad key", apiErr.Message)
	assert.False(t, IsValidation(err))
}

func TestEmailFormatter(t *testing.T) {
	h := newHarness(t, replyText(`{"subject":"Meeting","greeting":"Hi Ana,","body":"See you at 3.","closing":"Best","key_points":["3pm"]}`))
	f := NewEmailFormatter(h.core)
	f.Tone = "friendly"
	f.Recipient = "a colleague"

	out, err := f.Run(context.Background(), "meet at 3")
	require.NoError(t, err)

	assert.Equal(t, "Meeting", out.Value.Subject)
	assert.Equal(t, []string{"3pm"}, out.Value.KeyPoints)
	assert.Equal(t, []string{}, out.Value.Suggestions)

	system := h.fake.last().Messages[0].Content
	assert.Contains(t, system, "friendly")
	assert.Contains(t, system, "a colleague")
}

func TestEnhancer_Degraded(t *testing.T) {
	h := newHarness(t, replyText("Better text."))

	out, err := NewEnhancer(h.core).Run(context.Background(), "bad text")
	require.NoError(t, err)

	assert.True(t, out.Degraded)
	assert.Equal(t, "Better text.", out.Value.Enhanced)
	assert.Equal(t, []string{}, out.Value.Improvements)
}

func TestAgent_Memory(t *testing.T) {
	n := 0
	h := newHarness(t, func(providers.Target, providers.Request) (*executor.Response, error) {
		n++
		return &executor.Response{Text: fmt.Sprintf(`{"answer":"A%d"}`, n)}, nil
	})
	agent := NewAgent(h.core, 2)

	for _, q := range []string{"Q1", "Q2", "Q3"} {
		_, err := agent.Run(context.Background(), q)
		require.NoError(t, err)
	}

	req := h.fake.last()
	roles := make([]string, 0, len(req.Messages))
	contents := make([]string, 0, len(req.Messages))

	for _, m := range req.Messages {
		roles = append(roles, m.Role)
		contents = append(contents, m.Content)
	}

	assert.Equal(t, []string{"system", "user", "assistant", "user", "assistant", "user"}, roles)
	assert.Equal(t, []string{"Q1", "A1", "Q2", "A2", "Q3"}, contents[1:])

	assert.Equal(t, []Exchange{{"Q2", "A2"}, {"Q3", "A3"}}, agent.Memory())

	agent.Reset()
	assert.Empty(t, agent.Memory())
}

func TestCache_ServesRepeatedRequests(t *testing.T) {
	h := newHarness(t, replyText(`{"enhanced":"cached"}`))
	h.core.cache = cache.New[any](10, time.Hour)

	e := NewEnhancer(h.core)

	first, err := e.Run(context.Background(), "same")
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := e.Run(context.Background(), "same")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, "cached", second.Value.Enhanced)
	assert.Equal(t, 1, h.fake.calls())

	e.Tone = "formal"
	_, err = e.Run(context.Background(), "same")
	require.NoError(t, err)
	assert.Equal(t, 2, h.fake.calls(), "options are part of the key")
}

func TestUsageIsRecorded(t *testing.T) {
	h := newHarness(t, func(providers.Target, providers.Request) (*executor.Response, error) {
		return &executor.Response{Text: `{"enhanced":"x"}`, Usage: providers.Usage{InputTokens: 30, OutputTokens: 12}}, nil
	})

	_, err := NewEnhancer(h.core).Run(context.Background(), "text")
	require.NoError(t, err)

	var total int
	_, err = h.store.Get(usage.StateKey, &total)
	require.NoError(t, err)
	assert.Equal(t, 42, total)
}

func TestEndToEndThroughHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"{\"translation\":\"Bonjour\"}"},"done":true}`))
	}))
	defer server.Close()

	reg := providers.NewRegistry()
	reg.Initialize()
	require.NoError(t, reg.SetCurrent("ollama"))
	require.NoError(t, reg.SaveOllamaURL(server.URL))

	core := NewCore(Config{
		Registry: reg,
		Executor: executor.New(reg, nil, nil),
		Client:   executor.NewClient(server.Client(), nil),
		Options:  executor.DefaultOptions(),
	})

	out, err := NewTranslator(core, "French").Run(context.Background(), "Hello")
	require.NoError(t, err)

	assert.Equal(t, "Bonjour", out.Value.Translation)
	assert.Equal(t, "ollama", out.Provider)
	assert.Equal(t, "llama3.2", out.Model)
}

func TestFeedback(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	core := NewCore(Config{Now: func() time.Time { return now }})

	require.ErrorIs(t, core.Feedback.Record(FeedbackEntry{Feature: "translate", Rating: 0}), ErrInvalidRating)
	require.ErrorIs(t, core.Feedback.Record(FeedbackEntry{Feature: "translate", Rating: 6}), ErrInvalidRating)

	for i := range MaxFeedback + 3 {
		require.NoError(t, core.Feedback.Record(FeedbackEntry{Feature: "enhance", Rating: 1 + i%5, Comment: fmt.Sprint(i)}))
	}

	list, err := core.Feedback.List()
	require.NoError(t, err)
	require.Len(t, list, MaxFeedback)
	assert.Equal(t, "3", list[0].Comment)
	assert.Equal(t, now, list[0].Timestamp)
}

func TestEnhancer_StreamsDeltas(t *testing.T) {
	reply := `{"enhanced":"Clean text.","improvements":["grammar"]}`
	h := newHarness(t, replyText(reply))

	var chunks []string
	ctx := WithDeltas(context.Background(), func(d string) { chunks = append(chunks, d) })

	out, err := NewEnhancer(h.core).Run(ctx, "clean txt")
	require.NoError(t, err)

	assert.Equal(t, "Clean text.", out.Value.Enhanced)
	assert.Equal(t, 1, h.fake.streamed)
	assert.Equal(t, reply, strings.Join(chunks, ""))
}

func TestRunWithoutDeltasDoesNotStream(t *testing.T) {
	h := newHarness(t, replyText(`{"enhanced":"x"}`))

	_, err := NewEnhancer(h.core).Run(context.Background(), "x")
	require.NoError(t, err)

	assert.Equal(t, 0, h.fake.streamed)
	assert.Equal(t, 1, h.fake.calls())
}
