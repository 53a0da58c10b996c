// Package features turns raw user text into prompts, runs them through the
// executor and parses the structured reply.
package features

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mihaisavezi/llmpanel/internal/cache"
	"github.com/mihaisavezi/llmpanel/internal/executor"
	"github.com/mihaisavezi/llmpanel/internal/providers"
	"github.com/mihaisavezi/llmpanel/internal/storage"
	"github.com/mihaisavezi/llmpanel/internal/usage"
)

// Outcome wraps a feature result. Degraded is set when the reply held no
// parseable JSON and Value was built from the raw text instead.
type Outcome[T any] struct {
	Value    T              `json:"result"`
	Raw      map[string]any `json:"raw,omitempty"`
	Degraded bool           `json:"degraded"`
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Cached   bool           `json:"cached"`
	Attempts int            `json:"attempts,omitempty"`
}

type Registry interface {
	Current() providers.Provider
}

type Runner interface {
	ExecuteWithFallback(ctx context.Context, call executor.CallFunc, opts executor.Options) (*executor.Result, error)
}

type Completer interface {
	Complete(ctx context.Context, target providers.Target, req providers.Request) (*executor.Response, error)
	Stream(ctx context.Context, target providers.Target, req providers.Request, onDelta func(string)) (*executor.Response, error)
}

type deltaKey struct{}

// WithDeltas makes feature calls on ctx stream the reply, handing each text
// chunk to fn as it arrives. Providers that cannot stream deliver the whole
// reply as one chunk. Cached results produce no chunks.
func WithDeltas(ctx context.Context, fn func(string)) context.Context {
	return context.WithValue(ctx, deltaKey{}, fn)
}

func deltasFrom(ctx context.Context) func(string) {
	fn, _ := ctx.Value(deltaKey{}).(func(string))
	return fn
}

// Config wires a Core. Cache and Counter are optional.
type Config struct {
	Registry Registry
	Executor Runner
	Client   Completer
	Store    *storage.Store
	Cache    *cache.Cache[any]
	Counter  *usage.Counter
	Logger   *slog.Logger
	Options  executor.Options
	Now      func() time.Time
}

// Core holds what every feature service shares.
type Core struct {
	registry Registry
	executor Runner
	client   Completer
	cache    *cache.Cache[any]
	counter  *usage.Counter
	logger   *slog.Logger
	opts     executor.Options
	now      func() time.Time

	History  *History
	Feedback *Feedback
}

func NewCore(cfg Config) *Core {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if cfg.Store == nil {
		cfg.Store = storage.NewMemory()
	}

	return &Core{
		registry: cfg.Registry,
		executor: cfg.Executor,
		client:   cfg.Client,
		cache:    cfg.Cache,
		counter:  cfg.Counter,
		logger:   cfg.Logger,
		opts:     cfg.Options,
		now:      cfg.Now,
		History:  &History{store: cfg.Store},
		Feedback: &Feedback{store: cfg.Store, now: cfg.Now},
	}
}

// job describes one feature call.
type job[T any] struct {
	feature     string
	text        string
	limit       int
	variant     string
	messages    []providers.Message
	maxTokens   int
	temperature float64

	parse   func(*extraction) T
	degrade func(reply string) T
}

func run[T any](ctx context.Context, c *Core, j job[T]) (*Outcome[T], error) {
	if err := validate(j.text, j.limit); err != nil {
		return nil, err
	}

	current := c.registry.Current()
	if current == nil || (current.RequiresAPIKey() && current.APIKey() == "") {
		return nil, ErrNeedsConfiguration
	}

	key := cache.Key(j.feature, current.Name(), current.Model(), j.variant, j.text)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			if cached, ok := v.(Outcome[T]); ok {
				cached.Cached = true
				c.logger.Debug("Serving cached result", "feature", j.feature)

				return &cached, nil
			}
		}
	}

	req := providers.Request{
		Messages:    j.messages,
		MaxTokens:   j.maxTokens,
		Temperature: j.temperature,
	}

	var reported providers.Usage

	onDelta := deltasFrom(ctx)

	call := func(ctx context.Context, target providers.Target) (string, error) {
		var (
			resp *executor.Response
			err  error
		)

		if onDelta != nil {
			resp, err = c.client.Stream(ctx, target, req, onDelta)
		} else {
			resp, err = c.client.Complete(ctx, target, req)
		}

		if err != nil {
			return "", err
		}

		reported = resp.Usage

		return resp.Text, nil
	}

	res, err := c.executor.ExecuteWithFallback(ctx, call, c.opts)
	if err != nil {
		c.logger.Error("Feature request failed", "feature", j.feature, "error", err)
		return nil, fmt.Errorf("%s: %w", j.feature, err)
	}

	c.recordUsage(req, res.Text, reported)

	out := &Outcome[T]{
		Provider: res.Provider,
		Model:    res.Model,
		Attempts: res.Attempts,
	}

	ext, err := extractJSON(res.Text)
	if err != nil {
		c.logger.Warn("Could not parse model reply, returning plain text", "feature", j.feature,
			"provider", res.Provider, "model", res.Model, "error", err)

		out.Value = j.degrade(strings.TrimSpace(res.Text))
		out.Degraded = true

		return out, nil
	}

	out.Value = j.parse(ext)
	out.Raw = ext.raw

	if c.cache != nil {
		c.cache.Add(key, *out)
	}

	return out, nil
}

func (c *Core) recordUsage(req providers.Request, reply string, reported providers.Usage) {
	if c.counter == nil {
		return
	}

	tokens := reported.Total()
	if tokens == 0 {
		for _, m := range req.Messages {
			tokens += c.counter.Count(m.Content)
		}

		tokens += c.counter.Count(reply)
	}

	if _, err := c.counter.Add(tokens); err != nil {
		c.logger.Warn("Failed to record token usage", "error", err)
	}
}

func system(prompt string) providers.Message {
	return providers.Message{Role: providers.RoleSystem, Content: prompt}
}

func user(content string) providers.Message {
	return providers.Message{Role: providers.RoleUser, Content: content}
}

func assistant(content string) providers.Message {
	return providers.Message{Role: providers.RoleAssistant, Content: content}
}
