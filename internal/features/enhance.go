package features

import (
	"context"

	"github.com/mihaisavezi/llmpanel/internal/providers"
)

type EnhancementResult struct {
	Enhanced     string   `json:"enhanced"`
	Tone         string   `json:"tone"`
	Improvements []string `json:"improvements"`
	Suggestions  []string `json:"suggestions"`
}

type Enhancer struct {
	core *Core

	Tone string
}

func NewEnhancer(core *Core) *Enhancer {
	return &Enhancer{core: core}
}

func (e *Enhancer) Run(ctx context.Context, text string) (*Outcome[EnhancementResult], error) {
	return run(ctx, e.core, job[EnhancementResult]{
		feature:     "enhance",
		text:        text,
		limit:       TextLimit,
		variant:     e.Tone,
		messages:    []providers.Message{system(enhancePrompt(e.Tone)), user(text)},
		maxTokens:   2048,
		temperature: 0.5,
		parse: func(x *extraction) EnhancementResult {
			return EnhancementResult{
				Enhanced:     x.str("enhanced"),
				Tone:         x.str("tone"),
				Improvements: x.strs("improvements"),
				Suggestions:  x.strs("suggestions"),
			}
		},
		degrade: func(reply string) EnhancementResult {
			return EnhancementResult{
				Enhanced:     reply,
				Improvements: []string{},
				Suggestions:  []string{},
			}
		},
	})
}
