package features

import (
	"context"
	"strings"

	"github.com/mihaisavezi/llmpanel/internal/providers"
)

type TranslationResult struct {
	Translation      string   `json:"translation"`
	DetectedLanguage string   `json:"detected_language"`
	TargetLanguage   string   `json:"target_language"`
	Formality        string   `json:"formality"`
	Alternatives     []string `json:"alternatives"`
	Notes            []string `json:"notes"`
}

type Translator struct {
	core *Core

	TargetLanguage string
	// Formality is an optional register hint such as "formal".
	Formality string
}

func NewTranslator(core *Core, targetLanguage string) *Translator {
	if targetLanguage == "" {
		targetLanguage = "English"
	}

	return &Translator{core: core, TargetLanguage: targetLanguage}
}

// Run translates text. Only parsed results are added to the history.
func (t *Translator) Run(ctx context.Context, text string) (*Outcome[TranslationResult], error) {
	examples, err := t.core.History.Recent(fewShotExamples)
	if err != nil {
		t.core.logger.Warn("Failed to read translation history", "error", err)
	}

	out, err := run(ctx, t.core, job[TranslationResult]{
		feature:     "translate",
		text:        text,
		limit:       TextLimit,
		variant:     t.TargetLanguage + "|" + t.Formality,
		messages:    []providers.Message{system(translatePrompt(t.TargetLanguage, t.Formality, examples)), user(text)},
		maxTokens:   2048,
		temperature: 0.3,
		parse: func(e *extraction) TranslationResult {
			return TranslationResult{
				Translation:      e.str("translation"),
				DetectedLanguage: e.str("detected_language"),
				TargetLanguage:   e.str("target_language"),
				Formality:        e.str("formality"),
				Alternatives:     e.strs("alternatives"),
				Notes:            e.strs("notes"),
			}
		},
		degrade: func(reply string) TranslationResult {
			return TranslationResult{
				Translation:    reply,
				TargetLanguage: t.TargetLanguage,
				Alternatives:   []string{},
				Notes:          []string{},
			}
		},
	})
	if err != nil {
		return nil, err
	}

	if !out.Degraded && !out.Cached {
		entry := HistoryEntry{
			Input:     strings.TrimSpace(text),
			Output:    out.Value.Translation,
			Timestamp: t.core.now(),
		}

		if err := t.core.History.Append(entry); err != nil {
			t.core.logger.Warn("Failed to save translation history", "error", err)
		}
	}

	return out, nil
}
