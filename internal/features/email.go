package features

import (
	"context"

	"github.com/mihaisavezi/llmpanel/internal/providers"
)

type EmailResult struct {
	Subject     string   `json:"subject"`
	Greeting    string   `json:"greeting"`
	Body        string   `json:"body"`
	Closing     string   `json:"closing"`
	KeyPoints   []string `json:"key_points"`
	Suggestions []string `json:"suggestions"`
}

type EmailFormatter struct {
	core *Core

	Tone      string
	Recipient string
}

func NewEmailFormatter(core *Core) *EmailFormatter {
	return &EmailFormatter{core: core}
}

func (f *EmailFormatter) Run(ctx context.Context, text string) (*Outcome[EmailResult], error) {
	return run(ctx, f.core, job[EmailResult]{
		feature:     "email",
		text:        text,
		limit:       TextLimit,
		variant:     f.Tone + "|" + f.Recipient,
		messages:    []providers.Message{system(emailPrompt(f.Tone, f.Recipient)), user(text)},
		maxTokens:   2048,
		temperature: 0.5,
		parse: func(x *extraction) EmailResult {
			return EmailResult{
				Subject:     x.str("subject"),
				Greeting:    x.str("greeting"),
				Body:        x.str("body"),
				Closing:     x.str("closing"),
				KeyPoints:   x.strs("key_points"),
				Suggestions: x.strs("suggestions"),
			}
		},
		degrade: func(reply string) EmailResult {
			return EmailResult{
				Body:        reply,
				KeyPoints:   []string{},
				Suggestions: []string{},
			}
		},
	})
}
