package features

import (
	"fmt"
	"strings"
)

const jsonOnly = "Respond with a single JSON object and nothing else. Do not wrap it in markdown."

func translatePrompt(targetLanguage, formality string, examples []HistoryEntry) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a professional translator. Detect the language of the user's text and translate it into %s.
Preserve meaning, tone and formatting. If the text is already in %s, translate it into English instead.
`, targetLanguage, targetLanguage)

	if formality != "" {
		fmt.Fprintf(&b, "Use a %s register.\n", formality)
	}

	if len(examples) > 0 {
		b.WriteString("\nRecent translations by this user, keep terminology consistent with them:\n")

		for _, ex := range examples {
			fmt.Fprintf(&b, "- %q => %q\n", ex.Input, ex.Output)
		}
	}

	b.WriteString(`
Return this shape:
{"translation": "...", "detected_language": "...", "target_language": "...", "formality": "formal|informal|neutral",
 "alternatives": ["..."], "notes": ["..."]}
`)
	b.WriteString(jsonOnly)

	return b.String()
}

func enhancePrompt(tone string) string {
	var b strings.Builder

	b.WriteString(`You are an editor. Improve the user's text for clarity, grammar and flow without changing its meaning.
`)

	if tone != "" {
		fmt.Fprintf(&b, "Target tone: %s.\n", tone)
	}

	b.WriteString(`
Return this shape:
{"enhanced": "...", "tone": "...", "improvements": ["..."], "suggestions": ["..."]}
`)
	b.WriteString(jsonOnly)

	return b.String()
}

func emailPrompt(tone, recipient string) string {
	var b strings.Builder

	b.WriteString(`You turn rough notes into a well-formed email. Keep every fact from the notes and invent none.
`)

	if tone != "" {
		fmt.Fprintf(&b, "Tone: %s.\n", tone)
	}

	if recipient != "" {
		fmt.Fprintf(&b, "Recipient: %s.\n", recipient)
	}

	b.WriteString(`
Return this shape:
{"subject": "...", "greeting": "...", "body": "...", "closing": "...", "key_points": ["..."], "suggestions": ["..."]}
`)
	b.WriteString(jsonOnly)

	return b.String()
}

const agentPrompt = `You are an analyst. Answer the user's request about the text they provide, building on the earlier
exchanges in this conversation when relevant.

Return this shape:
{"answer": "...", "summary": "...", "key_points": ["..."], "action_items": ["..."], "follow_up_questions": ["..."]}
` + jsonOnly
