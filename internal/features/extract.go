package features

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

var errNoJSON = errors.New("no JSON object in reply")

// extraction is the object found in a model reply.
type extraction struct {
	span string
	raw  map[string]any
}

// extractJSON parses the span from the first "{" to the last "}" of text.
func extractJSON(text string) (*extraction, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start < 0 || end <= start {
		return nil, errNoJSON
	}

	span := text[start : end+1]

	var raw map[string]any
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return nil, err
	}

	return &extraction{span: span, raw: raw}, nil
}

func (e *extraction) str(key string) string {
	return gjson.Get(e.span, gjson.Escape(key)).String()
}

// strs reads a list field. Non-string elements keep their JSON text.
func (e *extraction) strs(key string) []string {
	out := []string{}

	r := gjson.Get(e.span, gjson.Escape(key))
	if !r.IsArray() {
		if s := r.String(); s != "" {
			out = append(out, s)
		}

		return out
	}

	for _, item := range r.Array() {
		if s := item.String(); s != "" {
			out = append(out, s)
		}
	}

	return out
}
