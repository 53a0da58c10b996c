package features

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// TextLimit bounds translate, enhance and email input, in characters.
	TextLimit = 5000
	// AgentLimit bounds agent input, in characters.
	AgentLimit = 10000
)

var (
	ErrEmptyInput         = errors.New("input is empty")
	ErrNeedsConfiguration = errors.New("active provider needs an API key")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
)

type InputTooLongError struct {
	Limit  int
	Length int
}

func (e *InputTooLongError) Error() string {
	return fmt.Sprintf("input is %d characters, the limit is %d", e.Length, e.Limit)
}

// IsValidation reports errors caused by the caller's input or settings
// rather than by a provider.
func IsValidation(err error) bool {
	var tooLong *InputTooLongError

	return errors.Is(err, ErrEmptyInput) || errors.Is(err, ErrInvalidRating) || errors.As(err, &tooLong)
}

func validate(text string, limit int) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}

	if n := utf8.RuneCountInString(text); n > limit {
		return &InputTooLongError{Limit: limit, Length: n}
	}

	return nil
}
