package executor

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrAllModelsFailed = errors.New("all models failed")

// APIError is a non-2xx reply from a vendor.
type APIError struct {
	StatusCode int
	Message    string
	Provider   string
	Model      string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s/%s: HTTP %d: %s", e.Provider, e.Model, e.StatusCode, e.Message)
}

// NetworkError is a transport failure before any HTTP status was received.
type NetworkError struct {
	Provider string
	Model    string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s/%s: network error: %v", e.Provider, e.Model, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ExhaustedError is returned once retries and fallbacks have run out.
type ExhaustedError struct {
	Attempts int
	Tried    []string
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%v after %d attempts (%s): %v",
		ErrAllModelsFailed, e.Attempts, strings.Join(e.Tried, ", "), e.Err)
}

func (e *ExhaustedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAllModelsFailed}
	}

	return []error{ErrAllModelsFailed, e.Err}
}

// IsRetryable reports rate limits, server errors and network failures.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}

	var netErr *NetworkError

	return errors.As(err, &netErr)
}

// IsFallbackEligible reports errors another model might not hit: rate
// limits, unknown models, server errors and capacity complaints.
func IsFallbackEligible(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests,
			apiErr.StatusCode == http.StatusNotFound,
			apiErr.StatusCode >= 500:
			return true
		}
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "overload") || strings.Contains(msg, "capacity")
}

var errorMessagePaths = []string{
	"error.message",
	"error",
	"message",
	"detail",
	"error_description",
	"msg",
}

// errorMessage pulls a readable message out of an error body, trying the
// field names vendors commonly use.
func errorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range errorMessagePaths {
			r := gjson.GetBytes(body, path)
			if r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return http.StatusText(status)
	}

	return truncate(text, maxErrorMessage)
}

const maxErrorMessage = 200

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	cut := 0
	for i := range s {
		if i > n {
			break
		}

		cut = i
	}

	return s[:cut] + "..."
}
