package llm

import (
	"errors"
	"strings"
)

// ErrEmptyCompletion indicates the provider returned no usable text.
// Treated as transient: some backends intermittently return empty choices.
var ErrEmptyCompletion = errors.New("empty completion")

// transientMarkers are substrings of provider error messages that indicate
// a retryable condition. Everything else propagates immediately.
var transientMarkers = []string{
	"rate limit",
	"rate_limit",
	"too many requests",
	"429",
	"overloaded",
	"server is busy",
	"try again",
}

// isTransient classifies an error as retryable. Empty completions and
// rate-limit style responses are transient; auth, malformed-request and
// network failures are not.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEmptyCompletion) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
