package provider

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for recognized upstream failure modes.
// These can be checked with errors.Is().
var (
	// ErrRateLimited indicates the provider's rate limit has been exceeded.
	ErrRateLimited = errors.New("provider: rate limit exceeded")

	// ErrUnauthorized indicates the credential was rejected upstream.
	ErrUnauthorized = errors.New("provider: invalid API key")
)

// UpstreamError wraps a failure reported by a provider's API.
type UpstreamError struct {
	Provider   Key    // which provider failed
	StatusCode int    // HTTP status code, when one applies
	Message    string // message from the provider
	Err        error  // wrapped sentinel, when the condition is recognized
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Provider.Label(), e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider.Label(), e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Classify wraps an upstream HTTP failure, attaching the matching sentinel
// for statuses this system treats specially.
func Classify(key Key, statusCode int, message string) error {
	err := &UpstreamError{Provider: key, StatusCode: statusCode, Message: message}
	switch statusCode {
	case http.StatusTooManyRequests:
		err.Err = ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		err.Err = ErrUnauthorized
	}
	return err
}

// UserMessage renders err for display in a provider panel. Recognized
// conditions are rewritten into actionable text instead of the raw upstream
// message.
func UserMessage(key Key, err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return fmt.Sprintf("%s rate limit exceeded. Wait a moment and try again, or check your plan's quota.", key.Label())
	case errors.Is(err, ErrUnauthorized):
		return fmt.Sprintf("%s rejected the API key. Check the key in settings.", key.Label())
	default:
		return err.Error()
	}
}
