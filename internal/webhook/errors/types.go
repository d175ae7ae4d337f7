// Package errors defines the failure taxonomy for calls to the automation backend
// and classifies arbitrary errors into it.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType categorizes webhook failures for user messaging and retry decisions.
type ErrorType string

const (
	// ErrorTypeNetwork indicates the backend could not be reached (retryable).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeHTTP indicates the backend answered with a non-2xx status (retryable).
	ErrorTypeHTTP ErrorType = "http"

	// ErrorTypeRateLimit indicates the local outbound limiter refused the call (retryable).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeTimeout indicates the request deadline was exceeded (retryable).
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypePrecondition indicates a local precondition failed; nothing was sent.
	ErrorTypePrecondition ErrorType = "precondition"

	// ErrorTypeValidation indicates the request itself was malformed (non-retryable).
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = "unknown"
)

var (
	// ErrNoEndpoint indicates a request had no endpoint, resume handle or default URL.
	ErrNoEndpoint = errors.New("no webhook endpoint configured")

	// ErrRateLimitExceeded indicates the outbound rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrBackendUnavailable indicates the backend could not be reached.
	ErrBackendUnavailable = errors.New("automation backend unavailable")
)

// HTTPError is a non-2xx answer from the backend.
type HTTPError struct {
	Action     string `json:"action"`
	StatusCode int    `json:"status_code"`
	Status     string `json:"status"`
	Body       string `json:"body"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("webhook %s failed: HTTP %d %s", e.Action, e.StatusCode, e.Status)
}

// NetworkError is a transport-level failure before any HTTP status was received.
type NetworkError struct {
	Action string `json:"action"`
	URL    string `json:"url"`
	Cause  error  `json:"-"`
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("webhook %s unreachable at %s: %v", e.Action, e.URL, e.Cause)
}

func (e *NetworkError) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrBackendUnavailable) match any network failure.
func (e *NetworkError) Is(target error) bool { return target == ErrBackendUnavailable }

// RateLimitError reports a refused call with the wait until a token is available.
type RateLimitError struct {
	RetryAfter time.Duration `json:"retry_after"`
	Limit      float64       `json:"limit"`
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (%.2f req/s), retry after %s", e.Limit, e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimitExceeded }

// GetRetryAfter returns the recommended wait before retrying.
func (e *RateLimitError) GetRetryAfter() time.Duration { return e.RetryAfter }
