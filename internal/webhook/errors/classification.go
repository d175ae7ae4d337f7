package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// WorkflowError carries the classification of a failed backend call.
type WorkflowError struct {
	Type      ErrorType      `json:"type"`
	Message   string         `json:"message"`
	Code      string         `json:"code"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
	Cause     error          `json:"-"`
}

func (e *WorkflowError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *WorkflowError) Unwrap() error { return e.Cause }

// UserMessage returns the wording shown to the user. Network failures and HTTP
// failures differ only in phrasing; both invite a retry.
func (e *WorkflowError) UserMessage() string {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout:
		return "Unable to connect to the server. Please check your internet connection and try again."
	case ErrorTypeHTTP:
		if code, ok := e.Details["status_code"].(int); ok {
			return fmt.Sprintf("The server returned an error (HTTP %d). Please try again.", code)
		}
		return "The server returned an error. Please try again."
	case ErrorTypeRateLimit:
		return "Too many requests. Please wait a moment and try again."
	case ErrorTypePrecondition:
		return "Resume URL not available. Please restart the claim process."
	default:
		return "Something went wrong. Please try again."
	}
}

// Classify maps err into a WorkflowError. It returns nil for a nil error and
// returns err unchanged when it is already a *WorkflowError.
func Classify(err error) *WorkflowError {
	if err == nil {
		return nil
	}

	var we *WorkflowError
	if errors.As(err, &we) {
		return we
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return &WorkflowError{
			Type:      ErrorTypeHTTP,
			Message:   httpErr.Error(),
			Code:      fmt.Sprintf("HTTP_%d", httpErr.StatusCode),
			Retryable: true,
			Details: map[string]any{
				"action":      httpErr.Action,
				"status_code": httpErr.StatusCode,
			},
			Cause: err,
		}
	}

	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return &WorkflowError{
			Type:      ErrorTypeRateLimit,
			Message:   rlErr.Error(),
			Code:      "RATE_LIMIT",
			Retryable: true,
			Details:   map[string]any{"retry_after": rlErr.RetryAfter.String()},
			Cause:     err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &WorkflowError{
			Type:      ErrorTypeTimeout,
			Message:   err.Error(),
			Code:      "TIMEOUT",
			Retryable: true,
			Cause:     err,
		}
	}

	if errors.Is(err, context.Canceled) {
		return &WorkflowError{
			Type:      ErrorTypeTimeout,
			Message:   err.Error(),
			Code:      "CANCELED",
			Retryable: true,
			Cause:     err,
		}
	}

	var netErr *NetworkError
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &netErr) || errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return &WorkflowError{
			Type:      ErrorTypeNetwork,
			Message:   err.Error(),
			Code:      "NETWORK",
			Retryable: true,
			Cause:     err,
		}
	}

	if errors.Is(err, ErrNoEndpoint) {
		return &WorkflowError{
			Type:      ErrorTypeValidation,
			Message:   err.Error(),
			Code:      "NO_ENDPOINT",
			Retryable: false,
			Cause:     err,
		}
	}

	return &WorkflowError{
		Type:      ErrorTypeUnknown,
		Message:   err.Error(),
		Code:      "UNKNOWN",
		Retryable: false,
		Cause:     err,
	}
}

// IsRetryable reports whether the user may retry the same action.
func IsRetryable(err error) bool {
	we := Classify(err)
	return we != nil && we.Retryable
}
