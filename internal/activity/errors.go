package activity

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-intake/internal/submission"
	whkerrors "github.com/ahrav/go-intake/internal/webhook/errors"
)

// ErrorTypeValidation tags claims that cannot be submitted as they are. It is
// never retried.
const ErrorTypeValidation = "Validation"

// nonRetryable wraps an error as a Temporal non-retryable application error.
// The tag categorizes the error for monitoring and for mapping back on the
// caller's side.
func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

// toApplicationError converts a dispatcher failure into an application error
// whose type is the webhook classification. Retryability follows the
// classification; the HTTP status travels as the error's details.
func toApplicationError(err error, msg string) error {
	if errors.Is(err, submission.ErrIncompleteClaim) {
		return nonRetryable(ErrorTypeValidation, err, msg)
	}

	wfe := whkerrors.Classify(err)
	var details []any
	if code, ok := wfe.Details["status_code"].(int); ok {
		details = append(details, code)
	}
	if !wfe.Retryable {
		return temporal.NewNonRetryableApplicationError(msg, string(wfe.Type), err, details...)
	}
	return temporal.NewApplicationErrorWithCause(msg, string(wfe.Type), err, details...)
}

// FromApplicationError restores the webhook classification carried by an
// activity failure so callers outside Temporal can report it the same way as a
// direct call. Errors without an application error are returned unchanged.
func FromApplicationError(err error) error {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) {
		return err
	}
	if appErr.Type() == ErrorTypeValidation {
		return errors.Join(submission.ErrIncompleteClaim, err)
	}

	wfe := &whkerrors.WorkflowError{
		Type:      whkerrors.ErrorType(appErr.Type()),
		Message:   appErr.Message(),
		Retryable: !appErr.NonRetryable(),
		Cause:     err,
	}
	var code int
	if appErr.HasDetails() && appErr.Details(&code) == nil {
		wfe.Details = map[string]any{"status_code": code}
	}
	return wfe
}
