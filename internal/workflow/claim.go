package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-intake/internal/submission"
)

// Activity names registered by the worker.
const (
	SubmitTicketActivity     = "SubmitTicket"
	SendNotificationActivity = "SendNotification"
)

const defaultActivityTimeout = 30 * time.Second

// SubmissionRequest is the workflow input.
type SubmissionRequest struct {
	Claim submission.Claim `json:"claim"`
	// TicketAttempts bounds ticket retries. Values below one mean one attempt.
	TicketAttempts int32 `json:"ticket_attempts"`
	// ActivityTimeout bounds each backend call. Zero means 30s.
	ActivityTimeout time.Duration `json:"activity_timeout"`
}

// ClaimSubmissionWorkflow creates the ticket and then sends the notification
// email. A failed notification is recorded in the result and does not fail
// the workflow.
func ClaimSubmissionWorkflow(ctx workflow.Context, req SubmissionRequest) (*submission.Result, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "claim_submission.v", workflow.DefaultVersion, currentVersion)

	if err := req.Claim.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"invalid claim submission",
			"Validation",
			err,
		)
	}

	attempts := req.TicketAttempts
	if attempts < 1 {
		attempts = 1
	}
	timeout := req.ActivityTimeout
	if timeout <= 0 {
		timeout = defaultActivityTimeout
	}

	ticketCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    attempts,
		},
	})
	if err := workflow.ExecuteActivity(ticketCtx, SubmitTicketActivity, req.Claim).Get(ctx, nil); err != nil {
		return nil, err
	}

	res := &submission.Result{Title: req.Claim.Title, Priority: req.Claim.Priority}

	notifyCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})
	if err := workflow.ExecuteActivity(notifyCtx, SendNotificationActivity, req.Claim).Get(ctx, nil); err != nil {
		workflow.GetLogger(ctx).Error("notification email failed",
			"session_id", req.Claim.SessionID,
			"error", err)
		res.NotificationError = err.Error()
		return res, nil
	}
	res.NotificationSent = true
	return res, nil
}
