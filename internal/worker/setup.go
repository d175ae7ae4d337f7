package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	sdklog "go.temporal.io/sdk/log"

	"github.com/ahrav/go-intake/internal/activity"
	"github.com/ahrav/go-intake/internal/configuration"
	"github.com/ahrav/go-intake/internal/submission"
	whkerrors "github.com/ahrav/go-intake/internal/webhook/errors"
	"github.com/ahrav/go-intake/internal/workflow"
)

// Dial connects to the Temporal frontend described by cfg.
func Dial(cfg configuration.TemporalConfig, logger *slog.Logger) (client.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    sdklog.NewStructuredLogger(logger.With("component", "temporal")),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to temporal at %s: %w", cfg.HostPort, err)
	}
	return c, nil
}

// TemporalSubmitter runs each submission as a ClaimSubmissionWorkflow and waits
// for its result.
type TemporalSubmitter struct {
	client          client.Client
	taskQueue       string
	attempts        int32
	runTimeout      time.Duration
	activityTimeout time.Duration
}

var _ submission.Submitter = (*TemporalSubmitter)(nil)

// NewTemporalSubmitter returns a Submitter backed by c.
func NewTemporalSubmitter(c client.Client, cfg configuration.TemporalConfig) *TemporalSubmitter {
	return &TemporalSubmitter{
		client:          c,
		taskQueue:       cfg.TaskQueue,
		attempts:        cfg.TicketAttempts,
		runTimeout:      cfg.RunTimeout,
		activityTimeout: cfg.ActivityTimeout,
	}
}

// Submit implements submission.Submitter. Activity failures come back with the
// same classification a direct submission would report.
func (t *TemporalSubmitter) Submit(ctx context.Context, claim submission.Claim) (*submission.Result, error) {
	opts := client.StartWorkflowOptions{
		ID:                       fmt.Sprintf("claim-%s-%s", claim.SessionID, uuid.NewString()[:8]),
		TaskQueue:                t.taskQueue,
		WorkflowExecutionTimeout: t.runTimeout,
	}
	run, err := t.client.ExecuteWorkflow(ctx, opts, workflow.ClaimSubmissionWorkflow, workflow.SubmissionRequest{
		Claim:           claim,
		TicketAttempts:  t.attempts,
		ActivityTimeout: t.activityTimeout,
	})
	if err != nil {
		return nil, &whkerrors.WorkflowError{
			Type:      whkerrors.ErrorTypeNetwork,
			Message:   "start claim submission: " + err.Error(),
			Code:      "TEMPORAL_UNAVAILABLE",
			Retryable: true,
			Cause:     err,
		}
	}

	var res submission.Result
	if err := run.Get(ctx, &res); err != nil {
		return nil, activity.FromApplicationError(err)
	}
	return &res, nil
}
