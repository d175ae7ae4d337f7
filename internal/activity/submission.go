// Package activity implements the Temporal activities of the durable claim
// submission: ticket creation and the notification email.
package activity

import (
	"context"
	"time"

	"github.com/ahrav/go-intake/internal/submission"
	base "github.com/ahrav/go-intake/pkg/activity"
	"github.com/ahrav/go-intake/pkg/events"
)

const eventSource = "claim-submission"

// Ticketer performs the two backend calls of a submission.
type Ticketer interface {
	CreateTicket(ctx context.Context, claim submission.Claim) error
	Notify(ctx context.Context, claim submission.Claim) error
}

// Activities wraps a Ticketer for registration with a Temporal worker.
type Activities struct {
	base.BaseActivities
	ticketer Ticketer
	now      func() time.Time
}

// NewActivities returns the submission activities.
func NewActivities(b base.BaseActivities, ticketer Ticketer) *Activities {
	return &Activities{BaseActivities: b, ticketer: ticketer, now: time.Now}
}

// SubmitTicket sends the claim_submitted request.
func (a *Activities) SubmitTicket(ctx context.Context, claim submission.Claim) error {
	wfCtx := a.GetWorkflowContext(ctx)
	base.SafeLog(ctx, "Submitting claim ticket",
		"session_id", claim.SessionID,
		"workflow_id", wfCtx.WorkflowID,
		"attempt", wfCtx.Attempt)

	if err := a.ticketer.CreateTicket(ctx, claim); err != nil {
		base.SafeLogError(ctx, "Ticket submission failed", "session_id", claim.SessionID, "error", err)
		return toApplicationError(err, "create ticket")
	}

	a.emit(ctx, wfCtx, events.TypeTicketCreated, claim, map[string]any{
		"title":    claim.Title,
		"priority": claim.Priority,
	})
	return nil
}

// SendNotification sends the confirmation email request.
func (a *Activities) SendNotification(ctx context.Context, claim submission.Claim) error {
	wfCtx := a.GetWorkflowContext(ctx)
	if err := a.ticketer.Notify(ctx, claim); err != nil {
		base.SafeLogError(ctx, "Notification failed", "session_id", claim.SessionID, "error", err)
		return toApplicationError(err, "send notification")
	}
	a.emit(ctx, wfCtx, events.TypeNotification, claim, map[string]any{"email": claim.Email})
	return nil
}

func (a *Activities) emit(
	ctx context.Context,
	wfCtx base.WorkflowContext,
	eventType string,
	claim submission.Claim,
	payload any,
) {
	env, err := events.NewEnvelope(eventType, eventSource, claim.SessionID, payload, a.now())
	if err != nil {
		base.SafeLogError(ctx, "Event encoding failed", "event_type", eventType, "error", err)
		return
	}
	env.ExecutionID = claim.ExecutionID
	a.EmitEventSafe(ctx, wfCtx, env)
}
