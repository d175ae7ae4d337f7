// Package activity provides common infrastructure for Temporal activity
// implementations: workflow context extraction, safe logging, heartbeats and
// best-effort event emission.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"github.com/ahrav/go-intake/pkg/events"
)

// WorkflowContext contains metadata extracted from the Temporal activity context.
type WorkflowContext struct {
	WorkflowID string
	RunID      string
	ActivityID string
	Attempt    int32
}

// IdempotencyKey is stable across retries of the same activity in one run.
func (w WorkflowContext) IdempotencyKey(eventType string) string {
	return w.WorkflowID + "/" + w.RunID + "/" + w.ActivityID + "/" + eventType
}

// BaseActivities provides common infrastructure for activity types. It works
// both in Temporal activity contexts and in plain unit tests.
type BaseActivities struct {
	eventSink  events.EventSink
	retryDelay time.Duration
}

// DefaultEmitRetryDelay is the pause before the second append of an event.
const DefaultEmitRetryDelay = 200 * time.Millisecond

// NewBaseActivities creates a BaseActivities. A nil sink disables emission.
func NewBaseActivities(sink events.EventSink) BaseActivities {
	return BaseActivities{eventSink: sink, retryDelay: DefaultEmitRetryDelay}
}

// WithRetryDelay returns a copy of b that waits d before retrying an append.
func (b BaseActivities) WithRetryDelay(d time.Duration) BaseActivities {
	b.retryDelay = d
	return b
}

// GetWorkflowContext extracts workflow execution details from ctx. Outside an
// activity (where activity.GetInfo panics) it returns placeholder IDs.
func (b *BaseActivities) GetWorkflowContext(ctx context.Context) WorkflowContext {
	var wfCtx WorkflowContext

	func() {
		defer func() {
			if r := recover(); r != nil {
				wfCtx.WorkflowID = "local-" + uuid.NewString()[:8]
				wfCtx.RunID = "local-run"
				wfCtx.ActivityID = "local-activity"
				wfCtx.Attempt = 1
			}
		}()

		info := activity.GetInfo(ctx)
		wfCtx.WorkflowID = info.WorkflowExecution.ID
		wfCtx.RunID = info.WorkflowExecution.RunID
		wfCtx.ActivityID = info.ActivityID
		wfCtx.Attempt = info.Attempt
	}()

	return wfCtx
}

// emitAttempts bounds sink appends per event.
const emitAttempts = 2

// EmitEventSafe stamps envelope with the execution identity from wfCtx and
// appends it to the sink. A failed append is retried once after the configured
// delay. Failures are logged, never returned.
func (b *BaseActivities) EmitEventSafe(ctx context.Context, wfCtx WorkflowContext, envelope events.Envelope) {
	if b.eventSink == nil {
		return
	}
	envelope.WorkflowID = wfCtx.WorkflowID
	envelope.RunID = wfCtx.RunID
	envelope.IdempotencyKey = wfCtx.IdempotencyKey(envelope.Type)

	err := b.eventSink.Append(ctx, envelope)
	for attempt := 1; err != nil && attempt < emitAttempts; attempt++ {
		timer := time.NewTimer(b.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			SafeLogError(ctx, "Event emission cancelled", "event_type", envelope.Type, "error", err)
			return
		case <-timer.C:
		}
		err = b.eventSink.Append(ctx, envelope)
	}
	if err != nil {
		SafeLogError(ctx, "Event emission failed",
			"event_type", envelope.Type,
			"attempts", emitAttempts,
			"error", err)
		return
	}
	SafeLog(ctx, "Event emitted", "event_type", envelope.Type, "idempotency_key", envelope.IdempotencyKey)
}

// RecordHeartbeat records a heartbeat, or does nothing outside an activity.
func (b *BaseActivities) RecordHeartbeat(ctx context.Context, details ...any) {
	RecordHeartbeat(ctx, details...)
}

// SafeLog logs through the activity logger, or does nothing outside an activity.
func SafeLog(ctx context.Context, msg string, keyvals ...any) {
	defer func() { _ = recover() }()
	activity.GetLogger(ctx).Info(msg, keyvals...)
}

// SafeLogError is SafeLog at error level.
func SafeLogError(ctx context.Context, msg string, keyvals ...any) {
	defer func() { _ = recover() }()
	activity.GetLogger(ctx).Error(msg, keyvals...)
}

// RecordHeartbeat records a heartbeat, or does nothing outside an activity.
func RecordHeartbeat(ctx context.Context, details ...any) {
	defer func() { _ = recover() }()
	activity.RecordHeartbeat(ctx, details...)
}
