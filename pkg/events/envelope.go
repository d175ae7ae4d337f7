// Package events provides the envelope and sink used to publish intake
// lifecycle events to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Intake event types.
const (
	TypeStepChanged   = "intake.step_changed"
	TypeSubmitted     = "intake.submitted"
	TypeReset         = "intake.reset"
	TypeTicketCreated = "claim.ticket_created"
	TypeNotification  = "claim.notification_sent"
)

// Envelope wraps an event payload with the metadata needed for routing,
// deduplication and correlation.
type Envelope struct {
	// ID uniquely identifies this event instance.
	ID string `json:"id"`

	// Type identifies the event for routing, e.g. "intake.step_changed".
	Type string `json:"type"`

	// Source identifies the emitting component, e.g. "intake-wizard".
	Source string `json:"source"`

	// Version enables schema evolution. Start at "1.0.0".
	Version string `json:"version"`

	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey lets sinks drop duplicates emitted during retries.
	IdempotencyKey string `json:"idempotency_key"`

	// SessionID correlates every event of one intake session.
	SessionID string `json:"session_id"`

	// ExecutionID is the backend's identifier for the workflow run, when known.
	ExecutionID string `json:"execution_id,omitempty"`

	// WorkflowID and RunID identify the Temporal execution for events emitted
	// from activities.
	WorkflowID string `json:"workflow_id,omitempty"`
	RunID      string `json:"run_id,omitempty"`

	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope builds an envelope with a fresh ID and the payload encoded as JSON.
// The idempotency key defaults to the event ID.
func NewEnvelope(eventType, source, sessionID string, payload any, now time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	id := uuid.NewString()
	return Envelope{
		ID:             id,
		Type:           eventType,
		Source:         source,
		Version:        "1.0.0",
		Timestamp:      now,
		IdempotencyKey: id,
		SessionID:      sessionID,
		Payload:        raw,
	}, nil
}

// EventSink emits events to downstream consumers.
//
// Append is best-effort: callers log failures and never fail their primary
// operation because of them.
type EventSink interface {
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards every event.
type NoOpEventSink struct{}

// Append implements EventSink.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error {
	return nil
}

// NewNoOpEventSink creates a new no-op event sink.
func NewNoOpEventSink() EventSink {
	return &NoOpEventSink{}
}

// LogSink writes each event as a structured log line. It is the default sink
// when no broker is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink writing to logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "events")}
}

// Append implements EventSink.
func (s *LogSink) Append(ctx context.Context, e Envelope) error {
	s.logger.InfoContext(ctx, "event",
		"event_id", e.ID,
		"type", e.Type,
		"source", e.Source,
		"session_id", e.SessionID,
		"execution_id", e.ExecutionID,
		"payload", string(e.Payload),
	)
	return nil
}
