package activity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/ahrav/go-intake/internal/submission"
	whkerrors "github.com/ahrav/go-intake/internal/webhook/errors"
	base "github.com/ahrav/go-intake/pkg/activity"
	"github.com/ahrav/go-intake/pkg/events"
)

type stubTicketer struct {
	ticketErr error
	notifyErr error
}

func (s stubTicketer) CreateTicket(context.Context, submission.Claim) error { return s.ticketErr }
func (s stubTicketer) Notify(context.Context, submission.Claim) error       { return s.notifyErr }

type memorySink struct {
	mu        sync.Mutex
	envelopes []events.Envelope
}

func (m *memorySink) Append(_ context.Context, e events.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.envelopes = append(m.envelopes, e)
	return nil
}

func claim() submission.Claim {
	return submission.Claim{SessionID: "sess-1", Title: "T", Priority: "High", Email: "a@b.co", ExecutionID: "exec-1"}
}

func TestSubmitTicket_EmitsEvent(t *testing.T) {
	sink := &memorySink{}
	acts := NewActivities(base.NewBaseActivities(sink), stubTicketer{})

	require.NoError(t, acts.SubmitTicket(context.Background(), claim()))

	require.Len(t, sink.envelopes, 1)
	env := sink.envelopes[0]
	assert.Equal(t, events.TypeTicketCreated, env.Type)
	assert.Equal(t, "sess-1", env.SessionID)
	assert.Equal(t, "exec-1", env.ExecutionID)
	assert.Contains(t, env.IdempotencyKey, events.TypeTicketCreated)
	assert.JSONEq(t, `{"title":"T","priority":"High"}`, string(env.Payload))
}

func TestSendNotification_InActivityEnvironment(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestActivityEnvironment()
	sink := &memorySink{}
	acts := NewActivities(base.NewBaseActivities(sink), stubTicketer{})
	env.RegisterActivity(acts.SendNotification)

	_, err := env.ExecuteActivity(acts.SendNotification, claim())
	require.NoError(t, err)
	require.Len(t, sink.envelopes, 1)
	assert.Equal(t, events.TypeNotification, sink.envelopes[0].Type)
	assert.NotEmpty(t, sink.envelopes[0].WorkflowID)
}

func TestToApplicationError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantType     string
		nonRetryable bool
	}{
		{
			name:     "http failure is retryable",
			err:      &whkerrors.HTTPError{StatusCode: 502, Status: "502"},
			wantType: "http",
		},
		{
			name:     "network failure is retryable",
			err:      &whkerrors.NetworkError{Action: "claim_submitted", URL: "http://x", Cause: errors.New("refused")},
			wantType: "network",
		},
		{
			name:         "incomplete claim is a validation error",
			err:          submission.ErrIncompleteClaim,
			wantType:     ErrorTypeValidation,
			nonRetryable: true,
		},
		{
			name:         "unknown failure is not retried",
			err:          errors.New("boom"),
			wantType:     "unknown",
			nonRetryable: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var appErr *temporal.ApplicationError
			require.ErrorAs(t, toApplicationError(tt.err, "create ticket"), &appErr)
			assert.Equal(t, tt.wantType, appErr.Type())
			assert.Equal(t, tt.nonRetryable, appErr.NonRetryable())
		})
	}
}

func TestSubmitTicket_FailureDoesNotEmit(t *testing.T) {
	sink := &memorySink{}
	acts := NewActivities(base.NewBaseActivities(sink), stubTicketer{ticketErr: &whkerrors.HTTPError{StatusCode: 500}})

	err := acts.SubmitTicket(context.Background(), claim())

	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.False(t, appErr.NonRetryable())
	assert.Empty(t, sink.envelopes)
}

func TestFromApplicationError_PassesOtherErrors(t *testing.T) {
	plain := errors.New("plain")
	assert.Same(t, plain, FromApplicationError(plain))
}
