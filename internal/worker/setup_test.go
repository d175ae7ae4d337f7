package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-intake/internal/configuration"
	"github.com/ahrav/go-intake/internal/submission"
	whkerrors "github.com/ahrav/go-intake/internal/webhook/errors"
	"github.com/ahrav/go-intake/internal/workflow"
)

func temporalConfig() configuration.TemporalConfig {
	cfg := configuration.DefaultConfig().Temporal
	cfg.TicketAttempts = 2
	cfg.ActivityTimeout = 5 * time.Second
	return cfg
}

func TestTemporalSubmitter_Submit(t *testing.T) {
	c := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	claim := submission.Claim{SessionID: "sess-1", Title: "T", Priority: "High"}

	c.On("ExecuteWorkflow", mock.Anything,
		mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
			return o.TaskQueue == configuration.DefaultTaskQueue && len(o.ID) > len("claim-sess-1-")
		}),
		mock.Anything,
		workflow.SubmissionRequest{Claim: claim, TicketAttempts: 2, ActivityTimeout: 5 * time.Second},
	).Return(run, nil)
	run.On("Get", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		*args.Get(1).(*submission.Result) = submission.Result{Title: "T", Priority: "High", NotificationSent: true}
	}).Return(nil)

	res, err := NewTemporalSubmitter(c, temporalConfig()).Submit(context.Background(), claim)
	require.NoError(t, err)
	assert.True(t, res.NotificationSent)
	c.AssertExpectations(t)
	run.AssertExpectations(t)
}

func TestTemporalSubmitter_StartFailureIsRetryable(t *testing.T) {
	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused"))

	_, err := NewTemporalSubmitter(c, temporalConfig()).Submit(context.Background(), submission.Claim{SessionID: "s"})
	require.Error(t, err)
	assert.True(t, whkerrors.IsRetryable(err))
}

func TestTemporalSubmitter_ActivityFailureKeepsClassification(t *testing.T) {
	c := &mocks.Client{}
	run := &mocks.WorkflowRun{}
	c.On("ExecuteWorkflow", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(run, nil)
	run.On("Get", mock.Anything, mock.Anything).
		Return(temporal.NewApplicationError("create ticket", string(whkerrors.ErrorTypeHTTP), 502))

	_, err := NewTemporalSubmitter(c, temporalConfig()).Submit(context.Background(), submission.Claim{SessionID: "s"})

	wfe := whkerrors.Classify(err)
	assert.Equal(t, whkerrors.ErrorTypeHTTP, wfe.Type)
	assert.True(t, wfe.Retryable)
	assert.Equal(t, "The server returned an error (HTTP 502). Please try again.", wfe.UserMessage())
}
