// Package worker registers the claim submission workflow and activities with a
// Temporal worker, and submits claims through Temporal from the API side.
package worker

import (
	sdkactivity "go.temporal.io/sdk/activity"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-intake/internal/activity"
	"github.com/ahrav/go-intake/internal/workflow"
	base "github.com/ahrav/go-intake/pkg/activity"
	"github.com/ahrav/go-intake/pkg/events"
)

// RegisterAll registers the workflow and its activities. It must be called once
// during worker startup, before the worker is started. A nil sink disables
// activity events.
func RegisterAll(w sdkworker.Worker, ticketer activity.Ticketer, sink events.EventSink) {
	if sink == nil {
		sink = events.NewNoOpEventSink()
	}
	acts := activity.NewActivities(base.NewBaseActivities(sink), ticketer)

	w.RegisterWorkflow(workflow.ClaimSubmissionWorkflow)
	w.RegisterActivityWithOptions(acts.SubmitTicket, sdkactivity.RegisterOptions{Name: workflow.SubmitTicketActivity})
	w.RegisterActivityWithOptions(acts.SendNotification, sdkactivity.RegisterOptions{Name: workflow.SendNotificationActivity})
}
