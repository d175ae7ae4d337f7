package submission

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ahrav/go-intake/internal/webhook"
)

// Result is the outcome of a successful ticket submission. A failed
// notification is recorded here and never turns the submission into a failure.
type Result struct {
	Title             string `json:"title"`
	Priority          string `json:"priority"`
	NotificationSent  bool   `json:"notification_sent"`
	NotificationError string `json:"notification_error,omitempty"`
}

// Submitter delivers an assembled claim.
type Submitter interface {
	Submit(ctx context.Context, claim Claim) (*Result, error)
}

// Dispatcher submits claims directly through the webhook transport.
type Dispatcher struct {
	backend   webhook.Handler
	ticketURL string
	logger    *slog.Logger
}

var _ Submitter = (*Dispatcher)(nil)

// NewDispatcher returns a Dispatcher posting tickets to ticketURL. An empty
// ticketURL posts the ticket to the claim's resume handle instead.
func NewDispatcher(backend webhook.Handler, ticketURL string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		backend:   backend,
		ticketURL: ticketURL,
		logger:    logger.With("component", "submission"),
	}
}

// Submit creates the ticket and, once it succeeds, sends the notification email.
func (d *Dispatcher) Submit(ctx context.Context, claim Claim) (*Result, error) {
	if err := d.CreateTicket(ctx, claim); err != nil {
		return nil, err
	}

	res := &Result{Title: claim.Title, Priority: claim.Priority}
	if err := d.Notify(ctx, claim); err != nil {
		d.logger.ErrorContext(ctx, "notification email failed",
			"session_id", claim.SessionID,
			"execution_id", claim.ExecutionID,
			"error", err)
		res.NotificationError = err.Error()
		return res, nil
	}
	res.NotificationSent = true
	return res, nil
}

// CreateTicket sends the claim_submitted request.
func (d *Dispatcher) CreateTicket(ctx context.Context, claim Claim) error {
	if err := claim.Validate(); err != nil {
		return err
	}
	req, err := TicketRequest(claim, d.ticketURL)
	if err != nil {
		return err
	}
	if _, err := d.backend.Handle(ctx, req); err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	d.logger.InfoContext(ctx, "ticket submitted",
		"session_id", claim.SessionID,
		"title", claim.Title,
		"priority", claim.Priority)
	return nil
}

// Notify sends the send_email request to the claim's resume handle.
func (d *Dispatcher) Notify(ctx context.Context, claim Claim) error {
	req, err := NotificationRequest(claim)
	if err != nil {
		return err
	}
	if _, err := d.backend.Handle(ctx, req); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// TicketRequest builds the claim_submitted request for claim.
func TicketRequest(claim Claim, ticketURL string) (*webhook.Request, error) {
	req := &webhook.Request{
		Action:      webhook.ActionClaimSubmitted,
		TargetURL:   claim.ResumeHandle,
		Endpoint:    ticketURL,
		ExecutionID: claim.ExecutionID,
	}
	req.Set("category", claim.SupportType)
	req.Set("title", claim.Title)
	req.Set("priority", claim.Priority)
	req.Set("description", claim.Description)
	if err := commonFields(req, claim); err != nil {
		return nil, err
	}
	req.Set("responseDetails", claim.ResponseDetails)
	return req, nil
}

// NotificationRequest builds the send_email request for claim.
func NotificationRequest(claim Claim) (*webhook.Request, error) {
	req := &webhook.Request{
		Action:      webhook.ActionSendEmail,
		TargetURL:   claim.ResumeHandle,
		ExecutionID: claim.ExecutionID,
		Step:        webhook.StepEmailNotification,
	}
	if err := commonFields(req, claim); err != nil {
		return nil, err
	}
	return req, nil
}

func commonFields(req *webhook.Request, claim Claim) error {
	if err := req.SetJSON("products", claim.Products); err != nil {
		return err
	}
	req.Set("issueDescription", claim.IssueText)
	req.Set("resolutionSought", claim.ResolutionText)
	req.Set("notificationEmail", claim.Email)
	req.Set("supportType", claim.SupportType)
	req.Set("webhookResponse", claim.Narrative)
	req.Set("analysisResult", claim.Narrative)
	req.SetOptional("customerName", claim.Customer.Name)
	req.SetOptional("vendor", claim.Customer.Vendor)
	req.SetOptional("invoiceNumber", claim.Customer.InvoiceNumber)
	req.SetOptional("invoiceId", claim.Customer.InvoiceID)
	req.SetOptional("warrantyStatus", claim.WarrantyStatus)
	req.AttachFile("invoice", claim.Invoice)
	return nil
}
