package intake

import "github.com/ahrav/go-intake/internal/domain"

// Event is an input to Reduce.
type Event interface {
	Name() string
}

// Event names, used in logs, emitted envelopes and TransitionError.
const (
	EventStarted               = "started"
	EventInvoiceAttached       = "invoice_attached"
	EventInvoiceProcessed      = "invoice_processed"
	EventBranchDecided         = "branch_decided"
	EventProductsSelected      = "products_selected"
	EventSupportTypeSelected   = "support_type_selected"
	EventIssueTypeSelected     = "issue_type_selected"
	EventIssueTextEntered      = "issue_text_entered"
	EventResolutionSelected    = "resolution_selected"
	EventResolutionTextEntered = "resolution_text_entered"
	EventDetailsEntered        = "details_entered"
	EventEmailEntered          = "email_entered"
	EventProductsConfirmed     = "products_confirmed"
	EventIssueDescribed        = "issue_described"
	EventSubmitted             = "submitted"
	EventCountdownElapsed      = "countdown_elapsed"
	EventBack                  = "back"
	EventCancelled             = "cancelled"
	EventResponseObserved      = "response_observed"
)

// Started records the start_claim response and opens the upload step.
type Started struct{ Response domain.NormalizedResponse }

// InvoiceAttached stores (or, when nil, clears) the invoice to upload.
type InvoiceAttached struct{ Invoice *domain.FileRef }

// InvoiceProcessed applies the invoice_uploaded response: products, customer
// fields and the warranty outcome that selects the next state.
type InvoiceProcessed struct{ Response domain.NormalizedResponse }

// BranchDecided answers the open branch dialog.
type BranchDecided struct{ Proceed bool }

// ProductsSelected replaces the product selection.
type ProductsSelected struct{ Products []string }

// SupportTypeSelected picks the support category.
type SupportTypeSelected struct{ SupportType string }

// IssueTypeSelected picks the issue label for the current support type.
type IssueTypeSelected struct{ IssueType string }

// IssueTextEntered sets the free-text issue description.
type IssueTextEntered struct{ Text string }

// ResolutionSelected picks the requested resolution.
type ResolutionSelected struct{ Resolution string }

// ResolutionTextEntered sets the free-text resolution.
type ResolutionTextEntered struct{ Text string }

// DetailsEntered sets additional details sent with the ticket.
type DetailsEntered struct{ Text string }

// EmailEntered sets the notification address.
type EmailEntered struct{ Email string }

// ProductsConfirmed advances past product selection.
type ProductsConfirmed struct{}

// IssueDescribed applies the issue_described response and captures its narrative.
type IssueDescribed struct{ Response domain.NormalizedResponse }

// Submitted marks the ticket as delivered.
type Submitted struct{ Receipt domain.Receipt }

// CountdownElapsed resets a submitted session.
type CountdownElapsed struct{}

// Back returns to the preceding step.
type Back struct{}

// Cancelled abandons the session.
type Cancelled struct{}

// ResponseObserved updates only the resume handle and execution id. It is used
// for responses that arrive after the session has moved on.
type ResponseObserved struct{ Response domain.NormalizedResponse }

func (Started) Name() string               { return EventStarted }
func (InvoiceAttached) Name() string       { return EventInvoiceAttached }
func (InvoiceProcessed) Name() string      { return EventInvoiceProcessed }
func (BranchDecided) Name() string         { return EventBranchDecided }
func (ProductsSelected) Name() string      { return EventProductsSelected }
func (SupportTypeSelected) Name() string   { return EventSupportTypeSelected }
func (IssueTypeSelected) Name() string     { return EventIssueTypeSelected }
func (IssueTextEntered) Name() string      { return EventIssueTextEntered }
func (ResolutionSelected) Name() string    { return EventResolutionSelected }
func (ResolutionTextEntered) Name() string { return EventResolutionTextEntered }
func (DetailsEntered) Name() string        { return EventDetailsEntered }
func (EmailEntered) Name() string          { return EventEmailEntered }
func (ProductsConfirmed) Name() string     { return EventProductsConfirmed }
func (IssueDescribed) Name() string        { return EventIssueDescribed }
func (Submitted) Name() string             { return EventSubmitted }
func (CountdownElapsed) Name() string      { return EventCountdownElapsed }
func (Back) Name() string                  { return EventBack }
func (Cancelled) Name() string             { return EventCancelled }
func (ResponseObserved) Name() string      { return EventResponseObserved }
