package domain

import (
	"slices"
	"time"
)

// Step is the position of an intake session in the wizard.
// Steps only advance forward on explicit success: not_started -> awaiting_upload ->
// awaiting_product_selection -> awaiting_issue_description -> awaiting_resolution -> submitted.
type Step string

// Step enum values in wizard order.
const (
	StepNotStarted               Step = "not_started"
	StepAwaitingUpload           Step = "awaiting_upload"
	StepAwaitingProductSelection Step = "awaiting_product_selection"
	StepAwaitingIssueDescription Step = "awaiting_issue_description"
	StepAwaitingResolution       Step = "awaiting_resolution"
	StepSubmitted                Step = "submitted"
)

var stepOrder = []Step{
	StepNotStarted,
	StepAwaitingUpload,
	StepAwaitingProductSelection,
	StepAwaitingIssueDescription,
	StepAwaitingResolution,
	StepSubmitted,
}

// IsValid reports whether s is a recognized step.
func (s Step) IsValid() bool {
	return slices.Contains(stepOrder, s)
}

// Previous returns the step immediately before s and false when s has no predecessor
// that back-navigation may return to (not_started and submitted).
func (s Step) Previous() (Step, bool) {
	if s == StepSubmitted {
		return s, false
	}
	idx := slices.Index(stepOrder, s)
	if idx <= 0 {
		return s, false
	}
	return stepOrder[idx-1], true
}

// Branch is a blocking confirmation sub-state entered after the invoice upload when
// the backend reports a warranty condition that needs an explicit user decision.
type Branch string

// Branch enum values.
const (
	BranchNone              Branch = ""
	BranchWarrantyAvailable Branch = "warranty_available"
	BranchWarrantyExpired   Branch = "warranty_expired"
	BranchInvalidInvoice    Branch = "invalid_invoice"
)

// WarrantyStatus is the warranty outcome derived from backend text.
type WarrantyStatus string

// WarrantyStatus enum values. Unknown means no upload has been processed yet.
const (
	WarrantyUnknown   WarrantyStatus = "unknown"
	WarrantyAvailable WarrantyStatus = "available"
	WarrantyExpired   WarrantyStatus = "expired"
	WarrantyInvalid   WarrantyStatus = "invalid"
)

// FileRef is an uploaded document held by the session until submission.
type FileRef struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
	Data        []byte `json:"data,omitempty"`
}

// CustomerFields are the invoice facts extracted by the backend.
type CustomerFields struct {
	Name          string `json:"name,omitempty"`
	Vendor        string `json:"vendor,omitempty"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	InvoiceID     string `json:"invoice_id,omitempty"`
}

// Merge returns c with every non-empty field of other applied over it.
func (c CustomerFields) Merge(other CustomerFields) CustomerFields {
	if other.Name != "" {
		c.Name = other.Name
	}
	if other.Vendor != "" {
		c.Vendor = other.Vendor
	}
	if other.InvoiceNumber != "" {
		c.InvoiceNumber = other.InvoiceNumber
	}
	if other.InvoiceID != "" {
		c.InvoiceID = other.InvoiceID
	}
	return c
}

// StepPayload accumulates user-entered fields across steps.
// It is owned by exactly one session and is never shared.
type StepPayload struct {
	Invoice           *FileRef `json:"invoice,omitempty"`
	SelectedProducts  []string `json:"selected_products,omitempty"`
	SupportType       string   `json:"support_type,omitempty"`
	IssueType         string   `json:"issue_type,omitempty"`
	IssueDescription  string   `json:"issue_description,omitempty"`
	Resolution        string   `json:"resolution,omitempty"`
	ResolutionDetails string   `json:"resolution_details,omitempty"`
	ResponseDetails   string   `json:"response_details,omitempty"`
	NotificationEmail string   `json:"notification_email,omitempty"`
}

// IssueText is the free-text description when the catch-all issue type is chosen,
// otherwise the selected categorical label.
func (p StepPayload) IssueText() string {
	if IsOther(p.IssueType) {
		return p.IssueDescription
	}
	return p.IssueType
}

// ResolutionText is the free-text resolution when the catch-all option is chosen,
// otherwise the selected categorical label.
func (p StepPayload) ResolutionText() string {
	if IsOther(p.Resolution) {
		return p.ResolutionDetails
	}
	return p.Resolution
}

func (p StepPayload) clone() StepPayload {
	c := p
	c.SelectedProducts = slices.Clone(p.SelectedProducts)
	if p.Invoice != nil {
		inv := *p.Invoice
		inv.Data = slices.Clone(p.Invoice.Data)
		c.Invoice = &inv
	}
	return c
}

// Receipt records the outcome of a successful submission.
type Receipt struct {
	Title            string    `json:"title"`
	Priority         string    `json:"priority"`
	NotificationSent bool      `json:"notification_sent"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// Session is one in-progress claim. It is a plain value: every state change
// produces a new Session through the intake reducer.
type Session struct {
	ID           string         `json:"id"`
	ExecutionID  string         `json:"execution_id,omitempty"`
	ResumeHandle string         `json:"resume_handle,omitempty"`
	Step         Step           `json:"step"`
	Branch       Branch         `json:"branch,omitempty"`
	Warranty     WarrantyStatus `json:"warranty"`

	// WarrantyText is the status wording as the backend reported it.
	WarrantyText   string      `json:"warranty_text,omitempty"`
	AcceptsCharges *bool       `json:"accepts_charges,omitempty"`
	Payload        StepPayload `json:"payload"`

	// OfferedProducts is the product list the backend extracted from the invoice,
	// or the default catalog when it extracted none.
	OfferedProducts []string       `json:"offered_products,omitempty"`
	Customer        CustomerFields `json:"customer"`

	// Narrative is the backend's analysis captured at the issue-description step.
	Narrative string   `json:"narrative,omitempty"`
	Receipt   *Receipt `json:"receipt,omitempty"`
}

// NewSession returns a session in its initial state.
func NewSession(id string) Session {
	return Session{
		ID:       id,
		Step:     StepNotStarted,
		Warranty: WarrantyUnknown,
	}
}

// Clone returns a deep copy of s.
func (s Session) Clone() Session {
	c := s
	c.Payload = s.Payload.clone()
	c.OfferedProducts = slices.Clone(s.OfferedProducts)
	if s.AcceptsCharges != nil {
		v := *s.AcceptsCharges
		c.AcceptsCharges = &v
	}
	if s.Receipt != nil {
		r := *s.Receipt
		c.Receipt = &r
	}
	return c
}

// InBranch reports whether a branch dialog is open.
func (s Session) InBranch() bool { return s.Branch != BranchNone }

// Terminal reports whether the session has been submitted.
func (s Session) Terminal() bool { return s.Step == StepSubmitted }
