// Package submission turns a completed intake session into a support ticket and
// dispatches it, followed by a best-effort email notification.
package submission

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-intake/internal/domain"
)

// ErrIncompleteClaim indicates the session lacks a field the ticket requires.
var ErrIncompleteClaim = errors.New("incomplete claim")

var validate = validator.New(validator.WithRequiredStructEnabled())

// notAvailable renders an absent optional field in the ticket description.
const notAvailable = "N/A"

// Claim is the outbound ticket, assembled deterministically from a session.
// It is serialized as-is when submission runs through Temporal.
type Claim struct {
	SessionID       string                `json:"session_id" validate:"required"`
	Title           string                `json:"title" validate:"required"`
	Priority        string                `json:"priority" validate:"oneof=High Medium"`
	SupportType     string                `json:"support_type" validate:"required"`
	Description     string                `json:"description" validate:"required"`
	IssueText       string                `json:"issue_text" validate:"required"`
	ResolutionText  string                `json:"resolution_text" validate:"required"`
	ResponseDetails string                `json:"response_details,omitempty"`
	Email           string                `json:"email" validate:"required,email"`
	Products        []string              `json:"products" validate:"min=1,dive,required"`
	Customer        domain.CustomerFields `json:"customer"`
	WarrantyStatus  string                `json:"warranty_status,omitempty"`
	Narrative       string                `json:"narrative,omitempty"`
	ResumeHandle    string                `json:"resume_handle" validate:"required"`
	ExecutionID     string                `json:"execution_id,omitempty"`
	Invoice         *domain.FileRef       `json:"invoice,omitempty"`
}

// Validate checks the claim's required fields.
func (c Claim) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrIncompleteClaim, err)
	}
	return nil
}

// Title formats the ticket title as "<supportType>: <issueText>".
func Title(supportType, issueText string) string {
	return supportType + ": " + issueText
}

// Assemble builds the ticket for s. It is pure: the same session always yields
// the same claim.
func Assemble(s domain.Session) (Claim, error) {
	p := s.Payload
	issue := strings.TrimSpace(p.IssueText())
	resolution := strings.TrimSpace(p.ResolutionText())

	c := Claim{
		SessionID:       s.ID,
		Title:           Title(p.SupportType, issue),
		Priority:        domain.PriorityFor(p.SupportType),
		SupportType:     p.SupportType,
		IssueText:       issue,
		ResolutionText:  resolution,
		ResponseDetails: p.ResponseDetails,
		Email:           strings.TrimSpace(p.NotificationEmail),
		Products:        slices.Clone(p.SelectedProducts),
		Customer:        s.Customer,
		WarrantyStatus:  s.WarrantyText,
		Narrative:       s.Narrative,
		ResumeHandle:    s.ResumeHandle,
		ExecutionID:     s.ExecutionID,
	}
	if p.Invoice != nil {
		inv := *p.Invoice
		c.Invoice = &inv
	}
	c.Description = describe(c)

	if err := c.Validate(); err != nil {
		return Claim{}, err
	}
	return c, nil
}

func orNA(v string) string {
	if strings.TrimSpace(v) == "" {
		return notAvailable
	}
	return v
}

func describe(c Claim) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Issue: %s\n", c.IssueText)
	fmt.Fprintf(&b, "Resolution Requested: %s\n", c.ResolutionText)
	fmt.Fprintf(&b, "Customer: %s\n", orNA(c.Customer.Name))
	fmt.Fprintf(&b, "Vendor: %s\n", orNA(c.Customer.Vendor))
	fmt.Fprintf(&b, "Invoice Number: %s\n", orNA(c.Customer.InvoiceNumber))
	fmt.Fprintf(&b, "Invoice ID: %s\n", orNA(c.Customer.InvoiceID))
	fmt.Fprintf(&b, "Warranty Status: %s\n", orNA(c.WarrantyStatus))
	fmt.Fprintf(&b, "Products: %s\n", strings.Join(c.Products, ", "))
	fmt.Fprintf(&b, "Email: %s\n", c.Email)
	if n := strings.TrimSpace(c.Narrative); n != "" {
		fmt.Fprintf(&b, "\nAnalysis:\n%s", n)
	}
	return strings.TrimSpace(b.String())
}
