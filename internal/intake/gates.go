package intake

import (
	"strings"

	"github.com/ahrav/go-intake/internal/domain"
)

// Gates run before any backend call for a step. Each returns a
// *domain.TransitionError when the session is not at the gate's step, a
// *domain.GateError naming the first incomplete field, or nil.

func gateErr(step domain.Step, field, reason string) error {
	return &domain.GateError{Step: step, Field: field, Reason: reason}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// expectStep rejects event unless s is at step with no branch dialog open.
func expectStep(s domain.Session, step domain.Step, event string) error {
	if s.Step != step || s.InBranch() {
		return &domain.TransitionError{From: s.Step, Branch: s.Branch, Event: event}
	}
	return nil
}

// CheckStart allows starting only a fresh session.
func CheckStart(s domain.Session) error {
	return expectStep(s, domain.StepNotStarted, EventStarted)
}

// CheckUpload requires an attached invoice.
func CheckUpload(s domain.Session) error {
	if err := expectStep(s, domain.StepAwaitingUpload, EventInvoiceProcessed); err != nil {
		return err
	}
	if s.Payload.Invoice == nil || len(s.Payload.Invoice.Data) == 0 {
		return gateErr(s.Step, "invoice", "is required")
	}
	return nil
}

// CheckProducts requires at least one product and a known support type.
func CheckProducts(s domain.Session) error {
	if err := expectStep(s, domain.StepAwaitingProductSelection, EventProductsConfirmed); err != nil {
		return err
	}
	if len(s.Payload.SelectedProducts) == 0 {
		return gateErr(s.Step, "products", "select at least one product")
	}
	if !domain.IsSupportType(s.Payload.SupportType) {
		return gateErr(s.Step, "support_type", "is required")
	}
	return nil
}

// CheckIssue requires an issue type and, for the catch-all type, a description.
func CheckIssue(s domain.Session) error {
	if err := expectStep(s, domain.StepAwaitingIssueDescription, EventIssueDescribed); err != nil {
		return err
	}
	if blank(s.Payload.IssueType) {
		return gateErr(s.Step, "issue_type", "is required")
	}
	if domain.IsOther(s.Payload.IssueType) && blank(s.Payload.IssueDescription) {
		return gateErr(s.Step, "issue_description", "is required when issue type is Other")
	}
	return nil
}

// CheckResolution requires a resolution (with text for the catch-all option)
// and a valid notification email.
func CheckResolution(s domain.Session) error {
	if err := expectStep(s, domain.StepAwaitingResolution, EventSubmitted); err != nil {
		return err
	}
	if blank(s.Payload.Resolution) {
		return gateErr(s.Step, "resolution", "is required")
	}
	if domain.IsOther(s.Payload.Resolution) && blank(s.Payload.ResolutionDetails) {
		return gateErr(s.Step, "resolution_details", "is required when resolution is Other")
	}
	if blank(s.Payload.NotificationEmail) {
		return gateErr(s.Step, "notification_email", "is required")
	}
	if !domain.ValidEmail(s.Payload.NotificationEmail) {
		return gateErr(s.Step, "notification_email", "is not a valid address")
	}
	return nil
}
