package intake

import (
	"slices"
	"strings"

	"github.com/ahrav/go-intake/internal/domain"
	"github.com/ahrav/go-intake/internal/normalize"
)

// Reset returns the initial session for s's ID.
func Reset(s domain.Session) domain.Session {
	return domain.NewSession(s.ID)
}

// Reduce applies ev to s and returns the resulting session. It never mutates s.
// On error the returned session is s unchanged.
//
// Steps advance only through Started, InvoiceProcessed (or BranchDecided),
// ProductsConfirmed, IssueDescribed and Submitted, each of which re-checks the
// gate for the step it leaves.
func Reduce(s domain.Session, ev Event) (domain.Session, error) {
	next := s.Clone()

	switch e := ev.(type) {
	case Started:
		if err := CheckStart(s); err != nil {
			return s, err
		}
		next = RecordResponse(next, e.Response)
		next.Step = domain.StepAwaitingUpload

	case InvoiceAttached:
		if err := expectStep(s, domain.StepAwaitingUpload, ev.Name()); err != nil {
			return s, err
		}
		next.Payload.Invoice = nil
		if e.Invoice != nil {
			inv := *e.Invoice
			inv.Data = slices.Clone(e.Invoice.Data)
			next.Payload.Invoice = &inv
		}

	case InvoiceProcessed:
		if err := CheckUpload(s); err != nil {
			return s, err
		}
		next = applyUpload(RecordResponse(next, e.Response), e.Response)

	case BranchDecided:
		if s.Step != domain.StepAwaitingUpload || !s.InBranch() {
			return s, transitionErr(s, ev)
		}
		if s.Branch == domain.BranchInvalidInvoice || !e.Proceed {
			return Reset(s), nil
		}
		if s.Branch == domain.BranchWarrantyExpired {
			accepts := true
			next.AcceptsCharges = &accepts
		}
		next.Branch = domain.BranchNone
		next.Step = domain.StepAwaitingProductSelection

	case ProductsSelected:
		if err := expectStep(s, domain.StepAwaitingProductSelection, ev.Name()); err != nil {
			return s, err
		}
		next.Payload.SelectedProducts = cleanSelection(e.Products)

	case SupportTypeSelected:
		if err := expectStep(s, domain.StepAwaitingProductSelection, ev.Name()); err != nil {
			return s, err
		}
		if !domain.IsSupportType(e.SupportType) {
			return s, gateErr(s.Step, "support_type", "unknown support type")
		}
		if e.SupportType != s.Payload.SupportType {
			next.Payload.IssueType = ""
			next.Payload.IssueDescription = ""
			next.Payload.Resolution = ""
			next.Payload.ResolutionDetails = ""
		}
		next.Payload.SupportType = e.SupportType

	case IssueTypeSelected:
		if err := expectStep(s, domain.StepAwaitingIssueDescription, ev.Name()); err != nil {
			return s, err
		}
		if !domain.IsIssueOption(s.Payload.SupportType, e.IssueType) {
			return s, gateErr(s.Step, "issue_type", "not offered for "+s.Payload.SupportType)
		}
		next.Payload.IssueType = canonicalOption(e.IssueType)
		if !domain.IsOther(e.IssueType) {
			next.Payload.IssueDescription = ""
		}

	case IssueTextEntered:
		if err := expectStep(s, domain.StepAwaitingIssueDescription, ev.Name()); err != nil {
			return s, err
		}
		next.Payload.IssueDescription = e.Text

	case ResolutionSelected:
		if err := expectStep(s, domain.StepAwaitingResolution, ev.Name()); err != nil {
			return s, err
		}
		if !domain.IsResolutionOption(s.Payload.SupportType, e.Resolution) {
			return s, gateErr(s.Step, "resolution", "not offered for "+s.Payload.SupportType)
		}
		next.Payload.Resolution = canonicalOption(e.Resolution)
		if !domain.IsOther(e.Resolution) {
			next.Payload.ResolutionDetails = ""
		}

	case ResolutionTextEntered:
		if err := expectStep(s, domain.StepAwaitingResolution, ev.Name()); err != nil {
			return s, err
		}
		next.Payload.ResolutionDetails = e.Text

	case DetailsEntered:
		if err := expectStep(s, domain.StepAwaitingResolution, ev.Name()); err != nil {
			return s, err
		}
		next.Payload.ResponseDetails = e.Text

	case EmailEntered:
		if err := expectStep(s, domain.StepAwaitingResolution, ev.Name()); err != nil {
			return s, err
		}
		next.Payload.NotificationEmail = strings.TrimSpace(e.Email)

	case ProductsConfirmed:
		if err := CheckProducts(s); err != nil {
			return s, err
		}
		next.Step = domain.StepAwaitingIssueDescription

	case IssueDescribed:
		if err := CheckIssue(s); err != nil {
			return s, err
		}
		next = RecordResponse(next, e.Response)
		next.Customer = next.Customer.Merge(e.Response.Customer)
		next.Narrative = normalize.NarrativeOrFallback(e.Response)
		next.Step = domain.StepAwaitingResolution

	case Submitted:
		if err := CheckResolution(s); err != nil {
			return s, err
		}
		receipt := e.Receipt
		next.Receipt = &receipt
		next.Step = domain.StepSubmitted

	case CountdownElapsed:
		if !s.Terminal() {
			return s, transitionErr(s, ev)
		}
		return Reset(s), nil

	case Back:
		if s.InBranch() || s.Terminal() {
			return s, transitionErr(s, ev)
		}
		prev, ok := s.Step.Previous()
		if !ok {
			return s, transitionErr(s, ev)
		}
		next.Step = prev

	case Cancelled:
		return Reset(s), nil

	case ResponseObserved:
		return RecordResponse(next, e.Response), nil

	default:
		return s, transitionErr(s, ev)
	}

	return next, nil
}

func transitionErr(s domain.Session, ev Event) error {
	name := "unknown"
	if ev != nil {
		name = ev.Name()
	}
	return &domain.TransitionError{From: s.Step, Branch: s.Branch, Event: name}
}

// applyUpload stores what the backend extracted from the invoice and routes the
// session by warranty outcome. Only a non-confirming Available skips the dialog.
func applyUpload(s domain.Session, resp domain.NormalizedResponse) domain.Session {
	s.OfferedProducts = slices.Clone(resp.Products)
	if len(s.OfferedProducts) == 0 {
		s.OfferedProducts = slices.Clone(domain.DefaultProducts)
	}
	s.Payload.SelectedProducts = slices.DeleteFunc(s.Payload.SelectedProducts, func(p string) bool {
		return !slices.Contains(s.OfferedProducts, p)
	})
	s.Customer = s.Customer.Merge(resp.Customer)
	s.WarrantyText = resp.WarrantyStatusRaw

	s.Warranty = resp.Warranty
	if s.Warranty == "" || s.Warranty == domain.WarrantyUnknown {
		s.Warranty = domain.WarrantyAvailable
	}

	switch {
	case s.Warranty == domain.WarrantyInvalid:
		s.Branch = domain.BranchInvalidInvoice
	case s.Warranty == domain.WarrantyExpired:
		s.Branch = domain.BranchWarrantyExpired
	case resp.WarrantyNeedsConfirmation:
		s.Branch = domain.BranchWarrantyAvailable
	default:
		s.Step = domain.StepAwaitingProductSelection
	}
	return s
}

// cleanSelection trims names and drops empties and duplicates, keeping order.
func cleanSelection(products []string) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		p = strings.TrimSpace(p)
		if p == "" || slices.Contains(out, p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func canonicalOption(v string) string {
	if domain.IsOther(v) {
		return domain.OtherOption
	}
	return v
}
