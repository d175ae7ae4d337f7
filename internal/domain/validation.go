package domain

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator instance used for field and struct validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidEmail reports whether addr is a syntactically valid email address.
func ValidEmail(addr string) bool {
	return validate.Var(strings.TrimSpace(addr), "required,email") == nil
}

// Validate checks that a restored snapshot is internally consistent.
func (s Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidSession)
	}
	if !s.Step.IsValid() {
		return fmt.Errorf("%w: unknown step %q", ErrInvalidSession, s.Step)
	}
	switch s.Branch {
	case BranchNone, BranchWarrantyAvailable, BranchWarrantyExpired, BranchInvalidInvoice:
	default:
		return fmt.Errorf("%w: unknown branch %q", ErrInvalidSession, s.Branch)
	}
	if s.Branch != BranchNone && s.Step != StepAwaitingUpload {
		return fmt.Errorf("%w: branch %s outside upload step", ErrInvalidSession, s.Branch)
	}
	return nil
}
