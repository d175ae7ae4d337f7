// Package intake drives a claim through the wizard: it tracks the backend's
// resume handle, enforces per-step validation gates, applies events through a
// pure reducer and sequences backend calls in the Wizard.
package intake

import (
	"github.com/ahrav/go-intake/internal/domain"
)

// RecordResponse returns s with the resume handle and execution id taken from
// resp when resp carries them. Absent fields never clear what s already holds,
// so the handle always reflects the most recent response that issued one.
func RecordResponse(s domain.Session, resp domain.NormalizedResponse) domain.Session {
	if resp.ResumeURL != "" {
		s.ResumeHandle = resp.ResumeURL
	}
	if resp.ExecutionID != "" {
		s.ExecutionID = resp.ExecutionID
	}
	return s
}

// RequireResumeHandle returns the current handle or a *domain.WorkflowStateError
// when the backend has not issued one yet. The error is local and must never be
// sent upstream.
func RequireResumeHandle(s domain.Session, action string) (string, error) {
	if s.ResumeHandle == "" {
		return "", &domain.WorkflowStateError{
			Step:   s.Step,
			Action: action,
			Err:    domain.ErrMissingResumeHandle,
		}
	}
	return s.ResumeHandle, nil
}
