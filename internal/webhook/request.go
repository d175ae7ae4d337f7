// Package webhook is the transport to the workflow-automation backend.
//
// Every call is a multipart form POST carrying an action discriminator, a
// timestamp and, after the first call of a session, the resume handle as
// targetUrl. Requests flow through a Handler built from composable Middleware,
// mirroring how an HTTP server stack is assembled.
package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ahrav/go-intake/internal/domain"
)

// Action discriminates what the backend should do with a request.
type Action string

// Actions understood by the automation backend.
const (
	ActionStartClaim      Action = "start_claim"
	ActionInvoiceUploaded Action = "invoice_uploaded"
	ActionIssueDescribed  Action = "issue_described"
	ActionClaimSubmitted  Action = "claim_submitted"
	ActionSendEmail       Action = "send_email"
)

// Step markers sent alongside step-advancing actions.
const (
	StepUploadComplete    = "upload_complete"
	StepIssueComplete     = "issue_complete"
	StepEmailNotification = "email_notification"
)

// Label returns the action name for logs and metric labels. Requests without an
// action, such as CV evaluations, report "none".
func (a Action) Label() string {
	if a == "" {
		return "none"
	}
	return string(a)
}

// Field is a single form value. Fields are encoded in insertion order.
type Field struct {
	Name  string
	Value string
}

// File is a form file part.
type File struct {
	Field string
	Ref   domain.FileRef
}

// Request is one outbound call to the automation backend.
type Request struct {
	Action Action
	// TargetURL is the resume handle. It is sent as a form field and, when
	// Endpoint is empty, is also where the request is posted.
	TargetURL string
	// Endpoint overrides the destination without changing targetUrl.
	Endpoint    string
	ExecutionID string
	Step        string
	Fields      []Field
	Files       []File
	// Timestamp defaults to the handler's clock when zero.
	Timestamp time.Time
	RequestID string
}

// Set appends a form field. Empty values are kept; use SetOptional to skip them.
func (r *Request) Set(name, value string) {
	r.Fields = append(r.Fields, Field{Name: name, Value: value})
}

// SetOptional appends a form field only when value is non-empty.
func (r *Request) SetOptional(name, value string) {
	if value != "" {
		r.Set(name, value)
	}
}

// SetJSON appends v encoded as a JSON string.
func (r *Request) SetJSON(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	r.Set(name, string(b))
	return nil
}

// AttachFile appends a file part when ref is non-nil.
func (r *Request) AttachFile(field string, ref *domain.FileRef) {
	if ref == nil {
		return
	}
	r.Files = append(r.Files, File{Field: field, Ref: *ref})
}

// Value returns the first value of the named field.
func (r *Request) Value(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Response is the raw answer from the backend. Interpretation is left to the
// normalizer.
type Response struct {
	StatusCode int
	Body       []byte
	Latency    time.Duration
}
