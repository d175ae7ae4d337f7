package domain

// ResponseKind identifies which recognized shape a backend body was normalized from.
type ResponseKind string

// ResponseKind values.
const (
	// ResponseEmpty is a blank body; every field takes the caller's default.
	ResponseEmpty ResponseKind = "empty"
	// ResponseObject is a single JSON object (or the first object of a JSON array).
	ResponseObject ResponseKind = "object"
	// ResponseStream is newline-delimited JSON fragments from a streamed generation.
	ResponseStream ResponseKind = "stream"
	// ResponseFallback means nothing usable was extracted; Raw carries the body.
	ResponseFallback ResponseKind = "fallback"
)

// Decision is the binary outcome derived from an evaluation narrative.
type Decision string

// Decision values.
const (
	DecisionPending Decision = "Pending"
	DecisionAccept  Decision = "Accept"
	DecisionReject  Decision = "Reject"
)

// Evaluation is a narrative returned as free text rather than JSON.
type Evaluation struct {
	Decision  Decision `json:"decision"`
	Reasoning string   `json:"reasoning"`
	Content   string   `json:"content"`
}

// NormalizedResponse is the canonical shape produced from any backend body.
// All fields are optional; absence means "use the caller's default", never an error.
type NormalizedResponse struct {
	Kind        ResponseKind `json:"kind"`
	ResumeURL   string       `json:"resume_url,omitempty"`
	ExecutionID string       `json:"execution_id,omitempty"`

	// Products is never empty: it falls back to DefaultProducts when the backend
	// supplied none, in which case ProductsFromBackend is false.
	Products            []string `json:"products"`
	ProductsFromBackend bool     `json:"products_from_backend"`

	WarrantyStatusRaw string         `json:"warranty_status_raw,omitempty"`
	Warranty          WarrantyStatus `json:"warranty"`
	// WarrantyNeedsConfirmation is set when the status text was explicit enough to
	// require a user decision (expired, unknown or available).
	WarrantyNeedsConfirmation bool `json:"warranty_needs_confirmation"`

	FreeformMessage string         `json:"freeform_message,omitempty"`
	Customer        CustomerFields `json:"customer"`
	Evaluation      *Evaluation    `json:"evaluation,omitempty"`

	// Fields holds every structured field merged from the body, for callers that
	// render shapes this type does not model (CV details, for instance).
	Fields   map[string]any `json:"fields,omitempty"`
	Metadata any            `json:"metadata,omitempty"`
	Raw      string         `json:"raw,omitempty"`
}
