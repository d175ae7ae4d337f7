// Package normalize converts arbitrary automation-backend bodies into the
// canonical domain.NormalizedResponse.
//
// Bodies arrive in one of a few shapes: a single JSON object, a JSON array of
// objects, or newline-delimited JSON fragments emitted by a streamed generation
// (begin / item / end / complete). Anything else degrades to best-effort defaults.
// Normalize is a pure function and never returns an error.
package normalize

import (
	"bytes"
	"encoding/json"
	"maps"
	"strconv"
	"strings"

	"github.com/ahrav/go-intake/internal/domain"
)

// Recognized top-level field names.
const (
	fieldResumeURL      = "resumeUrl"
	fieldExecutionID    = "executionId"
	fieldProducts       = "products"
	fieldWarrantyStatus = "warrantyStatus"
	fieldWarranty       = "warranty"
	fieldCustomerName   = "customerName"
	fieldVendor         = "vendor"
	fieldInvoiceNumber  = "invoiceNumber"
	fieldInvoiceID      = "invoiceId"
	fieldPlainText      = "plainText"
	fieldOutput         = "output"
	fieldMessage        = "message"
)

// workflowStartedMessage is the acknowledgement the backend sends when a webhook
// only triggered a run; it carries no narrative.
const workflowStartedMessage = "Workflow was started"

// fragmentKind tags one parsed line of a streamed body.
type fragmentKind int

const (
	fragmentUnrecognized fragmentKind = iota
	fragmentBegin
	fragmentItem
	fragmentEnd
	fragmentObject
)

// fragment is one line of a streamed body after classification.
type fragment struct {
	kind     fragmentKind
	content  string
	metadata any
	data     map[string]any
}

// Normalize produces a NormalizedResponse from a raw backend body.
func Normalize(body []byte) domain.NormalizedResponse {
	raw := string(body)
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return finish(domain.ResponseEmpty, nil, nil, nil, raw)
	}

	if fields, ok := parseWhole(trimmed); ok {
		return finish(domain.ResponseObject, fields, nil, nil, raw)
	}

	fields, metadata, eval, usable := parseStream(trimmed)
	if !usable {
		return finish(domain.ResponseFallback, nil, nil, nil, raw)
	}
	return finish(domain.ResponseStream, fields, metadata, eval, raw)
}

// parseWhole accepts a body that is one JSON object, or a JSON array whose first
// element is an object. A whole body that is itself a stream fragment is left for
// the stream parser.
func parseWhole(body []byte) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, false
	}
	switch t := v.(type) {
	case map[string]any:
		if classify(t).kind != fragmentObject {
			return nil, false
		}
		return t, true
	case []any:
		if len(t) == 0 {
			return nil, false
		}
		if obj, ok := t[0].(map[string]any); ok {
			return obj, true
		}
	}
	return nil, false
}

// parseStream walks newline-delimited fragments. Lines that are not JSON are
// skipped; streaming protocols may emit keepalives.
func parseStream(body []byte) (map[string]any, any, *domain.Evaluation, bool) {
	fields := make(map[string]any)
	var (
		metadata any
		content  strings.Builder
	)

	for line := range bytes.SplitSeq(body, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		frag, ok := parseLine(line)
		if !ok {
			continue
		}
		switch frag.kind {
		case fragmentBegin:
			metadata = frag.metadata
		case fragmentItem:
			content.WriteString(frag.content)
		case fragmentEnd, fragmentObject:
			maps.Copy(fields, frag.data)
		case fragmentUnrecognized:
		}
	}

	var eval *domain.Evaluation
	combined := content.String()
	if strings.TrimSpace(combined) != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(combined), &parsed); err == nil {
			maps.Copy(fields, parsed)
		} else {
			decision, reasoning := ParseDecision(combined)
			eval = &domain.Evaluation{Decision: decision, Reasoning: reasoning, Content: combined}
		}
	}

	usable := len(fields) > 0 || eval != nil
	return fields, metadata, eval, usable
}

// parseLine decodes one stream line. It reports false for lines that are not JSON.
func parseLine(line []byte) (fragment, bool) {
	var v any
	if err := json.Unmarshal(line, &v); err != nil {
		return fragment{}, false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return fragment{kind: fragmentUnrecognized}, true
	}
	return classify(obj), true
}

// classify tags a parsed object by its "type" discriminator. Objects without a
// stream tag are plain data merged into the result.
func classify(obj map[string]any) fragment {
	typ, _ := obj["type"].(string)
	switch typ {
	case "begin":
		return fragment{kind: fragmentBegin, metadata: obj["metadata"]}
	case "item":
		s, _ := obj["content"].(string)
		return fragment{kind: fragmentItem, content: s}
	case "end", "complete":
		data, _ := obj["data"].(map[string]any)
		if data == nil {
			data, _ = obj["result"].(map[string]any)
		}
		return fragment{kind: fragmentEnd, data: data}
	default:
		return fragment{kind: fragmentObject, data: obj}
	}
}

func finish(
	kind domain.ResponseKind,
	fields map[string]any,
	metadata any,
	eval *domain.Evaluation,
	raw string,
) domain.NormalizedResponse {
	products, fromBackend := Products(fields[fieldProducts])
	rawStatus := warrantyText(fields)
	status, confirm := Warranty(rawStatus)

	resp := domain.NormalizedResponse{
		Kind:                      kind,
		ResumeURL:                 stringField(fields, fieldResumeURL),
		ExecutionID:               stringField(fields, fieldExecutionID),
		Products:                  products,
		ProductsFromBackend:       fromBackend,
		WarrantyStatusRaw:         rawStatus,
		Warranty:                  status,
		WarrantyNeedsConfirmation: confirm,
		FreeformMessage:           narrative(fields),
		Customer: domain.CustomerFields{
			Name:          stringField(fields, fieldCustomerName),
			Vendor:        stringField(fields, fieldVendor),
			InvoiceNumber: stringField(fields, fieldInvoiceNumber),
			InvoiceID:     stringField(fields, fieldInvoiceID),
		},
		Evaluation: eval,
		Metadata:   metadata,
		Raw:        raw,
	}
	if len(fields) > 0 {
		resp.Fields = fields
	}
	return resp
}

// warrantyText reads the warranty status from the top level, falling back to a
// nested warranty object.
func warrantyText(fields map[string]any) string {
	if s := stringField(fields, fieldWarrantyStatus); s != "" {
		return s
	}
	if nested, ok := fields[fieldWarranty].(map[string]any); ok {
		if s := stringField(nested, "status"); s != "" {
			return s
		}
	}
	if s, ok := fields[fieldWarranty].(string); ok {
		return s
	}
	return ""
}

// narrative picks plainText, then output, then message.
func narrative(fields map[string]any) string {
	if s := stringField(fields, fieldPlainText); s != "" {
		return s
	}
	if s := stringField(fields, fieldOutput); s != "" {
		return s
	}
	if s := stringField(fields, fieldMessage); s != "" && s != workflowStartedMessage {
		return s
	}
	return ""
}

// stringField reads key as a string; numbers are formatted, anything else is absent.
func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// NarrativeOrFallback returns the text to keep as the issue-step analysis:
// the extracted narrative, else a dump of the structured body, else the raw text,
// else a fixed acknowledgement for an empty body.
func NarrativeOrFallback(resp domain.NormalizedResponse) string {
	if resp.FreeformMessage != "" {
		return resp.FreeformMessage
	}
	if resp.Evaluation != nil {
		return resp.Evaluation.Content
	}
	if len(resp.Fields) > 0 {
		if b, err := json.MarshalIndent(resp.Fields, "", "  "); err == nil {
			return string(b)
		}
	}
	if strings.TrimSpace(resp.Raw) != "" {
		return resp.Raw
	}
	return "Analysis completed successfully."
}
