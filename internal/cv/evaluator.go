// Package cv evaluates résumés against a job position through the automation
// backend. The backend streams a narrative evaluation that is normalized into a
// decision with its reasoning.
package cv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ahrav/go-intake/internal/domain"
	"github.com/ahrav/go-intake/internal/normalize"
	"github.com/ahrav/go-intake/internal/webhook"
)

// MaxFileSize is the largest accepted résumé.
const MaxFileSize = 10 << 20

var (
	// ErrUnsupportedFile indicates a résumé that is not a PDF.
	ErrUnsupportedFile = errors.New("file type not supported, please use: .pdf")

	// ErrFileTooLarge indicates a résumé over MaxFileSize.
	ErrFileTooLarge = errors.New("file size too large, maximum size is 10MB")

	// ErrEmptyFile indicates an upload with no content.
	ErrEmptyFile = errors.New("file is empty")

	// ErrUnknownPosition indicates a position ID not in the catalog.
	ErrUnknownPosition = errors.New("unknown job position")
)

// ValidateFile checks a résumé's extension and size before anything is sent.
func ValidateFile(name string, size int64) error {
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return ErrUnsupportedFile
	}
	if size > MaxFileSize {
		return ErrFileTooLarge
	}
	if size <= 0 {
		return ErrEmptyFile
	}
	return nil
}

// Submission is one résumé to evaluate.
type Submission struct {
	File       domain.FileRef
	PositionID string
	// CustomRequirements, when set, replace the position's requirements.
	CustomRequirements string
}

// Result is the normalized evaluation.
type Result struct {
	FileName  string          `json:"file_name"`
	Position  string          `json:"position,omitempty"`
	Decision  domain.Decision `json:"decision"`
	Reasoning string          `json:"reasoning,omitempty"`
	// Fields holds structured data when the backend answered with JSON.
	Fields   map[string]any `json:"fields,omitempty"`
	Metadata any            `json:"metadata,omitempty"`
	Raw      string         `json:"raw,omitempty"`
}

// Evaluator posts résumés to the CV webhook.
type Evaluator struct {
	backend  webhook.Handler
	endpoint string
	logger   *slog.Logger
}

// NewEvaluator returns an Evaluator posting to endpoint through backend.
func NewEvaluator(backend webhook.Handler, endpoint string, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{backend: backend, endpoint: endpoint, logger: logger.With("component", "cv")}
}

// Evaluate validates the file, sends it with the job details and normalizes
// the answer. Backend failures are returned as-is for classification.
func (e *Evaluator) Evaluate(ctx context.Context, sub Submission) (*Result, error) {
	if err := ValidateFile(sub.File.Name, int64(len(sub.File.Data))); err != nil {
		return nil, err
	}

	req := &webhook.Request{Endpoint: e.endpoint}
	req.AttachFile("file", &sub.File)
	req.Set("filename", sub.File.Name)
	req.Set("filesize", strconv.Itoa(len(sub.File.Data)))

	var title string
	if sub.PositionID != "" {
		pos, ok := FindPosition(sub.PositionID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPosition, sub.PositionID)
		}
		title = pos.Title
		req.Set("jobTitle", pos.Title)
		if sub.CustomRequirements == "" {
			req.Set("jobRequirements", pos.RequirementsText())
		}
	}
	if sub.CustomRequirements != "" {
		req.Set("jobRequirements", sub.CustomRequirements)
	}

	resp, err := e.backend.Handle(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", sub.File.Name, err)
	}

	norm := normalize.Normalize(resp.Body)
	res := &Result{
		FileName: sub.File.Name,
		Position: title,
		Decision: domain.DecisionPending,
		Fields:   norm.Fields,
		Metadata: norm.Metadata,
		Raw:      norm.Raw,
	}
	if norm.Evaluation != nil {
		res.Decision = norm.Evaluation.Decision
		res.Reasoning = norm.Evaluation.Reasoning
	} else {
		res.Reasoning = normalize.NarrativeOrFallback(norm)
	}

	e.logger.InfoContext(ctx, "cv evaluated",
		"file", sub.File.Name,
		"position", title,
		"decision", res.Decision,
		"kind", norm.Kind)
	return res, nil
}
