package cv_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-intake/internal/cv"
	"github.com/ahrav/go-intake/internal/domain"
	"github.com/ahrav/go-intake/internal/webhook"
)

const streamedAccept = `{"type":"begin","metadata":{"nodeName":"Evaluator"}}
{"type":"item","content":"The candidate is a strong candidate.\n"}
{"type":"item","content":"**Final Decision: Accept**"}
{"type":"end"}`

type captureHandler struct {
	got  *webhook.Request
	body string
	err  error
}

func (c *captureHandler) Handle(_ context.Context, req *webhook.Request) (*webhook.Response, error) {
	c.got = req
	if c.err != nil {
		return nil, c.err
	}
	return &webhook.Response{StatusCode: 200, Body: []byte(c.body)}, nil
}

func field(req *webhook.Request, name string) string {
	v, _ := req.Value(name)
	return v
}

func pdf(name string) domain.FileRef {
	return domain.FileRef{Name: name, ContentType: "application/pdf", Size: 8, Data: []byte("%PDF-1.7")}
}

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		size    int64
		wantErr error
	}{
		{name: "pdf accepted", file: "cv.pdf", size: 1024},
		{name: "upper case extension", file: "CV.PDF", size: 1024},
		{name: "docx rejected", file: "cv.docx", size: 1024, wantErr: cv.ErrUnsupportedFile},
		{name: "no extension", file: "cv", size: 1024, wantErr: cv.ErrUnsupportedFile},
		{name: "at limit", file: "cv.pdf", size: cv.MaxFileSize},
		{name: "over limit", file: "cv.pdf", size: cv.MaxFileSize + 1, wantErr: cv.ErrFileTooLarge},
		{name: "empty", file: "cv.pdf", size: 0, wantErr: cv.ErrEmptyFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cv.ValidateFile(tt.file, tt.size)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPositions(t *testing.T) {
	require.Len(t, cv.Positions, 5)
	assert.Equal(t, "ai-ml-engineer", cv.Positions[0].ID)
	assert.Len(t, cv.Positions[0].Requirements, 9)

	p, ok := cv.FindPosition("devops-engineer")
	require.True(t, ok)
	assert.Equal(t, "DevOps Engineer", p.Title)
	assert.Equal(t, len(p.Requirements)-1, strings.Count(p.RequirementsText(), "\n"))

	_, ok = cv.FindPosition("astronaut")
	assert.False(t, ok)
}

func TestEvaluate_SendsJobDetails(t *testing.T) {
	h := &captureHandler{body: streamedAccept}
	e := cv.NewEvaluator(h, "https://hooks/cv", nil)

	res, err := e.Evaluate(context.Background(), cv.Submission{File: pdf("jane.pdf"), PositionID: "backend-developer"})
	require.NoError(t, err)

	pos, _ := cv.FindPosition("backend-developer")
	assert.Equal(t, "https://hooks/cv", h.got.Endpoint)
	assert.Empty(t, h.got.Action)
	assert.Equal(t, "jane.pdf", field(h.got, "filename"))
	assert.Equal(t, "8", field(h.got, "filesize"))
	assert.Equal(t, "Backend Developer", field(h.got, "jobTitle"))
	assert.Equal(t, pos.RequirementsText(), field(h.got, "jobRequirements"))
	require.Len(t, h.got.Files, 1)
	assert.Equal(t, "file", h.got.Files[0].Field)

	assert.Equal(t, domain.DecisionAccept, res.Decision)
	assert.Equal(t, "The candidate is a strong candidate.", res.Reasoning)
	assert.Equal(t, "Backend Developer", res.Position)
	assert.Equal(t, map[string]any{"nodeName": "Evaluator"}, res.Metadata)
}

func TestEvaluate_CustomRequirementsOverride(t *testing.T) {
	h := &captureHandler{body: streamedAccept}
	e := cv.NewEvaluator(h, "https://hooks/cv", nil)

	_, err := e.Evaluate(context.Background(), cv.Submission{
		File:               pdf("jane.pdf"),
		PositionID:         "ai-ml-engineer",
		CustomRequirements: "Go, Temporal",
	})
	require.NoError(t, err)
	assert.Equal(t, "Go, Temporal", field(h.got, "jobRequirements"))
}

func TestEvaluate_PlainTextAnswerStaysPending(t *testing.T) {
	h := &captureHandler{body: "Thanks, we'll review it."}
	e := cv.NewEvaluator(h, "https://hooks/cv", nil)

	res, err := e.Evaluate(context.Background(), cv.Submission{File: pdf("jane.pdf")})
	require.NoError(t, err)
	assert.Equal(t, domain.DecisionPending, res.Decision)
	assert.Equal(t, "Thanks, we'll review it.", res.Reasoning)
}

func TestEvaluate_RejectsBeforeSending(t *testing.T) {
	h := &captureHandler{}
	e := cv.NewEvaluator(h, "https://hooks/cv", nil)

	_, err := e.Evaluate(context.Background(), cv.Submission{File: domain.FileRef{Name: "cv.docx", Data: []byte("x")}})
	require.ErrorIs(t, err, cv.ErrUnsupportedFile)

	_, err = e.Evaluate(context.Background(), cv.Submission{File: pdf("cv.pdf"), PositionID: "astronaut"})
	require.ErrorIs(t, err, cv.ErrUnknownPosition)
	assert.Nil(t, h.got)
}

func TestEvaluate_BackendFailureIsWrapped(t *testing.T) {
	boom := errors.New("boom")
	e := cv.NewEvaluator(&captureHandler{err: boom}, "https://hooks/cv", nil)

	_, err := e.Evaluate(context.Background(), cv.Submission{File: pdf("cv.pdf")})
	require.ErrorIs(t, err, boom)
}
