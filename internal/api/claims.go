package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ahrav/go-intake/internal/domain"
	"github.com/ahrav/go-intake/internal/intake"
)

type sessionResponse struct {
	Session domain.Session `json:"session"`
	Busy    bool           `json:"busy"`
}

// redact drops uploaded bytes; clients only need the file's name and size.
func redact(s domain.Session) domain.Session {
	s = s.Clone()
	if s.Payload.Invoice != nil {
		s.Payload.Invoice.Data = nil
	}
	return s
}

type stepFunc func(ctx context.Context, w *intake.Wizard, r *http.Request) (domain.Session, error)

// withWizard resolves the session in the URL and runs fn against its Wizard.
func (s *Server) withWizard(fn stepFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wiz, err := s.deps.Registry.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, r, err, nil)
			return
		}
		sess, err := fn(r.Context(), wiz, r)
		if err != nil {
			s.writeError(w, r, err, &sess)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{Session: redact(sess), Busy: wiz.Busy()})
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) createClaim(w http.ResponseWriter, r *http.Request) {
	wiz, err := s.deps.Registry.Create(r.Context())
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, sessionResponse{Session: redact(wiz.Snapshot())})
}

func (s *Server) getClaim(w http.ResponseWriter, r *http.Request) {
	s.withWizard(func(_ context.Context, wiz *intake.Wizard, _ *http.Request) (domain.Session, error) {
		return wiz.Snapshot(), nil
	})(w, r)
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	s.withWizard(func(ctx context.Context, wiz *intake.Wizard, _ *http.Request) (domain.Session, error) {
		return wiz.Start(ctx)
	})(w, r)
}

func (s *Server) uploadInvoice(w http.ResponseWriter, r *http.Request) {
	s.withWizard(func(ctx context.Context, wiz *intake.Wizard, r *http.Request) (domain.Session, error) {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
		f, err := readUpload(r, "invoice", s.cfg.MaxUploadBytes)
		if err != nil {
			return wiz.Snapshot(), err
		}
		if sess, err := wiz.AttachInvoice(ctx, f); err != nil {
			return sess, err
		}
		return wiz.UploadInvoice(ctx)
	})(w, r)
}

type branchRequest struct {
	Proceed bool `json:"proceed"`
}

func (s *Server) decideBranch(w http.ResponseWriter, r *http.Request) {
	s.withWizard(func(ctx context.Context, wiz *intake.Wizard, r *http.Request) (domain.Session, error) {
		var req branchRequest
		if err := decodeJSON(r, &req); err != nil {
			return wiz.Snapshot(), err
		}
		return wiz.DecideBranch(ctx, req.Proceed)
	})(w, r)
}

// selectionRequest carries the editable fields of the current step. Absent
// fields are left unchanged; an empty products array clears the selection.
type selectionRequest struct {
	Products       []string `json:"products"`
	SupportType    *string  `json:"support_type"`
	IssueType      *string  `json:"issue_type"`
	IssueText      *string  `json:"issue_text"`
	Resolution     *string  `json:"resolution"`
	ResolutionText *string  `json:"resolution_text"`
	Details        *string  `json:"details"`
	Email          *string  `json:"email"`
}

// updateSelection applies the fields in form order and stops at the first
// rejected one; earlier fields stay applied.
func (s *Server) updateSelection(w http.ResponseWriter, r *http.Request) {
	s.withWizard(func(ctx context.Context, wiz *intake.Wizard, r *http.Request) (domain.Session, error) {
		var req selectionRequest
		if err := decodeJSON(r, &req); err != nil {
			return wiz.Snapshot(), err
		}

		type edit func(context.Context, string) (domain.Session, error)
		steps := []struct {
			v     *string
			apply edit
		}{
			{req.SupportType, wiz.SelectSupportType},
			{req.IssueType, wiz.SelectIssueType},
			{req.IssueText, wiz.EnterIssueText},
			{req.Resolution, wiz.SelectResolution},
			{req.ResolutionText, wiz.EnterResolutionText},
			{req.Details, wiz.EnterDetails},
			{req.Email, wiz.EnterEmail},
		}

		sess := wiz.Snapshot()
		var err error
		if req.Products != nil {
			if sess, err = wiz.SelectProducts(ctx, req.Products); err != nil {
				return sess, err
			}
		}
		for _, st := range steps {
			if st.v == nil {
				continue
			}
			if sess, err = st.apply(ctx, *st.v); err != nil {
				return sess, err
			}
		}
		return sess, nil
	})(w, r)
}

func (s *Server) confirmProducts(w http.ResponseWriter, r *http.Request) {
	s.withWizard(func(ctx context.Context, wiz *intake.Wizard, _ *http.Request) (domain.Session, error) {
		return wiz.ConfirmProducts(ctx)
	})(w, r)
}

func (s *Server) describeIssue(w http.ResponseWriter, r *http.Request) {
	s.withWizard(func(ctx context.Context, wiz *intake.Wizard, _ *http.Request) (domain.Session, error) {
		return wiz.DescribeIssue(ctx)
	})(w, r)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	s.withWizard(func(ctx context.Context, wiz *intake.Wizard, _ *http.Request) (domain.Session, error) {
		return wiz.Submit(ctx)
	})(w, r)
}

func (s *Server) back(w http.ResponseWriter, r *http.Request) {
	s.withWizard(func(ctx context.Context, wiz *intake.Wizard, _ *http.Request) (domain.Session, error) {
		return wiz.Back(ctx)
	})(w, r)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	s.withWizard(func(ctx context.Context, wiz *intake.Wizard, _ *http.Request) (domain.Session, error) {
		return wiz.Cancel(ctx), nil
	})(w, r)
}

type catalogResponse struct {
	Products          []string            `json:"products"`
	SupportTypes      []string            `json:"support_types"`
	IssueOptions      map[string][]string `json:"issue_options"`
	ResolutionOptions map[string][]string `json:"resolution_options"`
}

func (s *Server) getCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalogResponse{
		Products:          domain.DefaultProducts,
		SupportTypes:      domain.SupportTypes,
		IssueOptions:      domain.IssueOptions,
		ResolutionOptions: domain.ResolutionOptions,
	})
}

// readUpload reads one multipart file field into memory.
func readUpload(r *http.Request, field string, maxBytes int64) (*domain.FileRef, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%w: %s file is required", errBadRequest, field)
	}
	defer file.Close()
	return fileRef(file, header)
}

func fileRef(file multipart.File, header *multipart.FileHeader) (*domain.FileRef, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errBadRequest, header.Filename, err)
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &domain.FileRef{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}
