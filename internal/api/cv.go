package api

import (
	"fmt"
	"net/http"

	"github.com/ahrav/go-intake/internal/cv"
)

func (s *Server) listPositions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"positions": cv.Positions})
}

// evaluateCV accepts a multipart form with "file", an optional "position_id"
// and optional "requirements" overriding the position's list.
func (s *Server) evaluateCV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: file is required", errBadRequest), nil)
		return
	}
	defer file.Close()

	if err := cv.ValidateFile(header.Filename, header.Size); err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	ref, err := fileRef(file, header)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	res, err := s.deps.Evaluator.Evaluate(r.Context(), cv.Submission{
		File:               *ref,
		PositionID:         r.FormValue("position_id"),
		CustomRequirements: r.FormValue("requirements"),
	})
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if s.deps.Recorder != nil {
		s.deps.Recorder.ObserveEvaluation(res.Decision)
	}
	writeJSON(w, http.StatusOK, res)
}
