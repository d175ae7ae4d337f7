package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ahrav/go-intake/internal/cv"
	"github.com/ahrav/go-intake/internal/domain"
	"github.com/ahrav/go-intake/internal/intake"
	"github.com/ahrav/go-intake/internal/submission"
	whkerrors "github.com/ahrav/go-intake/internal/webhook/errors"
)

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Error     string          `json:"error"`
	Detail    string          `json:"detail"`
	Field     string          `json:"field,omitempty"`
	Retryable *bool           `json:"retryable,omitempty"`
	Session   *domain.Session `json:"session,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// classify maps an error to a status code and body. The session, when known,
// is echoed so the client can re-render without a second request.
func classify(err error) (int, errorBody) {
	var (
		gate  *domain.GateError
		state *domain.WorkflowStateError
		trans *domain.TransitionError
		step  *intake.StepError
	)
	switch {
	case errors.As(err, &gate):
		return http.StatusUnprocessableEntity, errorBody{Error: "gate_failed", Detail: gate.Reason, Field: gate.Field}
	case errors.As(err, &state):
		return http.StatusConflict, errorBody{Error: "workflow_state", Detail: state.UserMessage()}
	case errors.As(err, &trans):
		return http.StatusConflict, errorBody{Error: "illegal_transition", Detail: trans.Error()}
	case errors.Is(err, intake.ErrActionInFlight):
		return http.StatusConflict, errorBody{Error: "action_in_flight", Detail: err.Error()}
	case errors.Is(err, intake.ErrSuperseded):
		return http.StatusConflict, errorBody{Error: "superseded", Detail: err.Error()}
	case errors.As(err, &step):
		retryable := step.Retryable()
		return http.StatusBadGateway, errorBody{Error: "backend_failed", Detail: step.UserMessage(), Retryable: &retryable}
	case errors.Is(err, ErrUnknownSession):
		return http.StatusNotFound, errorBody{Error: "not_found", Detail: err.Error()}
	case errors.Is(err, submission.ErrIncompleteClaim):
		return http.StatusUnprocessableEntity, errorBody{Error: "incomplete_claim", Detail: err.Error()}
	case errors.Is(err, cv.ErrUnsupportedFile),
		errors.Is(err, cv.ErrFileTooLarge),
		errors.Is(err, cv.ErrEmptyFile),
		errors.Is(err, cv.ErrUnknownPosition),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, errorBody{Error: "bad_request", Detail: err.Error()}
	}

	if wfe := whkerrors.Classify(err); wfe != nil && wfe.Type != whkerrors.ErrorTypeUnknown {
		retryable := wfe.Retryable
		return http.StatusBadGateway, errorBody{Error: "backend_failed", Detail: wfe.UserMessage(), Retryable: &retryable}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal", Detail: "Something went wrong. Please try again."}
}
