// Package api exposes the intake wizard and CV evaluation over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/ahrav/go-intake/internal/cv"
	"github.com/ahrav/go-intake/internal/domain"
)

var errBadRequest = errors.New("bad request")

// Evaluator scores a résumé.
type Evaluator interface {
	Evaluate(ctx context.Context, sub cv.Submission) (*cv.Result, error)
}

// EvaluationRecorder receives CV decisions.
type EvaluationRecorder interface {
	ObserveEvaluation(decision domain.Decision)
}

// Config tunes the HTTP surface.
type Config struct {
	// RequestsPerMinute is the per-IP limit on /api routes. Zero disables it.
	RequestsPerMinute int
	// MaxUploadBytes bounds multipart request bodies.
	MaxUploadBytes int64
}

// Deps are the Server's collaborators. Registry is required; Evaluator,
// Recorder and Metrics may be nil.
type Deps struct {
	Registry  *Registry
	Evaluator Evaluator
	Recorder  EvaluationRecorder
	Metrics   http.Handler
	Logger    *slog.Logger
}

// Server routes HTTP requests to session wizards.
type Server struct {
	cfg  Config
	deps Deps
	log  *slog.Logger
}

// NewServer returns a Server.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 12 << 20
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Server{cfg: cfg, deps: deps, log: deps.Logger.With("component", "api")}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if s.cfg.RequestsPerMinute > 0 {
			r.Use(rateLimit(s.cfg.RequestsPerMinute, time.Minute))
		}
		r.Get("/catalog", s.getCatalog)

		r.Route("/claims", func(r chi.Router) {
			r.Post("/", s.createClaim)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getClaim)
				r.Post("/start", s.start)
				r.Post("/invoice", s.uploadInvoice)
				r.Post("/branch", s.decideBranch)
				r.Patch("/selection", s.updateSelection)
				r.Post("/products/confirm", s.confirmProducts)
				r.Post("/issue", s.describeIssue)
				r.Post("/submit", s.submit)
				r.Post("/back", s.back)
				r.Post("/cancel", s.cancel)
			})
		})

		r.Route("/cv", func(r chi.Router) {
			r.Get("/positions", s.listPositions)
			if s.deps.Evaluator != nil {
				r.Post("/evaluations", s.evaluateCV)
			}
		})
	})
	return r
}

func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			writeJSON(w, http.StatusTooManyRequests, errorBody{
				Error:  "rate_limit_exceeded",
				Detail: "Too many requests. Please try again later.",
			})
		}),
	)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.log.Log(r.Context(), level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, sess *domain.Session) {
	code, body := classify(err)
	if sess != nil {
		v := redact(*sess)
		body.Session = &v
	}
	if code >= http.StatusInternalServerError && code != http.StatusBadGateway {
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, code, body)
}
