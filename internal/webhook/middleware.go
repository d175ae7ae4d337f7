package webhook

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	whkerrors "github.com/ahrav/go-intake/internal/webhook/errors"
)

// NewLoggingMiddleware logs every backend call with its action, step, outcome
// and latency. Requests without an ID are assigned one so that the log lines
// of a call and the backend's X-Request-ID can be correlated.
func NewLoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "webhook")

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if req.RequestID == "" {
				req.RequestID = uuid.NewString()
			}
			fields := []any{
				"request_id", req.RequestID,
				"action", req.Action.Label(),
				"step", req.Step,
				"execution_id", req.ExecutionID,
				"has_target", req.TargetURL != "",
			}
			logger.DebugContext(ctx, "webhook request", fields...)

			start := time.Now()
			resp, err := next.Handle(ctx, req)
			fields = append(fields, "duration_ms", time.Since(start).Milliseconds())

			if err != nil {
				we := whkerrors.Classify(err)
				logger.WarnContext(ctx, "webhook request failed",
					append(fields, "error_type", we.Type, "retryable", we.Retryable, "error", err)...)
				return nil, err
			}
			logger.InfoContext(ctx, "webhook request completed",
				append(fields, "status", resp.StatusCode, "bytes", len(resp.Body))...)
			return resp, nil
		})
	}
}

// Recorder receives per-call observations. internal/metrics provides the
// Prometheus implementation.
type Recorder interface {
	ObserveWebhook(action, outcome string, d time.Duration)
}

// NewMetricsMiddleware reports each call's outcome ("ok" or the classified
// error type) and duration.
func NewMetricsMiddleware(rec Recorder) Middleware {
	return func(next Handler) Handler {
		if rec == nil {
			return next
		}
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			start := time.Now()
			resp, err := next.Handle(ctx, req)
			outcome := "ok"
			if err != nil {
				outcome = string(whkerrors.Classify(err).Type)
			}
			rec.ObserveWebhook(req.Action.Label(), outcome, time.Since(start))
			return resp, err
		})
	}
}

// RateLimitConfig configures the outbound token bucket. A non-positive
// RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// NewRateLimitMiddleware enforces a local token bucket on outbound calls.
// A refused call never reaches the backend and returns a *RateLimitError with
// the wait until the next token, rounded up to at least one second.
func NewRateLimitMiddleware(cfg RateLimitConfig) Middleware {
	return func(next Handler) Handler {
		if cfg.RequestsPerSecond <= 0 {
			return next
		}
		burst := max(cfg.Burst, 1)
		limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)

		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if !limiter.Allow() {
				// Reserve only to learn the delay; cancel so no token is consumed.
				r := limiter.Reserve()
				delay := r.Delay()
				r.Cancel()

				wait := time.Duration(math.Ceil(delay.Seconds())) * time.Second
				if wait < time.Second {
					wait = time.Second
				}
				return nil, &whkerrors.RateLimitError{RetryAfter: wait, Limit: cfg.RequestsPerSecond}
			}
			return next.Handle(ctx, req)
		})
	}
}

// IsRateLimited reports whether err came from the local limiter.
func IsRateLimited(err error) bool {
	return errors.Is(err, whkerrors.ErrRateLimitExceeded)
}
