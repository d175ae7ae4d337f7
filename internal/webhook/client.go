package webhook

import (
	"log/slog"
	"net/http"
	"time"
)

// ClientConfig assembles the standard handler stack.
type ClientConfig struct {
	DefaultURL string
	// Timeout bounds each HTTP call. Zero leaves the transport default in place.
	Timeout   time.Duration
	RateLimit RateLimitConfig
	Logger    *slog.Logger
	Metrics   Recorder
	// HTTPClient replaces the client built from Timeout, mainly for tests.
	HTTPClient *http.Client
}

// NewClient returns the production pipeline: logging outermost, then metrics,
// then the rate limiter, then the HTTP handler. Rate-limited calls are logged
// and counted like any other failure.
func NewClient(cfg ClientConfig) Handler {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return Chain(
		NewHTTPHandler(client, cfg.DefaultURL),
		NewLoggingMiddleware(cfg.Logger),
		NewMetricsMiddleware(cfg.Metrics),
		NewRateLimitMiddleware(cfg.RateLimit),
	)
}
