// Package metrics exposes Prometheus instruments for the intake service.
//
// Each Metrics owns its registry so tests and multiple servers in one process
// do not collide on registration.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahrav/go-intake/internal/domain"
)

const namespace = "intake"

// Metrics records backend calls, step transitions, submissions and CV
// evaluations.
type Metrics struct {
	registry *prometheus.Registry

	webhookRequests *prometheus.CounterVec
	webhookLatency  *prometheus.HistogramVec
	transitions     *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	evaluations     *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// New registers every instrument on a fresh registry, along with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		webhookRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_requests_total",
			Help:      "Backend webhook requests by action and outcome.",
		}, []string{"action", "outcome"}),
		webhookLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_request_duration_seconds",
			Help:      "Backend webhook latency by action.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"action"}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_transitions_total",
			Help:      "Session step transitions.",
		}, []string{"from", "to", "event"}),
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Claim submissions by outcome.",
		}, []string{"outcome"}),
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cv_evaluations_total",
			Help:      "CV evaluations by decision.",
		}, []string{"decision"}),
		activeSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions held in memory by the API.",
		}),
	}
}

// ObserveWebhook records one backend call.
func (m *Metrics) ObserveWebhook(action, outcome string, d time.Duration) {
	m.webhookRequests.WithLabelValues(action, outcome).Inc()
	m.webhookLatency.WithLabelValues(action).Observe(d.Seconds())
}

// ObserveTransition records a step change.
func (m *Metrics) ObserveTransition(from, to domain.Step, event string) {
	m.transitions.WithLabelValues(string(from), string(to), event).Inc()
}

// ObserveSubmission records a submission outcome.
func (m *Metrics) ObserveSubmission(outcome string) {
	m.submissions.WithLabelValues(outcome).Inc()
}

// ObserveEvaluation records a CV decision.
func (m *Metrics) ObserveEvaluation(decision domain.Decision) {
	m.evaluations.WithLabelValues(string(decision)).Inc()
}

// SetActiveSessions reports the registry size.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
