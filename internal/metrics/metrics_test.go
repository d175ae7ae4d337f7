package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-intake/internal/domain"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.ObserveWebhook("start_claim", "ok", 120*time.Millisecond)
	m.ObserveWebhook("start_claim", "ok", 80*time.Millisecond)
	m.ObserveWebhook("invoice_uploaded", "http", time.Second)
	m.ObserveTransition(domain.StepNotStarted, domain.StepAwaitingUpload, "started")
	m.ObserveSubmission("ok")
	m.ObserveEvaluation(domain.DecisionAccept)
	m.SetActiveSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.webhookRequests.WithLabelValues("start_claim", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhookRequests.WithLabelValues("invoice_uploaded", "http")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.webhookLatency))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues(
		string(domain.StepNotStarted), string(domain.StepAwaitingUpload), "started")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evaluations.WithLabelValues("Accept")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.activeSessions))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.ObserveSubmission("failed")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.submissions.WithLabelValues("failed")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveSubmission("ok")

	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `intake_submissions_total{outcome="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
