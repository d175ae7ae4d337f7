package intake_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-intake/internal/domain"
	"github.com/ahrav/go-intake/internal/intake"
	"github.com/ahrav/go-intake/internal/submission"
	"github.com/ahrav/go-intake/internal/webhook"
	"github.com/ahrav/go-intake/pkg/events"
)

// fakeBackend stands in for the automation backend. Every response issues a
// fresh resume handle /resume/N so tests can check which one a request used.
type fakeBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	requests []map[string][]string
	paths    []string
	issued   int
	bodies   map[string]map[string]any
	fail     map[string]int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{t: t, bodies: map[string]map[string]any{}, fail: map[string]int{}}
	b.srv = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	action := r.FormValue("action")

	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, r.MultipartForm.Value)
	b.paths = append(b.paths, r.URL.Path)
	if status := b.fail[action]; status != 0 {
		delete(b.fail, action)
		w.WriteHeader(status)
		return
	}

	b.issued++
	body := map[string]any{
		"resumeUrl":   fmt.Sprintf("%s/resume/%d", b.srv.URL, b.issued),
		"executionId": "exec-42",
	}
	for k, v := range b.bodies[action] {
		body[k] = v
	}
	_ = json.NewEncoder(w).Encode(body)
}

func (b *fakeBackend) resumeURL(n int) string { return fmt.Sprintf("%s/resume/%d", b.srv.URL, n) }

func (b *fakeBackend) calls() []map[string][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string][]string(nil), b.requests...)
}

func (b *fakeBackend) actions() []string {
	var out []string
	for _, r := range b.calls() {
		out = append(out, r["action"][0])
	}
	return out
}

type manualTimer struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
}

func (m *manualTimer) AfterFunc(d time.Duration, f func()) intake.StopFunc {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay, m.fn = d, f
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		pending := m.fn != nil
		m.fn = nil
		return pending
	}
}

func (m *manualTimer) fire() {
	m.mu.Lock()
	f := m.fn
	m.fn = nil
	m.mu.Unlock()
	if f != nil {
		f()
	}
}

type recordingSink struct {
	mu    sync.Mutex
	types []string
}

func (r *recordingSink) Append(_ context.Context, e events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.Type)
	return nil
}

type harness struct {
	backend *fakeBackend
	timer   *manualTimer
	sink    *recordingSink
	wizard  *intake.Wizard
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := newFakeBackend(t)
	handler := webhook.NewHTTPHandler(backend.srv.Client(), backend.srv.URL+"/start")
	h := &harness{backend: backend, timer: &manualTimer{}, sink: &recordingSink{}}
	h.wizard = intake.NewWizard(domain.NewSession("sess-1"), intake.Config{}, intake.Deps{
		Backend:   handler,
		Submitter: submission.NewDispatcher(handler, backend.srv.URL+"/ticket", nil),
		Events:    h.sink,
		AfterFunc: h.timer.AfterFunc,
	})
	return h
}

func invoice() *domain.FileRef {
	return &domain.FileRef{Name: "invoice.pdf", ContentType: "application/pdf", Size: 4, Data: []byte("%PDF")}
}

func TestWizard_HappyPath(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.backend.bodies["invoice_uploaded"] = map[string]any{
		"products":       []any{map[string]any{"name": "iPhone 15"}, map[string]any{"name": "AirPods Pro"}, map[string]any{"name": "Apple Watch"}},
		"warrantyStatus": "available",
		"customerName":   "Jane Roe",
		"invoiceNumber":  "INV-0042",
	}
	h.backend.bodies["issue_described"] = map[string]any{"output": "Likely battery degradation."}
	w := h.wizard

	s, err := w.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StepAwaitingUpload, s.Step)

	_, err = w.AttachInvoice(ctx, invoice())
	require.NoError(t, err)
	s, err = w.UploadInvoice(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.BranchWarrantyAvailable, s.Branch)
	assert.Equal(t, []string{"iPhone 15", "AirPods Pro", "Apple Watch"}, s.OfferedProducts)

	s, err = w.DecideBranch(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, domain.StepAwaitingProductSelection, s.Step)

	_, err = w.ToggleProduct(ctx, "iPhone 15")
	require.NoError(t, err)
	_, err = w.ToggleProduct(ctx, "AirPods Pro")
	require.NoError(t, err)
	_, err = w.SelectSupportType(ctx, domain.SupportTroubleshooting)
	require.NoError(t, err)
	s, err = w.ConfirmProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StepAwaitingIssueDescription, s.Step)

	_, err = w.SelectIssueType(ctx, "Battery draining quickly")
	require.NoError(t, err)
	s, err = w.DescribeIssue(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StepAwaitingResolution, s.Step)
	assert.Equal(t, "Likely battery degradation.", s.Narrative)

	_, err = w.SelectResolution(ctx, "Repair service")
	require.NoError(t, err)
	_, err = w.EnterEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	s, err = w.Submit(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.StepSubmitted, s.Step)
	require.NotNil(t, s.Receipt)
	assert.Equal(t, "Troubleshooting: Battery draining quickly", s.Receipt.Title)
	assert.Equal(t, "Medium", s.Receipt.Priority)
	assert.True(t, s.Receipt.NotificationSent)

	assert.Equal(t,
		[]string{"start_claim", "invoice_uploaded", "issue_described", "claim_submitted", "send_email"},
		h.backend.actions())

	calls := h.backend.calls()
	assert.NotContains(t, calls[0], "targetUrl", "start carries no resume handle")
	assert.Equal(t, []string{h.backend.resumeURL(1)}, calls[1]["targetUrl"])
	assert.Equal(t, []string{h.backend.resumeURL(2)}, calls[2]["targetUrl"])
	assert.Equal(t, []string{h.backend.resumeURL(3)}, calls[3]["targetUrl"])
	assert.Equal(t, []string{h.backend.resumeURL(3)}, calls[4]["targetUrl"])
	assert.Equal(t, []string{`["iPhone 15","AirPods Pro"]`}, calls[2]["selectedProducts"])
	assert.Equal(t, []string{"Troubleshooting: Battery draining quickly"}, calls[3]["title"])
	assert.Equal(t, []string{"exec-42"}, calls[3]["executionId"])

	assert.Equal(t, intake.DefaultResetDelay, h.timer.delay)
	h.timer.fire()
	assert.Equal(t, domain.NewSession("sess-1"), w.Snapshot(), "countdown restores the initial session")

	assert.Contains(t, h.sink.types, events.TypeSubmitted)
	assert.Contains(t, h.sink.types, events.TypeReset)
}

func TestWizard_InvalidInvoiceResetsWithoutProductSelection(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.backend.bodies["invoice_uploaded"] = map[string]any{"warrantyStatus": "invalid - no match"}
	w := h.wizard

	_, err := w.Start(ctx)
	require.NoError(t, err)
	_, err = w.AttachInvoice(ctx, invoice())
	require.NoError(t, err)
	s, err := w.UploadInvoice(ctx)
	require.NoError(t, err)

	assert.Equal(t, domain.BranchInvalidInvoice, s.Branch)
	assert.Equal(t, domain.WarrantyInvalid, s.Warranty)
	assert.NotEqual(t, domain.StepAwaitingProductSelection, s.Step)

	_, err = w.SelectProducts(ctx, []string{"iMac"})
	require.ErrorIs(t, err, domain.ErrIllegalTransition)

	s, err = w.DecideBranch(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, domain.NewSession("sess-1"), s)
	assert.Equal(t, []string{"start_claim", "invoice_uploaded"}, h.backend.actions())
}

func TestWizard_MissingResumeHandleIsLocal(t *testing.T) {
	ctx := context.Background()
	backendCalls := 0
	backend := webhook.HandlerFunc(func(context.Context, *webhook.Request) (*webhook.Response, error) {
		backendCalls++
		return &webhook.Response{StatusCode: http.StatusOK}, nil
	})
	w := intake.NewWizard(domain.NewSession("sess-1"), intake.Config{}, intake.Deps{Backend: backend})

	s, err := w.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StepAwaitingUpload, s.Step)
	assert.Empty(t, s.ResumeHandle)

	_, err = w.AttachInvoice(ctx, invoice())
	require.NoError(t, err)
	_, err = w.UploadInvoice(ctx)

	var wse *domain.WorkflowStateError
	require.ErrorAs(t, err, &wse)
	assert.Equal(t, 1, backendCalls, "nothing is sent without a resume handle")
	assert.Equal(t, domain.StepAwaitingUpload, w.Snapshot().Step)
}

func TestWizard_GatesAreNoOps(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	w := h.wizard

	_, err := w.Start(ctx)
	require.NoError(t, err)

	before := w.Snapshot()
	_, err = w.UploadInvoice(ctx)
	require.ErrorIs(t, err, domain.ErrGateFailed)
	assert.Equal(t, before, w.Snapshot())
	assert.Equal(t, []string{"start_claim"}, h.backend.actions())

	_, err = w.DescribeIssue(ctx)
	require.ErrorIs(t, err, domain.ErrIllegalTransition)
	_, err = w.Submit(ctx)
	require.ErrorIs(t, err, domain.ErrIllegalTransition)
	assert.Equal(t, []string{"start_claim"}, h.backend.actions())
}

func TestWizard_BackendFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.backend.fail["invoice_uploaded"] = http.StatusBadGateway
	w := h.wizard

	_, err := w.Start(ctx)
	require.NoError(t, err)
	_, err = w.AttachInvoice(ctx, invoice())
	require.NoError(t, err)

	s, err := w.UploadInvoice(ctx)
	var stepErr *intake.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.True(t, stepErr.Retryable())
	assert.Equal(t, domain.StepAwaitingUpload, stepErr.Step)
	assert.Contains(t, stepErr.UserMessage(), "HTTP 502")
	assert.Equal(t, domain.StepAwaitingUpload, s.Step)
	assert.Equal(t, h.backend.resumeURL(1), s.ResumeHandle)

	s, err = w.UploadInvoice(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StepAwaitingProductSelection, s.Step)
	assert.Equal(t, h.backend.resumeURL(2), s.ResumeHandle)
}

func TestWizard_CanceledRequestIsRetryable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	w := h.wizard

	_, err := w.Start(ctx)
	require.NoError(t, err)
	_, err = w.AttachInvoice(ctx, invoice())
	require.NoError(t, err)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	s, err := w.UploadInvoice(canceled)
	var stepErr *intake.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, stepErr.Retryable())
	assert.Contains(t, stepErr.UserMessage(), "Unable to connect")
	assert.Equal(t, domain.StepAwaitingUpload, s.Step)
	assert.False(t, w.Busy())

	s, err = w.UploadInvoice(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StepAwaitingProductSelection, s.Step)
}

func TestWizard_BackNavigation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	w := h.wizard

	_, err := w.Start(ctx)
	require.NoError(t, err)
	_, err = w.AttachInvoice(ctx, invoice())
	require.NoError(t, err)
	_, err = w.UploadInvoice(ctx)
	require.NoError(t, err)
	_, err = w.SelectProducts(ctx, []string{"iMac"})
	require.NoError(t, err)
	_, err = w.SelectSupportType(ctx, domain.SupportGeneralQuestions)
	require.NoError(t, err)
	_, err = w.ConfirmProducts(ctx)
	require.NoError(t, err)

	s, err := w.Back(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StepAwaitingProductSelection, s.Step)
	assert.Equal(t, []string{"iMac"}, s.Payload.SelectedProducts)
	assert.Len(t, h.backend.actions(), 2, "back never calls the backend")
}

func TestWizard_SingleActionInFlightAndLateResponse(t *testing.T) {
	ctx := context.Background()
	entered := make(chan struct{})
	release := make(chan struct{})
	backend := webhook.HandlerFunc(func(context.Context, *webhook.Request) (*webhook.Response, error) {
		close(entered)
		<-release
		return &webhook.Response{StatusCode: http.StatusOK, Body: []byte(`{"resumeUrl":"https://r/late","executionId":"e-late"}`)}, nil
	})
	w := intake.NewWizard(domain.NewSession("sess-1"), intake.Config{}, intake.Deps{Backend: backend})

	type result struct {
		s   domain.Session
		err error
	}
	done := make(chan result, 1)
	go func() {
		s, err := w.Start(ctx)
		done <- result{s, err}
	}()
	<-entered

	assert.True(t, w.Busy())
	_, err := w.Start(ctx)
	require.ErrorIs(t, err, intake.ErrActionInFlight)
	_, err = w.Back(ctx)
	require.ErrorIs(t, err, intake.ErrActionInFlight)

	w.Cancel(ctx)
	close(release)
	r := <-done

	require.ErrorIs(t, r.err, intake.ErrSuperseded)
	assert.Equal(t, domain.StepNotStarted, r.s.Step, "late response does not advance")
	assert.Equal(t, "https://r/late", r.s.ResumeHandle, "late response still updates the handle")
	assert.Equal(t, "e-late", r.s.ExecutionID)
	assert.False(t, w.Busy())
}

func TestWizard_CancelStopsCountdown(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	w := h.wizard

	_, err := w.Start(ctx)
	require.NoError(t, err)
	_, err = w.AttachInvoice(ctx, invoice())
	require.NoError(t, err)
	_, err = w.UploadInvoice(ctx)
	require.NoError(t, err)
	_, err = w.SelectProducts(ctx, []string{"iMac"})
	require.NoError(t, err)
	_, err = w.SelectSupportType(ctx, domain.SupportWarrantyClaim)
	require.NoError(t, err)
	_, err = w.ConfirmProducts(ctx)
	require.NoError(t, err)
	_, err = w.SelectIssueType(ctx, "Quality issues")
	require.NoError(t, err)
	_, err = w.DescribeIssue(ctx)
	require.NoError(t, err)
	_, err = w.SelectResolution(ctx, "Store credit")
	require.NoError(t, err)
	_, err = w.EnterEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	s, err := w.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "High", s.Receipt.Priority)

	w.Cancel(ctx)
	_, err = w.Start(ctx)
	require.NoError(t, err)

	h.timer.fire()
	assert.Equal(t, domain.StepAwaitingUpload, w.Snapshot().Step, "a stale countdown does not reset the new claim")
}

// gatedBackend answers every action with a fresh handle and holds the action
// named in hold until release is closed.
type gatedBackend struct {
	hold    webhook.Action
	entered chan struct{}
	release chan struct{}

	mu     sync.Mutex
	issued int
}

func newGatedBackend(hold webhook.Action) *gatedBackend {
	return &gatedBackend{hold: hold, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedBackend) Handle(_ context.Context, req *webhook.Request) (*webhook.Response, error) {
	if req.Action == g.hold {
		close(g.entered)
		<-g.release
	}
	g.mu.Lock()
	g.issued++
	n := g.issued
	g.mu.Unlock()
	body := fmt.Sprintf(`{"resumeUrl":"https://b/resume/%d","executionId":"exec-1"}`, n)
	return &webhook.Response{StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

type gatedSubmitter struct {
	entered chan struct{}
	release chan struct{}

	mu    sync.Mutex
	calls int
}

func (g *gatedSubmitter) Submit(_ context.Context, claim submission.Claim) (*submission.Result, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	close(g.entered)
	<-g.release
	return &submission.Result{Title: claim.Title, Priority: claim.Priority, NotificationSent: true}, nil
}

func advanceToIssueStep(t *testing.T, w *intake.Wizard) {
	t.Helper()
	ctx := context.Background()
	_, err := w.Start(ctx)
	require.NoError(t, err)
	_, err = w.AttachInvoice(ctx, invoice())
	require.NoError(t, err)
	_, err = w.UploadInvoice(ctx)
	require.NoError(t, err)
	_, err = w.SelectProducts(ctx, []string{"iMac"})
	require.NoError(t, err)
	_, err = w.SelectSupportType(ctx, domain.SupportTroubleshooting)
	require.NoError(t, err)
	_, err = w.ConfirmProducts(ctx)
	require.NoError(t, err)
	_, err = w.SelectIssueType(ctx, "Overheating issues")
	require.NoError(t, err)
}

func TestWizard_EditsRefusedWhileDescribeIssueInFlight(t *testing.T) {
	ctx := context.Background()
	backend := newGatedBackend(webhook.ActionIssueDescribed)
	w := intake.NewWizard(domain.NewSession("sess-1"), intake.Config{}, intake.Deps{Backend: backend})
	advanceToIssueStep(t, w)

	done := make(chan error, 1)
	go func() {
		_, err := w.DescribeIssue(ctx)
		done <- err
	}()
	<-backend.entered

	edits := map[string]func() (domain.Session, error){
		"issue type": func() (domain.Session, error) {
			return w.SelectIssueType(ctx, domain.OtherOption)
		},
		"issue text": func() (domain.Session, error) {
			return w.EnterIssueText(ctx, "x")
		},
		"email": func() (domain.Session, error) {
			return w.EnterEmail(ctx, "not-an-email")
		},
		"products": func() (domain.Session, error) {
			return w.SelectProducts(ctx, nil)
		},
		"toggle": func() (domain.Session, error) {
			return w.ToggleProduct(ctx, "iMac")
		},
		"attach": func() (domain.Session, error) {
			return w.AttachInvoice(ctx, invoice())
		},
	}
	for name, edit := range edits {
		_, err := edit()
		assert.ErrorIs(t, err, intake.ErrActionInFlight, name)
	}
	assert.Equal(t, "Overheating issues", w.Snapshot().Payload.IssueType)

	close(backend.release)
	require.NoError(t, <-done)

	s := w.Snapshot()
	assert.Equal(t, domain.StepAwaitingResolution, s.Step)
	assert.Equal(t, "https://b/resume/3", s.ResumeHandle, "the latest successful response owns the handle")
	assert.Equal(t, []string{"iMac"}, s.Payload.SelectedProducts)
}

func TestWizard_EditsRefusedWhileSubmitInFlight(t *testing.T) {
	ctx := context.Background()
	submitter := &gatedSubmitter{entered: make(chan struct{}), release: make(chan struct{})}
	timer := &manualTimer{}
	w := intake.NewWizard(domain.NewSession("sess-1"), intake.Config{}, intake.Deps{
		Backend:   newGatedBackend(""),
		Submitter: submitter,
		AfterFunc: timer.AfterFunc,
	})
	advanceToIssueStep(t, w)
	_, err := w.DescribeIssue(ctx)
	require.NoError(t, err)
	_, err = w.SelectResolution(ctx, "Repair service")
	require.NoError(t, err)
	_, err = w.EnterEmail(ctx, "jane@example.com")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := w.Submit(ctx)
		done <- err
	}()
	<-submitter.entered

	_, err = w.EnterEmail(ctx, "not-an-email")
	assert.ErrorIs(t, err, intake.ErrActionInFlight)
	_, err = w.Back(ctx)
	assert.ErrorIs(t, err, intake.ErrActionInFlight)

	close(submitter.release)
	require.NoError(t, <-done)

	s := w.Snapshot()
	assert.Equal(t, domain.StepSubmitted, s.Step)
	assert.Equal(t, "jane@example.com", s.Payload.NotificationEmail)
	assert.Equal(t, 1, submitter.calls)
}
