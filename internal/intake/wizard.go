package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahrav/go-intake/internal/domain"
	"github.com/ahrav/go-intake/internal/normalize"
	"github.com/ahrav/go-intake/internal/submission"
	"github.com/ahrav/go-intake/internal/webhook"
	whkerrors "github.com/ahrav/go-intake/internal/webhook/errors"
	"github.com/ahrav/go-intake/pkg/events"
)

// DefaultResetDelay is how long a submitted session stays visible before it resets.
const DefaultResetDelay = 5 * time.Second

const eventSource = "intake-wizard"

var (
	// ErrActionInFlight indicates another action of the same session has not
	// completed yet.
	ErrActionInFlight = errors.New("another action is in progress")

	// ErrSuperseded indicates the session was cancelled or reset while the
	// action's backend call was in flight. Only the resume handle and execution
	// id from the late response were kept.
	ErrSuperseded = errors.New("session changed while the request was in flight")
)

// StepError is a backend failure at a step. The session is left at that step
// and the same action may be retried.
type StepError struct {
	Step   domain.Step
	Action webhook.Action
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed at %s: %v", e.Action, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Retryable reports whether retrying the same action can succeed.
func (e *StepError) Retryable() bool { return whkerrors.IsRetryable(e.Err) }

// UserMessage returns the wording for the classified failure.
func (e *StepError) UserMessage() string { return whkerrors.Classify(e.Err).UserMessage() }

// SnapshotStore persists session snapshots. Saves are best-effort.
type SnapshotStore interface {
	Save(ctx context.Context, s domain.Session) error
}

// StopFunc cancels a scheduled callback and reports whether it was still pending.
type StopFunc func() bool

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) StopFunc

func defaultAfterFunc(d time.Duration, f func()) StopFunc {
	return time.AfterFunc(d, f).Stop
}

// Config tunes a Wizard.
type Config struct {
	// ResetDelay is the post-submit countdown. Zero means DefaultResetDelay.
	ResetDelay time.Duration
}

// Recorder receives wizard measurements.
type Recorder interface {
	ObserveTransition(from, to domain.Step, event string)
	ObserveSubmission(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveTransition(domain.Step, domain.Step, string) {}
func (nopRecorder) ObserveSubmission(string)                           {}

// Submission outcomes reported to the Recorder.
const (
	SubmissionOK         = "ok"
	SubmissionFailed     = "failed"
	SubmissionSuperseded = "superseded"
)

// Deps are the Wizard's collaborators. Backend and Submitter are required.
type Deps struct {
	Backend   webhook.Handler
	Submitter submission.Submitter
	Store     SnapshotStore
	Events    events.EventSink
	Metrics   Recorder
	Logger    *slog.Logger
	AfterFunc AfterFunc
	Now       func() time.Time
}

// Wizard drives one session through the claim steps.
//
// Methods are safe for concurrent use but at most one backend-calling action
// runs at a time. While it runs every other action, field edits included,
// returns ErrActionInFlight; only Cancel and Snapshot stay available. State
// changes go through Reduce under mu; backend calls run without holding it.
type Wizard struct {
	cfg  Config
	deps Deps
	log  *slog.Logger

	busy atomic.Bool

	mu      sync.Mutex
	session domain.Session
	// epoch advances on every reset so that late responses and stale countdowns
	// can tell the session they started from is gone.
	epoch     uint64
	stopReset StopFunc
}

// NewWizard returns a Wizard owning s.
func NewWizard(s domain.Session, cfg Config, deps Deps) *Wizard {
	if cfg.ResetDelay <= 0 {
		cfg.ResetDelay = DefaultResetDelay
	}
	if deps.Events == nil {
		deps.Events = events.NewNoOpEventSink()
	}
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.AfterFunc == nil {
		deps.AfterFunc = defaultAfterFunc
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Wizard{
		cfg:     cfg,
		deps:    deps,
		log:     deps.Logger.With("component", "wizard", "session_id", s.ID),
		session: s.Clone(),
	}
}

// Snapshot returns a copy of the current session.
func (w *Wizard) Snapshot() domain.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.Clone()
}

// Busy reports whether a backend call is in flight.
func (w *Wizard) Busy() bool { return w.busy.Load() }

// Settled reports whether the wizard has no call in flight and no countdown
// armed, so dropping it loses nothing the snapshot store does not hold.
func (w *Wizard) Settled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.busy.Load() && w.stopReset == nil
}

// Start calls start_claim and opens the upload step.
func (w *Wizard) Start(ctx context.Context) (domain.Session, error) {
	return w.callStep(ctx, webhook.ActionStartClaim, CheckStart,
		func(domain.Session) (*webhook.Request, error) {
			return &webhook.Request{Action: webhook.ActionStartClaim}, nil
		},
		func(resp domain.NormalizedResponse) Event { return Started{Response: resp} },
	)
}

// AttachInvoice stores the invoice to be uploaded.
func (w *Wizard) AttachInvoice(ctx context.Context, f *domain.FileRef) (domain.Session, error) {
	return w.apply(ctx, InvoiceAttached{Invoice: f})
}

// UploadInvoice sends the attached invoice to the resume handle and routes the
// session by the warranty outcome.
func (w *Wizard) UploadInvoice(ctx context.Context) (domain.Session, error) {
	return w.callStep(ctx, webhook.ActionInvoiceUploaded, CheckUpload,
		func(s domain.Session) (*webhook.Request, error) {
			handle, err := RequireResumeHandle(s, string(webhook.ActionInvoiceUploaded))
			if err != nil {
				return nil, err
			}
			req := &webhook.Request{
				Action:      webhook.ActionInvoiceUploaded,
				TargetURL:   handle,
				ExecutionID: s.ExecutionID,
				Step:        webhook.StepUploadComplete,
			}
			req.AttachFile("invoice", s.Payload.Invoice)
			return req, nil
		},
		func(resp domain.NormalizedResponse) Event { return InvoiceProcessed{Response: resp} },
	)
}

// DecideBranch answers the open warranty or invalid-invoice dialog.
func (w *Wizard) DecideBranch(ctx context.Context, proceed bool) (domain.Session, error) {
	return w.apply(ctx, BranchDecided{Proceed: proceed})
}

// SelectProducts replaces the product selection.
func (w *Wizard) SelectProducts(ctx context.Context, products []string) (domain.Session, error) {
	return w.apply(ctx, ProductsSelected{Products: products})
}

// ToggleProduct adds product to the selection or removes it when present.
func (w *Wizard) ToggleProduct(ctx context.Context, product string) (domain.Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy.Load() {
		return w.session.Clone(), ErrActionInFlight
	}

	current := w.session.Payload.SelectedProducts
	selected := make([]string, 0, len(current)+1)
	found := false
	for _, p := range current {
		if p == product {
			found = true
			continue
		}
		selected = append(selected, p)
	}
	if !found {
		selected = append(selected, product)
	}
	return w.applyLocked(ctx, ProductsSelected{Products: selected})
}

// SelectSupportType picks the support category.
func (w *Wizard) SelectSupportType(ctx context.Context, supportType string) (domain.Session, error) {
	return w.apply(ctx, SupportTypeSelected{SupportType: supportType})
}

// SelectIssueType picks the issue label.
func (w *Wizard) SelectIssueType(ctx context.Context, issueType string) (domain.Session, error) {
	return w.apply(ctx, IssueTypeSelected{IssueType: issueType})
}

// EnterIssueText sets the free-text issue.
func (w *Wizard) EnterIssueText(ctx context.Context, text string) (domain.Session, error) {
	return w.apply(ctx, IssueTextEntered{Text: text})
}

// SelectResolution picks the requested resolution.
func (w *Wizard) SelectResolution(ctx context.Context, resolution string) (domain.Session, error) {
	return w.apply(ctx, ResolutionSelected{Resolution: resolution})
}

// EnterResolutionText sets the free-text resolution.
func (w *Wizard) EnterResolutionText(ctx context.Context, text string) (domain.Session, error) {
	return w.apply(ctx, ResolutionTextEntered{Text: text})
}

// EnterDetails sets additional details for the ticket.
func (w *Wizard) EnterDetails(ctx context.Context, text string) (domain.Session, error) {
	return w.apply(ctx, DetailsEntered{Text: text})
}

// EnterEmail sets the notification address.
func (w *Wizard) EnterEmail(ctx context.Context, email string) (domain.Session, error) {
	return w.apply(ctx, EmailEntered{Email: email})
}

// ConfirmProducts advances to the issue step. No backend call is made.
func (w *Wizard) ConfirmProducts(ctx context.Context) (domain.Session, error) {
	return w.apply(ctx, ProductsConfirmed{})
}

// DescribeIssue sends issue_described and captures the backend's analysis.
func (w *Wizard) DescribeIssue(ctx context.Context) (domain.Session, error) {
	return w.callStep(ctx, webhook.ActionIssueDescribed, CheckIssue,
		func(s domain.Session) (*webhook.Request, error) {
			handle, err := RequireResumeHandle(s, string(webhook.ActionIssueDescribed))
			if err != nil {
				return nil, err
			}
			req := &webhook.Request{
				Action:      webhook.ActionIssueDescribed,
				TargetURL:   handle,
				ExecutionID: s.ExecutionID,
				Step:        webhook.StepIssueComplete,
			}
			req.Set("issueDescription", s.Payload.IssueText())
			req.Set("issueType", s.Payload.IssueType)
			if err := req.SetJSON("selectedProducts", s.Payload.SelectedProducts); err != nil {
				return nil, err
			}
			req.Set("supportType", s.Payload.SupportType)
			return req, nil
		},
		func(resp domain.NormalizedResponse) Event { return IssueDescribed{Response: resp} },
	)
}

// Submit assembles the ticket and hands it to the Submitter. On success the
// session is Submitted and resets after the configured delay.
func (w *Wizard) Submit(ctx context.Context) (domain.Session, error) {
	if !w.busy.CompareAndSwap(false, true) {
		return w.Snapshot(), ErrActionInFlight
	}
	defer w.busy.Store(false)

	s, epoch := w.begin()
	if err := CheckResolution(s); err != nil {
		return s, err
	}
	if _, err := RequireResumeHandle(s, string(webhook.ActionClaimSubmitted)); err != nil {
		return s, err
	}
	claim, err := submission.Assemble(s)
	if err != nil {
		return s, err
	}

	res, err := w.deps.Submitter.Submit(ctx, claim)
	if err != nil {
		w.log.WarnContext(ctx, "submission failed", "step", s.Step, "error", err)
		w.deps.Metrics.ObserveSubmission(SubmissionFailed)
		return s, &StepError{Step: s.Step, Action: webhook.ActionClaimSubmitted, Err: err}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		w.deps.Metrics.ObserveSubmission(SubmissionSuperseded)
		return w.session.Clone(), ErrSuperseded
	}
	w.deps.Metrics.ObserveSubmission(SubmissionOK)
	next, err := w.applyLocked(ctx, Submitted{Receipt: domain.Receipt{
		Title:            res.Title,
		Priority:         res.Priority,
		NotificationSent: res.NotificationSent,
		SubmittedAt:      w.deps.Now(),
	}})
	if err != nil {
		w.log.ErrorContext(ctx, "ticket created but session not submitted", "error", err)
		return next, err
	}
	w.emit(ctx, events.TypeSubmitted, next, map[string]any{
		"title":             res.Title,
		"priority":          res.Priority,
		"notification_sent": res.NotificationSent,
	})
	w.scheduleResetLocked(w.epoch)
	return next, nil
}

// Back returns to the previous step. It is refused while a call is in flight.
func (w *Wizard) Back(ctx context.Context) (domain.Session, error) {
	return w.apply(ctx, Back{})
}

// Cancel abandons the session. A call still in flight completes, but only its
// resume handle and execution id are kept.
func (w *Wizard) Cancel(ctx context.Context) domain.Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	next, _ := w.applyLocked(ctx, Cancelled{})
	return next
}

func (w *Wizard) begin() (domain.Session, uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.Clone(), w.epoch
}

// callStep runs one backend-calling action: gate, request, normalize, reduce.
// A failing gate or a missing resume handle returns before anything is sent.
func (w *Wizard) callStep(
	ctx context.Context,
	action webhook.Action,
	gate func(domain.Session) error,
	build func(domain.Session) (*webhook.Request, error),
	event func(domain.NormalizedResponse) Event,
) (domain.Session, error) {
	if !w.busy.CompareAndSwap(false, true) {
		return w.Snapshot(), ErrActionInFlight
	}
	defer w.busy.Store(false)

	s, epoch := w.begin()
	if err := gate(s); err != nil {
		return s, err
	}
	req, err := build(s)
	if err != nil {
		return s, err
	}

	resp, err := w.deps.Backend.Handle(ctx, req)
	if err != nil {
		w.log.WarnContext(ctx, "backend call failed", "action", action, "step", s.Step, "error", err)
		return s, &StepError{Step: s.Step, Action: action, Err: err}
	}
	norm := normalize.Normalize(resp.Body)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.epoch != epoch {
		w.log.InfoContext(ctx, "late response after reset", "action", action)
		next, _ := w.applyLocked(ctx, ResponseObserved{Response: norm})
		return next, ErrSuperseded
	}
	next, err := w.applyLocked(ctx, event(norm))
	if err != nil {
		// Keep the handle of a successful response even when the step cannot
		// advance.
		next, _ = w.applyLocked(ctx, ResponseObserved{Response: norm})
		return next, err
	}
	return next, nil
}

// apply reduces a user edit. Edits are refused while a backend call is in
// flight so the call completes against the session it was sent for.
func (w *Wizard) apply(ctx context.Context, ev Event) (domain.Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy.Load() {
		return w.session.Clone(), ErrActionInFlight
	}
	return w.applyLocked(ctx, ev)
}

// applyLocked reduces ev into the session, then logs, persists and emits.
// mu must be held.
func (w *Wizard) applyLocked(ctx context.Context, ev Event) (domain.Session, error) {
	prev := w.session
	next, err := Reduce(prev, ev)
	if err != nil {
		return prev.Clone(), err
	}
	w.session = next

	var reset bool
	switch ev.(type) {
	case Cancelled, CountdownElapsed:
		reset = true
	case BranchDecided:
		reset = next.Step == domain.StepNotStarted
	}
	if reset {
		w.epoch++
		if w.stopReset != nil {
			w.stopReset()
			w.stopReset = nil
		}
	}

	if prev.Step != next.Step || prev.Branch != next.Branch {
		w.log.InfoContext(ctx, "step changed",
			"from", prev.Step,
			"to", next.Step,
			"branch", next.Branch,
			"event", ev.Name())
		w.deps.Metrics.ObserveTransition(prev.Step, next.Step, ev.Name())
		if reset {
			w.emit(ctx, events.TypeReset, next, map[string]any{"from": prev.Step, "event": ev.Name()})
		} else {
			w.emit(ctx, events.TypeStepChanged, next, map[string]any{
				"from": prev.Step, "to": next.Step, "branch": next.Branch, "event": ev.Name(),
			})
		}
	}
	w.persist(ctx, next)
	return next.Clone(), nil
}

// scheduleResetLocked arms the post-submit countdown for the given epoch.
func (w *Wizard) scheduleResetLocked(epoch uint64) {
	if w.stopReset != nil {
		w.stopReset()
	}
	w.stopReset = w.deps.AfterFunc(w.cfg.ResetDelay, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.epoch != epoch {
			return
		}
		w.stopReset = nil
		_, _ = w.applyLocked(context.Background(), CountdownElapsed{})
	})
}

func (w *Wizard) persist(ctx context.Context, s domain.Session) {
	if w.deps.Store == nil {
		return
	}
	if err := w.deps.Store.Save(ctx, s); err != nil {
		w.log.ErrorContext(ctx, "snapshot save failed", "error", err)
	}
}

func (w *Wizard) emit(ctx context.Context, eventType string, s domain.Session, payload any) {
	env, err := events.NewEnvelope(eventType, eventSource, s.ID, payload, w.deps.Now())
	if err != nil {
		w.log.ErrorContext(ctx, "event encoding failed", "type", eventType, "error", err)
		return
	}
	env.ExecutionID = s.ExecutionID
	if err := w.deps.Events.Append(ctx, env); err != nil {
		w.log.ErrorContext(ctx, "event emission failed", "type", eventType, "error", err)
	}
}
