package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-intake/internal/domain"
	"github.com/ahrav/go-intake/internal/intake"
	"github.com/ahrav/go-intake/internal/session"
)

// ErrUnknownSession indicates no live or persisted session has the requested ID.
var ErrUnknownSession = errors.New("unknown session")

// DefaultIdleTimeout is how long a wizard stays in memory without a request.
const DefaultIdleTimeout = 30 * time.Minute

// WizardFactory builds a Wizard around a new or restored session.
type WizardFactory func(s domain.Session) *intake.Wizard

// SessionGauge receives the number of live wizards.
type SessionGauge interface {
	SetActiveSessions(n int)
}

// sweeper is implemented by stores that can drop expired snapshots in bulk.
type sweeper interface {
	Sweep() int
}

type registryEntry struct {
	wizard   *intake.Wizard
	lastUsed time.Time
}

// Registry holds one Wizard per session. Sessions not held in memory are
// restored from the snapshot store on first access, so a session survives a
// restart or an idle eviction.
//
// A Wizard serializes the actions of its session only within this process.
// Requests for one session must reach the same replica; the shared store
// covers failover, not concurrent use from two replicas.
type Registry struct {
	store     session.Store
	newWizard WizardFactory
	gauge     SessionGauge
	idle      time.Duration
	now       func() time.Time

	mu      sync.Mutex
	wizards map[string]*registryEntry
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithIdleTimeout sets how long a wizard may go without a request before
// Sweep evicts it. Non-positive values keep DefaultIdleTimeout.
func WithIdleTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.idle = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// NewRegistry returns an empty Registry. gauge may be nil.
func NewRegistry(store session.Store, factory WizardFactory, gauge SessionGauge, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:     store,
		newWizard: factory,
		gauge:     gauge,
		idle:      DefaultIdleTimeout,
		now:       time.Now,
		wizards:   make(map[string]*registryEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create starts a new session and persists its initial snapshot.
func (r *Registry) Create(ctx context.Context) (*intake.Wizard, error) {
	s := domain.NewSession(uuid.NewString())
	if err := r.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	w := r.newWizard(s)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.wizards[s.ID] = &registryEntry{wizard: w, lastUsed: r.now()}
	r.reportLocked()
	return w, nil
}

// Get returns the Wizard for id.
func (r *Registry) Get(ctx context.Context, id string) (*intake.Wizard, error) {
	if w, ok := r.lookup(id); ok {
		return w, nil
	}

	s, err := r.store.Load(ctx, id)
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, domain.ErrInvalidSession):
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	case err != nil:
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.wizards[id]; ok {
		e.lastUsed = r.now()
		return e.wizard, nil
	}
	w := r.newWizard(s)
	r.wizards[id] = &registryEntry{wizard: w, lastUsed: r.now()}
	r.reportLocked()
	return w, nil
}

func (r *Registry) lookup(id string) (*intake.Wizard, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.wizards[id]
	if !ok {
		return nil, false
	}
	e.lastUsed = r.now()
	return e.wizard, true
}

// Len reports how many wizards are held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.wizards)
}

// Sweep evicts wizards idle for longer than the idle timeout and returns how
// many were dropped. Wizards with a call in flight or a countdown armed stay.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	evicted := 0
	for id, e := range r.wizards {
		if e.lastUsed.After(cutoff) || !e.wizard.Settled() {
			continue
		}
		delete(r.wizards, id)
		evicted++
	}
	if evicted > 0 {
		r.reportLocked()
	}
	return evicted
}

// Run sweeps the registry, and the store when it supports it, every interval
// until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
			if s, ok := r.store.(sweeper); ok {
				s.Sweep()
			}
		}
	}
}

func (r *Registry) reportLocked() {
	if r.gauge != nil {
		r.gauge.SetActiveSessions(len(r.wizards))
	}
}
