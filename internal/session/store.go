// Package session persists intake session snapshots so a claim survives a
// server restart or the loss of the replica serving it. Stores are keyed by
// session ID and expire idle sessions after a TTL.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ahrav/go-intake/internal/domain"
)

// DefaultTTL is how long an idle session snapshot is kept.
const DefaultTTL = 24 * time.Hour

// ErrNotFound indicates no snapshot exists for the session ID.
var ErrNotFound = errors.New("session not found")

// Store saves and restores session snapshots.
type Store interface {
	Save(ctx context.Context, s domain.Session) error
	Load(ctx context.Context, id string) (domain.Session, error)
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	session domain.Session
	expires time.Time
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store. A non-positive ttl uses DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, entries: make(map[string]memoryEntry)}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, s domain.Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[s.ID] = memoryEntry{session: s.Clone(), expires: m.now().Add(m.ttl)}
	return nil
}

// Load implements Store. Expired entries are removed on access.
func (m *MemoryStore) Load(_ context.Context, id string) (domain.Session, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return domain.Session{}, ErrNotFound
	}
	if m.now().After(e.expires) {
		m.mu.Lock()
		delete(m.entries, id)
		m.mu.Unlock()
		return domain.Session{}, ErrNotFound
	}
	return e.session.Clone(), nil
}

// Sweep removes every expired entry and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, e := range m.entries {
		if now.After(e.expires) {
			delete(m.entries, id)
			n++
		}
	}
	return n
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}
