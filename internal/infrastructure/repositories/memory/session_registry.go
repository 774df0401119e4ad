package memory

import (
	"context"
	"sync"

	"pairwave/internal/core/domain"
	"pairwave/internal/core/ports"
)

// SessionRegistry is the in-memory ConnectionRegistry: a map of live
// sessions guarded by a single RWMutex, matching the concurrency style of
// every in-memory repository in this codebase.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*domain.Session
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[domain.SessionID]*domain.Session),
	}
}

var _ ports.ConnectionRegistry = (*SessionRegistry)(nil)

func (r *SessionRegistry) Register(ctx context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

func (r *SessionRegistry) Unregister(ctx context.Context, id domain.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *SessionRegistry) Get(ctx context.Context, id domain.SessionID) (*domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Send is best-effort and never retried: a failed delivery to a gone or
// misbehaving session handle is reported to the caller but not retried.
func (r *SessionRegistry) Send(ctx context.Context, id domain.SessionID, event domain.Event) error {
	r.mu.RLock()
	session, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return domain.ErrNotDelivered
	}

	if err := session.Conn.Send(event); err != nil {
		return domain.ErrNotDelivered
	}
	return nil
}

// Count returns the number of registered sessions, for observability.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
