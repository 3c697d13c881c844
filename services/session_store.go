package services

import (
	"sync"

	"github.com/nodonorteit/wspbot/models"
)

// SessionStore abstracts session persistence so a durable backend can be
// swapped in without touching the registry. Implementations must be safe for
// concurrent use.
type SessionStore interface {
	Get(tenantID string) (*models.Session, error)
	Set(session *models.Session) error
	Delete(tenantID string) (bool, error)
	List() ([]*models.Session, error)
}

// MemorySessionStore is the default in-memory backend.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

// NewMemorySessionStore creates an empty in-memory store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]models.Session)}
}

// Get returns a copy of the tenant's session, or nil when untracked.
func (s *MemorySessionStore) Get(tenantID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[tenantID]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// Set stores a copy of the session keyed by tenant.
func (s *MemorySessionStore) Set(session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.TenantID] = *session
	return nil
}

// Delete removes the tenant's session, reporting whether it existed.
func (s *MemorySessionStore) Delete(tenantID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[tenantID]
	delete(s.sessions, tenantID)
	return ok, nil
}

// List returns copies of all tracked sessions.
func (s *MemorySessionStore) List() ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		copied := session
		out = append(out, &copied)
	}
	return out, nil
}
