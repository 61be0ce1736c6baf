package form

import (
	"errors"
	"sync"
)

// ErrSessionNotFound signals a lookup for an expired or unknown session.
var ErrSessionNotFound = errors.New("form session not found")

// Manager tracks the live editing sessions for the HTTP layer. Sessions are
// in-memory only; a closed or abandoned session is simply removed.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Add registers a session under its id.
func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Remove forgets the session with the given id.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
