// Package session implements the Session Manager (spec.md §4.2): the
// process-wide table of live sessions, enforcing the connection and
// per-session request caps, and the weak registry of cancellation handles
// an in-flight request's owning orchestrator task is tracked by.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/archviz/diagramsvc/internal/apperr"
)

// Session is the live per-connection table entry (spec.md §3). Ownership:
// the request registry holds only an identifier and a cancel handle, never
// the RequestState itself — that stays exclusively owned by its
// orchestrator task.
type Session struct {
	ID           string
	UserID       string
	CreatedAt    time.Time
	lastActivity time.Time

	mu       sync.Mutex
	requests map[string]context.CancelFunc
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// LastActivity returns when this session was registered or last touched
// (by AddRequest or Manager.Touch).
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// RequestCount reports how many requests are currently registered for this
// session (in flight, not yet cancelled or completed).
func (s *Session) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Manager holds every live Session and enforces spec.md §4.2's resource
// caps: MaxConnections total, MaxRequestsPerSession per session.
type Manager struct {
	mu                    sync.Mutex
	sessions              map[string]*Session
	maxConnections        int
	maxRequestsPerSession int
}

func NewManager(maxConnections, maxRequestsPerSession int) *Manager {
	return &Manager{
		sessions:              make(map[string]*Session),
		maxConnections:        maxConnections,
		maxRequestsPerSession: maxRequestsPerSession,
	}
}

// Register creates a Session for sessionID, failing if the process is
// already at MaxConnections. Re-registering an id already in use is
// rejected too — one connection owns a session_id at a time.
func (m *Manager) Register(sessionID, userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.maxConnections {
		return nil, apperr.New(apperr.CodeInternal, "max_connections reached")
	}
	if _, exists := m.sessions[sessionID]; exists {
		return nil, apperr.New(apperr.CodeValidation, "session_id already connected")
	}

	s := &Session{
		ID:           sessionID,
		UserID:       userID,
		CreatedAt:    time.Now(),
		lastActivity: time.Now(),
		requests:     make(map[string]context.CancelFunc),
	}
	m.sessions[sessionID] = s
	return s, nil
}

// Unregister removes sessionID from the table and cancels every request
// still registered for it (spec.md §4.1: "on connection close, marks all
// in-flight requests for that session as cancelled").
func (m *Manager) Unregister(sessionID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.requests))
	for _, cancel := range s.requests {
		cancels = append(cancels, cancel)
	}
	s.requests = make(map[string]context.CancelFunc)
	s.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}

// addRequest registers requestID against sessionID with its cancellation
// handle, rejecting inline (without counting toward cancellation) once the
// session is already at MaxRequestsPerSession (spec.md §4.2).
func (s *Session) addRequest(maxPerSession int, requestID string, cancel context.CancelFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) >= maxPerSession {
		return apperr.New(apperr.CodeValidation, "max_requests_per_session reached")
	}
	s.requests[requestID] = cancel
	return nil
}

// AddRequest registers a new in-flight request on the session named by
// sessionID, enforcing MaxRequestsPerSession.
func (m *Manager) AddRequest(sessionID, requestID string, cancel context.CancelFunc) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return apperr.New(apperr.CodeValidation, "unknown session")
	}
	s.touch()
	return s.addRequest(m.maxRequestsPerSession, requestID, cancel)
}

// RemoveRequest drops requestID from sessionID's registry once its
// orchestrator task reaches a terminal state.
func (m *Manager) RemoveRequest(sessionID, requestID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.requests, requestID)
	s.mu.Unlock()
}

// Cancel signals cancellation for one in-flight request, per spec.md §4.1's
// `cancel { request_id }` handling.
func (m *Manager) Cancel(sessionID, requestID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	cancel, ok := s.requests[requestID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// Touch records activity on sessionID (any received frame, per spec.md
// §4.1's idle-timeout rule).
func (m *Manager) Touch(sessionID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if ok {
		s.touch()
	}
}

// Count returns the number of live sessions, for the health endpoint.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
