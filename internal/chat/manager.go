package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/garyellow/school-records-go/internal/metrics"
)

// EngineFactory builds the engine of a new session.
type EngineFactory func(id string) *Engine

type session struct {
	engine   *Engine
	lastUsed time.Time
}

// Manager owns the open sessions. Safe for concurrent use; each engine
// serializes its own turns.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*session
	newEngine EngineFactory
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewManager creates a Manager.
func NewManager(factory EngineFactory, m *metrics.Metrics) *Manager {
	return &Manager{
		sessions:  make(map[string]*session),
		newEngine: factory,
		metrics:   m,
		now:       time.Now,
	}
}

// OpenSession starts a session with a random id.
func (m *Manager) OpenSession() *Engine {
	id := uuid.NewString()
	e := m.newEngine(id)

	m.mu.Lock()
	m.sessions[id] = &session{engine: e, lastUsed: m.now()}
	m.mu.Unlock()

	m.metrics.SessionOpened()
	return e
}

// Get returns the session and marks it used.
func (m *Manager) Get(id string) (*Engine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastUsed = m.now()
	return s.engine, true
}

// CloseSession closes and forgets a session. It reports whether it existed.
func (m *Manager) CloseSession(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return false
	}
	s.engine.Close()
	m.metrics.SessionClosed()
	return true
}

// CloseIdle closes sessions unused for longer than ttl and returns how many.
func (m *Manager) CloseIdle(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)

	m.mu.Lock()
	var idle []*session
	for id, s := range m.sessions {
		if s.lastUsed.Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.engine.Close()
		m.metrics.SessionClosed()
	}
	return len(idle)
}

// CloseAll closes every session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*session)
	m.mu.Unlock()

	for _, s := range all {
		s.engine.Close()
		m.metrics.SessionClosed()
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
