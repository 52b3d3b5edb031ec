package server

import (
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/blackjackbots/internal/game"
	"github.com/lox/blackjackbots/internal/gameid"
)

// Session is one browser's single-player table
type Session struct {
	ID     string
	Engine *game.Engine

	mu       sync.Mutex
	lastSeen time.Time
	restored bool
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// markRestored reports whether this is the first call, so the stored
// account is applied only once per session.
func (s *Session) markRestored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	first := !s.restored
	s.restored = true
	return first
}

// SessionManager tracks sessions keyed by cookie id
type SessionManager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	clock     quartz.Clock
	ttl       time.Duration
	newEngine func() *game.Engine
}

// NewSessionManager creates an empty manager. newEngine builds the table for
// each new session.
func NewSessionManager(clock quartz.Clock, ttl time.Duration, newEngine func() *game.Engine) *SessionManager {
	return &SessionManager{
		sessions:  make(map[string]*Session),
		clock:     clock,
		ttl:       ttl,
		newEngine: newEngine,
	}
}

// Get returns a live session and marks it active.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.touch(m.clock.Now())
	}
	return s, ok
}

// Create starts a session with a fresh table. An empty id generates one; a
// known id lets a returning cookie pick its stored account back up.
func (m *SessionManager) Create(id string) *Session {
	if id == "" {
		id = gameid.Generate()
	}
	s := &Session{ID: id, Engine: m.newEngine(), lastSeen: m.clock.Now()}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Reap drops sessions idle for longer than the ttl and returns how many
// were removed.
func (m *SessionManager) Reap() int {
	cutoff := m.clock.Now().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
