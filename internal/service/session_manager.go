package service

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

type sessionKey struct{ userID, eventID string }

// SessionManager keeps one live session per user and event.  Sessions are
// process-local; the seats they hold live in the ledger.
type SessionManager struct {
	ledger SeatBooker
	orders OrderCreator
	logger *logrus.Logger

	mu       sync.Mutex
	sessions map[sessionKey]*Session
}

func NewSessionManager(logger *logrus.Logger, ledger SeatBooker, orders OrderCreator) *SessionManager {
	return &SessionManager{
		ledger:   ledger,
		orders:   orders,
		logger:   logger,
		sessions: map[sessionKey]*Session{},
	}
}

// Open returns the caller's live session for the event, starting a new one
// (with a fresh seat map) when there is none or the last one finished.
func (m *SessionManager) Open(ctx context.Context, userID, eventID string) (*Session, error) {
	if userID == "" {
		return nil, invalid("user_id", "required")
	}
	if eventID == "" {
		return nil, invalid("event_id", "required")
	}
	key := sessionKey{userID, eventID}
	m.mu.Lock()
	if s, ok := m.sessions[key]; ok && s.Live() {
		m.mu.Unlock()
		return s, nil
	}
	s := NewSession(userID, eventID, m.ledger, m.orders)
	m.sessions[key] = s
	m.mu.Unlock()

	if err := s.Refresh(ctx); err != nil {
		m.mu.Lock()
		if m.sessions[key] == s {
			delete(m.sessions, key)
		}
		m.mu.Unlock()
		return nil, err
	}
	return s, nil
}

// Get returns the caller's session if one is open.
func (m *SessionManager) Get(userID, eventID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionKey{userID, eventID}]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close abandons the session, releasing its cart, and forgets it.  A failed
// release keeps the session so the caller can retry.
func (m *SessionManager) Close(ctx context.Context, userID, eventID string) error {
	s, err := m.Get(userID, eventID)
	if err != nil {
		return err
	}
	if s.Live() {
		if err := s.Abandon(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	if m.sessions[sessionKey{userID, eventID}] == s {
		delete(m.sessions, sessionKey{userID, eventID})
	}
	m.mu.Unlock()
	return nil
}

// Shutdown abandons every open session so no cart outlives the process.
func (m *SessionManager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		open = append(open, s)
	}
	m.sessions = map[sessionKey]*Session{}
	m.mu.Unlock()

	for _, s := range open {
		if !s.Live() {
			continue
		}
		if err := s.Abandon(ctx); err != nil {
			m.logger.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
				"user_id":  s.UserID(),
				"event_id": s.EventID(),
			}).Warn("release cart on shutdown failed")
		}
	}
}

// Len is the number of tracked sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
