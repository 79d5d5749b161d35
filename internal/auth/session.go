package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// SessionManager tracks the single active session in the session record.
type SessionManager struct {
	store  RecordStore
	dir    *Directory
	logger Logger
	now    func() time.Time

	mu      sync.RWMutex
	current *Session
}

// NewSessionManager returns a SessionManager resolving users through dir.
func NewSessionManager(store RecordStore, dir *Directory) *SessionManager {
	return &SessionManager{
		store:  store,
		dir:    dir,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the session manager.
func (m *SessionManager) SetLogger(logger Logger) {
	m.logger = logger
}

// Load replaces the in-memory session with the stored one.
func (m *SessionManager) Load(ctx context.Context) error {
	session, err := m.read(ctx)
	if err != nil {
		return err
	}
	m.set(session)
	return nil
}

func (m *SessionManager) read(ctx context.Context) (*Session, error) {
	data, err := m.store.Read(ctx, RecordSession)
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	session, err := decodeSession(data)
	if err != nil {
		m.logger.Warn("session record is corrupt, treating as logged out",
			"record", RecordSession,
			"error", err,
		)
		return nil, nil
	}
	return session, nil
}

func (m *SessionManager) set(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
}

// Start creates a session for user with a fresh token, replacing any
// existing session.
func (m *SessionManager) Start(ctx context.Context, user *User) (*Session, error) {
	if user == nil || user.ID == "" {
		return nil, fmt.Errorf("%w: session requires a user", ErrInvalidArgument)
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}
	session := &Session{
		UserID:   user.ID,
		Token:    token,
		LoggedAt: m.now().UTC().Truncate(time.Millisecond),
	}

	data, err := encodeSession(session)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	if err := m.store.Write(ctx, RecordSession, data); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	m.set(session)

	out := *session
	return &out, nil
}

// Current returns a copy of the active session, or nil.
func (m *SessionManager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return nil
	}
	out := *m.current
	return &out
}

// CurrentUser resolves the active session against the directory. It
// returns nil when there is no session or the session's user no longer
// exists.
func (m *SessionManager) CurrentUser() *User {
	session := m.Current()
	if session == nil {
		return nil
	}
	return m.dir.Lookup(session.UserID)
}

// End removes the stored session. With no stored session it does nothing
// and writes nothing. A corrupt session record is removed too.
func (m *SessionManager) End(ctx context.Context) error {
	data, err := m.store.Read(ctx, RecordSession)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	if data == nil {
		m.set(nil)
		return nil
	}

	if err := m.store.Remove(ctx, RecordSession); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	m.set(nil)
	return nil
}
