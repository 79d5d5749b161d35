package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// EventRecorder receives one call per auth operation. influxdb.Client and
// audit.Recorder satisfy it.
type EventRecorder interface {
	WriteAuthEvent(action, outcome string)
}

// Recorders fans each event out to every recorder in order.
type Recorders []EventRecorder

func (rs Recorders) WriteAuthEvent(action, outcome string) {
	for _, r := range rs {
		r.WriteAuthEvent(action, outcome)
	}
}

// Deps are the collaborators of a Service. Only Store is required.
type Deps struct {
	Store  RecordStore
	Logger Logger
	Events EventRecorder
	Clock  func() time.Time
}

// Service is the auth facade for one context. It owns a Directory and a
// SessionManager over the shared store, keeps them in step with changes
// made by other contexts, and publishes a State after every change.
//
// Mutating operations on one Service run one at a time.
type Service struct {
	store    RecordStore
	dir      *Directory
	sessions *SessionManager
	logger   Logger
	events   EventRecorder

	opMu        sync.Mutex
	cancelWatch func()

	subMu   sync.RWMutex
	subs    map[int]func(State)
	nextSub int
}

// NewService builds a Service. Call Start before use.
func NewService(deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("%w: auth service requires a store", ErrConfiguration)
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	dir := NewDirectory(deps.Store)
	dir.SetLogger(logger)
	dir.now = clock

	sessions := NewSessionManager(deps.Store, dir)
	sessions.SetLogger(logger)
	sessions.now = clock

	return &Service{
		store:    deps.Store,
		dir:      dir,
		sessions: sessions,
		logger:   logger,
		events:   deps.Events,
		subs:     make(map[int]func(State)),
	}, nil
}

// Start hydrates users and session from the store and begins following
// changes made by other contexts.
func (s *Service) Start(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if err := s.dir.Load(ctx); err != nil {
		return err
	}
	if err := s.sessions.Load(ctx); err != nil {
		return err
	}
	if s.cancelWatch == nil {
		s.cancelWatch = s.store.Watch(s.onChange)
	}

	s.logger.Info("auth service started",
		"users", s.dir.Count(),
		"authenticated", s.sessions.CurrentUser() != nil,
	)
	return nil
}

// Close stops following store changes and drops all subscribers.
func (s *Service) Close() {
	s.opMu.Lock()
	if s.cancelWatch != nil {
		s.cancelWatch()
		s.cancelWatch = nil
	}
	s.opMu.Unlock()

	s.subMu.Lock()
	s.subs = make(map[int]func(State))
	s.subMu.Unlock()
}

// Directory returns the service's user directory.
func (s *Service) Directory() *Directory {
	return s.dir
}

// onChange runs on the store's watcher goroutine.
func (s *Service) onChange(record string) {
	ctx := context.Background()

	s.opMu.Lock()
	switch record {
	case RecordUsers:
		if err := s.dir.Load(ctx); err != nil {
			s.logger.Error("reloading users after external change", "error", err)
		}
	case RecordSession:
		if err := s.sessions.Load(ctx); err != nil {
			s.logger.Error("reloading session after external change", "error", err)
		}
		// The session may name a user registered in the same external
		// change whose users notification has not been delivered yet.
		if session := s.sessions.Current(); session != nil && s.dir.Lookup(session.UserID) == nil {
			if err := s.dir.Load(ctx); err != nil {
				s.logger.Error("reloading users for session", "error", err)
			}
		}
	default:
		s.opMu.Unlock()
		return
	}
	state := s.state(ReasonSync)
	s.opMu.Unlock()

	s.logger.Debug("auth state synchronised", "record", record, "authenticated", state.Authenticated)
	s.publish(state)
}

// CurrentUser returns the logged-in user, or nil.
func (s *Service) CurrentUser() *User {
	return s.sessions.CurrentUser()
}

// CurrentSession returns a copy of the active session, or nil. The
// session may name a user that no longer exists; see CurrentUser.
func (s *Service) CurrentSession() *Session {
	return s.sessions.Current()
}

// IsAuthenticated reports whether a session resolves to an existing user.
func (s *Service) IsAuthenticated() bool {
	return s.sessions.CurrentUser() != nil
}

// HasRole reports whether the current user holds one of roles. Role
// strings are normalised, so "admin" and "Admin" are the same role.
func (s *Service) HasRole(roles ...string) bool {
	user := s.CurrentUser()
	if user == nil {
		return false
	}
	return roleIn(user.Role, roles)
}

// RequireRoles is HasRole for a route's role list. An empty list places
// no role restriction and returns true.
func (s *Service) RequireRoles(allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	return s.HasRole(allowed...)
}

// Register creates a user and logs them in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	s.opMu.Lock()
	user, err := s.dir.Register(ctx, in)
	if err == nil {
		_, err = s.sessions.Start(ctx, user)
	}
	state := s.state(ReasonRegister)
	s.opMu.Unlock()

	s.record("register", err)
	if err != nil {
		return nil, err
	}
	s.publish(state)
	return user, nil
}

// Login verifies credentials and starts a session, replacing any current
// one.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	s.opMu.Lock()
	user, err := s.dir.Verify(ctx, email, password)
	if err == nil {
		_, err = s.sessions.Start(ctx, user)
	}
	state := s.state(ReasonLogin)
	s.opMu.Unlock()

	s.record("login", err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	s.publish(state)
	return user, nil
}

// Logout ends the current session. Logging out with no session is not an
// error.
func (s *Service) Logout(ctx context.Context) error {
	s.opMu.Lock()
	err := s.sessions.End(ctx)
	state := s.state(ReasonLogout)
	s.opMu.Unlock()

	s.record("logout", err)
	if err != nil {
		return err
	}
	s.publish(state)
	return nil
}

// Subscribe registers fn to receive every published State. fn runs on the
// goroutine that caused the change and must not block.
func (s *Service) Subscribe(fn func(State)) (unsubscribe func()) {
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Snapshot returns the current State without publishing it.
func (s *Service) Snapshot() State {
	return s.state("")
}

func (s *Service) state(reason Reason) State {
	user := s.sessions.CurrentUser()
	return State{User: user, Authenticated: user != nil, Reason: reason}
}

func (s *Service) publish(state State) {
	s.subMu.RLock()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range subs {
		st := state
		if state.User != nil {
			u := *state.User
			st.User = &u
		}
		fn(st)
	}
}

func (s *Service) record(action string, err error) {
	if s.events == nil {
		return
	}
	s.events.WriteAuthEvent(action, outcome(err))
}

// outcome names an operation result for metrics without leaking input.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidEmail):
		return "invalid_email"
	case errors.Is(err, ErrWeakPassword):
		return "weak_password"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	default:
		return "error"
	}
}
