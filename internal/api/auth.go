package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/clinic-auth/internal/auth"
)

// registerRequest is the request body for POST /auth/register.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// loginRequest is the request body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// meResponse describes the current context's login.
type meResponse struct {
	Authenticated bool              `json:"authenticated"`
	User          *auth.User        `json:"user"`
	Permissions   []auth.Permission `json:"permissions"`
}

func newMeResponse(user *auth.User) meResponse {
	if user == nil {
		return meResponse{Permissions: []auth.Permission{}}
	}
	return meResponse{
		Authenticated: true,
		User:          user,
		Permissions:   auth.PermissionsForRole(user.Role),
	}
}

// handleRegister creates a user and logs them in. Self-registration always
// yields the User role.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.auth.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newMeResponse(user))
}

// handleLogin verifies credentials and starts a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newMeResponse(user))
}

// handleLogout ends the session. Logging out twice is fine.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context()); err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the current login and the permissions it grants.
func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request) {
	user := s.auth.CurrentUser()
	if user == nil {
		writeUnauthorized(w, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, newMeResponse(user))
}

// handleWSTicket issues a signed, single-use WebSocket ticket bound to the
// current session.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	user := s.auth.CurrentUser()
	session := s.auth.CurrentSession()
	if user == nil || session == nil {
		writeUnauthorized(w, "not logged in")
		return
	}

	ttl := s.ticketTTL()
	ticket, err := auth.IssueTicket(user, session, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ttl.Seconds()),
	})
}

// validateTicket checks a ticket's signature, expiry and session binding,
// and consumes it.
func (s *Server) validateTicket(ticket string) (*auth.TicketClaims, bool) {
	claims, err := auth.ParseTicket(ticket, s.secCfg.JWT.Secret)
	if err != nil {
		s.logger.Debug("websocket ticket rejected", "error", err)
		return nil, false
	}

	user := s.auth.CurrentUser()
	if user == nil || user.ID != claims.Subject ||
		auth.SessionFingerprint(s.auth.CurrentSession()) != claims.SessionID {
		s.logger.Debug("websocket ticket does not match the active session")
		return nil, false
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if !s.tickets.consume(claims.ID, expiresAt) {
		s.logger.Debug("websocket ticket replayed", "ticket_id", claims.ID)
		return nil, false
	}
	return claims, true
}

// ticketStore remembers consumed ticket IDs until they expire, making
// tickets single use.
type ticketStore struct {
	used map[string]time.Time
	mu   sync.Mutex
}

func newTicketStore() *ticketStore {
	return &ticketStore{used: make(map[string]time.Time)}
}

// consume marks id used. It returns false if id was already used.
func (t *ticketStore) consume(id string, expiresAt time.Time) bool {
	if id == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, seen := t.used[id]; seen {
		return false
	}
	t.used[id] = expiresAt
	return true
}

// cleanExpired forgets tickets that can no longer be presented.
func (t *ticketStore) cleanExpired(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, expiresAt := range t.used {
		if now.After(expiresAt) {
			delete(t.used, id)
		}
	}
}

func (t *ticketStore) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.used)
}

// cleanLoop runs cleanExpired every interval until ctx is cancelled.
func (t *ticketStore) cleanLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.cleanExpired(now)
		}
	}
}
