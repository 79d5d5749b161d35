package api

import (
	"net/http"

	"github.com/nerrad567/clinic-auth/internal/guard"
)

// navigationResponse is the guard's verdict for one path.
type navigationResponse struct {
	Route    guard.Route    `json:"route"`
	Decision guard.Decision `json:"decision"`
	Location string         `json:"location,omitempty"`
}

// handleNavigate runs the route guard for ?path= in the current context.
// Clients call it before rendering a page.
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeBadRequest(w, "path query parameter is required")
		return
	}

	route, decision := s.routes.Navigate(s.auth, path)
	writeJSON(w, http.StatusOK, navigationResponse{
		Route:    route,
		Decision: decision,
		Location: s.routes.Location(decision),
	})
}

// handleListRoutes returns the route table with its access metadata.
func (s *Server) handleListRoutes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"routes": s.routes.Routes(),
	})
}

// handleProtected backs the protected page.
func (s *Server) handleProtected(w http.ResponseWriter, _ *http.Request) {
	user := s.auth.CurrentUser()
	if user == nil {
		writeUnauthorized(w, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome, " + user.Name,
		"user":    user,
	})
}

// handleListUsers backs the admin page. Credentials never leave the
// directory: User's salt and hash are not serialised.
func (s *Server) handleListUsers(w http.ResponseWriter, _ *http.Request) {
	users := s.auth.Directory().List()
	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
		"count": len(users),
	})
}
