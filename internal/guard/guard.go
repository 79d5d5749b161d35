package guard

import (
	"net/url"
)

// Route names used as redirect targets.
const (
	RouteHome     = "home"
	RouteLogin    = "login"
	RouteDenied   = "denied"
	RouteNotFound = "notfound"
)

// RedirectParam is the query parameter holding the path a login redirect
// should return to.
const RedirectParam = "redirect"

// Meta is the access metadata of a route.
type Meta struct {
	RequiresAuth bool     `json:"requiresAuth,omitempty"`
	GuestOnly    bool     `json:"guestOnly,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// Route is a named path with access metadata.
type Route struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Meta Meta   `json:"meta"`
}

// Target is a navigation request: the resolved route and the full path
// (including query) that was asked for.
type Target struct {
	Route    Route
	FullPath string
}

// Authorizer answers the questions the guard asks. *auth.Service
// satisfies it.
type Authorizer interface {
	IsAuthenticated() bool
	RequireRoles(allowed []string) bool
}

// Decision is the outcome of Evaluate. When Allowed is false, Redirect
// names the route to go to instead and Query holds its query parameters.
type Decision struct {
	Allowed  bool       `json:"allowed"`
	Redirect string     `json:"redirect,omitempty"`
	Query    url.Values `json:"query,omitempty"`
}

// Allow is the decision to proceed.
func Allow() Decision {
	return Decision{Allowed: true}
}

// RedirectTo is the decision to go to the named route instead.
func RedirectTo(name string, query url.Values) Decision {
	return Decision{Redirect: name, Query: query}
}

// Evaluate decides whether the navigation to to may proceed.
func Evaluate(a Authorizer, to Target) Decision {
	meta := to.Route.Meta
	authenticated := a.IsAuthenticated()

	if meta.RequiresAuth && !authenticated {
		return RedirectTo(RouteLogin, url.Values{RedirectParam: {fullPath(to)}})
	}
	if meta.GuestOnly && authenticated {
		return RedirectTo(RouteHome, nil)
	}
	if len(meta.Roles) > 0 && !a.RequireRoles(meta.Roles) {
		return RedirectTo(RouteDenied, nil)
	}
	return Allow()
}

func fullPath(to Target) string {
	if to.FullPath != "" {
		return to.FullPath
	}
	return to.Route.Path
}
