package guard

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrDuplicateRoute is returned when two routes share a name or path.
	ErrDuplicateRoute = errors.New("duplicate route")

	// ErrInvalidRoute is returned for routes without a name or an absolute
	// path, and for routes that are both auth-only and guest-only.
	ErrInvalidRoute = errors.New("invalid route")
)

// Table is an immutable set of named routes.
type Table struct {
	routes []Route
	byPath map[string]int
	byName map[string]int
}

// NewTable builds a Table. Names and paths must be unique and paths must
// start with "/".
func NewTable(routes ...Route) (*Table, error) {
	t := &Table{
		routes: make([]Route, 0, len(routes)),
		byPath: make(map[string]int, len(routes)),
		byName: make(map[string]int, len(routes)),
	}

	for _, r := range routes {
		if r.Name == "" || !strings.HasPrefix(r.Path, "/") {
			return nil, fmt.Errorf("%w: %q at %q", ErrInvalidRoute, r.Name, r.Path)
		}
		if r.Meta.RequiresAuth && r.Meta.GuestOnly {
			return nil, fmt.Errorf("%w: %q is unreachable (requiresAuth and guestOnly)", ErrInvalidRoute, r.Name)
		}
		p := cleanPath(r.Path)
		if _, ok := t.byName[r.Name]; ok {
			return nil, fmt.Errorf("%w: name %q", ErrDuplicateRoute, r.Name)
		}
		if _, ok := t.byPath[p]; ok {
			return nil, fmt.Errorf("%w: path %q", ErrDuplicateRoute, p)
		}

		r.Path = p
		r.Meta.Roles = append([]string(nil), r.Meta.Roles...)
		t.byName[r.Name] = len(t.routes)
		t.byPath[p] = len(t.routes)
		t.routes = append(t.routes, r)
	}
	return t, nil
}

// DefaultTable returns the clinic application's routes.
func DefaultTable() *Table {
	t, err := NewTable(
		Route{Name: RouteHome, Path: "/"},
		Route{Name: "selfcheck", Path: "/selfcheck"},
		Route{Name: "finder", Path: "/finder"},
		Route{Name: "form", Path: "/form"},
		Route{Name: RouteLogin, Path: "/login", Meta: Meta{GuestOnly: true}},
		Route{Name: "register", Path: "/register", Meta: Meta{GuestOnly: true}},
		Route{Name: "protected", Path: "/protected", Meta: Meta{RequiresAuth: true}},
		Route{Name: "admin", Path: "/admin", Meta: Meta{RequiresAuth: true, Roles: []string{"admin"}}},
		Route{Name: RouteDenied, Path: "/denied"},
	)
	if err != nil {
		panic(err) // static table
	}
	return t
}

// Routes returns a copy of the table in declaration order.
func (t *Table) Routes() []Route {
	out := make([]Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Match resolves path (query and trailing slash ignored) to a route.
// Unknown paths resolve to the notfound route, which has no access
// restrictions.
func (t *Table) Match(path string) Route {
	if i, ok := t.byPath[cleanPath(path)]; ok {
		return t.routes[i]
	}
	return Route{Name: RouteNotFound, Path: cleanPath(path)}
}

// Lookup returns the route called name.
func (t *Table) Lookup(name string) (Route, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Route{}, false
	}
	return t.routes[i], true
}

// Target builds the navigation target for a full path such as
// "/protected?tab=2".
func (t *Table) Target(fullPath string) Target {
	return Target{Route: t.Match(fullPath), FullPath: fullPath}
}

// Navigate resolves fullPath and evaluates it for a.
func (t *Table) Navigate(a Authorizer, fullPath string) (Route, Decision) {
	to := t.Target(fullPath)
	return to.Route, Evaluate(a, to)
}

// Location renders a decision's redirect as a path with query, for use in
// an HTTP Location header. It returns "" for allowed decisions.
func (t *Table) Location(d Decision) string {
	if d.Allowed {
		return ""
	}
	path := "/"
	if r, ok := t.Lookup(d.Redirect); ok {
		path = r.Path
	}
	if len(d.Query) > 0 {
		return path + "?" + d.Query.Encode()
	}
	return path
}

func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if u, err := url.PathUnescape(p); err == nil {
		p = u
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}
