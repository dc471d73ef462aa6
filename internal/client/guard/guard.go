// Package guard decides, per navigation, whether a route renders or redirects.
package guard

import (
	"sync"

	"github.com/and161185/estatedesk/internal/model"
)

const (
	PathHome         = "/"
	PathAuth         = "/auth"
	PathAuthCallback = "/auth/callback"
	PathDashboard    = "/dashboard"
	PathDeliveries   = "/deliveries"
	PathProfile      = "/profile"
	PathAdmin        = "/admin"
	PathVisitors     = "/visitor-management"
	PathMaintenance  = "/maintenance"
)

// Route is one navigable destination.
type Route struct {
	Path         string
	Public       bool
	RequireAdmin bool
	NotFound     bool
}

// Routes is the navigation table.
var Routes = []Route{
	{Path: PathHome, Public: true},
	{Path: PathAuth, Public: true},
	{Path: PathAuthCallback, Public: true},
	{Path: PathDashboard},
	{Path: PathDeliveries},
	{Path: PathProfile},
	{Path: PathAdmin, RequireAdmin: true},
	{Path: PathVisitors},
	{Path: PathMaintenance},
}

// Match returns the route for path, or the public not-found route.
func Match(path string) Route {
	for _, r := range Routes {
		if r.Path == path {
			return r
		}
	}
	return Route{Path: path, Public: true, NotFound: true}
}

// Kind of a Decision.
type Kind int

const (
	Render Kind = iota
	Redirect
)

func (k Kind) String() string {
	if k == Redirect {
		return "redirect"
	}
	return "render"
}

// Decision is the outcome of a navigation. From and RequireAdmin are only set
// on redirects to the auth page.
type Decision struct {
	Kind         Kind
	To           string
	From         string
	RequireAdmin bool
}

// Decide is a pure function of the route and the resolved session.
func Decide(r Route, s model.Session) Decision {
	if r.Public {
		return Decision{Kind: Render, To: r.Path}
	}
	_, isAdmin := s.(model.Admin)
	_, isUser := s.(model.Resident)

	switch {
	case r.RequireAdmin && !isAdmin:
		return Decision{Kind: Redirect, To: PathAuth, From: r.Path, RequireAdmin: true}
	case r.RequireAdmin:
		return Decision{Kind: Render, To: r.Path}
	case isAdmin:
		return Decision{Kind: Redirect, To: PathAdmin}
	case !isUser:
		return Decision{Kind: Redirect, To: PathAuth, From: r.Path}
	default:
		return Decision{Kind: Render, To: r.Path}
	}
}

// Sessions exposes the current resolved session.
type Sessions interface {
	Current() model.Session
}

// Navigator re-evaluates the guard on every navigation and follows redirects.
type Navigator struct {
	sessions Sessions

	mu       sync.Mutex
	location string
	state    Decision
}

// NewNavigator starts at the home page.
func NewNavigator(s Sessions) *Navigator {
	return &Navigator{sessions: s, location: PathHome}
}

// Go navigates to path. The returned decision is the one for path itself; on a
// redirect the navigator ends up at Decision.To with the carried state.
func (n *Navigator) Go(path string) Decision {
	d := Decide(Match(path), n.sessions.Current())
	n.mu.Lock()
	defer n.mu.Unlock()
	if d.Kind == Redirect {
		n.location = d.To
		n.state = d
	} else {
		n.location = path
		n.state = Decision{}
	}
	return d
}

// Location is the path currently displayed.
func (n *Navigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

// State is the navigation state carried to the current location by a redirect.
func (n *Navigator) State() Decision {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}
