// Package gate decides what a screen may show for the current session state.
// It is pure: no network, no side effects.
package gate

import (
	"net/url"
	"path"
	"strings"

	"github.com/wolfeidau/hrms/internal/models"
	"github.com/wolfeidau/hrms/internal/session"
)

// Action is what the caller should do with the requested route.
type Action int

const (
	// ActionLoading means the session is still being restored. Render a
	// loading indicator and ask again later; never redirect in this phase.
	ActionLoading Action = iota
	// ActionRedirect means the route is protected and nobody is signed in.
	ActionRedirect
	// ActionRender means the route may be shown.
	ActionRender
	// ActionForbidden means the signed-in identity lacks the required role.
	ActionForbidden
)

func (a Action) String() string {
	switch a {
	case ActionLoading:
		return "loading"
	case ActionRedirect:
		return "redirect"
	case ActionRender:
		return "render"
	case ActionForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

const (
	// LoginPath is where anonymous visitors are sent.
	LoginPath = "/login"
	// RegisterPath is the public sign up screen.
	RegisterPath = "/register"
)

// ForbiddenMessage is shown when the identity does not have the HR role.
const ForbiddenMessage = "Access denied: This dashboard is for HR only."

// Decision is the outcome for one route.
type Decision struct {
	Action Action
	// Location is set for ActionRedirect.
	Location string
	// ShowNavigation tells the caller whether to render the app chrome.
	ShowNavigation bool
	// Reason is set for ActionForbidden.
	Reason string
}

// Gate holds the routing policy.
type Gate struct {
	loginPath    string
	publicPaths  map[string]bool
	requiredRole string
}

// Option configures a Gate.
type Option func(*Gate)

// WithRequiredRole overrides the role an identity needs. Empty disables the
// role check.
func WithRequiredRole(role string) Option {
	return func(g *Gate) {
		g.requiredRole = role
	}
}

// WithPublicPaths adds routes that render without a session.
func WithPublicPaths(paths ...string) Option {
	return func(g *Gate) {
		for _, p := range paths {
			g.publicPaths[Clean(p)] = true
		}
	}
}

// New returns a gate with /login and /register public and the HR role
// required everywhere else.
func New(opts ...Option) *Gate {
	g := &Gate{
		loginPath:    LoginPath,
		publicPaths:  map[string]bool{LoginPath: true, RegisterPath: true},
		requiredRole: models.RoleHR,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Decide maps a session state and a requested route to a Decision.
func (g *Gate) Decide(state session.State, route string) Decision {
	p := Clean(route)

	if g.publicPaths[p] {
		return Decision{Action: ActionRender}
	}

	switch {
	case state.Phase == session.Initializing:
		return Decision{Action: ActionLoading}
	case !state.Authenticated():
		return Decision{Action: ActionRedirect, Location: g.loginPath}
	case g.requiredRole != "" && !state.Identity.HasRole(g.requiredRole):
		return Decision{Action: ActionForbidden, Reason: ForbiddenMessage}
	}

	return Decision{Action: ActionRender, ShowNavigation: true}
}

// Decide uses the default gate.
func Decide(state session.State, route string) Decision {
	return defaultGate.Decide(state, route)
}

var defaultGate = New()

// Clean strips the query and fragment and normalizes the path.
func Clean(route string) string {
	if u, err := url.Parse(route); err == nil {
		route = u.Path
	} else if i := strings.IndexAny(route, "?#"); i >= 0 {
		route = route[:i]
	}
	if route == "" {
		return "/"
	}
	return path.Clean("/" + route)
}
