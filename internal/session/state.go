package session

import "github.com/wolfeidau/hrms/internal/models"

// Phase is the coarse session state.
type Phase int

const (
	// Initializing is the phase before the first restore has settled.
	Initializing Phase = iota
	// Authenticated means an identity is associated with this client.
	Authenticated
	// Anonymous means nobody is signed in.
	Anonymous
)

func (p Phase) String() string {
	switch p {
	case Initializing:
		return "initializing"
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// State is a point in time copy of the session. Identity is set only in the
// Authenticated phase. Loading is true while the initial restore or a login
// call is in flight.
type State struct {
	Phase    Phase
	Identity *models.Identity
	Loading  bool
}

// Authenticated reports whether an identity is present.
func (s State) Authenticated() bool {
	return s.Phase == Authenticated && s.Identity != nil
}

func (s State) clone() State {
	s.Identity = s.Identity.Clone()
	return s
}
