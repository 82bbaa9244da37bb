package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wolfeidau/hrms/internal/models"
	"github.com/wolfeidau/hrms/internal/session"
)

func authenticated(role string) session.State {
	return session.State{
		Phase:    session.Authenticated,
		Identity: &models.Identity{ID: "1", Name: "Ann", Email: "ann@example.com", Role: role},
	}
}

func TestDecide(t *testing.T) {
	initializing := session.State{Phase: session.Initializing, Loading: true}
	anonymous := session.State{Phase: session.Anonymous}

	tests := []struct {
		name  string
		state session.State
		route string
		want  Decision
	}{
		{
			name:  "initializing shows loading without redirect",
			state: initializing,
			route: "/",
			want:  Decision{Action: ActionLoading},
		},
		{
			name:  "anonymous on protected route is redirected",
			state: anonymous,
			route: "/candidates",
			want:  Decision{Action: ActionRedirect, Location: LoginPath},
		},
		{
			name:  "anonymous on unknown route is redirected",
			state: anonymous,
			route: "/reports/2024",
			want:  Decision{Action: ActionRedirect, Location: LoginPath},
		},
		{
			name:  "anonymous may see login",
			state: anonymous,
			route: "/login",
			want:  Decision{Action: ActionRender},
		},
		{
			name:  "anonymous may see register",
			state: anonymous,
			route: "/register?next=/",
			want:  Decision{Action: ActionRender},
		},
		{
			name:  "authenticated HR sees navigation",
			state: authenticated(models.RoleHR),
			route: "/leaves",
			want:  Decision{Action: ActionRender, ShowNavigation: true},
		},
		{
			name:  "authenticated never sees navigation on login",
			state: authenticated(models.RoleHR),
			route: "/login",
			want:  Decision{Action: ActionRender},
		},
		{
			name:  "other roles are forbidden",
			state: authenticated("Employee"),
			route: "/employees",
			want:  Decision{Action: ActionForbidden, Reason: ForbiddenMessage},
		},
		{
			name:  "authenticated phase without identity is treated as anonymous",
			state: session.State{Phase: session.Authenticated},
			route: "/",
			want:  Decision{Action: ActionRedirect, Location: LoginPath},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.state, tt.route))
		})
	}
}

func TestGate_Options(t *testing.T) {
	t.Run("role check disabled", func(t *testing.T) {
		g := New(WithRequiredRole(""))
		d := g.Decide(authenticated("Employee"), "/")
		assert.Equal(t, ActionRender, d.Action)
		assert.True(t, d.ShowNavigation)
	})

	t.Run("extra public path", func(t *testing.T) {
		g := New(WithPublicPaths("/health/"))
		d := g.Decide(session.State{Phase: session.Anonymous}, "/health")
		assert.Equal(t, ActionRender, d.Action)
	})
}

func TestClean(t *testing.T) {
	tests := map[string]string{
		"":                "/",
		"/":               "/",
		"candidates":      "/candidates",
		"/candidates/":    "/candidates",
		"/a/../login":     "/login",
		"/leaves?x=1#top": "/leaves",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, Clean(in))
		})
	}
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "redirect", ActionRedirect.String())
	assert.Equal(t, "unknown", Action(42).String())
}
