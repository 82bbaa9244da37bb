package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/hrms/cmd/cli/internal/credentials"
	"github.com/wolfeidau/hrms/internal/client"
	"github.com/wolfeidau/hrms/internal/gate"
	"github.com/wolfeidau/hrms/internal/models"
)

const sessionCookie = "token"

// fakeBackend mimics the HR dashboard API closely enough for the commands.
type fakeBackend struct {
	mu       sync.Mutex
	sessions map[string]models.Identity
	logouts  int
	status   map[string]string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()

	b := &fakeBackend{
		sessions: make(map[string]models.Identity),
		status:   make(map[string]string),
	}
	srv := httptest.NewServer(b.routes())
	t.Cleanup(srv.Close)

	return b, srv
}

func (b *fakeBackend) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds models.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad request"})
			return
		}

		var identity models.Identity
		switch {
		case creds.Email == "ann@example.com" && creds.Password == "secret":
			identity = models.Identity{ID: "u1", Name: "Ann", Email: creds.Email, Role: models.RoleHR}
		case creds.Email == "bob@example.com" && creds.Password == "secret":
			identity = models.Identity{ID: "u2", Name: "Bob", Email: creds.Email, Role: "Employee"}
		default:
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "Invalid credentials"})
			return
		}

		token := "tok-" + identity.ID
		b.mu.Lock()
		b.sessions[token] = identity
		b.mu.Unlock()

		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
		writeJSON(w, http.StatusOK, map[string]any{"user": identity})
	})

	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		identity, ok := b.identity(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Not authenticated"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"user": identity})
	})

	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.logouts++
		if c, err := r.Cookie(sessionCookie); err == nil {
			delete(b.sessions, c.Value)
		}
		b.mu.Unlock()

		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
	})

	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, r *http.Request) {
		var reg models.Registration
		if err := json.NewDecoder(r.Body).Decode(&reg); err != nil || len(reg.Password) < 6 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"errors": []map[string]string{
				{"msg": "Password must be at least 6 characters"},
			}})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"message": "Registered"})
	})

	mux.HandleFunc("GET /api/candidates", b.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": []models.Candidate{
			{ID: "c1", Name: "Carol", Email: "carol@example.com", Phone: "555-0100", Position: "Engineer"},
		}})
	}))

	mux.HandleFunc("GET /api/employees", b.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Employee{
			{ID: "e1", Name: "Eve", Email: "eve@example.com", Role: "Engineer", EmploymentStatus: models.EmployeeStatusPresent},
			{ID: "e2", Name: "Dan", Email: "dan@example.com", Role: "Designer", EmploymentStatus: models.EmployeeStatusProbation},
		})
	}))

	mux.HandleFunc("GET /api/attendance", b.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
	}))

	mux.HandleFunc("GET /api/leaves", b.authed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"items": []map[string]any{
			{"_id": "l1", "employee": map[string]string{"_id": "e1", "name": "Eve"}, "type": "Sick",
				"status": "Pending", "startDate": "2024-03-01T00:00:00.000Z", "endDate": "2024-03-02T00:00:00.000Z"},
		}})
	}))

	mux.HandleFunc("PUT /api/leaves/{id}/status", b.authed(func(w http.ResponseWriter, r *http.Request) {
		var update models.LeaveStatusUpdate
		_ = json.NewDecoder(r.Body).Decode(&update)

		b.mu.Lock()
		b.status[r.PathValue("id")] = update.Status
		b.mu.Unlock()

		writeJSON(w, http.StatusOK, map[string]string{"message": "Leave " + update.Status})
	}))

	return mux
}

func (b *fakeBackend) identity(r *http.Request) (models.Identity, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return models.Identity{}, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	identity, ok := b.sessions[c.Value]
	return identity, ok
}

func (b *fakeBackend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := b.identity(r); !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Not authenticated"})
			return
		}
		next(w, r)
	}
}

func (b *fakeBackend) logoutCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.logouts
}

func (b *fakeBackend) leaveStatus(id string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status[id]
}

// revokeAll ends every session server side, like an expired cookie.
func (b *fakeBackend) revokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions = make(map[string]models.Identity)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// testGlobals isolates the commands from the real home directory.
func testGlobals(t *testing.T, srv *httptest.Server) (*Globals, *bytes.Buffer) {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"HRMS_API_URL", "HRMS_TIMEOUT", "HRMS_STATE_DIR", "HRMS_CACHE_DIR"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	out := &bytes.Buffer{}
	return &Globals{
		APIURL:   srv.URL + "/api",
		StateDir: filepath.Join(home, "state"),
		Config:   filepath.Join(home, "missing.yaml"),
		Out:      out,
	}, out
}

func login(t *testing.T, globals *Globals, email string) error {
	t.Helper()
	cmd := &LoginCmd{Email: email, Password: "secret"}
	return cmd.Run(context.Background(), globals)
}

func TestLoginCmd(t *testing.T) {
	t.Run("success persists the session", func(t *testing.T) {
		_, srv := newFakeBackend(t)
		globals, out := testGlobals(t, srv)

		require.NoError(t, login(t, globals, "  ANN@example.com "))
		assert.Contains(t, out.String(), "Logged in as Ann (ann@example.com)")

		store, err := credentials.NewStore(globals.StateDir)
		require.NoError(t, err)
		identity, err := store.Load()
		require.NoError(t, err)
		require.NotNil(t, identity)
		assert.Equal(t, "u1", identity.ID)

		_, err = os.Stat(filepath.Join(globals.StateDir, "cookies.json"))
		assert.NoError(t, err)
	})

	t.Run("rejected credentials show the server message", func(t *testing.T) {
		_, srv := newFakeBackend(t)
		globals, _ := testGlobals(t, srv)

		err := (&LoginCmd{Email: "ann@example.com", Password: "wrong"}).Run(context.Background(), globals)
		require.Error(t, err)
		assert.Equal(t, "Invalid credentials", err.Error())
	})

	t.Run("invalid email never reaches the server", func(t *testing.T) {
		_, srv := newFakeBackend(t)
		globals, _ := testGlobals(t, srv)

		err := (&LoginCmd{Email: "not-an-email", Password: "secret"}).Run(context.Background(), globals)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "valid email")
	})

	t.Run("non HR accounts are signed out again", func(t *testing.T) {
		backend, srv := newFakeBackend(t)
		globals, _ := testGlobals(t, srv)

		err := login(t, globals, "bob@example.com")
		require.Error(t, err)
		assert.Equal(t, gate.ForbiddenMessage, err.Error())
		assert.Equal(t, 1, backend.logoutCount())

		err = (&WhoamiCmd{}).Run(context.Background(), globals)
		assert.ErrorIs(t, err, errNotLoggedIn)
	})
}

func TestWhoamiCmd(t *testing.T) {
	_, srv := newFakeBackend(t)
	globals, out := testGlobals(t, srv)

	err := (&WhoamiCmd{}).Run(context.Background(), globals)
	assert.ErrorIs(t, err, errNotLoggedIn)

	require.NoError(t, login(t, globals, "ann@example.com"))
	out.Reset()

	require.NoError(t, (&WhoamiCmd{}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "Email:  ann@example.com")
	assert.Contains(t, out.String(), "Role:   HR")
}

func TestLogoutCmd(t *testing.T) {
	backend, srv := newFakeBackend(t)
	globals, out := testGlobals(t, srv)

	require.NoError(t, login(t, globals, "ann@example.com"))
	require.NoError(t, (&LogoutCmd{}).Run(context.Background(), globals))
	assert.Contains(t, out.String(), "Logged out")
	assert.Equal(t, 1, backend.logoutCount())

	_, err := os.Stat(filepath.Join(globals.StateDir, "session.json"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(globals.StateDir, "cookies.json"))
	assert.True(t, os.IsNotExist(err))

	err = (&CandidatesListCmd{}).Run(context.Background(), globals)
	assert.ErrorIs(t, err, errNotLoggedIn)

	// logging out twice is harmless
	require.NoError(t, (&LogoutCmd{}).Run(context.Background(), globals))
}

func TestScreens_RequireLogin(t *testing.T) {
	_, srv := newFakeBackend(t)
	globals, _ := testGlobals(t, srv)

	screens := map[string]interface {
		Run(context.Context, *Globals) error
	}{
		"candidates": &CandidatesListCmd{},
		"employees":  &EmployeesListCmd{},
		"attendance": &AttendanceListCmd{},
		"leaves":     &LeavesListCmd{},
		"dashboard":  &DashboardCmd{},
	}

	for name, cmd := range screens {
		t.Run(name, func(t *testing.T) {
			err := cmd.Run(context.Background(), globals)
			assert.ErrorIs(t, err, errNotLoggedIn)
		})
	}
}

func TestScreens_Authenticated(t *testing.T) {
	backend, srv := newFakeBackend(t)
	globals, out := testGlobals(t, srv)
	require.NoError(t, login(t, globals, "ann@example.com"))

	t.Run("candidates", func(t *testing.T) {
		out.Reset()
		require.NoError(t, (&CandidatesListCmd{}).Run(context.Background(), globals))
		assert.Contains(t, out.String(), "Carol")
		assert.Contains(t, out.String(), "carol@example.com")
	})

	t.Run("employees", func(t *testing.T) {
		out.Reset()
		require.NoError(t, (&EmployeesListCmd{}).Run(context.Background(), globals))
		assert.Contains(t, out.String(), "Eve")
		assert.Contains(t, out.String(), "Probation")
	})

	t.Run("attendance empty", func(t *testing.T) {
		out.Reset()
		require.NoError(t, (&AttendanceListCmd{}).Run(context.Background(), globals))
		assert.Contains(t, out.String(), "No attendance records found.")
	})

	t.Run("leaves", func(t *testing.T) {
		out.Reset()
		require.NoError(t, (&LeavesListCmd{}).Run(context.Background(), globals))
		assert.Contains(t, out.String(), "2024-03-01 → 2024-03-02")
		assert.Contains(t, out.String(), "Pending")
	})

	t.Run("approve leave", func(t *testing.T) {
		out.Reset()
		require.NoError(t, (&LeavesApproveCmd{ID: "l1"}).Run(context.Background(), globals))
		assert.Contains(t, out.String(), "Leave Approved")
		assert.Equal(t, models.LeaveApproved, backend.leaveStatus("l1"))
	})

	t.Run("dashboard", func(t *testing.T) {
		out.Reset()
		require.NoError(t, (&DashboardCmd{}).Run(context.Background(), globals))
		assert.Contains(t, out.String(), "Welcome, Ann")
		assert.Regexp(t, `Employees\s+2`, out.String())
		assert.Regexp(t, `Candidates\s+1`, out.String())
	})
}

func TestScreens_ExpiredSession(t *testing.T) {
	backend, srv := newFakeBackend(t)
	globals, _ := testGlobals(t, srv)
	require.NoError(t, login(t, globals, "ann@example.com"))

	backend.revokeAll()

	// depending on which answers first, the background validation or the
	// list call notices the revoked session
	err := (&EmployeesListCmd{}).Run(context.Background(), globals)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errNotLoggedIn) || strings.Contains(err.Error(), "session expired"), err.Error())

	store, err := credentials.NewStore(globals.StateDir)
	require.NoError(t, err)
	identity, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, identity)
}

func TestRegisterCmd(t *testing.T) {
	_, srv := newFakeBackend(t)
	globals, out := testGlobals(t, srv)

	cmd := &RegisterCmd{Name: "Ann", Email: "ann@example.com", Password: "secret1"}
	require.NoError(t, cmd.Run(context.Background(), globals))
	assert.Contains(t, out.String(), "Registration successful")

	// the server decides what a weak password is
	cmd = &RegisterCmd{Name: "Ann", Email: "ann@example.com", Password: "123"}
	err := cmd.Run(context.Background(), globals)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Password must be at least 6 characters", err.Error())
}

func TestDashboardCmd_RejectsNonPositiveInterval(t *testing.T) {
	_, srv := newFakeBackend(t)
	globals, _ := testGlobals(t, srv)
	require.NoError(t, login(t, globals, "ann@example.com"))

	for _, interval := range []time.Duration{0, -time.Second} {
		cmd := &DashboardCmd{Watch: true, Interval: interval}
		err := cmd.Run(context.Background(), globals)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid refresh interval")
	}
}

func TestExplain(t *testing.T) {
	assert.NoError(t, explain(nil))

	authErr := &client.AuthenticationError{StatusCode: 403, Message: "bad creds"}
	assert.Same(t, authErr, explain(authErr))

	err := explain(fmt.Errorf("list leaves: %w", client.ErrUnauthorized))
	assert.EqualError(t, err, "session expired, run hrms-cli login")

	err = explain(&client.TransportError{Op: "list leaves", StatusCode: 503, Err: errors.New("Service Unavailable")})
	assert.EqualError(t, err, "server error, please try again later: list leaves: HTTP 503: Service Unavailable")
}
