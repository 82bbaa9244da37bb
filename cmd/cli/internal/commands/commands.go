package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hrms/cmd/cli/internal/credentials"
	"github.com/wolfeidau/hrms/internal/client"
	"github.com/wolfeidau/hrms/internal/config"
	"github.com/wolfeidau/hrms/internal/gate"
	"github.com/wolfeidau/hrms/internal/models"
	"github.com/wolfeidau/hrms/internal/session"
)

// shutdownTimeout bounds how long a command waits for background session
// calls before exiting.
const shutdownTimeout = 10 * time.Second

var errNotLoggedIn = errors.New("not logged in, run hrms-cli login")

type Globals struct {
	Debug    bool
	Version  string
	APIURL   string
	StateDir string
	CacheDir string
	Config   string

	// Out receives command output, os.Stdout when nil.
	Out io.Writer
}

func (g *Globals) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// app is everything a command needs, built from the resolved configuration.
type app struct {
	cfg       *config.Config
	jar       *credentials.Jar
	auth      *client.SessionClient
	resources *client.Resources
	session   *session.Store
	gate      *gate.Gate
	out       io.Writer
}

func newApp(globals *Globals) (*app, error) {
	cfg, err := config.Load(config.Sources{
		File: globals.Config,
		Flags: config.Config{
			APIBaseURL: globals.APIURL,
			StateDir:   globals.StateDir,
			CacheDir:   globals.CacheDir,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	snapshot, err := credentials.NewStore(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	jar, err := credentials.NewJar(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load cookies: %w", err)
	}

	httpClient := client.NewHTTPClient(client.Config{
		ServerURL: cfg.APIBaseURL,
		Timeout:   cfg.Timeout,
		Debug:     globals.Debug,
		CacheDir:  cfg.CacheDir,
		Jar:       jar,
	})

	auth, err := client.NewSessionClient(cfg.APIBaseURL, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create session client: %w", err)
	}

	resources, err := client.NewResources(cfg.APIBaseURL, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource client: %w", err)
	}

	store := session.NewStore(auth, snapshot)
	resources.OnUnauthorized = store.Expire

	return &app{
		cfg:       cfg,
		jar:       jar,
		auth:      auth,
		resources: resources,
		session:   store,
		gate:      gate.New(),
		out:       globals.out(),
	}, nil
}

// screen restores the session and runs the access gate for route. It returns
// nil when the screen may be shown.
func (a *app) screen(ctx context.Context, route string) error {
	state := a.session.Restore(ctx)

	decision := a.gate.Decide(state, route)
	log.Debug().
		Str("route", route).
		Stringer("phase", state.Phase).
		Stringer("action", decision.Action).
		Msg("access decision")

	switch decision.Action {
	case gate.ActionRender:
		return nil
	case gate.ActionRedirect:
		return errNotLoggedIn
	case gate.ActionForbidden:
		return errors.New(decision.Reason)
	default:
		return fmt.Errorf("session is still %s, try again", state.Phase)
	}
}

// close waits for background session calls so a logout or validation is not
// cut off when the process exits.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.session.Wait(ctx); err != nil {
		log.Warn().Err(err).Msg("gave up waiting for background session calls")
	}
}

// explain turns client errors into messages for the terminal.
func explain(err error) error {
	var (
		authErr  *client.AuthenticationError
		reqErr   *client.RequestError
		validErr *models.ValidationError
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, client.ErrUnauthorized):
		return errors.New("session expired, run hrms-cli login")
	case errors.As(err, &authErr), errors.As(err, &reqErr), errors.As(err, &validErr):
		return err
	case client.IsTransport(err):
		return fmt.Errorf("server error, please try again later: %w", err)
	default:
		return err
	}
}
