package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hrms/internal/client"
	"github.com/wolfeidau/hrms/internal/gate"
	"github.com/wolfeidau/hrms/internal/models"
)

// LoginCmd signs in and keeps the session for later commands.
type LoginCmd struct {
	Email    string `arg:"" help:"Account email"`
	Password string `help:"Account password, read from stdin when empty" env:"HRMS_PASSWORD"`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.close()

	password := l.Password
	if password == "" {
		if password, err = readPassword(); err != nil {
			return err
		}
	}

	identity, err := a.session.Login(ctx, l.Email, password)
	if err != nil {
		return explain(err)
	}

	// the dashboard is for HR staff only, anyone else is signed straight out
	decision := a.gate.Decide(a.session.State(), "/")
	if decision.Action == gate.ActionForbidden {
		a.session.Logout(ctx)
		a.close()
		a.forget()
		return errors.New(decision.Reason)
	}

	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", identity.Name, identity.Email)
	return nil
}

// LogoutCmd ends the session locally and on the server.
type LogoutCmd struct{}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}

	a.session.Logout(ctx)
	// the server call needs the cookie, so drop it only once that finished
	a.close()
	a.forget()

	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// forget removes the cookie jar and the HTTP cache. Failures are logged only;
// the session is already gone locally.
func (a *app) forget() {
	if err := a.jar.Clear(); err != nil {
		log.Warn().Err(err).Msg("failed to clear cookies")
	}
	if err := client.PurgeCache(a.cfg.CacheDir); err != nil {
		log.Warn().Err(err).Msg("failed to purge http cache")
	}
}

// WhoamiCmd shows the signed-in identity as confirmed by the server.
type WhoamiCmd struct{}

func (w *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.close()

	a.session.Restore(ctx)
	if err := a.session.Wait(ctx); err != nil {
		return err
	}

	identity := a.session.CurrentIdentity()
	if identity == nil {
		return errNotLoggedIn
	}

	fmt.Fprintf(a.out, "Name:   %s\n", identity.Name)
	fmt.Fprintf(a.out, "Email:  %s\n", identity.Email)
	fmt.Fprintf(a.out, "Role:   %s\n", identity.Role)
	fmt.Fprintf(a.out, "ID:     %s\n", identity.ID)
	return nil
}

// RegisterCmd creates a new account.
type RegisterCmd struct {
	Name     string `required:"" help:"Full name"`
	Email    string `required:"" help:"Account email"`
	Password string `help:"Account password, read from stdin when empty" env:"HRMS_PASSWORD"`
}

func (r *RegisterCmd) Run(ctx context.Context, globals *Globals) error {
	a, err := newApp(globals)
	if err != nil {
		return err
	}
	defer a.close()

	password := r.Password
	if password == "" {
		if password, err = readPassword(); err != nil {
			return err
		}
	}

	reg := models.Registration{Name: r.Name, Email: r.Email, Password: password}
	if err := a.auth.Register(ctx, reg); err != nil {
		return explain(err)
	}

	fmt.Fprintln(a.out, "Registration successful, run hrms-cli login to sign in")
	return nil
}

func readPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
