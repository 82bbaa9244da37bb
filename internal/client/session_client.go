package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/hrms/internal/models"
)

// SessionClient talks to the authentication endpoints. It keeps no state of
// its own: the session cookie lives in the http.Client's jar.
type SessionClient struct {
	api *api
}

// NewSessionClient creates a session client for the API rooted at serverURL.
func NewSessionClient(serverURL string, httpClient *http.Client) (*SessionClient, error) {
	a, err := newAPI(serverURL, httpClient)
	if err != nil {
		return nil, err
	}
	return &SessionClient{api: a}, nil
}

// FetchCurrentIdentity asks the server who the session cookie belongs to.
// A nil identity with a nil error means "not logged in".
func (c *SessionClient) FetchCurrentIdentity(ctx context.Context) (*models.Identity, error) {
	const op = "fetch current identity"

	resp, err := c.api.do(ctx, op, http.MethodGet, c.api.endpoint(nil, "auth", "me"), nil, "")
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		log.Debug().Int("status", resp.StatusCode).Msg("no active session")
		return nil, nil
	case !resp.ok():
		msg, _ := parseErrorBody(resp.Body, http.StatusText(resp.StatusCode))
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}

	identity, err := decodeIdentity(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if identity.ID == "" {
		return nil, &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New("response is missing the user id")}
	}

	return identity, nil
}

// Login submits the credentials. The server sets the session cookie on
// success; when the response doesn't carry the full identity it is fetched
// from /auth/me so callers always get a resolved identity.
func (c *SessionClient) Login(ctx context.Context, email, password string) (*models.Identity, error) {
	const op = "login"

	creds := models.Credentials{Email: email, Password: password}

	resp, err := c.api.doJSON(ctx, op, http.MethodPost, c.api.endpoint(nil, "auth", "login"), creds)
	if err != nil {
		return nil, err
	}

	if !resp.ok() {
		return nil, loginError(op, resp)
	}

	identity, err := decodeIdentity(resp.Body)
	if err == nil && identity.Complete() {
		return identity, nil
	}

	log.Debug().Msg("login response without full identity, fetching current identity")

	identity, err = c.FetchCurrentIdentity(ctx)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, &TransportError{Op: op, Err: errors.New("server did not establish a session")}
	}

	return identity, nil
}

func loginError(op string, resp *response) error {
	if resp.StatusCode >= 500 || resp.StatusCode < 400 {
		msg, _ := parseErrorBody(resp.Body, http.StatusText(resp.StatusCode))
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}

	msg, fieldErrs := parseErrorBody(resp.Body, "Login failed")
	if fieldErrs != nil && (resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity) {
		return fieldErrs
	}

	return &AuthenticationError{StatusCode: resp.StatusCode, Message: msg}
}

// Logout asks the server to invalidate the session cookie.
func (c *SessionClient) Logout(ctx context.Context) error {
	const op = "logout"

	resp, err := c.api.do(ctx, op, http.MethodPost, c.api.endpoint(nil, "auth", "logout"), nil, "")
	if err != nil {
		return err
	}
	if !resp.ok() {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}

	return nil
}

// Register creates a new account. It does not sign the user in.
func (c *SessionClient) Register(ctx context.Context, reg models.Registration) error {
	const op = "register"

	reg.Email = models.NormalizeEmail(reg.Email)
	if err := reg.Validate(); err != nil {
		return err
	}

	resp, err := c.api.doJSON(ctx, op, http.MethodPost, c.api.endpoint(nil, "auth", "register"), reg)
	if err != nil {
		return err
	}

	switch {
	case resp.ok():
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		msg, fieldErrs := parseErrorBody(resp.Body, "Registration failed")
		if fieldErrs != nil {
			return fieldErrs
		}
		return models.NewValidationError(msg)
	default:
		msg, _ := parseErrorBody(resp.Body, http.StatusText(resp.StatusCode))
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}
}

// decodeIdentity accepts either {"user": {...}} or a bare identity.
func decodeIdentity(data []byte) (*models.Identity, error) {
	var envelope struct {
		User *models.Identity `json:"user"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode identity: %w", err)
	}
	if envelope.User != nil {
		return envelope.User, nil
	}

	var identity models.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("failed to decode identity: %w", err)
	}

	return &identity, nil
}
