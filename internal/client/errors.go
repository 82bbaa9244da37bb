package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfeidau/hrms/internal/models"
)

// ErrUnauthorized is returned by resource calls when the server rejects the
// session cookie.
var ErrUnauthorized = errors.New("not authenticated")

// AuthenticationError is returned when the server rejects the login
// credentials. Message is suitable for showing to the user as-is.
type AuthenticationError struct {
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	return e.Message
}

// TransportError covers everything that is not a credential problem: network
// failures, 5xx responses and bodies that could not be decoded. The operation
// can be retried.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsAuthentication reports whether err is an *AuthenticationError.
func IsAuthentication(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// IsTransport reports whether err is a *TransportError.
func IsTransport(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// errorBody is the error envelope used by the backend. Validation failures
// come back as an errors array, everything else as a message.
type errorBody struct {
	Message string `json:"message"`
	Errors  []struct {
		Msg   string `json:"msg"`
		Param string `json:"param,omitempty"`
		Path  string `json:"path,omitempty"`
	} `json:"errors"`
}

// parseErrorBody extracts a human readable message from an error response,
// returning fallback when the body carries none.
func parseErrorBody(data []byte, fallback string) (msg string, fieldErrs *models.ValidationError) {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		// express-validator sometimes sends a bare array of strings
		var list []string
		if err := json.Unmarshal(data, &list); err == nil && len(list) > 0 {
			return strings.Join(list, ", "), models.NewValidationError(list...)
		}
		return fallback, nil
	}

	if len(body.Errors) > 0 {
		verr := &models.ValidationError{Fields: map[string]string{}}
		for _, e := range body.Errors {
			if e.Msg == "" {
				continue
			}
			verr.Messages = append(verr.Messages, e.Msg)
			if field := firstNonEmpty(e.Path, e.Param); field != "" {
				verr.Fields[field] = e.Msg
			}
		}
		if len(verr.Messages) > 0 {
			fieldErrs = verr
		}
	}

	switch {
	case body.Message != "":
		return body.Message, fieldErrs
	case fieldErrs != nil:
		return fieldErrs.Error(), fieldErrs
	default:
		return fallback, nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
