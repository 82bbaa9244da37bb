package models

import (
	"encoding/json"
	"strings"
)

// RoleHR is the role required to use the HR dashboard.
const RoleHR = "HR"

// Identity describes the signed-in user as reported by the backend.
// It is always replaced wholesale, never patched field by field.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UnmarshalJSON accepts both "id" and the MongoDB style "_id" key.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      string `json:"id"`
		MongoID string `json:"_id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Role    string `json:"role"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*i = Identity{
		ID:    raw.ID,
		Name:  raw.Name,
		Email: raw.Email,
		Role:  raw.Role,
	}
	if i.ID == "" {
		i.ID = raw.MongoID
	}

	return nil
}

// Complete returns true when the identity carries enough data to be used
// without a follow-up "who am I" call.
func (i *Identity) Complete() bool {
	return i != nil && i.ID != "" && i.Role != ""
}

// HasRole reports whether the identity holds the given role.
func (i *Identity) HasRole(role string) bool {
	return i != nil && i.Role == role
}

// Equal compares two identities field by field. Two nil identities are equal.
func (i *Identity) Equal(other *Identity) bool {
	if i == nil || other == nil {
		return i == nil && other == nil
	}
	return *i == *other
}

// Clone returns a copy so callers can't mutate state they don't own.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

// NormalizeEmail trims surrounding whitespace and lowercases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Credentials is the login form payload.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Validate checks the credentials before they are sent to the server.
func (c Credentials) Validate() error {
	return validateStruct(c)
}

// Registration is the sign-up form payload.
type Registration struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Validate checks the registration form.
func (r Registration) Validate() error {
	return validateStruct(r)
}
