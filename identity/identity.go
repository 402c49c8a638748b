// Package identity models the accounts and sessions owned by the external
// Identity Provider and defines the port the rest of the service talks to.
package identity

import (
	"time"
	"unicode/utf16"
)

// Role is the coarse-grained claim used for routing and the admin guard.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleBusinessOwner Role = "business_owner"
)

const roleKey = "role"

// Metadata is a free-form claim bag as stored by the provider.
type Metadata map[string]any

// String returns the value at key when it is a string.
func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

type Identity struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	AppMetadata  Metadata `json:"app_metadata,omitempty"`
	UserMetadata Metadata `json:"user_metadata,omitempty"`
}

// Role reads the administrative-scope claim first and falls back to the
// self-reported profile claim. The first non-empty value wins.
func (i Identity) Role() Role {
	if r := i.AppMetadata.String(roleKey); r != "" {
		return Role(r)
	}
	return Role(i.UserMetadata.String(roleKey))
}

func (i Identity) IsAdmin() bool {
	return i.Role() == RoleAdmin
}

// AuthState is how far an identity has got towards an active session.
type AuthState int

const (
	SignedOut AuthState = iota
	SessionPending
	SessionActive
)

func (s AuthState) String() string {
	switch s {
	case SessionPending:
		return "session-pending"
	case SessionActive:
		return "session-active"
	default:
		return "signed-out"
	}
}

// Session is an access/refresh credential pair bound to an identity.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Identity  `json:"user"`
}

// State reports SessionPending when the access token has lapsed but the
// session can still be refreshed.
func (s *Session) State(now time.Time) AuthState {
	if s == nil || s.AccessToken == "" {
		return SignedOut
	}
	if !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt) {
		if s.RefreshToken != "" {
			return SessionPending
		}
		return SignedOut
	}
	return SessionActive
}

// PasswordLength counts UTF-16 code units, the unit browsers report for a
// form field's length. A character outside the BMP counts as two.
func PasswordLength(password string) int {
	return len(utf16.Encode([]rune(password)))
}
