// Package local is a self-contained Identity Provider used for development
// and for deployments without the hosted provider. It keeps accounts in a
// UserStore and session state in a cache.Cache.
package local

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jrsteele09/takemethere/identity"
)

type User struct {
	ID           string            `json:"id,omitempty"`          // Unique identifier for the user
	Email        string            `json:"email,omitempty"`       // Lower-cased sign-in email
	PasswordHash string            `json:"-"`                     // bcrypt hash, never serialized
	AppMetadata  identity.Metadata `json:"app_metadata"`          // Administrative claims, e.g. role
	UserMetadata identity.Metadata `json:"user_metadata"`         // Self-reported profile claims
	DateJoined   time.Time         `json:"date_joined,omitempty"` // Date and time when the user registered
	LastLogin    time.Time         `json:"last_login,omitempty"`  // Last successful sign-in
	Blocked      bool              `json:"blocked,omitempty"`     // Blocked users cannot sign in
}

func (u *User) Identity() identity.Identity {
	return identity.Identity{
		ID:           u.ID,
		Email:        u.Email,
		AppMetadata:  u.AppMetadata,
		UserMetadata: u.UserMetadata,
	}
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
