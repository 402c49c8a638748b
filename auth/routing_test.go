package auth_test

import (
	"errors"
	"testing"

	"github.com/jrsteele09/takemethere/auth"
	"github.com/jrsteele09/takemethere/identity"
	"github.com/stretchr/testify/require"
)

func TestLandingFor(t *testing.T) {
	tests := []struct {
		name string
		id   identity.Identity
		want string
	}{
		{"admin in app metadata", identity.Identity{AppMetadata: identity.Metadata{"role": "admin"}}, auth.PathAdmin},
		{"admin in user metadata", identity.Identity{UserMetadata: identity.Metadata{"role": "admin"}}, auth.PathAdmin},
		{"app metadata overrides user metadata", identity.Identity{
			AppMetadata:  identity.Metadata{"role": "business_owner"},
			UserMetadata: identity.Metadata{"role": "admin"},
		}, auth.PathDashboard},
		{"business owner", identity.Identity{UserMetadata: identity.Metadata{"role": "business_owner"}}, auth.PathDashboard},
		{"case sensitive", identity.Identity{AppMetadata: identity.Metadata{"role": "ADMIN"}}, auth.PathDashboard},
		{"no role", identity.Identity{}, auth.PathDashboard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, auth.LandingFor(tt.id))
		})
	}
}

func TestAdminGuard(t *testing.T) {
	admin := &identity.Session{AccessToken: "at", User: identity.Identity{AppMetadata: identity.Metadata{"role": "admin"}}}
	owner := &identity.Session{AccessToken: "at", User: identity.Identity{UserMetadata: identity.Metadata{"role": "business_owner"}}}

	tests := []struct {
		name     string
		sess     *identity.Session
		err      error
		outcome  auth.GuardOutcome
		redirect string
	}{
		{"admin allowed", admin, nil, auth.GuardAllow, ""},
		{"no session", nil, nil, auth.GuardNoSession, "/login"},
		{"empty session", &identity.Session{}, nil, auth.GuardNoSession, "/login"},
		{"wrong role", owner, nil, auth.GuardForbidden, "/"},
		{"lookup error fails closed", nil, errors.New("provider unreachable"), auth.GuardLookupFailed, "/login"},
		{"lookup error wins over session", admin, errors.New("malformed cookie"), auth.GuardLookupFailed, "/login"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := auth.AdminGuard(tt.sess, tt.err)
			require.Equal(t, tt.outcome, got)
			require.Equal(t, tt.redirect, got.Redirect())
		})
	}
	require.Equal(t, "lookup_failed", auth.GuardLookupFailed.String())
}
