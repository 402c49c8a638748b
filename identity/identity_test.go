package identity_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/takemethere/identity"
	errs "github.com/jrsteele09/takemethere/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestIdentity_Role(t *testing.T) {
	tests := []struct {
		name string
		id   identity.Identity
		want identity.Role
	}{
		{"app metadata wins", identity.Identity{
			AppMetadata:  identity.Metadata{"role": "admin"},
			UserMetadata: identity.Metadata{"role": "business_owner"},
		}, identity.RoleAdmin},
		{"falls back to user metadata", identity.Identity{
			AppMetadata:  identity.Metadata{"provider": "email"},
			UserMetadata: identity.Metadata{"role": "admin"},
		}, identity.RoleAdmin},
		{"empty app role falls back", identity.Identity{
			AppMetadata:  identity.Metadata{"role": ""},
			UserMetadata: identity.Metadata{"role": "business_owner"},
		}, identity.RoleBusinessOwner},
		{"non-string role ignored", identity.Identity{
			AppMetadata: identity.Metadata{"role": 1},
		}, ""},
		{"no metadata", identity.Identity{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.id.Role())
		})
	}

	require.False(t, identity.Identity{AppMetadata: identity.Metadata{"role": "Admin"}}.IsAdmin())
}

func TestSession_State(t *testing.T) {
	now := time.Now()
	var nilSession *identity.Session
	require.Equal(t, identity.SignedOut, nilSession.State(now))
	require.Equal(t, identity.SignedOut, (&identity.Session{}).State(now))
	require.Equal(t, identity.SessionActive, (&identity.Session{AccessToken: "at", ExpiresAt: now.Add(time.Minute)}).State(now))
	require.Equal(t, identity.SessionPending, (&identity.Session{AccessToken: "at", RefreshToken: "rt", ExpiresAt: now.Add(-time.Minute)}).State(now))
	require.Equal(t, identity.SignedOut, (&identity.Session{AccessToken: "at", ExpiresAt: now.Add(-time.Minute)}).State(now))
	require.Equal(t, "session-pending", identity.SessionPending.String())
}

func TestProviderError(t *testing.T) {
	t.Run("credentials", func(t *testing.T) {
		err := fmt.Errorf("sign in: %w", &identity.ProviderError{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"})
		require.ErrorIs(t, err, errs.ErrInvalidCredentials)
		require.True(t, identity.IsRejection(err))
	})

	t.Run("expired link", func(t *testing.T) {
		err := &identity.ProviderError{Status: 403, Code: "otp_expired"}
		require.ErrorIs(t, err, errs.ErrInvalidToken)
		require.True(t, identity.IsRejection(err))
	})

	t.Run("specific sentinels", func(t *testing.T) {
		tests := []struct {
			code string
			want error
		}{
			{"user_banned", errs.ErrUserBlocked},
			{"refresh_token_not_found", errs.ErrInvalidRefreshToken},
			{"refresh_token_already_used", errs.ErrInvalidRefreshToken},
			{"flow_state_not_found", errs.ErrInvalidAuthorizationCode},
			{"bad_code_verifier", errs.ErrInvalidCodeVerifier},
			{"session_not_found", errs.ErrSessionRevoked},
		}
		for _, tt := range tests {
			err := fmt.Errorf("wrapped: %w", &identity.ProviderError{Status: 400, Code: tt.code})
			require.ErrorIs(t, err, tt.want, tt.code)
			require.True(t, identity.IsRejection(err), tt.code)
		}

		require.ErrorIs(t, &identity.ProviderError{Status: 400, Code: "refresh_token_not_found"}, errs.ErrInvalidToken)
		require.NotErrorIs(t, &identity.ProviderError{Status: 400, Code: "user_banned"}, errs.ErrInvalidToken)
	})

	t.Run("unauthorized without code", func(t *testing.T) {
		err := &identity.ProviderError{Status: http.StatusUnauthorized, Message: "bad token"}
		require.ErrorIs(t, err, errs.ErrInvalidToken)
	})

	t.Run("server error is not a rejection", func(t *testing.T) {
		err := &identity.ProviderError{Status: 502, Message: "upstream"}
		require.False(t, identity.IsRejection(err))
		require.Contains(t, err.Error(), "502")
	})

	t.Run("transport error is not a rejection", func(t *testing.T) {
		require.False(t, identity.IsRejection(errors.New("dial tcp: connection refused")))
		require.False(t, identity.IsRejection(nil))
	})

	t.Run("sentinel is a rejection", func(t *testing.T) {
		require.True(t, identity.IsRejection(errs.Wrapf(errs.ErrTokenExpired, "verify")))
	})
}

func TestBroker(t *testing.T) {
	b := identity.NewBroker()
	var first, second atomic.Int32

	unsubFirst := b.Subscribe(func(_ context.Context, e identity.Event) {
		require.False(t, e.At.IsZero())
		first.Add(1)
	})
	unsubSecond := b.Subscribe(func(context.Context, identity.Event) { second.Add(1) })
	require.Equal(t, 2, b.Len())

	b.Publish(context.Background(), identity.Event{Type: identity.EventSignedIn, UserID: "u1"})
	require.Equal(t, int32(1), first.Load())
	require.Equal(t, int32(1), second.Load())

	unsubFirst()
	unsubFirst()
	require.Equal(t, 1, b.Len())

	b.Publish(context.Background(), identity.Event{Type: identity.EventSignedOut})
	require.Equal(t, int32(1), first.Load())
	require.Equal(t, int32(2), second.Load())

	b.Close()
	require.Equal(t, 0, b.Len())
	unsubSecond()

	var nilBroker *identity.Broker
	require.NotPanics(t, func() { nilBroker.Publish(context.Background(), identity.Event{}) })
}
