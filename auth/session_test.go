package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/takemethere/auth"
	"github.com/jrsteele09/takemethere/identity"
	"github.com/jrsteele09/takemethere/identity/mocks"
	"github.com/jrsteele09/takemethere/internal/metrics"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var verifierSecret = []byte("auth-test-secret-with-at-least-32-characters")

func issue(t *testing.T, id identity.Identity, ttl time.Duration) string {
	t.Helper()
	tok, _, err := identity.NewTokenIssuer(verifierSecret, "", ttl).Issue(id, "sess-1")
	require.NoError(t, err)
	return tok
}

func issueExpired(t *testing.T, id identity.Identity) string {
	t.Helper()
	orig := identity.NowTimeFunc
	identity.NowTimeFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	defer func() { identity.NowTimeFunc = orig }()
	return issue(t, id, time.Hour)
}

var adminID = identity.Identity{ID: "admin-1", Email: "admin@example.com", AppMetadata: identity.Metadata{"role": "admin"}}

func TestCurrentSession_WithVerifier(t *testing.T) {
	verifier := identity.NewHMACVerifier(verifierSecret, "")

	t.Run("no cookies", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		s := newService(t, mocks.NewMockProvider(ctrl), auth.WithVerifier(verifier))
		sess, err := s.CurrentSession(context.Background(), "", "")
		require.NoError(t, err)
		require.Nil(t, sess)
	})

	t.Run("valid token checked locally", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		s := newService(t, mocks.NewMockProvider(ctrl), auth.WithVerifier(verifier))
		sess, err := s.CurrentSession(context.Background(), issue(t, adminID, time.Hour), "rt")
		require.NoError(t, err)
		require.True(t, sess.User.IsAdmin())
	})

	t.Run("expired token refreshes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := mocks.NewMockProvider(ctrl)
		p.EXPECT().RefreshSession(gomock.Any(), "rt-1").Return(&identity.Session{AccessToken: "at-2", RefreshToken: "rt-2", User: adminID}, nil)

		s := newService(t, p, auth.WithVerifier(verifier))
		sess, err := s.CurrentSession(context.Background(), issueExpired(t, adminID), "rt-1")
		require.NoError(t, err)
		require.Equal(t, "at-2", sess.AccessToken)
	})

	t.Run("expired without refresh token is no session", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		s := newService(t, mocks.NewMockProvider(ctrl), auth.WithVerifier(verifier))
		sess, err := s.CurrentSession(context.Background(), issueExpired(t, adminID), "")
		require.NoError(t, err)
		require.Nil(t, sess)
	})

	t.Run("malformed cookie is a lookup error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		s := newService(t, mocks.NewMockProvider(ctrl), auth.WithVerifier(verifier))
		_, err := s.CurrentSession(context.Background(), "garbage", "rt")
		require.Error(t, err)
	})
}

func TestCurrentSession_WithoutVerifier(t *testing.T) {
	t.Run("provider lookup", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := mocks.NewMockProvider(ctrl)
		p.EXPECT().GetUser(gomock.Any(), "at").Return(&adminID, nil)

		s := newService(t, p)
		sess, err := s.CurrentSession(context.Background(), "at", "rt")
		require.NoError(t, err)
		require.Equal(t, "admin-1", sess.User.ID)
	})

	t.Run("rejected token with dead refresh token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := mocks.NewMockProvider(ctrl)
		p.EXPECT().GetUser(gomock.Any(), "at").Return(nil, &identity.ProviderError{Status: 401, Code: "bad_jwt"})
		p.EXPECT().RefreshSession(gomock.Any(), "rt").Return(nil, &identity.ProviderError{Status: 400, Code: "refresh_token_not_found"})

		s := newService(t, p)
		sess, err := s.CurrentSession(context.Background(), "at", "rt")
		require.NoError(t, err)
		require.Nil(t, sess)
	})

	t.Run("provider unreachable", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := mocks.NewMockProvider(ctrl)
		p.EXPECT().GetUser(gomock.Any(), "at").Return(nil, errors.New("connection refused"))

		s := newService(t, p)
		_, err := s.CurrentSession(context.Background(), "at", "rt")
		require.Error(t, err)
	})

	t.Run("refresh only", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := mocks.NewMockProvider(ctrl)
		p.EXPECT().RefreshSession(gomock.Any(), "rt").Return(&identity.Session{AccessToken: "at-2", RefreshToken: "rt-2"}, nil)

		s := newService(t, p)
		sess, err := s.CurrentSession(context.Background(), "", "rt")
		require.NoError(t, err)
		require.Equal(t, "at-2", sess.AccessToken)
	})
}

func TestCurrentSession_ConcurrentRefreshCollapses(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mocks.NewMockProvider(ctrl)

	release := make(chan struct{})
	p.EXPECT().RefreshSession(gomock.Any(), "rt-1").
		DoAndReturn(func(context.Context, string) (*identity.Session, error) {
			<-release
			return &identity.Session{AccessToken: "at-2", RefreshToken: "rt-2", User: adminID}, nil
		}).Times(1)

	s := newService(t, p)

	const callers = 5
	var wg sync.WaitGroup
	results := make([]*identity.Session, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := s.CurrentSession(context.Background(), "", "rt-1")
			require.NoError(t, err)
			results[i] = sess
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, sess := range results {
		require.Equal(t, "at-2", sess.AccessToken)
	}
}

func TestGuard(t *testing.T) {
	verifier := identity.NewHMACVerifier(verifierSecret, "")
	owner := identity.Identity{ID: "owner-1", UserMetadata: identity.Metadata{"role": "business_owner"}}

	tests := []struct {
		name     string
		at       string
		redirect string
		outcome  string
	}{
		{"admin", issue(t, adminID, time.Hour), "", "allow"},
		{"owner is sent home", issue(t, owner, time.Hour), "/", "forbidden"},
		{"no session", "", "/login", "no_session"},
		{"malformed cookie fails closed", "garbage", "/login", "lookup_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			rec := metrics.New()
			s := newService(t, mocks.NewMockProvider(ctrl), auth.WithVerifier(verifier), auth.WithMetrics(rec))

			outcome, _ := s.Guard(context.Background(), tt.at, "")
			require.Equal(t, tt.redirect, outcome.Redirect())
			require.Equal(t, 1.0, counter(t, rec, "tmt_admin_guard_decisions_total", tt.outcome))
		})
	}

	t.Run("provider unreachable fails closed", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := mocks.NewMockProvider(ctrl)
		p.EXPECT().GetUser(gomock.Any(), gomock.Any()).Return(nil, errors.New("no route to host"))

		s := newService(t, p)
		outcome, sess := s.Guard(context.Background(), "at", "rt")
		require.Equal(t, auth.GuardLookupFailed, outcome)
		require.Equal(t, auth.PathLogin, outcome.Redirect())
		require.Nil(t, sess)
	})
}
