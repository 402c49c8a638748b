package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/takemethere/auth"
	"github.com/jrsteele09/takemethere/identity"
	"github.com/jrsteele09/takemethere/identity/mocks"
	"github.com/jrsteele09/takemethere/internal/metrics"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func sessionFor(role, where string) *identity.Session {
	id := identity.Identity{ID: "user-1", Email: "user@example.com"}
	switch where {
	case "app":
		id.AppMetadata = identity.Metadata{"role": role}
	case "user":
		id.UserMetadata = identity.Metadata{"role": role}
	}
	return &identity.Session{AccessToken: "at-new", RefreshToken: "rt-new", User: id}
}

func TestSignIn_ClearsExistingSessionFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mocks.NewMockProvider(ctrl)
	gomock.InOrder(
		p.EXPECT().SignOut(gomock.Any(), "at-old").Return(nil),
		p.EXPECT().SignInWithPassword(gomock.Any(), "user@example.com", "Str0ng!Pw").Return(sessionFor("admin", "app"), nil),
	)

	broker := identity.NewBroker()
	var events []identity.EventType
	unsubscribe := broker.Subscribe(func(_ context.Context, e identity.Event) { events = append(events, e.Type) })
	defer unsubscribe()

	s := newService(t, p, auth.WithEvents(broker))
	res, err := s.SignIn(context.Background(), " user@example.com ", "Str0ng!Pw", "at-old")
	require.NoError(t, err)
	require.Equal(t, auth.PathAdmin, res.Redirect)
	require.Equal(t, "at-new", res.Session.AccessToken)
	require.Equal(t, []identity.EventType{identity.EventSignedOut, identity.EventSignedIn}, events)
}

func TestSignIn_StaleSessionSignOutFailureIsIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	p := mocks.NewMockProvider(ctrl)
	p.EXPECT().SignOut(gomock.Any(), "at-old").Return(&identity.ProviderError{Status: 401, Code: "bad_jwt"})
	p.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).Return(sessionFor("business_owner", "user"), nil)

	s := newService(t, p)
	res, err := s.SignIn(context.Background(), "user@example.com", "Str0ng!Pw", "at-old")
	require.NoError(t, err)
	require.Equal(t, auth.PathDashboard, res.Redirect)
}

func TestSignIn_RoleRouting(t *testing.T) {
	tests := []struct {
		name string
		sess *identity.Session
		want string
	}{
		{"admin via app metadata", sessionFor("admin", "app"), auth.PathAdmin},
		{"admin via user metadata", sessionFor("admin", "user"), auth.PathAdmin},
		{"other role", sessionFor("business_owner", "app"), auth.PathDashboard},
		{"no role", sessionFor("", ""), auth.PathDashboard},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			p := mocks.NewMockProvider(ctrl)
			p.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).Return(tt.sess, nil)

			s := newService(t, p)
			res, err := s.SignIn(context.Background(), "user@example.com", "Str0ng!Pw", "")
			require.NoError(t, err)
			require.Equal(t, tt.want, res.Redirect)
		})
	}
}

func TestSignIn_Failures(t *testing.T) {
	t.Run("rejected reveals reset", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := mocks.NewMockProvider(ctrl)
		p.EXPECT().SignInWithPassword(gomock.Any(), "user@example.com", "wrong").
			Return(nil, &identity.ProviderError{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"})

		rec := metrics.New()
		s := newService(t, p, auth.WithMetrics(rec))
		_, err := s.SignIn(context.Background(), "user@example.com", "wrong", "")

		var ce *auth.CredentialError
		require.ErrorAs(t, err, &ce)
		require.True(t, ce.ShowReset)
		require.Equal(t, "user@example.com", ce.Email)
		require.Equal(t, auth.MsgInvalidCredentials, auth.UserMessage(err))
		require.NotContains(t, auth.UserMessage(err), "login credentials")
		require.Equal(t, 1.0, counter(t, rec, "tmt_sign_ins_total", "rejected"))
	})

	t.Run("unexpected error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := mocks.NewMockProvider(ctrl)
		p.EXPECT().SignInWithPassword(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

		s := newService(t, p)
		_, err := s.SignIn(context.Background(), "user@example.com", "Str0ng!Pw", "")
		var fe *auth.FlowError
		require.ErrorAs(t, err, &fe)
		require.Equal(t, auth.MsgUnexpected, auth.UserMessage(err))
	})

	t.Run("empty fields never reach provider", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := mocks.NewMockProvider(ctrl)

		s := newService(t, p)
		_, err := s.SignIn(context.Background(), "user@example.com", "", "")
		var ce *auth.CredentialError
		require.ErrorAs(t, err, &ce)
		require.True(t, ce.ShowReset)
	})
}

func TestSignUp(t *testing.T) {
	t.Run("weak password never reaches provider", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := mocks.NewMockProvider(ctrl)

		s := newService(t, p)
		_, err := s.SignUp(context.Background(), "owner@example.com", "weak", "weak")
		require.Equal(t, auth.MsgPasswordTooShort, auth.UserMessage(err))
	})

	t.Run("business owner role", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := mocks.NewMockProvider(ctrl)
		p.EXPECT().SignUp(gomock.Any(), "owner@example.com", "Str0ng!Pw", identity.Metadata{"role": "business_owner"}).
			Return(&identity.Identity{ID: "u2", Email: "owner@example.com"}, nil)

		s := newService(t, p)
		id, err := s.SignUp(context.Background(), "owner@example.com", "Str0ng!Pw", "Str0ng!Pw")
		require.NoError(t, err)
		require.Equal(t, "u2", id.ID)
	})

	t.Run("existing account gets generic message", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := mocks.NewMockProvider(ctrl)
		p.EXPECT().SignUp(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, &identity.ProviderError{Status: 422, Code: "user_already_exists"})

		s := newService(t, p)
		_, err := s.SignUp(context.Background(), "owner@example.com", "Str0ng!Pw", "Str0ng!Pw")
		require.Equal(t, auth.MsgSignUpFailed, auth.UserMessage(err))
	})
}

func TestExchangeCode(t *testing.T) {
	t.Run("success publishes recovery for reset target", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := mocks.NewMockProvider(ctrl)
		p.EXPECT().ExchangeCodeForSession(gomock.Any(), "code-1", "verifier").Return(sessionFor("", ""), nil)

		broker := identity.NewBroker()
		var got identity.EventType
		defer broker.Subscribe(func(_ context.Context, e identity.Event) { got = e.Type })()

		s := newService(t, p, auth.WithEvents(broker))
		sess, err := s.ExchangeCode(context.Background(), &auth.CodeContinuation{Code: "code-1", Next: "/reset-password"}, "verifier")
		require.NoError(t, err)
		require.Equal(t, "at-new", sess.AccessToken)
		require.Equal(t, identity.EventPasswordRecovery, got)
	})

	t.Run("used code fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		p := mocks.NewMockProvider(ctrl)
		p.EXPECT().ExchangeCodeForSession(gomock.Any(), "code-1", "").
			Return(nil, &identity.ProviderError{Status: 400, Code: "flow_state_not_found"})

		s := newService(t, p)
		sess, err := s.ExchangeCode(context.Background(), &auth.CodeContinuation{Code: "code-1", Next: "/dashboard"}, "")
		require.Nil(t, sess)
		require.Equal(t, auth.MsgLinkExpired, auth.UserMessage(err))
	})

	t.Run("missing code", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		s := newService(t, mocks.NewMockProvider(ctrl))
		_, err := s.ExchangeCode(context.Background(), nil, "")
		require.Error(t, err)
	})
}
