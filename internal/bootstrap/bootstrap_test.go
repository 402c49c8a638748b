package bootstrap_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/takemethere/auth"
	"github.com/jrsteele09/takemethere/identity"
	"github.com/jrsteele09/takemethere/internal/bootstrap"
	"github.com/jrsteele09/takemethere/internal/config"
	"github.com/jrsteele09/takemethere/internal/email"
)

func TestBuild_LocalMode(t *testing.T) {
	cfg, err := config.FromMap(map[string]string{
		"LOCAL_IDP_DB":         filepath.Join(t.TempDir(), "users.db"),
		"LOCAL_ADMIN_EMAIL":    "admin@example.com",
		"LOCAL_ADMIN_PASSWORD": "Adm1n!pass",
		"IDP_JWT_SECRET":       "bootstrap-test-secret-with-32-characters",
	})
	require.NoError(t, err)

	ctx := context.Background()
	app, err := bootstrap.Build(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, app.Close()) })

	require.NotNil(t, app.Local)
	require.NotNil(t, app.Verifier)
	require.IsType(t, email.LogSender{}, app.Mailer)

	res, err := app.Auth.SignIn(ctx, "admin@example.com", "Adm1n!pass", "")
	require.NoError(t, err)
	require.Equal(t, auth.PathAdmin, res.Redirect)

	ids, err := app.Local.ListIdentities(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	require.True(t, ids[0].IsAdmin())
}

func TestRemoteVerifier(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want any
	}{
		{"shared secret", map[string]string{"IDP_JWT_SECRET": "s"}, &identity.HMACVerifier{}},
		{"key set", map[string]string{"IDP_JWKS_URL": "https://idp.example.com/auth/v1/.well-known/jwks.json"}, &identity.JWKSVerifier{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.FromMap(tt.vars)
			require.NoError(t, err)
			require.IsType(t, tt.want, bootstrap.RemoteVerifier(context.Background(), cfg))
		})
	}

	cfg, err := config.FromMap(nil)
	require.NoError(t, err)
	require.Nil(t, bootstrap.RemoteVerifier(context.Background(), cfg))
}
