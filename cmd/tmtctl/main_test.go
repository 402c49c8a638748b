package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/takemethere/auth"
	"github.com/jrsteele09/takemethere/identity"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCheckPassword(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"strong", []string{"check-password", "N3w!Passw0rd"}, ""},
		{"short", []string{"check-password", "Ab1!"}, auth.MsgPasswordTooShort},
		{"weak", []string{"check-password", "abcdefgh"}, auth.MsgPasswordComplexity},
		{"mismatch", []string{"check-password", "N3w!Passw0rd", "--confirm", "other"}, auth.MsgPasswordMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if tt.want == "" {
				require.NoError(t, err)
				require.Equal(t, "ok\n", out)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSeedAndListUsers(t *testing.T) {
	t.Setenv("IDENTITY_MODE", "local")
	t.Setenv("LOCAL_IDP_DB", filepath.Join(t.TempDir(), "users.db"))
	t.Setenv("LOCAL_ADMIN_EMAIL", "admin@example.com")
	t.Setenv("LOCAL_ADMIN_PASSWORD", "Adm1n!pass")
	t.Setenv("IDP_JWT_SECRET", "tmtctl-test-secret-with-32-characters!")
	t.Setenv("ENV", "TEST")

	out, err := execute(t, "seed-user", "--email", "owner@example.com", "--password", "C0rrect!pass")
	require.NoError(t, err)
	require.Contains(t, out, "created owner@example.com")

	_, err = execute(t, "seed-user", "--email", "x@example.com", "--password", "C0rrect!pass", "--role", "root")
	require.ErrorContains(t, err, "unknown role")

	out, err = execute(t, "list-users")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, out, string(identity.RoleAdmin))
	require.Contains(t, out, "owner@example.com")
}
