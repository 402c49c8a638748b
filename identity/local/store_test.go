package local_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/takemethere/identity"
	"github.com/jrsteele09/takemethere/identity/local"
	errs "github.com/jrsteele09/takemethere/internal/errors"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]local.UserStore {
	sq, err := local.OpenSQLiteStore(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })

	return map[string]local.UserStore{
		"memory": local.NewMemoryStore(),
		"sqlite": sq,
	}
}

func TestUserStore(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			u := &local.User{
				Email:        "Owner@Example.com ",
				PasswordHash: "hash",
				AppMetadata:  identity.Metadata{"role": "admin"},
			}
			require.NoError(t, store.Upsert(ctx, u))
			require.NotEmpty(t, u.ID)
			require.Equal(t, "owner@example.com", u.Email)

			got, err := store.GetByEmail(ctx, "OWNER@example.com")
			require.NoError(t, err)
			require.Equal(t, u.ID, got.ID)
			require.Equal(t, identity.RoleAdmin, got.Identity().Role())
			require.NotNil(t, got.UserMetadata)

			got.Blocked = true
			require.NoError(t, store.Upsert(ctx, got))
			byID, err := store.GetByID(ctx, u.ID)
			require.NoError(t, err)
			require.True(t, byID.Blocked)

			err = store.Upsert(ctx, &local.User{Email: "owner@example.com", PasswordHash: "x"})
			require.ErrorIs(t, err, errs.ErrUserExists)

			require.NoError(t, store.Upsert(ctx, &local.User{Email: "b@example.com", PasswordHash: "x"}))
			list, err := store.List(ctx, 0, 10)
			require.NoError(t, err)
			require.Len(t, list, 2)
			require.Equal(t, "b@example.com", list[0].Email)

			list, err = store.List(ctx, 1, 1)
			require.NoError(t, err)
			require.Len(t, list, 1)
			require.Equal(t, "owner@example.com", list[0].Email)

			list, err = store.List(ctx, 5, 10)
			require.NoError(t, err)
			require.Empty(t, list)

			require.NoError(t, store.Delete(ctx, u.ID))
			_, err = store.GetByEmail(ctx, "owner@example.com")
			require.ErrorIs(t, err, errs.ErrUserNotFound)
			require.ErrorIs(t, store.Delete(ctx, u.ID), errs.ErrUserNotFound)
		})
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := local.HashPassword("C0rrect!pass")
	require.NoError(t, err)
	require.True(t, local.CheckPasswordHash("C0rrect!pass", hash))
	require.False(t, local.CheckPasswordHash("c0rrect!pass", hash))
}
