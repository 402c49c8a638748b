package identity_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/takemethere/identity"
	errs "github.com/jrsteele09/takemethere/internal/errors"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("super-secret-jwt-token-with-at-least-32-characters")

func adminIdentity() identity.Identity {
	return identity.Identity{
		ID:           "user-1",
		Email:        "admin@example.com",
		AppMetadata:  identity.Metadata{"role": "admin", "provider": "email"},
		UserMetadata: identity.Metadata{"full_name": "Ama Mensah"},
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := identity.NewTokenIssuer(testSecret, "takemethere", time.Hour)
	tok, expiresAt, err := issuer.Issue(adminIdentity(), "sess-1")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := identity.NewHMACVerifier(testSecret, "takemethere").Verify(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, "sess-1", claims.SessionID)
	require.Equal(t, identity.RoleAdmin, claims.Identity().Role())
	require.Equal(t, "user-1", claims.Identity().ID)
	require.Equal(t, expiresAt.Unix(), claims.Expiry().Unix())

	unverified, err := identity.UnverifiedClaims(tok)
	require.NoError(t, err)
	require.Equal(t, "admin@example.com", unverified.Email)
}

func TestHMACVerifier_Rejects(t *testing.T) {
	issuer := identity.NewTokenIssuer(testSecret, "takemethere", time.Hour)
	tok, _, err := issuer.Issue(adminIdentity(), "sess-1")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := identity.NewHMACVerifier([]byte("another-secret"), "").Verify(context.Background(), tok)
		require.ErrorIs(t, err, errs.ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := identity.NewHMACVerifier(testSecret, "someone-else").Verify(context.Background(), tok)
		require.ErrorIs(t, err, errs.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := identity.NewHMACVerifier(testSecret, "").Verify(context.Background(), "not-a-jwt")
		require.ErrorIs(t, err, errs.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		orig := identity.NowTimeFunc
		t.Cleanup(func() { identity.NowTimeFunc = orig })

		identity.NowTimeFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old, _, err := issuer.Issue(adminIdentity(), "sess-2")
		require.NoError(t, err)
		identity.NowTimeFunc = orig

		_, err = identity.NewHMACVerifier(testSecret, "").Verify(context.Background(), old)
		require.ErrorIs(t, err, errs.ErrTokenExpired)
		require.NotErrorIs(t, err, errs.ErrInvalidToken)
	})
}

func TestJWKSVerifier(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwks := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "k1",
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	defer srv.Close()

	sign := func(exp time.Time) string {
		claims := identity.Claims{
			Email:       "owner@example.com",
			AppMetadata: identity.Metadata{"role": "business_owner"},
			RegisteredClaims: jwtlib.RegisteredClaims{
				Issuer:    "https://idp.example.com/auth/v1",
				Subject:   "user-2",
				Audience:  jwtlib.ClaimStrings{identity.Audience},
				ExpiresAt: jwtlib.NewNumericDate(exp),
				IssuedAt:  jwtlib.NewNumericDate(time.Now()),
			},
		}
		tok := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
		tok.Header["kid"] = "k1"
		s, err := tok.SignedString(key)
		require.NoError(t, err)
		return s
	}

	ctx := context.Background()
	v := identity.NewJWKSVerifier(ctx, srv.URL, "https://idp.example.com/auth/v1")

	claims, err := v.Verify(ctx, sign(time.Now().Add(time.Hour)))
	require.NoError(t, err)
	require.Equal(t, "user-2", claims.Identity().ID)
	require.Equal(t, identity.RoleBusinessOwner, claims.Identity().Role())

	_, err = v.Verify(ctx, sign(time.Now().Add(-time.Hour)))
	require.ErrorIs(t, err, errs.ErrTokenExpired)

	hmacTok, _, err := identity.NewTokenIssuer(testSecret, "", time.Hour).Issue(adminIdentity(), "s")
	require.NoError(t, err)
	_, err = v.Verify(ctx, hmacTok)
	require.ErrorIs(t, err, errs.ErrInvalidToken)
}
