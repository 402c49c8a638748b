package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	errs "github.com/jrsteele09/takemethere/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Audience carried by every access token for a signed-in user.
const Audience = "authenticated"

// Claims is the access token payload shared with the hosted provider.
type Claims struct {
	Email        string   `json:"email"`
	AppMetadata  Metadata `json:"app_metadata,omitempty"`
	UserMetadata Metadata `json:"user_metadata,omitempty"`
	SessionID    string   `json:"session_id,omitempty"`
	jwtlib.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{
		ID:           c.Subject,
		Email:        c.Email,
		AppMetadata:  c.AppMetadata,
		UserMetadata: c.UserMetadata,
	}
}

// Expiry is the token expiry, or the zero time if the token has none.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenVerifier checks an access token locally, without a provider round-trip.
// Expired tokens return errs.ErrTokenExpired, everything else errs.ErrInvalidToken.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

// HMACVerifier verifies HS256 tokens signed with the provider's shared secret.
type HMACVerifier struct {
	secret []byte
	issuer string
}

var _ TokenVerifier = (*HMACVerifier)(nil)

func NewHMACVerifier(secret []byte, issuer string) *HMACVerifier {
	return &HMACVerifier{secret: secret, issuer: issuer}
}

func (v *HMACVerifier) Verify(_ context.Context, rawToken string) (*Claims, error) {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(func() time.Time { return NowTimeFunc() }),
		jwtlib.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	_, err := jwtlib.ParseWithClaims(rawToken, claims, func(*jwtlib.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, errs.Wrapf(errs.ErrTokenExpired, "verify access token")
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", errs.ErrInvalidToken)
	}
	return claims, nil
}

// JWKSVerifier verifies asymmetrically signed tokens against the provider's
// published key set.
type JWKSVerifier struct {
	verifier *oidc.IDTokenVerifier
}

var _ TokenVerifier = (*JWKSVerifier)(nil)

// NewJWKSVerifier fetches keys from jwksURL lazily; ctx bounds background key refreshes.
func NewJWKSVerifier(ctx context.Context, jwksURL, issuer string) *JWKSVerifier {
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	return &JWKSVerifier{
		verifier: oidc.NewVerifier(issuer, keySet, &oidc.Config{
			SkipClientIDCheck:    true,
			SkipIssuerCheck:      issuer == "",
			SupportedSigningAlgs: []string{oidc.RS256, oidc.ES256},
			Now:                  func() time.Time { return NowTimeFunc() },
		}),
	}
}

func (v *JWKSVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	tok, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		var expired *oidc.TokenExpiredError
		if errors.As(err, &expired) {
			return nil, errs.Wrapf(errs.ErrTokenExpired, "verify access token")
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidToken, err)
	}
	claims := &Claims{}
	if err := tok.Claims(claims); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		claims.Subject = tok.Subject
	}
	return claims, nil
}

// TokenIssuer mints HS256 access tokens in the same shape the hosted provider uses.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenIssuer(secret []byte, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, issuer: issuer, ttl: ttl}
}

func (ti *TokenIssuer) Issue(id Identity, sessionID string) (string, time.Time, error) {
	now := NowTimeFunc()
	expiresAt := now.Add(ti.ttl)
	claims := Claims{
		Email:        id.Email,
		AppMetadata:  id.AppMetadata,
		UserMetadata: id.UserMetadata,
		SessionID:    sessionID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    ti.issuer,
			Subject:   id.ID,
			Audience:  jwtlib.ClaimStrings{Audience},
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// UnverifiedClaims decodes a token without checking its signature. Only for
// reading hints such as expiry from tokens the provider will check anyway.
func UnverifiedClaims(rawToken string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidToken, err)
	}
	return claims, nil
}
