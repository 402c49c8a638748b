package identity

import (
	"context"
	"fmt"
	"net/http"

	errs "github.com/jrsteele09/takemethere/internal/errors"
)

// AuthorizeRequest starts a third-party sign-in. CodeVerifier is the PKCE
// verifier kept by the caller; only its S256 challenge leaves the process.
type AuthorizeRequest struct {
	Provider     string
	RedirectTo   string
	State        string
	CodeVerifier string
}

// Provider is everything the auth flows need from the Identity Provider.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string, userMetadata Metadata) (*Identity, error)
	SignOut(ctx context.Context, accessToken string) error
	// ResetPasswordForEmail asks the provider to mail a recovery link that lands on redirectTo.
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*Session, error)
	// SetSession installs a token pair recovered from a continuation URL.
	SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	UpdatePassword(ctx context.Context, accessToken, newPassword string) (*Identity, error)
	GetUser(ctx context.Context, accessToken string) (*Identity, error)
	AuthorizeURL(ctx context.Context, req AuthorizeRequest) (string, error)
}

// ProviderError is an explicit rejection returned by the provider.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity provider: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("identity provider: %d: %s", e.Status, e.Message)
}

// Unwrap maps provider codes onto the shared sentinel errors. Every rejected
// credential also matches errs.ErrInvalidToken.
func (e *ProviderError) Unwrap() []error {
	switch e.Code {
	case "invalid_credentials", "invalid_grant":
		return []error{errs.ErrInvalidCredentials}
	case "user_banned":
		return []error{errs.ErrUserBlocked}
	case "user_already_exists", "email_exists":
		return []error{errs.ErrUserExists}
	case "refresh_token_not_found", "refresh_token_already_used":
		return []error{errs.ErrInvalidRefreshToken, errs.ErrInvalidToken}
	case "flow_state_not_found", "flow_state_expired":
		return []error{errs.ErrInvalidAuthorizationCode, errs.ErrInvalidToken}
	case "bad_code_verifier":
		return []error{errs.ErrInvalidCodeVerifier, errs.ErrInvalidToken}
	case "session_not_found", "session_expired":
		return []error{errs.ErrSessionRevoked, errs.ErrInvalidToken}
	case "bad_jwt", "otp_expired":
		return []error{errs.ErrInvalidToken}
	}
	if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
		return []error{errs.ErrInvalidToken}
	}
	return nil
}

// IsRejection reports whether err is the provider refusing the request, as
// opposed to a transport failure or a bug.
func IsRejection(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errs.As(err, &pe) {
		return pe.Status >= 400 && pe.Status < 500
	}
	return errs.Is(err, errs.ErrInvalidCredentials) ||
		errs.Is(err, errs.ErrInvalidToken) ||
		errs.Is(err, errs.ErrTokenExpired) ||
		errs.Is(err, errs.ErrSessionRevoked)
}
