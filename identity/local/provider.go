package local

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/takemethere/identity"
	"github.com/jrsteele09/takemethere/internal/cache"
	"github.com/jrsteele09/takemethere/internal/email"
	errs "github.com/jrsteele09/takemethere/internal/errors"
)

// Link styles for recovery mail.
const (
	LinkStyleToken = "token"
	LinkStyleCode  = "code"
)

const (
	minPasswordLength = 8
	codeTTL           = 5 * time.Minute
	tokenBytes        = 32

	refreshPrefix = "rt:"
	revokedPrefix = "revoked:"
	codePrefix    = "code:"
)

type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	LinkStyle  string
	AppName    string

	// AllowedOrigins are the origins recovery links may point at. Loopback
	// origins are always allowed.
	AllowedOrigins []string
}

// Provider implements identity.Provider on top of a UserStore and a cache.
type Provider struct {
	users    UserStore
	cache    cache.Cache
	mailer   email.Sender
	issuer   *identity.TokenIssuer
	verifier *identity.HMACVerifier
	origins  *identity.OriginAllowList
	cfg      Config
}

var _ identity.Provider = (*Provider)(nil)

type refreshRecord struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

type codeRecord struct {
	UserID        string `json:"user_id"`
	CodeChallenge string `json:"code_challenge,omitempty"`
}

func New(users UserStore, c cache.Cache, mailer email.Sender, cfg Config) (*Provider, error) {
	if users == nil {
		return nil, fmt.Errorf("[local New] user store is required")
	}
	if c == nil {
		return nil, fmt.Errorf("[local New] cache is required")
	}
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("[local New] signing secret is required")
	}
	if mailer == nil {
		mailer = email.LogSender{}
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.LinkStyle == "" {
		cfg.LinkStyle = LinkStyleToken
	}
	if cfg.AppName == "" {
		cfg.AppName = "Take Me There Ghana"
	}
	return &Provider{
		users:    users,
		cache:    c,
		mailer:   mailer,
		issuer:   identity.NewTokenIssuer(cfg.Secret, cfg.Issuer, cfg.AccessTTL),
		verifier: identity.NewHMACVerifier(cfg.Secret, cfg.Issuer),
		origins:  identity.NewOriginAllowList(cfg.AllowedOrigins...),
		cfg:      cfg,
	}, nil
}

// ListIdentities pages through local accounts for the admin area.
func (p *Provider) ListIdentities(ctx context.Context, offset, limit int) ([]identity.Identity, error) {
	users, err := p.users.List(ctx, offset, limit)
	if err != nil {
		return nil, errs.Wrapf(err, "[local ListIdentities] list")
	}
	out := make([]identity.Identity, 0, len(users))
	for _, u := range users {
		out = append(out, u.Identity())
	}
	return out, nil
}

// Verifier returns the verifier matching the tokens this provider issues.
func (p *Provider) Verifier() identity.TokenVerifier {
	return p.verifier
}

func rejection(status int, code, msg string) *identity.ProviderError {
	return &identity.ProviderError{Status: status, Code: code, Message: msg}
}

func (p *Provider) SignInWithPassword(ctx context.Context, emailAddr, password string) (*identity.Session, error) {
	user, err := p.users.GetByEmail(ctx, emailAddr)
	if errs.Is(err, errs.ErrUserNotFound) {
		// Same answer as a wrong password.
		return nil, rejection(http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
	}
	if err != nil {
		return nil, errs.Wrapf(err, "[local SignInWithPassword] lookup")
	}
	if !CheckPasswordHash(password, user.PasswordHash) {
		return nil, rejection(http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
	}
	if user.Blocked {
		return nil, rejection(http.StatusBadRequest, "user_banned", "User is banned")
	}

	user.LastLogin = identity.NowTimeFunc().UTC()
	if err := p.users.Upsert(ctx, user); err != nil {
		return nil, errs.Wrapf(err, "[local SignInWithPassword] record login")
	}
	return p.newSession(ctx, user, uuid.NewString())
}

func (p *Provider) SignUp(ctx context.Context, emailAddr, password string, userMetadata identity.Metadata) (*identity.Identity, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return nil, rejection(http.StatusBadRequest, "validation_failed", "An email address is required")
	}
	if err := checkPasswordLength(password); err != nil {
		return nil, err
	}
	user, err := p.CreateUser(ctx, emailAddr, password, identity.Metadata{"provider": "email"}, userMetadata)
	if errs.Is(err, errs.ErrUserExists) {
		return nil, rejection(http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
	}
	if err != nil {
		return nil, err
	}
	id := user.Identity()
	return &id, nil
}

// CreateUser stores a new account without any policy checks beyond uniqueness.
func (p *Provider) CreateUser(ctx context.Context, emailAddr, password string, appMetadata, userMetadata identity.Metadata) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("[local CreateUser] failed to hash password: %w", err)
	}
	if appMetadata == nil {
		appMetadata = identity.Metadata{}
	}
	if userMetadata == nil {
		userMetadata = identity.Metadata{}
	}
	if _, err := p.users.GetByEmail(ctx, emailAddr); err == nil {
		return nil, errs.ErrUserExists
	}
	user := &User{
		Email:        emailAddr,
		PasswordHash: hash,
		AppMetadata:  appMetadata,
		UserMetadata: userMetadata,
		DateJoined:   identity.NowTimeFunc().UTC(),
	}
	if err := p.users.Upsert(ctx, user); err != nil {
		return nil, errs.Wrapf(err, "[local CreateUser] store")
	}
	return user, nil
}

// EnsureAdmin makes sure an administrator account exists for emailAddr.
// It returns the generated password when it had to create the account
// without one.
func (p *Provider) EnsureAdmin(ctx context.Context, emailAddr, password string) (generatedPassword string, err error) {
	existing, err := p.users.GetByEmail(ctx, emailAddr)
	if err == nil {
		if existing.Identity().IsAdmin() {
			return "", nil
		}
		if existing.AppMetadata == nil {
			existing.AppMetadata = identity.Metadata{}
		}
		existing.AppMetadata["role"] = string(identity.RoleAdmin)
		return "", p.users.Upsert(ctx, existing)
	}
	if !errs.Is(err, errs.ErrUserNotFound) {
		return "", errs.Wrapf(err, "[local EnsureAdmin] lookup")
	}

	if password == "" {
		password, err = randomToken(16)
		if err != nil {
			return "", fmt.Errorf("[local EnsureAdmin] failed to generate password: %w", err)
		}
		generatedPassword = password
	}
	_, err = p.CreateUser(ctx, emailAddr, password,
		identity.Metadata{"provider": "email", "role": string(identity.RoleAdmin)},
		identity.Metadata{"full_name": "System Administrator"})
	if err != nil {
		return "", err
	}
	return generatedPassword, nil
}

func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	claims, err := p.verifier.Verify(ctx, accessToken)
	if errs.Is(err, errs.ErrTokenExpired) {
		// An expired token can still end its session.
		claims, err = identity.UnverifiedClaims(accessToken)
	}
	if err != nil {
		return rejection(http.StatusUnauthorized, "bad_jwt", "invalid JWT")
	}
	return p.revokeSession(ctx, claims.SessionID)
}

func (p *Provider) revokeSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := p.cache.Set(ctx, revokedPrefix+sessionID, []byte("1"), p.cfg.RefreshTTL); err != nil {
		return errs.Wrapf(err, "[local revokeSession] revoke session")
	}
	return nil
}

func (p *Provider) ResetPasswordForEmail(ctx context.Context, emailAddr, redirectTo string) error {
	user, err := p.users.GetByEmail(ctx, emailAddr)
	if errs.Is(err, errs.ErrUserNotFound) {
		log.Debug().Msg("recovery requested for unknown account")
		return nil
	}
	if err != nil {
		return errs.Wrapf(err, "[local ResetPasswordForEmail] lookup")
	}
	if user.Blocked {
		return nil
	}

	target, err := url.Parse(redirectTo)
	if err != nil || target.Scheme == "" || target.Host == "" {
		return rejection(http.StatusBadRequest, "validation_failed", "redirect_to must be an absolute URL")
	}
	if !p.origins.Allows(redirectTo) {
		log.Warn().Str("redirect_origin", identity.OriginOf(redirectTo)).Msg("recovery redirect is not an allowed origin")
		return rejection(http.StatusBadRequest, "validation_failed", "redirect_to is not an allowed redirect URL")
	}

	var link string
	switch p.cfg.LinkStyle {
	case LinkStyleCode:
		link, err = p.codeLink(ctx, user, target)
	default:
		link, err = p.tokenLink(ctx, user, target)
	}
	if err != nil {
		return err
	}

	msg := email.Message{
		To:      user.Email,
		Subject: "Reset your " + p.cfg.AppName + " password",
		Text: "We received a request to reset your password.\n\n" +
			"Open this link to choose a new one:\n" + link + "\n\n" +
			"If you did not ask for this, you can ignore this email.",
		HTML: `<p>We received a request to reset your password.</p>` +
			`<p><a href="` + html.EscapeString(link) + `">Choose a new password</a></p>` +
			`<p>If you did not ask for this, you can ignore this email.</p>`,
	}
	if err := p.mailer.Send(ctx, msg); err != nil {
		return errs.Wrapf(err, "[local ResetPasswordForEmail] send")
	}
	return nil
}

// tokenLink carries a fresh session in the URL fragment, the way the hosted
// provider's implicit flow does.
func (p *Provider) tokenLink(ctx context.Context, user *User, target *url.URL) (string, error) {
	sess, err := p.newSession(ctx, user, uuid.NewString())
	if err != nil {
		return "", err
	}
	frag := url.Values{}
	frag.Set("access_token", sess.AccessToken)
	frag.Set("refresh_token", sess.RefreshToken)
	frag.Set("expires_in", fmt.Sprint(int(p.cfg.AccessTTL.Seconds())))
	frag.Set("token_type", "bearer")
	frag.Set("type", "recovery")

	link := *target
	link.Fragment = ""
	return link.String() + "#" + frag.Encode(), nil
}

// codeLink routes through the code continuation endpoint with next set to
// the requested page.
func (p *Provider) codeLink(ctx context.Context, user *User, target *url.URL) (string, error) {
	code, err := p.IssueCode(ctx, user.ID, "")
	if err != nil {
		return "", err
	}
	next := target.EscapedPath()
	if next == "" {
		next = "/"
	}
	q := url.Values{}
	q.Set("code", code)
	q.Set("next", next)
	return target.Scheme + "://" + target.Host + "/auth/callback?" + q.Encode(), nil
}

// IssueCode stores a single-use authorization code for userID. When
// codeChallenge is set the exchange must present the matching verifier.
func (p *Provider) IssueCode(ctx context.Context, userID, codeChallenge string) (string, error) {
	code, err := randomToken(tokenBytes)
	if err != nil {
		return "", fmt.Errorf("[local IssueCode] failed to generate code: %w", err)
	}
	b, err := json.Marshal(codeRecord{UserID: userID, CodeChallenge: codeChallenge})
	if err != nil {
		return "", err
	}
	if err := p.cache.Set(ctx, codePrefix+code, b, codeTTL); err != nil {
		return "", errs.Wrapf(err, "[local IssueCode] store")
	}
	return code, nil
}

func (p *Provider) ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*identity.Session, error) {
	if code == "" {
		return nil, rejection(http.StatusBadRequest, "flow_state_not_found", "invalid flow state, no valid flow state found")
	}
	raw, err := p.cache.Take(ctx, codePrefix+code)
	if errs.Is(err, cache.ErrNotFound) {
		return nil, rejection(http.StatusBadRequest, "flow_state_not_found", "invalid flow state, no valid flow state found")
	}
	if err != nil {
		return nil, errs.Wrapf(err, "[local ExchangeCodeForSession] load code")
	}
	var rec codeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errs.Wrapf(err, "[local ExchangeCodeForSession] decode code")
	}
	if rec.CodeChallenge != "" && oauth2.S256ChallengeFromVerifier(codeVerifier) != rec.CodeChallenge {
		return nil, rejection(http.StatusBadRequest, "bad_code_verifier", "code challenge does not match previously saved code verifier")
	}

	user, err := p.users.GetByID(ctx, rec.UserID)
	if err != nil {
		return nil, p.userLookupError(err)
	}
	return p.newSession(ctx, user, uuid.NewString())
}

// SetSession installs a token pair and consumes it. The refresh token is
// taken, the pair's session is revoked and the caller gets a pair on a new
// session, so a mailed link installs once.
func (p *Provider) SetSession(ctx context.Context, accessToken, refreshToken string) (*identity.Session, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, rejection(http.StatusBadRequest, "validation_failed", "access and refresh tokens are required")
	}
	claims, err := p.authenticate(ctx, accessToken)
	if errs.Is(err, errs.ErrTokenExpired) {
		return p.RefreshSession(ctx, refreshToken)
	}
	if err != nil {
		return nil, err
	}

	rec, err := p.takeRefreshRecord(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if rec.SessionID != claims.SessionID {
		// The refresh token belongs to another session; leave it usable.
		if err := p.storeRefreshRecord(ctx, refreshToken, rec); err != nil {
			return nil, err
		}
		return nil, rejection(http.StatusBadRequest, "refresh_token_not_found", "Invalid Refresh Token: Refresh Token Not Found")
	}

	user, err := p.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, p.userLookupError(err)
	}
	if err := p.revokeSession(ctx, rec.SessionID); err != nil {
		return nil, err
	}
	return p.newSession(ctx, user, uuid.NewString())
}

// RefreshSession rotates the refresh token: each one can be used once.
func (p *Provider) RefreshSession(ctx context.Context, refreshToken string) (*identity.Session, error) {
	rec, err := p.takeRefreshRecord(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if err := p.checkRevoked(ctx, rec.SessionID); err != nil {
		return nil, err
	}
	user, err := p.users.GetByID(ctx, rec.UserID)
	if err != nil {
		return nil, p.userLookupError(err)
	}
	return p.newSession(ctx, user, rec.SessionID)
}

func (p *Provider) UpdatePassword(ctx context.Context, accessToken, newPassword string) (*identity.Identity, error) {
	claims, err := p.authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if err := checkPasswordLength(newPassword); err != nil {
		return nil, err
	}
	user, err := p.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, p.userLookupError(err)
	}
	if CheckPasswordHash(newPassword, user.PasswordHash) {
		return nil, rejection(http.StatusUnprocessableEntity, "same_password", "New password should be different from the old password.")
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("[local UpdatePassword] failed to hash password: %w", err)
	}
	user.PasswordHash = hash
	if err := p.users.Upsert(ctx, user); err != nil {
		return nil, errs.Wrapf(err, "[local UpdatePassword] store")
	}
	id := user.Identity()
	return &id, nil
}

func (p *Provider) GetUser(ctx context.Context, accessToken string) (*identity.Identity, error) {
	claims, err := p.authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	user, err := p.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, p.userLookupError(err)
	}
	id := user.Identity()
	return &id, nil
}

func (p *Provider) AuthorizeURL(context.Context, identity.AuthorizeRequest) (string, error) {
	return "", errs.Wrapf(errs.ErrUnsupported, "[local AuthorizeURL] third-party sign-in needs the hosted provider")
}

// authenticate verifies an access token and checks its session is still live.
// Expiry is reported as errs.ErrTokenExpired so callers can refresh.
func (p *Provider) authenticate(ctx context.Context, accessToken string) (*identity.Claims, error) {
	claims, err := p.verifier.Verify(ctx, accessToken)
	if errs.Is(err, errs.ErrTokenExpired) {
		return nil, err
	}
	if err != nil {
		return nil, rejection(http.StatusForbidden, "bad_jwt", "invalid JWT: unable to parse or verify signature")
	}
	if err := p.checkRevoked(ctx, claims.SessionID); err != nil {
		return nil, err
	}
	return claims, nil
}

func (p *Provider) checkRevoked(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	_, err := p.cache.Get(ctx, revokedPrefix+sessionID)
	switch {
	case err == nil:
		return rejection(http.StatusForbidden, "session_not_found", "Session from session_id claim in JWT does not exist")
	case errs.Is(err, cache.ErrNotFound):
		return nil
	default:
		return errs.Wrapf(err, "[local checkRevoked]")
	}
}

// takeRefreshRecord removes the record for refreshToken; a token can only be
// taken once.
func (p *Provider) takeRefreshRecord(ctx context.Context, refreshToken string) (*refreshRecord, error) {
	raw, err := p.cache.Take(ctx, refreshPrefix+refreshToken)
	if errs.Is(err, cache.ErrNotFound) {
		return nil, rejection(http.StatusBadRequest, "refresh_token_not_found", "Invalid Refresh Token: Refresh Token Not Found")
	}
	if err != nil {
		return nil, errs.Wrapf(err, "[local takeRefreshRecord] load")
	}
	var rec refreshRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errs.Wrapf(err, "[local takeRefreshRecord] decode")
	}
	return &rec, nil
}

func (p *Provider) newSession(ctx context.Context, user *User, sessionID string) (*identity.Session, error) {
	id := user.Identity()
	accessToken, expiresAt, err := p.issuer.Issue(id, sessionID)
	if err != nil {
		return nil, err
	}
	refreshToken, err := randomToken(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("[local newSession] failed to generate refresh token: %w", err)
	}
	if err := p.storeRefreshRecord(ctx, refreshToken, &refreshRecord{UserID: user.ID, SessionID: sessionID}); err != nil {
		return nil, err
	}
	return &identity.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         id,
	}, nil
}

func (p *Provider) storeRefreshRecord(ctx context.Context, refreshToken string, rec *refreshRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := p.cache.Set(ctx, refreshPrefix+refreshToken, b, p.cfg.RefreshTTL); err != nil {
		return errs.Wrapf(err, "[local storeRefreshRecord] store refresh token")
	}
	return nil
}

func (p *Provider) userLookupError(err error) error {
	if errs.Is(err, errs.ErrUserNotFound) {
		return rejection(http.StatusNotFound, "user_not_found", "User from sub claim in JWT does not exist")
	}
	return errs.Wrapf(err, "[local] user lookup")
}

func checkPasswordLength(password string) error {
	if identity.PasswordLength(password) < minPasswordLength {
		return rejection(http.StatusUnprocessableEntity, "weak_password",
			fmt.Sprintf("Password should be at least %d characters.", minPasswordLength))
	}
	return nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
