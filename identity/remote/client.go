// Package remote talks to the hosted Identity Provider's auth REST API
// (GoTrue-compatible: /token, /recover, /user, /logout, /signup, /authorize).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/jrsteele09/takemethere/identity"
	errs "github.com/jrsteele09/takemethere/internal/errors"
)

type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
}

var _ identity.Provider = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New returns a client for the auth API at baseURL, e.g. https://xyz.supabase.co/auth/v1.
func New(baseURL, anonKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type userResponse struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	AppMetadata  identity.Metadata `json:"app_metadata"`
	UserMetadata identity.Metadata `json:"user_metadata"`
}

func (u userResponse) identity() *identity.Identity {
	return &identity.Identity{
		ID:           u.ID,
		Email:        u.Email,
		AppMetadata:  u.AppMetadata,
		UserMetadata: u.UserMetadata,
	}
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         userResponse `json:"user"`
}

func (t tokenResponse) session() *identity.Session {
	s := &identity.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		User:         *t.User.identity(),
	}
	switch {
	case t.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		s.ExpiresAt = identity.NowTimeFunc().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	return s
}

type errorResponse struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	var out tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=password", "", body, &out); err != nil {
		return nil, errs.Wrapf(err, "sign in")
	}
	return out.session(), nil
}

func (c *Client) SignUp(ctx context.Context, email, password string, userMetadata identity.Metadata) (*identity.Identity, error) {
	// Depending on email confirmation settings the provider answers with a
	// bare user or with a session wrapping one.
	var out struct {
		userResponse
		User *userResponse `json:"user"`
	}
	body := map[string]any{"email": email, "password": password, "data": userMetadata}
	if err := c.do(ctx, http.MethodPost, "/signup", "", body, &out); err != nil {
		return nil, errs.Wrapf(err, "sign up")
	}
	if out.User != nil {
		return out.User.identity(), nil
	}
	return out.userResponse.identity(), nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if err := c.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil); err != nil {
		return errs.Wrapf(err, "sign out")
	}
	return nil
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	path := "/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	if err := c.do(ctx, http.MethodPost, path, "", map[string]string{"email": email}, nil); err != nil {
		return errs.Wrapf(err, "request password reset")
	}
	return nil
}

func (c *Client) ExchangeCodeForSession(ctx context.Context, code, codeVerifier string) (*identity.Session, error) {
	var out tokenResponse
	body := map[string]string{"auth_code": code, "code_verifier": codeVerifier}
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=pkce", "", body, &out); err != nil {
		return nil, errs.Wrapf(err, "exchange code")
	}
	return out.session(), nil
}

// SetSession validates the access token with the provider and, when it has
// already lapsed, trades the refresh token for a fresh pair.
func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) (*identity.Session, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, errs.Wrapf(errs.ErrInvalidToken, "set session: token pair incomplete")
	}

	var expiresAt time.Time
	if claims, err := identity.UnverifiedClaims(accessToken); err == nil {
		expiresAt = claims.Expiry()
	}
	if !expiresAt.IsZero() && !identity.NowTimeFunc().Before(expiresAt) {
		return c.RefreshSession(ctx, refreshToken)
	}

	user, err := c.GetUser(ctx, accessToken)
	if err != nil {
		return nil, errs.Wrapf(err, "set session")
	}
	return &identity.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         *user,
	}, nil
}

func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*identity.Session, error) {
	var out tokenResponse
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", body, &out); err != nil {
		return nil, errs.Wrapf(err, "refresh session")
	}
	return out.session(), nil
}

func (c *Client) UpdatePassword(ctx context.Context, accessToken, newPassword string) (*identity.Identity, error) {
	var out userResponse
	if err := c.do(ctx, http.MethodPut, "/user", accessToken, map[string]string{"password": newPassword}, &out); err != nil {
		return nil, errs.Wrapf(err, "update password")
	}
	return out.identity(), nil
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*identity.Identity, error) {
	var out userResponse
	if err := c.do(ctx, http.MethodGet, "/user", accessToken, nil, &out); err != nil {
		return nil, errs.Wrapf(err, "get user")
	}
	return out.identity(), nil
}

// AuthorizeURL builds the provider redirect for a third-party sign-in using PKCE.
func (c *Client) AuthorizeURL(_ context.Context, req identity.AuthorizeRequest) (string, error) {
	if req.Provider == "" {
		return "", errs.Wrapf(errs.ErrUnsupported, "authorize: provider is required")
	}
	q := url.Values{}
	q.Set("provider", req.Provider)
	q.Set("redirect_to", req.RedirectTo)
	if req.CodeVerifier != "" {
		q.Set("code_challenge", oauth2.S256ChallengeFromVerifier(req.CodeVerifier))
		q.Set("code_challenge_method", "s256")
	}
	return c.baseURL + "/authorize?" + q.Encode(), nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("apikey", c.anonKey)
	if bearer == "" {
		bearer = c.anonKey
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	pe := &identity.ProviderError{Status: status}
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err != nil {
		pe.Message = strings.TrimSpace(string(raw))
		return pe
	}

	pe.Code = er.ErrorCode
	if pe.Code == "" {
		pe.Code = er.Error
	}
	if pe.Code == "" && len(er.Code) > 0 && er.Code[0] == '"' {
		_ = json.Unmarshal(er.Code, &pe.Code)
	}
	for _, m := range []string{er.Msg, er.Message, er.ErrorDescription} {
		if m != "" {
			pe.Message = m
			break
		}
	}
	return pe
}
