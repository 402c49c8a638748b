package server

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/takemethere/identity"
)

const (
	// accessTokenCookie and refreshTokenCookie carry the browser's session;
	// there is no server-side session table.
	accessTokenCookie  = "tmt-access-token"
	refreshTokenCookie = "tmt-refresh-token"
)

// generateRandomString creates a random base64url string
func generateRandomString(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

func (s *Server) setCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// setSessionCookies writes the token pair. The refresh cookie outlives the
// access cookie so an expired access token can still be refreshed.
func (s *Server) setSessionCookies(w http.ResponseWriter, r *http.Request, sess *identity.Session) {
	if sess == nil {
		return
	}
	accessMaxAge := int(s.config.GetAccessTokenTTL().Seconds())
	if !sess.ExpiresAt.IsZero() {
		if left := int(time.Until(sess.ExpiresAt).Seconds()); left > 0 {
			accessMaxAge = left
		}
	}
	s.setCookie(w, r, accessTokenCookie, sess.AccessToken, accessMaxAge)
	s.setCookie(w, r, refreshTokenCookie, sess.RefreshToken, int(s.config.GetRefreshTokenTTL().Seconds()))
}

func (s *Server) clearSessionCookies(w http.ResponseWriter, r *http.Request) {
	s.setCookie(w, r, accessTokenCookie, "", -1)
	s.setCookie(w, r, refreshTokenCookie, "", -1)
}

// sessionTokens reads the token pair the browser sent.
func sessionTokens(r *http.Request) (accessToken, refreshToken string) {
	if c, err := r.Cookie(accessTokenCookie); err == nil {
		accessToken = c.Value
	}
	if c, err := r.Cookie(refreshTokenCookie); err == nil {
		refreshToken = c.Value
	}
	return accessToken, refreshToken
}

// persistRefreshed rewrites the cookies when a lookup refreshed the session.
func (s *Server) persistRefreshed(w http.ResponseWriter, r *http.Request, sess *identity.Session) {
	if sess == nil {
		return
	}
	at, _ := sessionTokens(r)
	if sess.AccessToken != at {
		s.setSessionCookies(w, r, sess)
	}
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects. errorCode is one
// of the keys of noticeMessages, never free text.
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorCode string) {
	redirectSuccess(w, r, path+"?error="+url.QueryEscape(errorCode))
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
