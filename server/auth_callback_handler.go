package server

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/jrsteele09/takemethere/auth"
	"github.com/jrsteele09/takemethere/identity"
	errs "github.com/jrsteele09/takemethere/internal/errors"
	"github.com/jrsteele09/takemethere/server/authflowrepo"
)

// AuthCallbackHandler exchanges a code continuation for a session. The
// browser only reaches next after the exchange succeeded; every failure lands
// on the login page.
func (s *Server) AuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cont, linkErr := auth.CodeFromURL(r.URL)
		if linkErr != nil || cont == nil {
			if linkErr != nil {
				log.Info().Str("flow", "code_exchange").Str("code", linkErr.Code).Msg("callback carried an error")
			}
			redirectWithError(w, r, RouteLogin, errorLinkExpired)
			return
		}

		verifier := ""
		if state := r.URL.Query().Get("state"); state != "" {
			flow, err := s.authState.Take(r.Context(), state)
			if err != nil {
				if !errors.Is(err, errs.ErrFlowStateNotFound) {
					log.Err(err).Str("flow", "code_exchange").Msg("failed to read flow state")
				}
				redirectWithError(w, r, RouteLogin, errorLinkExpired)
				return
			}
			verifier = flow.CodeVerifier
			cont.Next = flow.Next
		}

		sess, err := s.auth.ExchangeCode(r.Context(), cont, verifier)
		if err != nil {
			redirectWithError(w, r, RouteLogin, errorCodeFor(err))
			return
		}

		next := cont.Next
		if next == "" {
			next = auth.LandingFor(sess.User)
		}
		s.setSessionCookies(w, r, sess)
		redirectSuccess(w, r, auth.SafeNext(next))
	}
}

// OAuthStartHandler begins a third-party sign-in with PKCE. The verifier and
// the page to return to are kept server-side under a random state.
func (s *Server) OAuthStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := r.PathValue("provider")
		next := r.URL.Query().Get("next")
		if next != "" {
			next = auth.SafeNext(next)
		}

		state := generateRandomString(32)
		verifier := oauth2.GenerateVerifier()
		if err := s.authState.Upsert(r.Context(), state, &authflowrepo.AuthFlowState{
			Provider:     provider,
			CodeVerifier: verifier,
			Next:         next,
			CreatedAt:    time.Now().UTC(),
		}); err != nil {
			log.Err(err).Str("flow", "oauth_start").Msg("failed to store flow state")
			redirectWithError(w, r, RouteLogin, errorUnexpected)
			return
		}

		callback := s.auth.PublicOrigin(s.requestOrigin(r)) + RouteAuthCallback + "?" + url.Values{"state": {state}}.Encode()

		authorizeURL, err := s.auth.AuthorizeURL(r.Context(), identity.AuthorizeRequest{
			Provider:     provider,
			RedirectTo:   callback,
			State:        state,
			CodeVerifier: verifier,
		})
		if err != nil {
			if errors.Is(err, errs.ErrUnsupported) {
				redirectWithError(w, r, RouteLogin, errorOAuthUnavailable)
				return
			}
			log.Err(err).Str("flow", "oauth_start").Str("provider", provider).Msg("failed to build authorize URL")
			redirectWithError(w, r, RouteLogin, errorUnexpected)
			return
		}
		http.Redirect(w, r, authorizeURL, http.StatusSeeOther)
	}
}
