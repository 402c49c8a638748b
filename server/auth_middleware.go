package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/takemethere/auth"
	"github.com/jrsteele09/takemethere/identity"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the *identity.Session of a guarded request
const ContextKeySession ContextKey = "session"

func sessionFromContext(ctx context.Context) *identity.Session {
	sess, _ := ctx.Value(ContextKeySession).(*identity.Session)
	return sess
}

// RequireSession is middleware for pages any signed-in user may see. A
// failed lookup is treated as no session.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			at, rt := sessionTokens(r)
			sess, err := s.auth.CurrentSession(r.Context(), at, rt)
			if err != nil {
				log.Warn().Err(err).Str("flow", "session_guard").Msg("session lookup failed")
			}
			if err != nil || sess == nil {
				if at != "" || rt != "" {
					s.clearSessionCookies(w, r)
				}
				redirectSuccess(w, r, auth.PathLogin)
				return
			}
			s.persistRefreshed(w, r, sess)
			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeySession, sess)))
		}
	}
}

// RequireAdmin is the administrative route guard. It is evaluated on every
// request and keeps no state between them.
func (s *Server) RequireAdmin() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			at, rt := sessionTokens(r)
			outcome, sess := s.auth.Guard(r.Context(), at, rt)
			if outcome != auth.GuardAllow {
				if outcome == auth.GuardNoSession && (at != "" || rt != "") {
					s.clearSessionCookies(w, r)
				}
				redirectSuccess(w, r, outcome.Redirect())
				return
			}
			s.persistRefreshed(w, r, sess)
			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeySession, sess)))
		}
	}
}
