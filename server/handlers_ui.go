package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/takemethere/auth"
	"github.com/jrsteele09/takemethere/identity"
)

// ForgotPasswordGetHandler renders the forgot-password page
func (s *Server) ForgotPasswordGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.newPageData("Reset your password")
		data.Email = r.URL.Query().Get("email")
		s.render(w, http.StatusOK, "forgot_password.html", data)
	}
}

// ForgotPasswordPostHandler answers every well-formed email identically.
func (s *Server) ForgotPasswordPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		emailAddr := strings.TrimSpace(r.PostFormValue(auth.FieldEmail))

		data := s.newPageData("Reset your password")
		data.Email = emailAddr

		ack, err := s.auth.RequestPasswordReset(r.Context(), emailAddr, s.requestOrigin(r))
		if err != nil {
			data.Error = auth.UserMessage(err)
			s.render(w, http.StatusUnprocessableEntity, "forgot_password.html", data)
			return
		}
		data.Notice = ack
		s.render(w, http.StatusOK, "forgot_password.html", data)
	}
}

// currentSession looks up the browser's session for pages where a failed
// lookup simply means no session.
func (s *Server) currentSession(r *http.Request) *identity.Session {
	at, rt := sessionTokens(r)
	sess, err := s.auth.CurrentSession(r.Context(), at, rt)
	if err != nil {
		log.Debug().Err(err).Msg("session lookup failed")
		return nil
	}
	return sess
}

func (s *Server) resetPageData(rec *auth.Recovery) PageData {
	data := s.newPageData("Choose a new password")
	data.Ready = rec.CanSubmit()
	data.Preparing = rec.State == auth.RecoveryExtracting
	data.Error = rec.Message
	return data
}

// readyURL is where a reset visit lands once extraction is finished. Tokens
// never stay in the address bar.
func readyURL(linkErr *auth.LinkError) string {
	u := RouteResetPassword + "?ready=1"
	if linkErr != nil {
		u += "&error=" + url.QueryEscape(errorLinkExpired)
	}
	return u
}

// installRecovery writes the cookies for a recovery visit. A token pair that
// failed to install leaves the browser with no session at all, so an older
// session can never stand in for the link.
func (s *Server) installRecovery(w http.ResponseWriter, r *http.Request, rec *auth.Recovery, hadPair bool) {
	switch {
	case rec.Origin == auth.OriginTokenPair:
		s.setSessionCookies(w, r, rec.Session)
	case hadPair:
		s.clearSessionCookies(w, r)
	}
}

// ResetPasswordGetHandler runs extraction for query-borne tokens, or renders
// the page that reports the fragment back to the server. Either way the visit
// settles on /reset-password?ready=1 with the tokens gone from the URL.
func (s *Server) ResetPasswordGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		pair, _ := auth.TokenPairFromURL(r.URL)
		fragmentChecked := q.Get("ready") == "1"

		// Until the browser has reported its fragment, a session it already
		// holds must not stand in for a link it may be carrying.
		var existing *identity.Session
		if pair == nil && fragmentChecked {
			existing = s.currentSession(r)
		}
		rec := s.auth.PrepareRecovery(r.Context(), auth.RecoveryInput{
			ArrivalURL:      r.URL,
			Existing:        existing,
			FragmentChecked: fragmentChecked,
		})

		if pair != nil {
			s.installRecovery(w, r, rec, true)
			http.Redirect(w, r, readyURL(nil), http.StatusSeeOther)
			return
		}
		if rec.Origin == auth.OriginExistingSession {
			s.persistRefreshed(w, r, rec.Session)
		}

		data := s.resetPageData(rec)
		if data.Error == "" {
			data.Error = noticeMessages[q.Get("error")]
		}
		s.render(w, http.StatusOK, "reset_password.html", data)
	}
}

// ResetPasswordSessionHandler receives the full landing URL, fragment
// included, from the reset page and installs whatever it carries.
func (s *Server) ResetPasswordSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		href := r.PostFormValue("href")
		pair, linkErr, err := auth.ParseContinuation(href)
		if err != nil {
			redirectSuccess(w, r, readyURL(nil))
			return
		}
		if pair == nil {
			redirectSuccess(w, r, readyURL(linkErr))
			return
		}

		rec := s.auth.PrepareRecovery(r.Context(), auth.RecoveryInput{Pair: pair, FragmentChecked: true})
		s.installRecovery(w, r, rec, true)
		redirectSuccess(w, r, readyURL(nil))
	}
}

// ResetPasswordPostHandler validates and submits the new password.
func (s *Server) ResetPasswordPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}

		rec := s.auth.PrepareRecovery(r.Context(), auth.RecoveryInput{
			ArrivalURL:      &url.URL{Path: RouteResetPassword},
			Existing:        s.currentSession(r),
			FragmentChecked: r.PostFormValue("ready") == "1",
		})

		err := s.auth.SubmitNewPassword(r.Context(), rec,
			r.PostFormValue(auth.FieldPassword),
			r.PostFormValue(auth.FieldConfirmPassword))
		if err == nil {
			s.clearSessionCookies(w, r)
			redirectSuccess(w, r, RouteLogin+"?resetSuccess=1")
			return
		}

		data := s.resetPageData(rec)
		var ve *auth.ValidationError
		if errors.As(err, &ve) {
			data.FieldErrors = map[string]string{ve.Field: ve.Message}
			s.render(w, http.StatusUnprocessableEntity, "reset_password.html", data)
			return
		}
		if data.Error == "" {
			data.Error = auth.UserMessage(err)
		}
		s.render(w, http.StatusUnprocessableEntity, "reset_password.html", data)
	}
}
