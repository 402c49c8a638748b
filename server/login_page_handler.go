package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/takemethere/auth"
)

// Error codes carried in ?error= on redirects. Pages only ever show the
// mapped text.
const (
	errorLinkExpired       = "link_expired"
	errorUnexpected        = "unexpected"
	errorSignInRequired    = "signin_required"
	errorOAuthUnavailable  = "oauth_unavailable"
	errorInvalidCredential = "invalid_credentials"
)

var noticeMessages = map[string]string{
	errorLinkExpired:       auth.MsgLinkExpired,
	errorUnexpected:        auth.MsgUnexpected,
	errorSignInRequired:    auth.MsgSignInRequired,
	errorOAuthUnavailable:  "That sign-in option is not available.",
	errorInvalidCredential: auth.MsgInvalidCredentials,
}

func errorCodeFor(err error) string {
	switch auth.UserMessage(err) {
	case auth.MsgLinkExpired:
		return errorLinkExpired
	case auth.MsgInvalidCredentials:
		return errorInvalidCredential
	default:
		return errorUnexpected
	}
}

func (s *Server) loginPageData(adminLogin bool) PageData {
	title := "Sign in"
	if adminLogin {
		title = "Administrator sign in"
	}
	data := s.newPageData(title)
	data.AdminLogin = adminLogin
	return data
}

// LoginPageHandler displays the login page (GET /login, GET /admin-login)
func (s *Server) LoginPageHandler(adminLogin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		data := s.loginPageData(adminLogin)
		data.Email = q.Get("email")
		data.Error = noticeMessages[q.Get("error")]
		switch {
		case q.Get("resetSuccess") == "1":
			data.Notice = auth.MsgResetSuccess
		case q.Get("signupSuccess") == "1":
			data.Notice = "Your account has been created. Please sign in."
		}
		s.render(w, http.StatusOK, "login.html", data)
	}
}

// LoginSubmissionHandler processes the login form. Whatever session the
// browser held is ended first; on success exactly one redirect is issued.
func (s *Server) LoginSubmissionHandler(adminLogin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		emailAddr := strings.TrimSpace(r.PostFormValue(auth.FieldEmail))
		password := r.PostFormValue(auth.FieldPassword)

		existing, _ := sessionTokens(r)
		s.clearSessionCookies(w, r)

		res, err := s.auth.SignIn(r.Context(), emailAddr, password, existing)
		if err != nil {
			data := s.loginPageData(adminLogin)
			data.Email = emailAddr
			data.Error = auth.UserMessage(err)

			var ce *auth.CredentialError
			if errors.As(err, &ce) {
				data.ShowReset = ce.ShowReset
				data.Email = ce.Email
				s.render(w, http.StatusUnauthorized, "login.html", data)
				return
			}
			s.render(w, http.StatusBadGateway, "login.html", data)
			return
		}

		s.setSessionCookies(w, r, res.Session)
		redirectSuccess(w, r, res.Redirect)
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at, _ := sessionTokens(r)
		if at != "" {
			if err := s.auth.SignOut(r.Context(), at); err != nil {
				log.Warn().Err(err).Str("flow", "logout").Msg("provider sign-out failed")
			}
		}
		s.clearSessionCookies(w, r)
		redirectSuccess(w, r, RouteHome)
	}
}
