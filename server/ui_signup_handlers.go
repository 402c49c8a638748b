package server

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/jrsteele09/takemethere/auth"
)

// ValidatePasswordHandler checks a candidate password as the user types. It
// returns an htmx fragment and never contacts the identity provider.
func (s *Server) ValidatePasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		password := r.PostFormValue(auth.FieldPassword)
		_, hasConfirm := r.PostForm[auth.FieldConfirmPassword]

		w.Header().Set("Content-Type", contentTypeHTML)
		if password == "" {
			w.WriteHeader(http.StatusOK)
			return
		}

		var err error
		if hasConfirm {
			err = auth.ValidateNewPassword(password, r.PostFormValue(auth.FieldConfirmPassword))
		} else {
			err = auth.ValidatePasswordStrength(password)
		}

		var ve *auth.ValidationError
		if errors.As(err, &ve) {
			w.Header().Set("HX-Trigger", `{"passwordInvalid": ""}`)
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, `<span class="text-danger" data-field="%s">%s</span>`, html.EscapeString(ve.Field), html.EscapeString(ve.Message))
			return
		}

		w.Header().Set("HX-Trigger", `{"passwordValid": ""}`)
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `<span class="text-success">Looks good.</span>`)
	}
}

// SignupGetHandler renders the signup page
func (s *Server) SignupGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.newPageData("Create an account")
		data.Email = r.URL.Query().Get("email")
		s.render(w, http.StatusOK, "signup.html", data)
	}
}

// SignupPostHandler registers a business owner account
func (s *Server) SignupPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		emailAddr := strings.TrimSpace(r.PostFormValue(auth.FieldEmail))

		_, err := s.auth.SignUp(r.Context(), emailAddr,
			r.PostFormValue(auth.FieldPassword),
			r.PostFormValue(auth.FieldConfirmPassword))
		if err != nil {
			data := s.newPageData("Create an account")
			data.Email = emailAddr

			var ve *auth.ValidationError
			if errors.As(err, &ve) {
				data.FieldErrors = map[string]string{ve.Field: ve.Message}
				s.render(w, http.StatusUnprocessableEntity, "signup.html", data)
				return
			}
			data.Error = auth.UserMessage(err)
			s.render(w, http.StatusUnprocessableEntity, "signup.html", data)
			return
		}

		redirectSuccess(w, r, RouteLogin+"?signupSuccess=1")
	}
}
