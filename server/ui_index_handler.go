package server

import (
	"net/http"
)

// IndexHandler renders the home page
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.newPageData("Find your way around Ghana")
		if sess := s.currentSession(r); sess != nil {
			user := sess.User
			data.User = &user
			s.persistRefreshed(w, r, sess)
		}
		s.render(w, http.StatusOK, "index.html", data)
	}
}

// DashboardHandler renders the business owner's dashboard
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.newPageData("Dashboard")
		if sess := sessionFromContext(r.Context()); sess != nil {
			user := sess.User
			data.User = &user
		}
		s.render(w, http.StatusOK, "dashboard.html", data)
	}
}
