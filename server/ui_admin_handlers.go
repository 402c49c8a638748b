package server

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
)

const adminUsersPageSize = 50

// adminPages maps the sub-path under /admin to its title.
var adminPages = map[string]string{
	"":          "Dashboard",
	"dashboard": "Dashboard",
	"users":     "Users",
	"settings":  "Settings",
}

// AdminHandler renders the admin area. The guard has already run, so the
// session in the context always carries the admin role.
func (s *Server) AdminHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := r.PathValue("page")
		title, ok := adminPages[page]
		if !ok {
			s.NotFoundHandler()(w, r)
			return
		}
		if page == "" {
			page = "dashboard"
		}

		data := s.newPageData(title)
		data.ActivePage = page
		if sess := sessionFromContext(r.Context()); sess != nil {
			user := sess.User
			data.User = &user
		}

		if page == "users" {
			s.loadAdminUsers(r, &data)
		}
		s.render(w, http.StatusOK, "admin.html", data)
	}
}

func (s *Server) loadAdminUsers(r *http.Request, data *PageData) {
	if s.users == nil {
		data.UsersNote = "Accounts are managed in the identity provider's console."
		return
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	users, err := s.users.ListIdentities(r.Context(), offset, adminUsersPageSize)
	if err != nil {
		log.Err(err).Str("flow", "admin_users").Msg("failed to list users")
		data.Error = "Could not load accounts. Please try again."
		return
	}
	data.Users = users
	if len(users) == 0 {
		data.UsersNote = "No accounts yet."
	}
}
