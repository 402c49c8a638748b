package auth

import (
	"github.com/jrsteele09/takemethere/identity"
)

const (
	PathHome          = "/"
	PathLogin         = "/login"
	PathAdminLogin    = "/admin-login"
	PathDashboard     = "/dashboard"
	PathAdmin         = "/admin"
	PathResetPassword = "/reset-password"
	PathCallback      = "/auth/callback"
)

// LandingFor is where a freshly authenticated identity goes.
func LandingFor(id identity.Identity) string {
	if id.IsAdmin() {
		return PathAdmin
	}
	return PathDashboard
}

// GuardOutcome is the admin guard's decision for one request.
type GuardOutcome int

const (
	GuardAllow GuardOutcome = iota
	GuardNoSession
	GuardForbidden
	GuardLookupFailed
)

func (o GuardOutcome) String() string {
	switch o {
	case GuardAllow:
		return "allow"
	case GuardNoSession:
		return "no_session"
	case GuardForbidden:
		return "forbidden"
	default:
		return "lookup_failed"
	}
}

// Redirect is the navigation target for a denied request, or "" when allowed.
func (o GuardOutcome) Redirect() string {
	switch o {
	case GuardAllow:
		return ""
	case GuardForbidden:
		return PathHome
	default:
		return PathLogin
	}
}

// AdminGuard decides access to the administrative area from the result of a
// session lookup. A lookup error denies access.
func AdminGuard(sess *identity.Session, lookupErr error) GuardOutcome {
	switch {
	case lookupErr != nil:
		return GuardLookupFailed
	case sess == nil || sess.AccessToken == "":
		return GuardNoSession
	case !sess.User.IsAdmin():
		return GuardForbidden
	default:
		return GuardAllow
	}
}
