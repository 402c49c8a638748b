package server

import "github.com/jrsteele09/takemethere/auth"

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	RouteHome = auth.PathHome

	// Auth Routes - Login & Logout
	RouteLogin      = auth.PathLogin
	RouteAdminLogin = auth.PathAdminLogin
	RouteLogout     = "/logout"
	RouteSignup     = "/signup"

	// Auth Routes - Password Management
	RouteForgotPassword       = "/forgot-password"
	RouteResetPassword        = auth.PathResetPassword
	RouteResetPasswordSession = auth.PathResetPassword + "/session"
	RouteAuthCallback         = auth.PathCallback
	RouteOAuthStart           = "/auth/oauth/{provider}"

	// Signed-in areas
	RouteDashboard  = auth.PathDashboard
	RouteAdmin      = auth.PathAdmin
	RouteAdminPages = auth.PathAdmin + "/{page...}"

	// API Routes
	RouteAPIValidatePassword = "/api/validate-password"

	// Operational Routes
	RouteMetrics = "/metrics"
	RouteHealthz = "/healthz"

	// Static Asset Routes (patterns)
	RouteStaticCSS = "/css/{file}"
	RouteStaticJS  = "/js/{file}"
)
