package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/takemethere/auth"
	"github.com/jrsteele09/takemethere/identity"
	"github.com/jrsteele09/takemethere/internal/config"
	"github.com/jrsteele09/takemethere/internal/metrics"
	"github.com/jrsteele09/takemethere/server/authflowrepo"
)

// UserDirectory lists accounts for the admin area. Only the local identity
// provider can offer one; without it the users page says so.
type UserDirectory interface {
	ListIdentities(ctx context.Context, offset, limit int) ([]identity.Identity, error)
}

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	auth      *auth.Service
	authState authflowrepo.Repo
	metrics   *metrics.Recorder
	users     UserDirectory
	pages     *pages
}

type Option func(*Server)

func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Server) { s.metrics = m }
}

func WithUserDirectory(d UserDirectory) Option {
	return func(s *Server) { s.users = d }
}

func New(config config.Config, authService *auth.Service, authStateRepo authflowrepo.Repo, opts ...Option) (*Server, error) {
	if authService == nil {
		return nil, fmt.Errorf("[Server New] auth service is required")
	}
	if authStateRepo == nil {
		return nil, fmt.Errorf("[Server New] auth flow state repo is required")
	}

	pageSet, err := loadPages()
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse templates: %w", err)
	}

	s := &Server{
		mux:       http.NewServeMux(),
		config:    config,
		auth:      authService,
		authState: authStateRepo,
		pages:     pageSet,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes returns the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func (s *Server) getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if !s.config.GetTrustProxyHeaders() {
		return "http"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(scheme, ",", 2)[0]))
	}
	return "http"
}

// requestOrigin is the origin the browser used to reach us, or "" when the
// request carries no host. Forwarded headers count only behind a trusted proxy.
func (s *Server) requestOrigin(r *http.Request) string {
	host := r.Host
	if s.config.GetTrustProxyHeaders() {
		if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
			host = strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
		}
	}
	if host == "" {
		return ""
	}
	return s.getScheme(r) + "://" + host
}
