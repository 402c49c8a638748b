// Package auth holds the sign-in, password-reset and session-continuity flows.
// It talks to the Identity Provider only through identity.Provider.
package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jrsteele09/takemethere/identity"
	"github.com/jrsteele09/takemethere/internal/cache"
	errs "github.com/jrsteele09/takemethere/internal/errors"
	"github.com/jrsteele09/takemethere/internal/metrics"
)

const (
	defaultResetCooldown   = time.Minute
	defaultDispatchTimeout = 30 * time.Second
	defaultFallbackOrigin  = "https://takemethereghana.com"
)

// Service runs the auth flows against one Identity Provider.
type Service struct {
	provider        identity.Provider
	verifier        identity.TokenVerifier
	cache           cache.Cache
	events          *identity.Broker
	metrics         *metrics.Recorder
	siteURL         string
	fallbackOrigin  string
	extraOrigins    []string
	origins         *identity.OriginAllowList
	resetCooldown   time.Duration
	dispatchTimeout time.Duration
	nowTime         func() time.Time

	refreshes  singleflight.Group
	dispatches sync.WaitGroup
}

// ServiceOption configures optional Service dependencies.
type ServiceOption func(*Service)

// WithVerifier lets session lookups check access tokens locally instead of
// asking the provider on every request.
func WithVerifier(v identity.TokenVerifier) ServiceOption {
	return func(s *Service) { s.verifier = v }
}

// WithCache enables the per-email reset cooldown.
func WithCache(c cache.Cache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

func WithEvents(b *identity.Broker) ServiceOption {
	return func(s *Service) { s.events = b }
}

func WithMetrics(m *metrics.Recorder) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithSiteURL sets the configured public origin used for reset links.
func WithSiteURL(siteURL string) ServiceOption {
	return func(s *Service) { s.siteURL = siteURL }
}

func WithFallbackOrigin(origin string) ServiceOption {
	return func(s *Service) {
		if origin != "" {
			s.fallbackOrigin = origin
		}
	}
}

// WithAllowedOrigins adds origins, beyond the site URL and the fallback, that
// a request may be served from and still receive links on its own origin.
func WithAllowedOrigins(origins ...string) ServiceOption {
	return func(s *Service) { s.extraOrigins = append(s.extraOrigins, origins...) }
}

func WithResetCooldown(d time.Duration) ServiceOption {
	return func(s *Service) { s.resetCooldown = d }
}

// WithDispatchTimeout bounds each background reset-mail request.
func WithDispatchTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.dispatchTimeout = d
		}
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) { s.nowTime = nowFunc }
}

func NewService(provider identity.Provider, options ...ServiceOption) (*Service, error) {
	if provider == nil {
		return nil, errs.New("[auth NewService] identity provider is required")
	}
	s := &Service{
		provider:        provider,
		fallbackOrigin:  defaultFallbackOrigin,
		resetCooldown:   defaultResetCooldown,
		dispatchTimeout: defaultDispatchTimeout,
		nowTime:         time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	s.origins = identity.NewOriginAllowList(append([]string{s.siteURL, s.fallbackOrigin}, s.extraOrigins...)...)
	return s, nil
}

// Drain waits for background reset dispatches to finish or ctx to end.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.dispatches.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) publish(ctx context.Context, t identity.EventType, userID string) {
	s.events.Publish(ctx, identity.Event{Type: t, UserID: userID, At: s.nowTime()})
}
