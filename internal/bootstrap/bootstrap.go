// Package bootstrap assembles the service from configuration: cache, mailer,
// identity provider, token verifier and the auth service on top of them.
package bootstrap

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/takemethere/auth"
	"github.com/jrsteele09/takemethere/identity"
	"github.com/jrsteele09/takemethere/identity/local"
	"github.com/jrsteele09/takemethere/identity/remote"
	"github.com/jrsteele09/takemethere/internal/cache"
	"github.com/jrsteele09/takemethere/internal/config"
	"github.com/jrsteele09/takemethere/internal/email"
	"github.com/jrsteele09/takemethere/internal/metrics"
)

const (
	redisKeyPrefix  = "tmt:"
	memoryCacheTTL  = time.Hour
	localIssuerName = "takemethere-local"
)

// App is everything the binaries need, built once from config.
type App struct {
	Config   config.Config
	Cache    cache.Cache
	Mailer   email.Sender
	Provider identity.Provider
	Verifier identity.TokenVerifier
	// Local is set only in local identity mode.
	Local   *local.Provider
	Metrics *metrics.Recorder
	Events  *identity.Broker
	Auth    *auth.Service

	closers []func() error
}

// Build wires the application. The caller owns the returned App and must
// Close it.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{
		Config:  cfg,
		Metrics: metrics.New(),
		Events:  identity.NewBroker(),
	}

	c, err := BuildCache(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("[bootstrap Build] failed to build cache: %w", err)
	}
	app.Cache = c
	app.closers = append(app.closers, c.Close)

	app.Mailer = BuildMailer(cfg)

	if err := app.buildProvider(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}

	opts := []auth.ServiceOption{
		auth.WithCache(app.Cache),
		auth.WithEvents(app.Events),
		auth.WithMetrics(app.Metrics),
		auth.WithSiteURL(cfg.GetSiteURL()),
		auth.WithFallbackOrigin(cfg.GetFallbackOrigin()),
		auth.WithAllowedOrigins(cfg.GetAllowedOrigins().List()...),
		auth.WithResetCooldown(cfg.GetResetCooldown()),
		auth.WithDispatchTimeout(cfg.GetProviderTimeout()),
	}
	if app.Verifier != nil {
		opts = append(opts, auth.WithVerifier(app.Verifier))
	}
	svc, err := auth.NewService(identity.Traced(app.Provider), opts...)
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("[bootstrap Build] failed to build auth service: %w", err)
	}
	app.Auth = svc

	app.Events.Subscribe(func(_ context.Context, e identity.Event) {
		app.Metrics.AuthEvent(string(e.Type))
		log.Debug().Str("event", string(e.Type)).Str("user_id", e.UserID).Msg("auth state changed")
	})
	return app, nil
}

// Close releases the cache and user store.
func (a *App) Close() error {
	a.Events.Close()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// BuildCache uses Redis when REDIS_ADDR is set and an in-process cache
// otherwise.
func BuildCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	if cfg.GetRedisAddr() == "" {
		return cache.NewMemory(memoryCacheTTL), nil
	}
	r, err := cache.NewRedis(ctx, cache.RedisOptions{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.GetRedisPassword(),
		DB:       cfg.GetRedisDB(),
		Prefix:   redisKeyPrefix,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("addr", cfg.GetRedisAddr()).Msg("using redis cache")
	return r, nil
}

// BuildMailer sends over SMTP when configured and logs messages otherwise.
func BuildMailer(cfg config.SMTPConfig) email.Sender {
	if !cfg.SmtpEnabled() {
		log.Warn().Msg("SMTP not configured, reset emails will be logged instead of sent")
		return email.LogSender{}
	}
	return email.NewSMTPSender(cfg.GetSmtpHost(), cfg.GetSmtpPort(), cfg.GetSmtpFrom(),
		cfg.GetSmtpUsername(), cfg.GetSmtpPassword(), cfg.GetSmtpTLSMode())
}

func (a *App) buildProvider(ctx context.Context) error {
	switch a.Config.GetIdentityMode() {
	case config.IdentityModeRemote:
		a.Provider = remote.New(a.Config.GetIdentityURL(), a.Config.GetIdentityAnonKey(),
			remote.WithTimeout(a.Config.GetProviderTimeout()))
		a.Verifier = RemoteVerifier(ctx, a.Config)
		log.Info().Str("url", a.Config.GetIdentityURL()).Msg("using hosted identity provider")
		return nil
	default:
		return a.buildLocal(ctx)
	}
}

// RemoteVerifier picks how access tokens from the hosted provider are checked
// locally: a shared HS256 secret, a published key set, or not at all, in which
// case every lookup asks the provider.
func RemoteVerifier(ctx context.Context, cfg config.IdentityConfig) identity.TokenVerifier {
	switch {
	case cfg.GetJWTSecret() != "":
		return identity.NewHMACVerifier([]byte(cfg.GetJWTSecret()), cfg.GetTokenIssuer())
	case cfg.GetJWKSURL() != "":
		return identity.NewJWKSVerifier(ctx, cfg.GetJWKSURL(), cfg.GetTokenIssuer())
	default:
		return nil
	}
}

func (a *App) buildLocal(ctx context.Context) error {
	var store local.UserStore
	if path := a.Config.GetLocalDBPath(); path != "" {
		s, err := local.OpenSQLiteStore(path)
		if err != nil {
			return fmt.Errorf("[bootstrap buildLocal] failed to open user store: %w", err)
		}
		store = s
		log.Info().Str("path", path).Msg("using sqlite user store")
	} else {
		store = local.NewMemoryStore()
		log.Warn().Msg("LOCAL_IDP_DB not set, accounts are kept in memory")
	}
	a.closers = append(a.closers, store.Close)

	secret := []byte(a.Config.GetJWTSecret())
	if len(secret) == 0 {
		generated, err := randomSecret()
		if err != nil {
			return fmt.Errorf("[bootstrap buildLocal] failed to generate signing secret: %w", err)
		}
		secret = generated
		log.Warn().Msg("IDP_JWT_SECRET not set, sessions will not survive a restart")
	}

	issuer := a.Config.GetTokenIssuer()
	if issuer == "" {
		issuer = localIssuerName
	}
	origins := append([]string{a.Config.GetSiteURL(), a.Config.GetFallbackOrigin()}, a.Config.GetAllowedOrigins().List()...)
	p, err := local.New(store, a.Cache, a.Mailer, local.Config{
		Secret:         secret,
		Issuer:         issuer,
		AccessTTL:      a.Config.GetAccessTokenTTL(),
		RefreshTTL:     a.Config.GetRefreshTokenTTL(),
		LinkStyle:      a.Config.GetResetLinkStyle(),
		AppName:        a.Config.GetAppName(),
		AllowedOrigins: origins,
	})
	if err != nil {
		return fmt.Errorf("[bootstrap buildLocal] failed to build local provider: %w", err)
	}
	a.Local = p
	a.Provider = p
	a.Verifier = p.Verifier()

	return a.ensureAdmin(ctx)
}

func (a *App) ensureAdmin(ctx context.Context) error {
	adminEmail := a.Config.GetLocalAdminEmail()
	if adminEmail == "" {
		return nil
	}
	generated, err := a.Local.EnsureAdmin(ctx, adminEmail, a.Config.GetLocalAdminPassword())
	if err != nil {
		return fmt.Errorf("[bootstrap ensureAdmin] failed to bootstrap administrator: %w", err)
	}
	if generated != "" {
		log.Warn().Msg("Administrator account created")
		log.Warn().Msgf("   Email:       %s", adminEmail)
		log.Warn().Msgf("   Password:    %s     (change it with a password reset)", generated)
	}
	return nil
}

func randomSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return []byte(base64.RawURLEncoding.EncodeToString(b)), nil
}
