package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	CorsConfig
	IdentityConfig
	SecurityConfig
	SMTPConfig
	CacheConfig
	TelemetryConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetSiteURL() string
	GetFallbackOrigin() string
	GetTrustProxyHeaders() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Identity
	Security
	SMTP
	Cache
	Telemetry
}

// New loads an optional .env file and parses the process environment.
func New() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}
	return parse(env.Options{})
}

// FromMap parses configuration from the given variables only, ignoring the process environment.
func FromMap(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg mainConfig
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c mainConfig) validate() error {
	switch c.GetIdentityMode() {
	case IdentityModeLocal:
	case IdentityModeRemote:
		if c.IdentityURL == "" {
			return errors.New("IDP_URL is required when IDENTITY_MODE=remote")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_MODE %q", c.Mode)
	}
	switch c.GetResetLinkStyle() {
	case ResetLinkToken, ResetLinkCode:
	default:
		return fmt.Errorf("unknown LOCAL_RESET_LINK_STYLE %q", c.ResetLinkStyle)
	}
	return nil
}
