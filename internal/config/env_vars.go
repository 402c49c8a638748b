package config

import (
	"fmt"
	"strings"
)

type EnvVars struct {
	Port           string `env:"PORT" envDefault:"8080"`
	AppName        string `env:"APP_NAME" envDefault:"Take Me There Ghana"`
	Environment    string `env:"ENV" envDefault:"DEV"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	SiteURL        string `env:"SITE_URL"`
	FallbackOrigin string `env:"FALLBACK_ORIGIN" envDefault:"https://takemethereghana.com"`
	TrustProxy     bool   `env:"TRUST_PROXY_HEADERS"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.Port
	if port == "" {
		port = "8080"
	}
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Environment == "" {
		return "DEV"
	}
	return strings.ToUpper(e.Environment)
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

// GetSiteURL returns the explicitly configured public origin, if any
func (e EnvVars) GetSiteURL() string {
	return strings.TrimRight(e.SiteURL, "/")
}

// GetFallbackOrigin is used for reset links when neither SITE_URL nor the request origin is usable
func (e EnvVars) GetFallbackOrigin() string {
	return strings.TrimRight(e.FallbackOrigin, "/")
}

// GetTrustProxyHeaders reports whether X-Forwarded-Host and X-Forwarded-Proto
// come from a proxy we control.
func (e EnvVars) GetTrustProxyHeaders() bool {
	return e.TrustProxy
}
