package config

import "time"

type SecurityConfig interface {
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetResetCooldown() time.Duration
	GetFlowStateTTL() time.Duration
	GetProviderTimeout() time.Duration
}

type Security struct {
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	ResetCooldown   time.Duration `env:"RESET_COOLDOWN" envDefault:"60s"`
	FlowStateTTL    time.Duration `env:"FLOW_STATE_TTL" envDefault:"10m"`
	ProviderTimeout time.Duration `env:"IDP_TIMEOUT" envDefault:"30s"`
}

var _ SecurityConfig = Security{}

func (s Security) GetAccessTokenTTL() time.Duration {
	return s.AccessTokenTTL
}

func (s Security) GetRefreshTokenTTL() time.Duration {
	return s.RefreshTokenTTL
}

// GetResetCooldown is the window in which repeat reset requests for one email are absorbed
func (s Security) GetResetCooldown() time.Duration {
	return s.ResetCooldown
}

func (s Security) GetFlowStateTTL() time.Duration {
	return s.FlowStateTTL
}

func (s Security) GetProviderTimeout() time.Duration {
	return s.ProviderTimeout
}
