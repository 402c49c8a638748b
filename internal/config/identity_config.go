package config

import "strings"

const (
	IdentityModeLocal  = "local"
	IdentityModeRemote = "remote"

	// ResetLinkToken mails links carrying access_token/refresh_token
	ResetLinkToken = "token"
	// ResetLinkCode mails links carrying a single-use authorization code
	ResetLinkCode = "code"
)

type IdentityConfig interface {
	GetIdentityMode() string
	GetIdentityURL() string
	GetIdentityAnonKey() string
	GetJWTSecret() string
	GetJWKSURL() string
	GetTokenIssuer() string
	GetLocalDBPath() string
	GetLocalAdminEmail() string
	GetLocalAdminPassword() string
	GetResetLinkStyle() string
}

type Identity struct {
	Mode           string `env:"IDENTITY_MODE" envDefault:"local"`
	IdentityURL    string `env:"IDP_URL"`
	AnonKey        string `env:"IDP_ANON_KEY"`
	JWTSecret      string `env:"IDP_JWT_SECRET"`
	JWKSURL        string `env:"IDP_JWKS_URL"`
	Issuer         string `env:"IDP_ISSUER"`
	LocalDBPath    string `env:"LOCAL_IDP_DB"`
	AdminEmail     string `env:"LOCAL_ADMIN_EMAIL" envDefault:"admin@takemethereghana.com"`
	AdminPassword  string `env:"LOCAL_ADMIN_PASSWORD"`
	ResetLinkStyle string `env:"LOCAL_RESET_LINK_STYLE" envDefault:"token"`
}

var _ IdentityConfig = Identity{}

func (i Identity) GetIdentityMode() string {
	return strings.ToLower(i.Mode)
}

// GetIdentityURL returns the hosted provider's auth API base, e.g. https://xyz.supabase.co/auth/v1
func (i Identity) GetIdentityURL() string {
	return strings.TrimRight(i.IdentityURL, "/")
}

func (i Identity) GetIdentityAnonKey() string {
	return i.AnonKey
}

func (i Identity) GetJWTSecret() string {
	return i.JWTSecret
}

func (i Identity) GetJWKSURL() string {
	return i.JWKSURL
}

func (i Identity) GetTokenIssuer() string {
	return i.Issuer
}

func (i Identity) GetLocalDBPath() string {
	return i.LocalDBPath
}

func (i Identity) GetLocalAdminEmail() string {
	return i.AdminEmail
}

func (i Identity) GetLocalAdminPassword() string {
	return i.AdminPassword
}

func (i Identity) GetResetLinkStyle() string {
	return strings.ToLower(i.ResetLinkStyle)
}
