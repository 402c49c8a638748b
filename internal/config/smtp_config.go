package config

type SMTPConfig interface {
	GetSmtpHost() string
	GetSmtpPort() int
	GetSmtpUsername() string
	GetSmtpPassword() string
	GetSmtpFrom() string
	GetSmtpTLSMode() string
	SmtpEnabled() bool
}

type SMTP struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" envDefault:"no-reply@takemethereghana.com"`
	TLSMode  string `env:"SMTP_TLS_MODE" envDefault:"auto"`
}

var _ SMTPConfig = SMTP{}

func (s SMTP) GetSmtpHost() string     { return s.Host }
func (s SMTP) GetSmtpPort() int        { return s.Port }
func (s SMTP) GetSmtpUsername() string { return s.Username }
func (s SMTP) GetSmtpPassword() string { return s.Password }
func (s SMTP) GetSmtpFrom() string     { return s.From }
func (s SMTP) GetSmtpTLSMode() string  { return s.TLSMode }

// SmtpEnabled reports whether outbound mail goes to a real server rather than the log
func (s SMTP) SmtpEnabled() bool {
	return s.Host != ""
}
