package config

type TelemetryConfig interface {
	GetOtelEndpoint() string
	GetOtelEnabled() bool
}

type Telemetry struct {
	Endpoint string `env:"OTEL_ENDPOINT"`
	Enabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

var _ TelemetryConfig = Telemetry{}

func (t Telemetry) GetOtelEndpoint() string { return t.Endpoint }

// GetOtelEnabled is true only when tracing is switched on and has somewhere to export to
func (t Telemetry) GetOtelEnabled() bool {
	return t.Enabled && t.Endpoint != ""
}
