package observability

import (
	"strings"

	"github.com/smallbiznis/vendorscope/internal/config"
)

// Config is the normalized view of the logging and OpenTelemetry settings.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	Log  LogSettings
	Otel OtelSettings
}

type LogSettings struct {
	Level              string
	Format             string
	Output             string
	SamplingInitial    int
	SamplingThereafter int
}

type OtelSettings struct {
	Enabled       bool
	Endpoint      string
	Protocol      string
	SamplingRatio float64
}

// LoadConfig derives observability settings from the process config.
// Unknown protocols fall back to grpc and the sampling ratio is clamped to [0, 1].
func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "vendorscope"
	}

	protocol := strings.ToLower(strings.TrimSpace(cfg.OTLPProtocol))
	switch protocol {
	case "http", "http/protobuf":
		protocol = "http"
	default:
		protocol = "grpc"
	}

	ratio := cfg.OTelSamplingRatio
	if ratio < 0 {
		ratio = 0
	} else if ratio > 1 {
		ratio = 1
	}

	return Config{
		ServiceName: serviceName,
		Environment: strings.TrimSpace(cfg.Environment),
		Version:     strings.TrimSpace(cfg.AppVersion),
		Log: LogSettings{
			Level:              strings.ToLower(strings.TrimSpace(cfg.LogLevel)),
			Format:             strings.ToLower(strings.TrimSpace(cfg.LogFormat)),
			Output:             strings.TrimSpace(cfg.LogOutput),
			SamplingInitial:    cfg.LogSamplingInitial,
			SamplingThereafter: cfg.LogSamplingThereafter,
		},
		Otel: OtelSettings{
			Enabled:       cfg.OTelEnabled,
			Endpoint:      strings.TrimSpace(cfg.OTLPEndpoint),
			Protocol:      protocol,
			SamplingRatio: ratio,
		},
	}
}

// Debug reports whether verbose logging and gin debug mode apply.
func (c Config) Debug() bool {
	if c.Log.Level == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}
