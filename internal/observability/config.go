package observability

import (
	"strings"

	"github.com/smallbiznis/pricewatch/internal/config"
)

// Config holds observability settings derived from the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "pricewatch"
	}
	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             strings.ToLower(strings.TrimSpace(cfg.LogLevel)),
		LogFormat:            strings.ToLower(strings.TrimSpace(cfg.LogFormat)),
		OtelEnabled:          cfg.Otel.Enabled,
		OtelExporterEndpoint: strings.TrimSpace(cfg.Otel.Endpoint),
		OtelExporterProtocol: strings.ToLower(strings.TrimSpace(cfg.Otel.Protocol)),
		OtelSamplingRatio:    cfg.Otel.SamplingRatio,
	}
}

func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}
