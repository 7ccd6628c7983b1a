package connector

import (
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/pricewatch/internal/config"
	"github.com/smallbiznis/pricewatch/internal/connector/domain"
	"github.com/smallbiznis/pricewatch/internal/connector/httpfeed"
	"github.com/smallbiznis/pricewatch/internal/connector/static"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("connector.registry",
	fx.Provide(NewRegistryFromConfig),
)

type Params struct {
	fx.In

	Config      config.Config
	Preferences *config.PreferencesHolder
	Log         *zap.Logger
}

// NewRegistryFromConfig builds the registry from the connectors declared in
// preferences. The set is fixed at startup; later preference reloads do not
// add or remove sources.
func NewRegistryFromConfig(p Params) (*Registry, error) {
	log := p.Log.Named("connector.registry")

	registry, err := NewRegistry()
	if err != nil {
		return nil, err
	}
	registry.SetDefaultTimeout(p.Config.ConnectorTimeout)

	for _, def := range p.Preferences.Get().Connectors {
		c, err := build(def)
		if err != nil {
			return nil, fmt.Errorf("connector %s: %w", def.Name, err)
		}
		timeout := time.Duration(def.TimeoutSeconds) * time.Second
		if err := registry.RegisterWithTimeout(c, timeout); err != nil {
			return nil, err
		}
		log.Info("connector registered",
			zap.String("source", c.Name()),
			zap.String("type", def.Type),
			zap.Duration("timeout", registry.Timeout(c.Name())),
		)
	}
	if len(registry.All()) == 0 {
		log.Warn("no connectors configured; searches will return empty results")
	}
	return registry, nil
}

func build(def config.ConnectorConfig) (domain.Connector, error) {
	name := strings.TrimSpace(def.Name)
	switch strings.ToLower(strings.TrimSpace(def.Type)) {
	case config.ConnectorTypeHTTPFeed:
		return httpfeed.New(httpfeed.Config{
			Name:    name,
			BaseURL: def.BaseURL,
			Timeout: time.Duration(def.TimeoutSeconds) * time.Second,
		}, nil)
	case config.ConnectorTypeStatic:
		if strings.TrimSpace(def.CatalogFile) == "" {
			return static.New(name, nil), nil
		}
		return static.Load(name, def.CatalogFile)
	default:
		return nil, fmt.Errorf("%w: type %q", domain.ErrInvalidConnector, def.Type)
	}
}
