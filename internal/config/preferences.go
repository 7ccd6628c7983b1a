package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PriceAlert is a user threshold for one product name.
type PriceAlert struct {
	Name     string  `mapstructure:"name"`
	MaxPrice float64 `mapstructure:"maxPrice"`
}

// ConnectorConfig declares one source connector.
type ConnectorConfig struct {
	Name           string `mapstructure:"name"`
	Type           string `mapstructure:"type"`
	BaseURL        string `mapstructure:"baseUrl"`
	CatalogFile    string `mapstructure:"catalogFile"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
}

// Preferences is the user-editable part of the configuration.
type Preferences struct {
	PriceAlerts         []PriceAlert      `mapstructure:"priceAlerts"`
	FavoriteStores      []string          `mapstructure:"favoriteStores"`
	CheckIntervalHours  int               `mapstructure:"checkIntervalHours"`
	NotificationEnabled bool              `mapstructure:"notificationEnabled"`
	Connectors          []ConnectorConfig `mapstructure:"connectors"`
}

const (
	ConnectorTypeStatic   = "static"
	ConnectorTypeHTTPFeed = "httpfeed"
)

func DefaultPreferences() Preferences {
	return Preferences{
		CheckIntervalHours:  24,
		NotificationEnabled: true,
	}
}

// Thresholds returns the alert thresholds keyed by product name.
func (p Preferences) Thresholds() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(p.PriceAlerts))
	for _, alert := range p.PriceAlerts {
		name := strings.TrimSpace(alert.Name)
		if name == "" {
			continue
		}
		out[name] = decimal.NewFromFloat(alert.MaxPrice)
	}
	return out
}

// CheckInterval is the refresh period derived from CheckIntervalHours.
func (p Preferences) CheckInterval() time.Duration {
	if p.CheckIntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(p.CheckIntervalHours) * time.Hour
}

// PreferencesHolder serves the current preferences and swaps them in place when
// the backing file changes.
type PreferencesHolder struct {
	current atomic.Value // holds Preferences
}

// NewStaticPreferences returns a holder that never reloads.
func NewStaticPreferences(p Preferences) *PreferencesHolder {
	holder := &PreferencesHolder{}
	holder.current.Store(p)
	return holder
}

func NewPreferencesHolder(cfg Config, log *zap.Logger) (*PreferencesHolder, error) {
	log = log.Named("config.preferences")
	v := viper.New()

	if cfg.PreferencesFile != "" {
		v.SetConfigFile(cfg.PreferencesFile)
	} else {
		v.SetConfigName("preferences")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/pricewatch")
		v.AddConfigPath(".")
	}

	defaults := DefaultPreferences()
	v.SetDefault("preferences.checkIntervalHours", defaults.CheckIntervalHours)
	v.SetDefault("preferences.notificationEnabled", defaults.NotificationEnabled)

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read preferences: %w", err)
		}
		found = false
	}

	prefs, err := decodePreferences(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticPreferences(prefs)
	if !found {
		log.Info("preferences file not found, using defaults")
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodePreferences(v)
		if err != nil {
			log.Warn("preferences reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("preferences reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *PreferencesHolder) Get() Preferences {
	return h.current.Load().(Preferences)
}

func decodePreferences(v *viper.Viper) (Preferences, error) {
	var prefs Preferences
	if err := v.UnmarshalKey("preferences", &prefs); err != nil {
		return Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	if err := ValidatePreferences(prefs); err != nil {
		return Preferences{}, err
	}
	return prefs, nil
}

func ValidatePreferences(p Preferences) error {
	if p.CheckIntervalHours < 0 {
		return errors.New("preferences.checkIntervalHours cannot be negative")
	}
	for _, alert := range p.PriceAlerts {
		if strings.TrimSpace(alert.Name) == "" {
			return errors.New("preferences.priceAlerts: name is required")
		}
		if alert.MaxPrice < 0 {
			return fmt.Errorf("preferences.priceAlerts[%s]: maxPrice cannot be negative", alert.Name)
		}
	}
	seen := map[string]struct{}{}
	for _, c := range p.Connectors {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return errors.New("preferences.connectors: name is required")
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("preferences.connectors: duplicate name %q", name)
		}
		seen[name] = struct{}{}
		switch strings.ToLower(strings.TrimSpace(c.Type)) {
		case ConnectorTypeHTTPFeed:
			if strings.TrimSpace(c.BaseURL) == "" {
				return fmt.Errorf("preferences.connectors[%s]: baseUrl is required", name)
			}
		case ConnectorTypeStatic:
		default:
			return fmt.Errorf("preferences.connectors[%s]: unsupported type %q", name, c.Type)
		}
	}
	return nil
}
