package scheduler

import (
	"errors"
	"time"

	"github.com/smallbiznis/pricewatch/internal/config"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// Config controls scheduler intervals and job timeouts.
type Config struct {
	// RunInterval overrides preferences.checkIntervalHours when positive.
	RunInterval    time.Duration
	RefreshTimeout time.Duration
	AlertTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		RefreshTimeout: 5 * time.Minute,
		AlertTimeout:   30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval < 0 {
		c.RunInterval = 0
	}
	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = defaults.RefreshTimeout
	}
	if c.AlertTimeout <= 0 {
		c.AlertTimeout = defaults.AlertTimeout
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{RunInterval: cfg.SchedulerInterval}.withDefaults()
}
