package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// TriggeredAlert is a current price at or below a user threshold.
type TriggeredAlert struct {
	ProductID snowflake.ID    `json:"product_id"`
	Name      string          `json:"name"`
	Source    string          `json:"source"`
	Price     decimal.Decimal `json:"price"`
	MaxPrice  decimal.Decimal `json:"max_price"`
	URL       string          `json:"url,omitempty"`
}

type Service interface {
	// Evaluate returns one alert per (name, source) whose current price is at
	// or below the threshold for name. Alerts for the same name are adjacent.
	Evaluate(ctx context.Context, thresholds map[string]decimal.Decimal) ([]TriggeredAlert, error)
}

// Sink delivers triggered alerts somewhere a user will see them.
type Sink interface {
	Name() string
	Notify(ctx context.Context, alerts []TriggeredAlert) error
}

var ErrInvalidThreshold = errors.New("invalid_threshold")
