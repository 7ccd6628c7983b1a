package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// LineItem is one entry of a shopping list as priced when it was added.
type LineItem struct {
	Name          string          `json:"name"`
	Source        string          `json:"source"`
	Quantity      int             `json:"quantity"`
	RecordedPrice decimal.Decimal `json:"recorded_price"`
}

// Line is the savings contribution of a single LineItem. Lowest is zero and
// LowestKnown false when no source has a price for the name.
type Line struct {
	LineItem
	Lowest      decimal.Decimal `json:"lowest"`
	LowestKnown bool            `json:"lowest_known"`
	Saving      decimal.Decimal `json:"saving"`
}

type Report struct {
	Total decimal.Decimal `json:"total"`
	Lines []Line          `json:"lines"`
}

type Service interface {
	// ComputeSavings returns Σ max(0, recorded − lowest) × quantity. It never
	// returns a negative total.
	ComputeSavings(ctx context.Context, items []LineItem) (decimal.Decimal, error)
	Breakdown(ctx context.Context, items []LineItem) (Report, error)
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidPrice    = errors.New("invalid_price")
)
