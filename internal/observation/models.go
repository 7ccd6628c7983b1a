package observation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Promotion is a validated promotional offer. DiscountPrice never exceeds OriginalPrice.
type Promotion struct {
	OriginalPrice decimal.Decimal `json:"original_price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	ValidUntil    *time.Time      `json:"valid_until,omitempty"`
}

// DiscountPercent returns the discount as a percentage of the original price.
func (p Promotion) DiscountPercent() decimal.Decimal {
	if !p.OriginalPrice.IsPositive() {
		return decimal.Zero
	}
	return p.OriginalPrice.Sub(p.DiscountPrice).
		Div(p.OriginalPrice).
		Mul(decimal.NewFromInt(100)).
		Round(1)
}

// ProductObservation is the canonical form of one reported data point.
type ProductObservation struct {
	Name      string          `json:"name"`
	Source    string          `json:"source"`
	Price     decimal.Decimal `json:"price"`
	URL       string          `json:"url,omitempty"`
	Promotion *Promotion      `json:"promotion,omitempty"`
}

// Batch is the result of normalizing one connector response.
type Batch struct {
	Source   string
	Accepted []ProductObservation
	Skipped  int
}
