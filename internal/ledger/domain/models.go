package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pricewatch/pkg/money"
)

// Product is the current price of one name at one source. (name, source) is
// the natural key; ID never changes once assigned.
type Product struct {
	ID        snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string       `gorm:"type:varchar(255);not null;uniqueIndex:ux_products_name_source,priority:1" json:"name"`
	Source    string       `gorm:"type:varchar(128);not null;uniqueIndex:ux_products_name_source,priority:2" json:"source"`
	Price     int64        `gorm:"not null" json:"price"`
	URL       *string      `gorm:"type:text" json:"url,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

func (p Product) PriceDecimal() decimal.Decimal {
	return money.FromMinor(p.Price)
}

func (p Product) URLString() string {
	if p.URL == nil {
		return ""
	}
	return *p.URL
}

// PriceHistoryEntry is append-only.
type PriceHistoryEntry struct {
	ID         snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ProductID  snowflake.ID `gorm:"not null;index:ix_price_history_product_recorded,priority:1" json:"product_id"`
	Price      int64        `gorm:"not null" json:"price"`
	RecordedAt time.Time    `gorm:"not null;index:ix_price_history_product_recorded,priority:2" json:"recorded_at"`
}

func (PriceHistoryEntry) TableName() string { return "price_history" }

// HistoryPoint is a history entry as returned to readers.
type HistoryPoint struct {
	Price      decimal.Decimal `json:"price"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// ProductKey identifies a product by its natural key.
type ProductKey struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// CurrentPrice is one source's current price for a name.
type CurrentPrice struct {
	ProductID snowflake.ID    `json:"product_id"`
	Name      string          `json:"name"`
	Source    string          `json:"source"`
	Price     decimal.Decimal `json:"price"`
	URL       string          `json:"url,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// HistoryFilter bounds a history read. A zero Since means unbounded.
type HistoryFilter struct {
	Since time.Time
}

// WriteOutcome describes what a recorded observation changed.
type WriteOutcome string

const (
	WriteOutcomeCreated   WriteOutcome = "created"
	WriteOutcomeChanged   WriteOutcome = "changed"
	WriteOutcomeUnchanged WriteOutcome = "unchanged"
	WriteOutcomeFailed    WriteOutcome = "failed"
)
