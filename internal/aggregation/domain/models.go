package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pricewatch/internal/observation"
)

type SearchRequest struct {
	Query string
	// Sources restricts the search to these connectors. Empty means all.
	Sources []string
}

// SourcePrice is one source's slot in a ProductView. ProductID is zero when
// the ledger write for the observation failed.
type SourcePrice struct {
	ProductID snowflake.ID           `json:"product_id,omitempty"`
	Price     decimal.Decimal        `json:"price"`
	URL       string                 `json:"url,omitempty"`
	Promotion *observation.Promotion `json:"promotion,omitempty"`
}

// ProductView groups observations of one name across sources. A source
// missing from Prices did not report the name.
type ProductView struct {
	Name         string                 `json:"name"`
	Prices       map[string]SourcePrice `json:"prices"`
	Lowest       decimal.Decimal        `json:"lowest"`
	LowestSource string                 `json:"lowest_source"`
}

// SourceStatus reports how one connector call ended.
type SourceStatus struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	Observations int    `json:"observations"`
	Skipped      int    `json:"skipped"`
	Error        string `json:"error,omitempty"`
}

type SearchResult struct {
	Query         string         `json:"query"`
	Products      []ProductView  `json:"products"`
	Sources       []SourceStatus `json:"sources"`
	Recorded      int            `json:"recorded"`
	WriteFailures int            `json:"write_failures"`
	Skipped       int            `json:"skipped"`
}

type PromotionView struct {
	observation.ProductObservation
	DiscountPercent decimal.Decimal `json:"discount_percent"`
}

type PromotionsResult struct {
	Promotions []PromotionView `json:"promotions"`
	Sources    []SourceStatus  `json:"sources"`
}

type RefreshResult struct {
	Checked     int `json:"checked"`
	Updated     int `json:"updated"`
	Unavailable int `json:"unavailable"`
	Failed      int `json:"failed"`
}

type Service interface {
	// Search queries the selected sources in parallel and records every
	// accepted observation. Source and normalization failures only reduce
	// the result; they are never returned as errors.
	Search(ctx context.Context, req SearchRequest) (SearchResult, error)
	// Promotions lists current offers sorted by discount percentage,
	// highest first. Nothing is written to the ledger.
	Promotions(ctx context.Context, sources []string) (PromotionsResult, error)
	// Refresh re-polls the current price of every tracked product.
	Refresh(ctx context.Context) (RefreshResult, error)
}

var ErrInvalidQuery = errors.New("invalid_query")
