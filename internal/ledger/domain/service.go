package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pricewatch/internal/observation"
)

// Service is the price ledger. Writes for one (name, source) are serialized;
// every write either fully applies or leaves prior state untouched.
type Service interface {
	RecordObservation(ctx context.Context, obs observation.ProductObservation) (snowflake.ID, error)

	GetProduct(ctx context.Context, id snowflake.ID) (Product, error)
	// GetHistory returns entries newest first. found is false for an unknown id.
	GetHistory(ctx context.Context, id snowflake.ID, filter HistoryFilter) ([]HistoryPoint, bool, error)
	GetHistoryByName(ctx context.Context, name, source string, filter HistoryFilter) ([]HistoryPoint, bool, error)
	// GetLowestPrice returns the minimum current price for name across sources.
	GetLowestPrice(ctx context.Context, name string) (decimal.Decimal, bool, error)
	ListProducts(ctx context.Context) ([]ProductKey, error)
	ListByName(ctx context.Context, name string) ([]CurrentPrice, error)
	FindAtOrBelow(ctx context.Context, name string, maxPrice decimal.Decimal) ([]CurrentPrice, error)
	ListTracked(ctx context.Context) ([]CurrentPrice, error)
}

// Locker serializes work on a key. unlock must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
