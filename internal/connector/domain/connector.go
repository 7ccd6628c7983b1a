package domain

import (
	"context"
	"errors"
	"time"
)

// RawPromotion is promotional data exactly as a source reported it.
type RawPromotion struct {
	OriginalPrice any
	DiscountPrice any
	ValidUntil    *time.Time
}

// RawObservation is one item as a source reported it. Price values keep the
// upstream type (number, string, json.Number, ...) until normalization.
type RawObservation struct {
	Name      string
	Price     any
	URL       string
	Promotion *RawPromotion
}

// Connector is the contract every retail source integration satisfies.
type Connector interface {
	// Name identifies the source. It is the source value stored in the ledger.
	Name() string
	// Search returns candidate observations for query. An empty result is valid.
	Search(ctx context.Context, query string) ([]RawObservation, error)
	// CurrentPrice returns the raw current price for a product URL. ok is false
	// when the source reports the product as unavailable.
	CurrentPrice(ctx context.Context, productURL string) (price any, ok bool, err error)
	// CurrentPromotions returns the source's current promotional observations.
	CurrentPromotions(ctx context.Context) ([]RawObservation, error)
}

var (
	ErrSourceUnavailable  = errors.New("source_unavailable")
	ErrInvalidConnector   = errors.New("invalid_connector")
	ErrDuplicateConnector = errors.New("duplicate_connector")
	ErrUnknownSource      = errors.New("unknown_source")
)
