// Package observation turns raw connector records into canonical product observations.
package observation

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
	connectordomain "github.com/smallbiznis/pricewatch/internal/connector/domain"
	obsmetrics "github.com/smallbiznis/pricewatch/internal/observability/metrics"
	"github.com/smallbiznis/pricewatch/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Metrics *obsmetrics.PriceMetrics `optional:"true"`
}

// Normalizer validates raw observations. It has no side effects beyond
// logging and counting rejections.
type Normalizer struct {
	log     *zap.Logger
	metrics *obsmetrics.PriceMetrics
}

func NewNormalizer(p Params) *Normalizer {
	return &Normalizer{
		log:     p.Log.Named("observation.normalizer"),
		metrics: p.Metrics,
	}
}

// Normalize converts raw into a ProductObservation attributed to source.
func (n *Normalizer) Normalize(source string, raw connectordomain.RawObservation) (ProductObservation, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return ProductObservation{}, ErrEmptySource
	}
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return ProductObservation{}, ErrEmptyName
	}

	price, err := parsePrice(raw.Price)
	if err != nil {
		return ProductObservation{}, err
	}
	if price.IsNegative() {
		return ProductObservation{}, ErrNegativePrice
	}
	if !money.InRange(price) {
		return ProductObservation{}, ErrPriceOutOfRange
	}

	obs := ProductObservation{
		Name:   name,
		Source: source,
		Price:  price.Round(money.Scale),
		URL:    strings.TrimSpace(raw.URL),
	}

	if raw.Promotion != nil {
		promo, err := normalizePromotion(raw.Promotion)
		if err != nil {
			return ProductObservation{}, err
		}
		obs.Promotion = promo
	}
	return obs, nil
}

// NormalizePromotion is Normalize for promotional records: the promotion is
// required and a missing price falls back to the discounted price.
func (n *Normalizer) NormalizePromotion(source string, raw connectordomain.RawObservation) (ProductObservation, error) {
	if raw.Promotion == nil {
		return ProductObservation{}, ErrMissingPromotion
	}
	if raw.Price == nil {
		raw.Price = raw.Promotion.DiscountPrice
	}
	return n.Normalize(source, raw)
}

// NormalizeBatch normalizes every record, skipping and logging rejects.
func (n *Normalizer) NormalizeBatch(source string, raws []connectordomain.RawObservation) Batch {
	return n.batch(source, raws, n.Normalize)
}

// NormalizePromotionBatch is NormalizeBatch for promotional records.
func (n *Normalizer) NormalizePromotionBatch(source string, raws []connectordomain.RawObservation) Batch {
	return n.batch(source, raws, n.NormalizePromotion)
}

func (n *Normalizer) batch(source string, raws []connectordomain.RawObservation, fn func(string, connectordomain.RawObservation) (ProductObservation, error)) Batch {
	batch := Batch{
		Source:   source,
		Accepted: make([]ProductObservation, 0, len(raws)),
	}
	for i, raw := range raws {
		obs, err := fn(source, raw)
		if err != nil {
			batch.Skipped++
			n.metrics.IncRejected(source, Reason(err))
			n.log.Warn("observation rejected",
				zap.String("source", source),
				zap.Int("index", i),
				zap.String("name", raw.Name),
				zap.String("reason", Reason(err)),
			)
			continue
		}
		batch.Accepted = append(batch.Accepted, obs)
	}
	n.metrics.AddAccepted(source, len(batch.Accepted))
	return batch
}

func normalizePromotion(raw *connectordomain.RawPromotion) (*Promotion, error) {
	original, err := parsePrice(raw.OriginalPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: original price: %w", ErrInvalidPromotion, err)
	}
	discount, err := parsePrice(raw.DiscountPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: discount price: %w", ErrInvalidPromotion, err)
	}
	if original.IsNegative() || discount.IsNegative() {
		return nil, ErrInvalidPromotion
	}
	if !money.InRange(original) || !money.InRange(discount) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPromotion, ErrPriceOutOfRange)
	}
	original = original.Round(money.Scale)
	discount = discount.Round(money.Scale)
	if discount.GreaterThan(original) {
		return nil, ErrDiscountAboveBase
	}

	promo := &Promotion{
		OriginalPrice: original,
		DiscountPrice: discount,
	}
	if raw.ValidUntil != nil {
		until := raw.ValidUntil.UTC()
		promo.ValidUntil = &until
	}
	return promo, nil
}

func parsePrice(v any) (decimal.Decimal, error) {
	switch p := v.(type) {
	case nil:
		return decimal.Zero, ErrMissingPrice
	case decimal.Decimal:
		return p, nil
	case *decimal.Decimal:
		if p == nil {
			return decimal.Zero, ErrMissingPrice
		}
		return *p, nil
	case float64:
		return fromFloat(p)
	case float32:
		return fromFloat(float64(p))
	case int:
		return decimal.NewFromInt(int64(p)), nil
	case int32:
		return decimal.NewFromInt(int64(p)), nil
	case int64:
		return decimal.NewFromInt(p), nil
	case json.Number:
		return parseString(p.String())
	case string:
		return parseString(p)
	default:
		return decimal.Zero, ErrNonNumericPrice
	}
}

func fromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, ErrNonNumericPrice
	}
	return decimal.NewFromFloat(f), nil
}

func parseString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(strings.Trim(s, "€$"))
	if s == "" {
		return decimal.Zero, ErrMissingPrice
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrNonNumericPrice
	}
	return d, nil
}
