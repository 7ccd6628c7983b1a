package observation

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	connectordomain "github.com/smallbiznis/pricewatch/internal/connector/domain"
	obsmetrics "github.com/smallbiznis/pricewatch/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestNormalizer(metrics *obsmetrics.PriceMetrics) *Normalizer {
	return NewNormalizer(Params{Log: zap.NewNop(), Metrics: metrics})
}

func TestNormalize(t *testing.T) {
	n := newTestNormalizer(nil)

	cases := []struct {
		name      string
		raw       connectordomain.RawObservation
		wantErr   error
		wantPrice string
	}{
		{name: "float", raw: connectordomain.RawObservation{Name: "Milk", Price: 1.5}, wantPrice: "1.5"},
		{name: "string_with_comma", raw: connectordomain.RawObservation{Name: "Milk", Price: "1,29 €"}, wantPrice: "1.29"},
		{name: "json_number", raw: connectordomain.RawObservation{Name: "Milk", Price: json.Number("0.99")}, wantPrice: "0.99"},
		{name: "int", raw: connectordomain.RawObservation{Name: "Milk", Price: 2}, wantPrice: "2"},
		{name: "rounds_to_cents", raw: connectordomain.RawObservation{Name: "Milk", Price: "1.999"}, wantPrice: "2"},
		{name: "zero_is_valid", raw: connectordomain.RawObservation{Name: "Milk", Price: 0}, wantPrice: "0"},
		{name: "empty_name", raw: connectordomain.RawObservation{Name: "  ", Price: 1.0}, wantErr: ErrEmptyName},
		{name: "missing_price", raw: connectordomain.RawObservation{Name: "Milk"}, wantErr: ErrMissingPrice},
		{name: "blank_price", raw: connectordomain.RawObservation{Name: "Milk", Price: " "}, wantErr: ErrMissingPrice},
		{name: "non_numeric", raw: connectordomain.RawObservation{Name: "Milk", Price: "cheap"}, wantErr: ErrNonNumericPrice},
		{name: "nan", raw: connectordomain.RawObservation{Name: "Milk", Price: math.NaN()}, wantErr: ErrNonNumericPrice},
		{name: "unsupported_type", raw: connectordomain.RawObservation{Name: "Milk", Price: []int{1}}, wantErr: ErrNonNumericPrice},
		{name: "negative", raw: connectordomain.RawObservation{Name: "Milk", Price: -0.5}, wantErr: ErrNegativePrice},
		{name: "beyond_int64_cents", raw: connectordomain.RawObservation{Name: "Milk", Price: "100000000000000000"}, wantErr: ErrPriceOutOfRange},
		{name: "huge_float", raw: connectordomain.RawObservation{Name: "Milk", Price: 1e300}, wantErr: ErrPriceOutOfRange},
		{name: "largest_storable", raw: connectordomain.RawObservation{Name: "Milk", Price: "92233720368547758.07"}, wantPrice: "92233720368547758.07"},
		{
			name: "discount_above_original",
			raw: connectordomain.RawObservation{Name: "Milk", Price: 1.0, Promotion: &connectordomain.RawPromotion{
				OriginalPrice: 1.0, DiscountPrice: 1.2,
			}},
			wantErr: ErrDiscountAboveBase,
		},
		{
			name: "promotion_out_of_range",
			raw: connectordomain.RawObservation{Name: "Milk", Price: 1.0, Promotion: &connectordomain.RawPromotion{
				OriginalPrice: "1e20", DiscountPrice: 0.8,
			}},
			wantErr: ErrPriceOutOfRange,
		},
		{
			name: "promotion_missing_original",
			raw: connectordomain.RawObservation{Name: "Milk", Price: 1.0, Promotion: &connectordomain.RawPromotion{
				DiscountPrice: 0.8,
			}},
			wantErr: ErrInvalidPromotion,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obs, err := n.Normalize("rimi", tc.raw)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.ErrorIs(t, err, ErrMalformedObservation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Milk", obs.Name)
			assert.Equal(t, "rimi", obs.Source)
			assert.True(t, decimal.RequireFromString(tc.wantPrice).Equal(obs.Price), "got %s", obs.Price)
		})
	}
}

func TestNormalizeRequiresSource(t *testing.T) {
	n := newTestNormalizer(nil)
	_, err := n.Normalize(" ", connectordomain.RawObservation{Name: "Milk", Price: 1})
	assert.ErrorIs(t, err, ErrEmptySource)
}

func TestNormalizePromotion(t *testing.T) {
	n := newTestNormalizer(nil)
	until := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	obs, err := n.NormalizePromotion("lidl", connectordomain.RawObservation{
		Name: "Butter",
		URL:  " https://lidl.example/butter ",
		Promotion: &connectordomain.RawPromotion{
			OriginalPrice: "2.50",
			DiscountPrice: "1.99",
			ValidUntil:    &until,
		},
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1.99").Equal(obs.Price))
	assert.Equal(t, "https://lidl.example/butter", obs.URL)
	require.NotNil(t, obs.Promotion)
	assert.Equal(t, "20.4", obs.Promotion.DiscountPercent().String())
	assert.Equal(t, until, *obs.Promotion.ValidUntil)

	_, err = n.NormalizePromotion("lidl", connectordomain.RawObservation{Name: "Butter", Price: 1})
	assert.ErrorIs(t, err, ErrMissingPromotion)
}

func TestNormalizeBatchSkipsMalformed(t *testing.T) {
	metrics := obsmetrics.NewPriceMetrics(prometheus.NewRegistry(), obsmetrics.Config{})
	n := newTestNormalizer(metrics)

	batch := n.NormalizeBatch("maxima", []connectordomain.RawObservation{
		{Name: "Bread", Price: -1},
		{Name: "Milk", Price: 1.2},
		{Name: "Caviar", Price: "100000000000000000"},
		{Name: "", Price: 1.0},
		{Name: "Eggs", Price: "2.10"},
	})

	assert.Equal(t, 3, batch.Skipped)
	require.Len(t, batch.Accepted, 2)
	assert.Equal(t, "Milk", batch.Accepted[0].Name)
	assert.Equal(t, "Eggs", batch.Accepted[1].Name)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RejectedCounter("maxima", "negative_price")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RejectedCounter("maxima", "empty_name")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RejectedCounter("maxima", "price_out_of_range")))
}

func TestReason(t *testing.T) {
	assert.Equal(t, "", Reason(nil))
	assert.Equal(t, "negative_price", Reason(ErrNegativePrice))
	assert.Equal(t, "invalid_promotion", Reason(ErrInvalidPromotion))
	assert.Equal(t, "price_out_of_range", Reason(ErrPriceOutOfRange))
	assert.Equal(t, "unknown", Reason(assert.AnError))
}
