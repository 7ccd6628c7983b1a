package observation

import (
	"errors"
	"fmt"
)

var ErrMalformedObservation = errors.New("malformed_observation")

var (
	ErrEmptyName         = fmt.Errorf("%w: empty_name", ErrMalformedObservation)
	ErrEmptySource       = fmt.Errorf("%w: empty_source", ErrMalformedObservation)
	ErrMissingPrice      = fmt.Errorf("%w: missing_price", ErrMalformedObservation)
	ErrNonNumericPrice   = fmt.Errorf("%w: non_numeric_price", ErrMalformedObservation)
	ErrNegativePrice     = fmt.Errorf("%w: negative_price", ErrMalformedObservation)
	ErrPriceOutOfRange   = fmt.Errorf("%w: price_out_of_range", ErrMalformedObservation)
	ErrInvalidPromotion  = fmt.Errorf("%w: invalid_promotion", ErrMalformedObservation)
	ErrDiscountAboveBase = fmt.Errorf("%w: discount_above_original", ErrMalformedObservation)
	ErrMissingPromotion  = fmt.Errorf("%w: missing_promotion", ErrMalformedObservation)
)

// Reason returns a low-cardinality label for a rejection error.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDiscountAboveBase):
		return "discount_above_original"
	case errors.Is(err, ErrInvalidPromotion):
		return "invalid_promotion"
	case errors.Is(err, ErrMissingPromotion):
		return "missing_promotion"
	case errors.Is(err, ErrEmptyName):
		return "empty_name"
	case errors.Is(err, ErrEmptySource):
		return "empty_source"
	case errors.Is(err, ErrMissingPrice):
		return "missing_price"
	case errors.Is(err, ErrNonNumericPrice):
		return "non_numeric_price"
	case errors.Is(err, ErrNegativePrice):
		return "negative_price"
	case errors.Is(err, ErrPriceOutOfRange):
		return "price_out_of_range"
	default:
		return "unknown"
	}
}
