package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToMinor(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int64
	}{
		{name: "whole", in: "2", want: 200},
		{name: "two_digits", in: "1.20", want: 120},
		{name: "rounds_half_up", in: "1.005", want: 101},
		{name: "rounds_down", in: "1.004", want: 100},
		{name: "float_artifact", in: "0.30000000000000004", want: 30},
		{name: "zero", in: "0", want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ToMinor(decimal.RequireFromString(tc.in)))
		})
	}
}

func TestFromMinorRoundTrip(t *testing.T) {
	assert.Equal(t, "1.20", Format(FromMinor(120)))
	assert.True(t, Equal(decimal.NewFromFloat(0.1+0.2), decimal.RequireFromString("0.30")))
	assert.False(t, Equal(decimal.RequireFromString("1.50"), decimal.RequireFromString("1.49")))
}

func TestInRange(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want bool
	}{
		{name: "typical", in: "1.29", want: true},
		{name: "zero", in: "0", want: true},
		{name: "max_cents", in: "92233720368547758.07", want: true},
		{name: "one_cent_over", in: "92233720368547758.08", want: false},
		{name: "rounds_over", in: "92233720368547758.075", want: false},
		{name: "huge", in: "100000000000000000", want: false},
		{name: "min_cents", in: "-92233720368547758.08", want: true},
		{name: "below_min", in: "-92233720368547758.09", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, InRange(decimal.RequireFromString(tc.in)))
		})
	}
}

func TestFloorToMinor(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int64
	}{
		{name: "exact", in: "1.30", want: 130},
		{name: "half_cent", in: "1.295", want: 129},
		{name: "almost_next", in: "1.2999", want: 129},
		{name: "whole", in: "2", want: 200},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FloorToMinor(decimal.RequireFromString(tc.in)))
		})
	}
}
