package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/pricewatch/internal/ledger/domain"
	"github.com/smallbiznis/pricewatch/internal/savings/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type ledgerMock struct {
	mock.Mock
	ledgerdomain.Service
}

func (m *ledgerMock) GetLowestPrice(ctx context.Context, name string) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newService(l *ledgerMock) domain.Service {
	return New(Params{Log: zap.NewNop(), Ledger: l})
}

func TestComputeSavings(t *testing.T) {
	l := &ledgerMock{}
	l.On("GetLowestPrice", mock.Anything, "Milk").Return(d("1.00"), true, nil).Once()
	l.On("GetLowestPrice", mock.Anything, "Bread").Return(d("2.00"), true, nil).Once()
	l.On("GetLowestPrice", mock.Anything, "Saffron").Return(decimal.Zero, false, nil).Once()

	svc := newService(l)
	total, err := svc.ComputeSavings(context.Background(), []domain.LineItem{
		{Name: "Milk", Source: "store-a", Quantity: 3, RecordedPrice: d("1.25")},
		{Name: "Bread", Source: "store-b", Quantity: 1, RecordedPrice: d("1.80")},
		{Name: "Saffron", Source: "store-a", Quantity: 2, RecordedPrice: d("9.99")},
		{Name: "Milk", Source: "store-b", Quantity: 1, RecordedPrice: d("1.10")},
	})
	require.NoError(t, err)
	// 3×0.25 + 0 (cheaper than lowest) + 0 (unknown) + 1×0.10
	assert.Equal(t, "0.85", total.StringFixed(2))
	l.AssertExpectations(t)
}

func TestBreakdown_Lines(t *testing.T) {
	l := &ledgerMock{}
	l.On("GetLowestPrice", mock.Anything, "Milk").Return(d("1.00"), true, nil)
	l.On("GetLowestPrice", mock.Anything, "Tea").Return(decimal.Zero, false, nil)

	report, err := newService(l).Breakdown(context.Background(), []domain.LineItem{
		{Name: "Milk", Source: "store-a", Quantity: 2, RecordedPrice: d("1.50")},
		{Name: "Tea", Source: "store-a", Quantity: 1, RecordedPrice: d("3.00")},
	})
	require.NoError(t, err)
	require.Len(t, report.Lines, 2)
	assert.True(t, report.Lines[0].LowestKnown)
	assert.Equal(t, "1.00", report.Lines[0].Saving.StringFixed(2))
	assert.False(t, report.Lines[1].LowestKnown)
	assert.True(t, report.Lines[1].Saving.IsZero())
	assert.Equal(t, "1.00", report.Total.StringFixed(2))
}

func TestComputeSavings_EmptyIsZero(t *testing.T) {
	total, err := newService(&ledgerMock{}).ComputeSavings(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestComputeSavings_NeverNegative(t *testing.T) {
	l := &ledgerMock{}
	l.On("GetLowestPrice", mock.Anything, "Milk").Return(d("1.00"), true, nil)

	total, err := newService(l).ComputeSavings(context.Background(), []domain.LineItem{
		{Name: "Milk", Source: "store-a", Quantity: 5, RecordedPrice: d("0.50")},
	})
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestComputeSavings_Validation(t *testing.T) {
	cases := []struct {
		name string
		item domain.LineItem
		want error
	}{
		{name: "zero quantity", item: domain.LineItem{Name: "Milk", Quantity: 0, RecordedPrice: d("1")}, want: domain.ErrInvalidQuantity},
		{name: "blank name", item: domain.LineItem{Name: " ", Quantity: 1, RecordedPrice: d("1")}, want: domain.ErrInvalidName},
		{name: "negative price", item: domain.LineItem{Name: "Milk", Quantity: 1, RecordedPrice: d("-1")}, want: domain.ErrInvalidPrice},
		{name: "price beyond int64 cents", item: domain.LineItem{Name: "Milk", Quantity: 1, RecordedPrice: d("100000000000000000")}, want: domain.ErrInvalidPrice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newService(&ledgerMock{}).ComputeSavings(context.Background(), []domain.LineItem{tc.item})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestComputeSavings_LedgerFailure(t *testing.T) {
	boom := errors.New("db down")
	l := &ledgerMock{}
	l.On("GetLowestPrice", mock.Anything, "Milk").Return(decimal.Zero, false, boom)

	_, err := newService(l).ComputeSavings(context.Background(), []domain.LineItem{
		{Name: "Milk", Source: "store-a", Quantity: 1, RecordedPrice: d("1")},
	})
	assert.ErrorIs(t, err, boom)
}
