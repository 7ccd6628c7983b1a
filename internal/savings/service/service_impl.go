package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	ledgerdomain "github.com/smallbiznis/pricewatch/internal/ledger/domain"
	"github.com/smallbiznis/pricewatch/internal/savings/domain"
	"github.com/smallbiznis/pricewatch/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	Ledger ledgerdomain.Service
}

type Service struct {
	log    *zap.Logger
	ledger ledgerdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		log:    p.Log.Named("savings.service"),
		ledger: p.Ledger,
	}
}

func (s *Service) ComputeSavings(ctx context.Context, items []domain.LineItem) (decimal.Decimal, error) {
	report, err := s.Breakdown(ctx, items)
	if err != nil {
		return decimal.Zero, err
	}
	return report.Total, nil
}

func (s *Service) Breakdown(ctx context.Context, items []domain.LineItem) (domain.Report, error) {
	for i, item := range items {
		if err := validate(item); err != nil {
			return domain.Report{}, fmt.Errorf("line %d: %w", i, err)
		}
	}

	type lowest struct {
		price decimal.Decimal
		known bool
	}
	lowestByName := make(map[string]lowest, len(items))

	report := domain.Report{
		Total: decimal.Zero,
		Lines: make([]domain.Line, 0, len(items)),
	}
	for _, item := range items {
		name := strings.TrimSpace(item.Name)
		low, cached := lowestByName[name]
		if !cached {
			price, ok, err := s.ledger.GetLowestPrice(ctx, name)
			if err != nil {
				return domain.Report{}, err
			}
			low = lowest{price: price, known: ok}
			lowestByName[name] = low
		}

		line := domain.Line{
			LineItem:    item,
			Lowest:      low.price,
			LowestKnown: low.known,
			Saving:      decimal.Zero,
		}
		if low.known {
			diff := money.FromMinor(money.ToMinor(item.RecordedPrice)).Sub(low.price)
			if diff.IsPositive() {
				line.Saving = diff.Mul(decimal.NewFromInt(int64(item.Quantity)))
			}
		}
		report.Total = report.Total.Add(line.Saving)
		report.Lines = append(report.Lines, line)
	}

	s.log.Debug("savings computed",
		zap.Int("items", len(items)),
		zap.String("total", money.Format(report.Total)),
	)
	return report, nil
}

func validate(item domain.LineItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return domain.ErrInvalidName
	}
	if item.Quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	if item.RecordedPrice.IsNegative() || !money.InRange(item.RecordedPrice) {
		return domain.ErrInvalidPrice
	}
	return nil
}
