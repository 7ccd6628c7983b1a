package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pricewatch/internal/alert/domain"
	ledgerdomain "github.com/smallbiznis/pricewatch/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/pricewatch/internal/observability/metrics"
	"github.com/smallbiznis/pricewatch/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Ledger  ledgerdomain.Service
	Metrics *obsmetrics.PriceMetrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	ledger  ledgerdomain.Service
	metrics *obsmetrics.PriceMetrics
}

func New(p Params) domain.Service {
	return &Service{
		log:     p.Log.Named("alert.service"),
		ledger:  p.Ledger,
		metrics: p.Metrics,
	}
}

func (s *Service) Evaluate(ctx context.Context, thresholds map[string]decimal.Decimal) ([]domain.TriggeredAlert, error) {
	limits := make(map[string]decimal.Decimal, len(thresholds))
	for raw, limit := range thresholds {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("%w: empty product name", domain.ErrInvalidThreshold)
		}
		if limit.IsNegative() {
			return nil, fmt.Errorf("%w: %s below zero", domain.ErrInvalidThreshold, name)
		}
		if prev, ok := limits[name]; ok && !prev.Equal(limit) {
			return nil, fmt.Errorf("%w: conflicting limits for %s", domain.ErrInvalidThreshold, name)
		}
		limits[name] = limit
	}
	names := make([]string, 0, len(limits))
	for name := range limits {
		names = append(names, name)
	}
	sort.Strings(names)

	alerts := make([]domain.TriggeredAlert, 0)
	for _, name := range names {
		limit := limits[name]
		rows, err := s.ledger.FindAtOrBelow(ctx, name, limit)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			alerts = append(alerts, domain.TriggeredAlert{
				ProductID: row.ProductID,
				Name:      row.Name,
				Source:    row.Source,
				Price:     row.Price,
				MaxPrice:  limit,
				URL:       row.URL,
			})
		}
	}

	s.metrics.AddAlertsTriggered(len(alerts))
	for _, a := range alerts {
		s.log.Debug("price alert",
			zap.String("name", a.Name),
			zap.String("source", a.Source),
			zap.String("price", money.Format(a.Price)),
			zap.String("max_price", money.Format(a.MaxPrice)),
		)
	}
	return alerts, nil
}
