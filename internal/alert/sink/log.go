package sink

import (
	"context"

	"github.com/smallbiznis/pricewatch/internal/alert/domain"
	"github.com/smallbiznis/pricewatch/pkg/money"
	"go.uber.org/zap"
)

// Log writes each alert as a structured log line.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log.Named("alert.sink")}
}

func (l *Log) Name() string { return "log" }

func (l *Log) Notify(ctx context.Context, alerts []domain.TriggeredAlert) error {
	for _, a := range alerts {
		l.log.Info("price alert triggered",
			zap.String("name", a.Name),
			zap.String("source", a.Source),
			zap.String("price", money.Format(a.Price)),
			zap.String("max_price", money.Format(a.MaxPrice)),
			zap.String("url", a.URL),
		)
	}
	return nil
}
