package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/pricewatch/internal/alert/domain"
	"go.uber.org/zap"
)

// Multi fans alerts out to every sink. One failing sink does not stop the
// others; their errors are joined.
type Multi struct {
	sinks []domain.Sink
	log   *zap.Logger
}

func NewMulti(log *zap.Logger, sinks ...domain.Sink) *Multi {
	return &Multi{sinks: sinks, log: log.Named("alert.sink")}
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Notify(ctx context.Context, alerts []domain.TriggeredAlert) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, alerts); err != nil {
			m.log.Error("alert sink failed", zap.String("sink", s.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
