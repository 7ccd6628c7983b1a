package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	aggdomain "github.com/smallbiznis/pricewatch/internal/aggregation/domain"
	alertdomain "github.com/smallbiznis/pricewatch/internal/alert/domain"
	"github.com/smallbiznis/pricewatch/internal/clock"
	"github.com/smallbiznis/pricewatch/internal/config"
	obsmetrics "github.com/smallbiznis/pricewatch/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobRefreshPrices  = "refresh_prices"
	JobEvaluateAlerts = "evaluate_alerts"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Aggregation aggdomain.Service
	Alerts      alertdomain.Service
	Sink        alertdomain.Sink
	Preferences *config.PreferencesHolder
	Config      Config                       `optional:"true"`
	Metrics     *obsmetrics.SchedulerMetrics `optional:"true"`
	Prices      *obsmetrics.PriceMetrics     `optional:"true"`
}

type Scheduler struct {
	log         *zap.Logger
	cfg         Config
	genID       *snowflake.Node
	clock       clock.Clock
	aggregation aggdomain.Service
	alerts      alertdomain.Service
	sink        alertdomain.Sink
	prefs       *config.PreferencesHolder
	metrics     *obsmetrics.SchedulerMetrics
	prices      *obsmetrics.PriceMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Aggregation == nil || p.Alerts == nil || p.Sink == nil || p.Preferences == nil {
		return nil, ErrInvalidConfig
	}
	metrics := p.Metrics
	if metrics == nil {
		metrics = obsmetrics.Scheduler()
	}
	return &Scheduler{
		log:         p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:         p.Config.withDefaults(),
		genID:       p.GenID,
		clock:       p.Clock,
		aggregation: p.Aggregation,
		alerts:      p.Alerts,
		sink:        p.Sink,
		prefs:       p.Preferences,
		metrics:     metrics,
		prices:      p.Prices,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.AddErrors(1)
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// deadline is a soft timeout; the next tick retries
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes every job in order. Job errors are joined; one failing
// job does not skip the next.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	err = errors.Join(err, s.runJob(parent, JobRefreshPrices, s.cfg.RefreshTimeout, s.RefreshPricesJob))
	err = errors.Join(err, s.runJob(parent, JobEvaluateAlerts, s.cfg.AlertTimeout, s.EvaluateAlertsJob))
	return err
}

// Interval is the delay between runs. The preferences value is re-read on
// every call so hot-reloaded checkIntervalHours takes effect on the next tick.
func (s *Scheduler) Interval() time.Duration {
	if s.cfg.RunInterval > 0 {
		return s.cfg.RunInterval
	}
	return s.prefs.Get().CheckInterval()
}

func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.Interval()
	nextRun := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if lag := time.Since(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		if next := s.Interval(); next != interval {
			s.log.Info("scheduler interval changed",
				zap.Duration("previous", interval),
				zap.Duration("interval", next),
			)
			interval = next
		}
		nextRun = time.Now().Add(interval)
		timer.Reset(interval)
	}
}

func (s *Scheduler) RefreshPricesJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	res, err := s.aggregation.Refresh(ctx)
	if err != nil {
		return err
	}
	run.AddProcessed(res.Checked)
	run.AddErrors(res.Failed)
	s.metrics.AddBatchProcessed(JobRefreshPrices, "products", res.Checked)
	s.metrics.AddBatchProcessed(JobRefreshPrices, "updated", res.Updated)
	s.logger(ctx).Info("prices refreshed",
		zap.Int("checked", res.Checked),
		zap.Int("updated", res.Updated),
		zap.Int("unavailable", res.Unavailable),
		zap.Int("failed", res.Failed),
	)
	return nil
}

func (s *Scheduler) EvaluateAlertsJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	prefs := s.prefs.Get()
	if !prefs.NotificationEnabled {
		s.logger(ctx).Debug("notifications disabled, skipping alert evaluation")
		return nil
	}
	thresholds := prefs.Thresholds()
	if len(thresholds) == 0 {
		return nil
	}

	alerts, err := s.alerts.Evaluate(ctx, thresholds)
	if err != nil {
		return err
	}
	run.AddProcessed(len(alerts))
	s.metrics.AddBatchProcessed(JobEvaluateAlerts, "alerts", len(alerts))
	s.prices.AddAlertsTriggered(len(alerts))
	if len(alerts) == 0 {
		return nil
	}

	if err := s.sink.Notify(ctx, alerts); err != nil {
		s.logJobError(ctx, run, "alert notification failed", err,
			zap.String("sink", s.sink.Name()),
			zap.Int("alerts", len(alerts)),
		)
		return err
	}
	return nil
}
