package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	aggdomain "github.com/smallbiznis/pricewatch/internal/aggregation/domain"
	alertdomain "github.com/smallbiznis/pricewatch/internal/alert/domain"
	"github.com/smallbiznis/pricewatch/internal/clock"
	"github.com/smallbiznis/pricewatch/internal/config"
	obsmetrics "github.com/smallbiznis/pricewatch/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type aggregationStub struct {
	aggdomain.Service

	mu      sync.Mutex
	calls   int
	result  aggdomain.RefreshResult
	err     error
	blockOn bool
}

func (a *aggregationStub) Refresh(ctx context.Context) (aggdomain.RefreshResult, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.blockOn {
		<-ctx.Done()
		return aggdomain.RefreshResult{}, ctx.Err()
	}
	return a.result, a.err
}

func (a *aggregationStub) refreshCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type alertStub struct {
	thresholds map[string]decimal.Decimal
	alerts     []alertdomain.TriggeredAlert
	err        error
	calls      int
}

func (a *alertStub) Evaluate(_ context.Context, thresholds map[string]decimal.Decimal) ([]alertdomain.TriggeredAlert, error) {
	a.calls++
	a.thresholds = thresholds
	return a.alerts, a.err
}

type sinkStub struct {
	delivered [][]alertdomain.TriggeredAlert
	err       error
}

func (s *sinkStub) Name() string { return "stub" }

func (s *sinkStub) Notify(_ context.Context, alerts []alertdomain.TriggeredAlert) error {
	s.delivered = append(s.delivered, alerts)
	return s.err
}

type fixture struct {
	sched    *Scheduler
	agg      *aggregationStub
	alerts   *alertStub
	sink     *sinkStub
	registry *prometheus.Registry
}

func newFixture(t *testing.T, prefs config.Preferences, cfg Config) *fixture {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	f := &fixture{
		agg:      &aggregationStub{},
		alerts:   &alertStub{},
		sink:     &sinkStub{},
		registry: registry,
	}
	f.sched, err = New(Params{
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clock.NewFakeClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)),
		Aggregation: f.agg,
		Alerts:      f.alerts,
		Sink:        f.sink,
		Preferences: config.NewStaticPreferences(prefs),
		Config:      cfg,
		Metrics:     obsmetrics.NewSchedulerMetrics(registry, obsmetrics.Config{ServiceName: "pricewatch", Environment: "test"}),
	})
	require.NoError(t, err)
	return f
}

func milkAlert() alertdomain.TriggeredAlert {
	return alertdomain.TriggeredAlert{
		ProductID: 7,
		Name:      "Milk",
		Source:    "storeA",
		Price:     decimal.RequireFromString("1.50"),
		MaxPrice:  decimal.RequireFromString("2.00"),
	}
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceRefreshesAndNotifies(t *testing.T) {
	prefs := config.DefaultPreferences()
	prefs.PriceAlerts = []config.PriceAlert{{Name: "Milk", MaxPrice: 2}}
	f := newFixture(t, prefs, Config{})
	f.agg.result = aggdomain.RefreshResult{Checked: 3, Updated: 1}
	f.alerts.alerts = []alertdomain.TriggeredAlert{milkAlert()}

	require.NoError(t, f.sched.RunOnce(context.Background()))

	assert.Equal(t, 1, f.agg.refreshCalls())
	require.Contains(t, f.alerts.thresholds, "Milk")
	assert.True(t, f.alerts.thresholds["Milk"].Equal(decimal.NewFromInt(2)))
	require.Len(t, f.sink.delivered, 1)
	assert.Equal(t, "Milk", f.sink.delivered[0][0].Name)
}

func TestEvaluateAlertsSkippedWhenNotificationsDisabled(t *testing.T) {
	prefs := config.DefaultPreferences()
	prefs.NotificationEnabled = false
	prefs.PriceAlerts = []config.PriceAlert{{Name: "Milk", MaxPrice: 2}}
	f := newFixture(t, prefs, Config{})
	f.alerts.alerts = []alertdomain.TriggeredAlert{milkAlert()}

	require.NoError(t, f.sched.RunOnce(context.Background()))

	assert.Zero(t, f.alerts.calls)
	assert.Empty(t, f.sink.delivered)
}

func TestEvaluateAlertsNoThresholds(t *testing.T) {
	f := newFixture(t, config.DefaultPreferences(), Config{})

	require.NoError(t, f.sched.RunOnce(context.Background()))

	assert.Zero(t, f.alerts.calls)
	assert.Empty(t, f.sink.delivered)
}

func TestEvaluateAlertsNothingTriggeredDoesNotNotify(t *testing.T) {
	prefs := config.DefaultPreferences()
	prefs.PriceAlerts = []config.PriceAlert{{Name: "Milk", MaxPrice: 1}}
	f := newFixture(t, prefs, Config{})

	require.NoError(t, f.sched.RunOnce(context.Background()))

	assert.Equal(t, 1, f.alerts.calls)
	assert.Empty(t, f.sink.delivered)
}

func TestRunOnceJoinsJobErrors(t *testing.T) {
	prefs := config.DefaultPreferences()
	prefs.PriceAlerts = []config.PriceAlert{{Name: "Milk", MaxPrice: 2}}
	f := newFixture(t, prefs, Config{})
	refreshErr := errors.New("refresh boom")
	f.agg.err = refreshErr
	f.alerts.alerts = []alertdomain.TriggeredAlert{milkAlert()}
	sinkErr := errors.New("sink boom")
	f.sink.err = sinkErr

	err := f.sched.RunOnce(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, refreshErr)
	assert.ErrorIs(t, err, sinkErr)
	assert.Contains(t, err.Error(), JobRefreshPrices)
	assert.Contains(t, err.Error(), JobEvaluateAlerts)
	// alert evaluation still ran after the refresh failure
	assert.Equal(t, 1, f.alerts.calls)
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	f := newFixture(t, config.DefaultPreferences(), Config{RefreshTimeout: 5 * time.Millisecond})
	f.agg.blockOn = true

	err := f.sched.runJob(context.Background(), JobRefreshPrices, 5*time.Millisecond, f.sched.RefreshPricesJob)
	require.NoError(t, err)

	expected := `
# HELP pricewatch_scheduler_job_timeouts_total Scheduler jobs that hit their deadline.
# TYPE pricewatch_scheduler_job_timeouts_total counter
pricewatch_scheduler_job_timeouts_total{env="test",job="refresh_prices",service="pricewatch"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(f.registry, strings.NewReader(expected), "pricewatch_scheduler_job_timeouts_total"))
}

func TestRunJobCountsRuns(t *testing.T) {
	f := newFixture(t, config.DefaultPreferences(), Config{})

	require.NoError(t, f.sched.RunOnce(context.Background()))
	require.NoError(t, f.sched.RunOnce(context.Background()))

	expected := `
# HELP pricewatch_scheduler_job_runs_total Scheduler job runs by name.
# TYPE pricewatch_scheduler_job_runs_total counter
pricewatch_scheduler_job_runs_total{env="test",job="evaluate_alerts",service="pricewatch"} 2
pricewatch_scheduler_job_runs_total{env="test",job="refresh_prices",service="pricewatch"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(f.registry, strings.NewReader(expected), "pricewatch_scheduler_job_runs_total"))
}

func TestIntervalFollowsPreferencesUnlessOverridden(t *testing.T) {
	prefs := config.DefaultPreferences()
	prefs.CheckIntervalHours = 6

	f := newFixture(t, prefs, Config{})
	assert.Equal(t, 6*time.Hour, f.sched.Interval())

	f = newFixture(t, prefs, Config{RunInterval: time.Minute})
	assert.Equal(t, time.Minute, f.sched.Interval())
}

func TestRunForeverRunsImmediatelyAndStopsOnCancel(t *testing.T) {
	f := newFixture(t, config.DefaultPreferences(), Config{RunInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.sched.RunForever(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return f.agg.refreshCalls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunForever did not return after cancel")
	}
	assert.Equal(t, 1, f.agg.refreshCalls())
}

func TestProvideConfigUsesSchedulerInterval(t *testing.T) {
	cfg := ProvideConfig(config.Config{SchedulerInterval: 90 * time.Second})
	assert.Equal(t, 90*time.Second, cfg.RunInterval)
	assert.Equal(t, DefaultConfig().RefreshTimeout, cfg.RefreshTimeout)
	assert.Equal(t, DefaultConfig().AlertTimeout, cfg.AlertTimeout)
}
