package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pricewatch/internal/aggregation/domain"
	"github.com/smallbiznis/pricewatch/internal/clock"
	"github.com/smallbiznis/pricewatch/internal/connector"
	connectordomain "github.com/smallbiznis/pricewatch/internal/connector/domain"
	"github.com/smallbiznis/pricewatch/internal/connector/static"
	ledgerdomain "github.com/smallbiznis/pricewatch/internal/ledger/domain"
	ledgerrepo "github.com/smallbiznis/pricewatch/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/pricewatch/internal/ledger/service"
	"github.com/smallbiznis/pricewatch/internal/observation"
	obsmetrics "github.com/smallbiznis/pricewatch/internal/observability/metrics"
	"github.com/smallbiznis/pricewatch/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeConnector struct {
	name   string
	search func(ctx context.Context, query string) ([]connectordomain.RawObservation, error)
	price  func(ctx context.Context, url string) (any, bool, error)
	promos func(ctx context.Context) ([]connectordomain.RawObservation, error)
}

func (f *fakeConnector) Name() string { return f.name }

func (f *fakeConnector) Search(ctx context.Context, query string) ([]connectordomain.RawObservation, error) {
	if f.search == nil {
		return nil, nil
	}
	return f.search(ctx, query)
}

func (f *fakeConnector) CurrentPrice(ctx context.Context, url string) (any, bool, error) {
	if f.price == nil {
		return nil, false, nil
	}
	return f.price(ctx, url)
}

func (f *fakeConnector) CurrentPromotions(ctx context.Context) ([]connectordomain.RawObservation, error) {
	if f.promos == nil {
		return nil, nil
	}
	return f.promos(ctx)
}

type failingLedger struct {
	ledgerdomain.Service
	failName string
}

func (l failingLedger) RecordObservation(ctx context.Context, obs observation.ProductObservation) (snowflake.ID, error) {
	if obs.Name == l.failName {
		return 0, ledgerdomain.ErrStorageFailure
	}
	return l.Service.RecordObservation(ctx, obs)
}

type fixture struct {
	svc     domain.Service
	ledger  ledgerdomain.Service
	metrics *obsmetrics.PriceMetrics
}

func setup(t *testing.T, timeout time.Duration, wrap func(ledgerdomain.Service) ledgerdomain.Service, conns ...connectordomain.Connector) fixture {
	t.Helper()

	conn := dbtest.New(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	metrics := obsmetrics.NewPriceMetrics(prometheus.NewRegistry(), obsmetrics.Config{})

	var ledger ledgerdomain.Service = ledgerservice.NewService(ledgerservice.Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Repo:  ledgerrepo.Provide(),
		Clock: clock.NewFakeClock(time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)),
	})
	if wrap != nil {
		ledger = wrap(ledger)
	}

	reg, err := connector.NewRegistry(conns...)
	require.NoError(t, err)
	reg.SetDefaultTimeout(timeout)

	svc := New(Params{
		Log:        log,
		Registry:   reg,
		Normalizer: observation.NewNormalizer(observation.Params{Log: log, Metrics: metrics}),
		Ledger:     ledger,
		Metrics:    metrics,
	})
	return fixture{svc: svc, ledger: ledger, metrics: metrics}
}

func storeA() *static.Connector {
	return static.New("store-a", []static.Item{
		{Name: "Milk 1L", Price: "1.29", URL: "https://a.example/milk"},
		{Name: "Bread", Price: 2.10},
	})
}

func storeB() *static.Connector {
	return static.New("store-b", []static.Item{
		{Name: "Milk 1L", Price: 1.19, URL: "https://b.example/milk"},
		{Name: "Milk 1L Lactose Free", Price: "1.89"},
	})
}

func TestSearch_GroupsByNameAcrossSources(t *testing.T) {
	f := setup(t, time.Second, nil, storeA(), storeB())
	ctx := context.Background()

	res, err := f.svc.Search(ctx, domain.SearchRequest{Query: "milk"})
	require.NoError(t, err)

	require.Len(t, res.Products, 2)
	milk := res.Products[0]
	assert.Equal(t, "Milk 1L", milk.Name)
	require.Len(t, milk.Prices, 2)
	assert.Equal(t, "1.29", milk.Prices["store-a"].Price.StringFixed(2))
	assert.Equal(t, "1.19", milk.Prices["store-b"].Price.StringFixed(2))
	assert.Equal(t, "store-b", milk.LowestSource)
	assert.NotZero(t, milk.Prices["store-a"].ProductID)

	lf := res.Products[1]
	_, atA := lf.Prices["store-a"]
	assert.False(t, atA)

	assert.Equal(t, 3, res.Recorded)
	assert.Equal(t, 0, res.WriteFailures)
	require.Len(t, res.Sources, 2)
	assert.Equal(t, "ok", res.Sources[0].Status)

	lowest, ok, err := f.ledger.GetLowestPrice(ctx, "Milk 1L")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.19", lowest.StringFixed(2))
}

func TestSearch_PartialFailureResilience(t *testing.T) {
	failing := &fakeConnector{name: "store-err", search: func(ctx context.Context, q string) ([]connectordomain.RawObservation, error) {
		return nil, errors.New("503 from upstream")
	}}
	panicking := &fakeConnector{name: "store-panic", search: func(ctx context.Context, q string) ([]connectordomain.RawObservation, error) {
		panic("parser blew up")
	}}
	release := make(chan struct{})
	defer close(release)
	stuck := &fakeConnector{name: "store-slow", search: func(ctx context.Context, q string) ([]connectordomain.RawObservation, error) {
		<-release
		return []connectordomain.RawObservation{{Name: "Milk 1L", Price: 0.5}}, nil
	}}

	f := setup(t, 50*time.Millisecond, nil, storeA(), failing, panicking, stuck)

	start := time.Now()
	res, err := f.svc.Search(context.Background(), domain.SearchRequest{Query: "milk"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, res.Products, 1)
	assert.Equal(t, []string{"store-a"}, keys(res.Products[0].Prices))

	statuses := map[string]string{}
	for _, s := range res.Sources {
		statuses[s.Name] = s.Status
	}
	assert.Equal(t, map[string]string{
		"store-a":     "ok",
		"store-err":   "failed",
		"store-panic": "panic",
		"store-slow":  "timeout",
	}, statuses)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ConnectorCallCounter("store-slow", "search", "timeout")))
}

func TestSearch_AllSourcesFailingIsEmptyNotError(t *testing.T) {
	failing := &fakeConnector{name: "store-err", search: func(ctx context.Context, q string) ([]connectordomain.RawObservation, error) {
		return nil, errors.New("down")
	}}
	f := setup(t, time.Second, nil, failing)

	res, err := f.svc.Search(context.Background(), domain.SearchRequest{Query: "milk"})
	require.NoError(t, err)
	assert.Empty(t, res.Products)
	assert.Equal(t, 0, res.Recorded)
}

func TestSearch_MalformedObservationSkipped(t *testing.T) {
	messy := &fakeConnector{name: "store-c", search: func(ctx context.Context, q string) ([]connectordomain.RawObservation, error) {
		return []connectordomain.RawObservation{
			{Name: "Milk 1L", Price: "n/a"},
			{Name: "", Price: 1.0},
			{Name: "Milk 1L", Price: -2},
			{Name: "Milk 1L", Price: 1.0, Promotion: &connectordomain.RawPromotion{OriginalPrice: 1.0, DiscountPrice: 2.0}},
			{Name: "Milk 1L", Price: "0.99"},
		}, nil
	}}
	f := setup(t, time.Second, nil, messy)

	res, err := f.svc.Search(context.Background(), domain.SearchRequest{Query: "milk"})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Skipped)
	assert.Equal(t, 1, res.Recorded)
	require.Len(t, res.Products, 1)
	assert.Equal(t, "0.99", res.Products[0].Prices["store-c"].Price.StringFixed(2))
}

func TestSearch_WriteFailureIsSkipped(t *testing.T) {
	f := setup(t, time.Second, func(l ledgerdomain.Service) ledgerdomain.Service {
		return failingLedger{Service: l, failName: "Bread"}
	}, storeA())
	ctx := context.Background()

	res, err := f.svc.Search(ctx, domain.SearchRequest{Query: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)

	res, err = f.svc.Search(ctx, domain.SearchRequest{Query: "r"})
	require.NoError(t, err)
	// "r" matches Bread only
	assert.Equal(t, 1, res.WriteFailures)
	assert.Equal(t, 0, res.Recorded)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.WriteFailureCounter("store-a")))

	keysList, err := f.ledger.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, keysList)
}

func TestSearch_UnknownSource(t *testing.T) {
	f := setup(t, time.Second, nil, storeA())
	_, err := f.svc.Search(context.Background(), domain.SearchRequest{Query: "milk", Sources: []string{"store-x"}})
	assert.ErrorIs(t, err, connectordomain.ErrUnknownSource)
}

func TestSearch_SameSourceLastObservationWins(t *testing.T) {
	dup := &fakeConnector{name: "store-d", search: func(ctx context.Context, q string) ([]connectordomain.RawObservation, error) {
		return []connectordomain.RawObservation{
			{Name: "Eggs", Price: "2.00"},
			{Name: "Eggs", Price: "1.80"},
		}, nil
	}}
	f := setup(t, time.Second, nil, dup)

	res, err := f.svc.Search(context.Background(), domain.SearchRequest{Query: "eggs"})
	require.NoError(t, err)
	require.Len(t, res.Products, 1)
	assert.Equal(t, "1.80", res.Products[0].Prices["store-d"].Price.StringFixed(2))

	history, found, err := f.ledger.GetHistoryByName(context.Background(), "Eggs", "store-d", ledgerdomain.HistoryFilter{})
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, history, 2)
}

func TestPromotions_SortedByDiscount(t *testing.T) {
	a := static.New("store-a", []static.Item{
		{Name: "Coffee", Price: 4.0, OriginalPrice: 8.0, DiscountPrice: 4.0},
		{Name: "Tea", Price: 2.7, OriginalPrice: 3.0, DiscountPrice: 2.7},
		{Name: "Broken", Price: 5.0, OriginalPrice: 4.0, DiscountPrice: 5.0},
	})
	b := static.New("store-b", []static.Item{
		{Name: "Juice", OriginalPrice: "2.00", DiscountPrice: "1.50"},
	})
	f := setup(t, time.Second, nil, a, b)
	ctx := context.Background()

	res, err := f.svc.Promotions(ctx, nil)
	require.NoError(t, err)
	require.Len(t, res.Promotions, 3)
	assert.Equal(t, "Coffee", res.Promotions[0].Name)
	assert.Equal(t, "50", res.Promotions[0].DiscountPercent.String())
	assert.Equal(t, "Juice", res.Promotions[1].Name)
	assert.Equal(t, "1.50", res.Promotions[1].Price.StringFixed(2))
	assert.Equal(t, "Tea", res.Promotions[2].Name)

	keysList, err := f.ledger.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, keysList)
}

func TestRefresh(t *testing.T) {
	prices := map[string]any{
		"https://a.example/milk":  "1.09",
		"https://a.example/bread": 2.10,
	}
	a := &fakeConnector{
		name: "store-a",
		search: func(ctx context.Context, q string) ([]connectordomain.RawObservation, error) {
			return []connectordomain.RawObservation{
				{Name: "Milk 1L", Price: "1.29", URL: "https://a.example/milk"},
				{Name: "Bread", Price: 2.10, URL: "https://a.example/bread"},
				{Name: "Jam", Price: 3.10, URL: "https://a.example/jam"},
				{Name: "Butter", Price: 2.00, URL: "https://a.example/butter"},
			}, nil
		},
		price: func(ctx context.Context, url string) (any, bool, error) {
			if url == "https://a.example/butter" {
				return nil, false, errors.New("boom")
			}
			p, ok := prices[url]
			return p, ok, nil
		},
	}
	f := setup(t, time.Second, nil, a)
	ctx := context.Background()

	_, err := f.svc.Search(ctx, domain.SearchRequest{Query: "any"})
	require.NoError(t, err)

	res, err := f.svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RefreshResult{Checked: 4, Updated: 1, Unavailable: 1, Failed: 1}, res)

	lowest, ok, err := f.ledger.GetLowestPrice(ctx, "Milk 1L")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, lowest.Equal(decimal.RequireFromString("1.09")))
}

func keys(m map[string]domain.SourcePrice) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestSearch_SourceFailureLoggedWithSource(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	failing := &fakeConnector{name: "store-err", search: func(ctx context.Context, q string) ([]connectordomain.RawObservation, error) {
		return nil, errors.New("503 from upstream")
	}}
	reg, err := connector.NewRegistry(failing)
	require.NoError(t, err)

	svc := New(Params{
		Log:        zap.New(core),
		Registry:   reg,
		Normalizer: observation.NewNormalizer(observation.Params{Log: zap.NewNop()}),
		Ledger:     setup(t, time.Second, nil).ledger,
	})

	_, err = svc.Search(context.Background(), domain.SearchRequest{Query: "milk"})
	require.NoError(t, err)

	entries := logs.FilterMessage("source unavailable").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "store-err", entries[0].ContextMap()["source"])
	assert.Equal(t, "search", entries[0].ContextMap()["op"])
}
