package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pricewatch/internal/aggregation/domain"
	"github.com/smallbiznis/pricewatch/internal/connector"
	connectordomain "github.com/smallbiznis/pricewatch/internal/connector/domain"
	ledgerdomain "github.com/smallbiznis/pricewatch/internal/ledger/domain"
	"github.com/smallbiznis/pricewatch/internal/observation"
	obslogger "github.com/smallbiznis/pricewatch/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/pricewatch/internal/observability/metrics"
	"github.com/smallbiznis/pricewatch/internal/observability/tracing"
	"github.com/smallbiznis/pricewatch/pkg/money"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const tracerName = "pricewatch/aggregation"

type Params struct {
	fx.In

	Log        *zap.Logger
	Registry   *connector.Registry
	Normalizer *observation.Normalizer
	Ledger     ledgerdomain.Service
	Metrics    *obsmetrics.PriceMetrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	registry   *connector.Registry
	normalizer *observation.Normalizer
	ledger     ledgerdomain.Service
	metrics    *obsmetrics.PriceMetrics
}

func New(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("aggregation.service"),
		registry:   p.Registry,
		normalizer: p.Normalizer,
		ledger:     p.Ledger,
		metrics:    p.Metrics,
	}
}

// sourceResult is what one connector produced. Each fan-out goroutine owns
// exactly one slot.
type sourceResult struct {
	state domain.SourceStatus
	batch observation.Batch
}

func (s *Service) Search(ctx context.Context, req domain.SearchRequest) (result domain.SearchResult, err error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return domain.SearchResult{}, domain.ErrInvalidQuery
	}
	conns, err := s.registry.Select(req.Sources)
	if err != nil {
		return domain.SearchResult{}, err
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "aggregation.Search",
		attribute.String("query", query),
		attribute.Int("sources", len(conns)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	results := s.fanOut(ctx, conns, "search", func(ctx context.Context, c connectordomain.Connector) ([]connectordomain.RawObservation, error) {
		return c.Search(ctx, query)
	}, s.normalizer.NormalizeBatch)

	result = domain.SearchResult{
		Query:    query,
		Products: []domain.ProductView{},
		Sources:  make([]domain.SourceStatus, 0, len(results)),
	}
	views := make(map[string]*domain.ProductView)

	// an accepted write is not abandoned because the request went away
	writeCtx := context.WithoutCancel(ctx)
	for _, r := range results {
		result.Sources = append(result.Sources, r.state)
		result.Skipped += r.batch.Skipped

		for _, obs := range r.batch.Accepted {
			id, werr := s.ledger.RecordObservation(writeCtx, obs)
			if werr != nil {
				result.WriteFailures++
				s.metrics.IncWriteFailure(obs.Source)
				s.log.Warn("ledger write skipped",
					zap.String("source", obs.Source),
					zap.String("name", obs.Name),
					zap.Error(werr),
				)
			} else {
				result.Recorded++
			}

			view, ok := views[obs.Name]
			if !ok {
				view = &domain.ProductView{Name: obs.Name, Prices: make(map[string]domain.SourcePrice)}
				views[obs.Name] = view
			}
			view.Prices[obs.Source] = domain.SourcePrice{
				ProductID: id,
				Price:     obs.Price,
				URL:       obs.URL,
				Promotion: obs.Promotion,
			}
		}
	}

	for _, view := range views {
		view.Lowest, view.LowestSource = lowestOf(view.Prices)
		result.Products = append(result.Products, *view)
	}
	sort.Slice(result.Products, func(i, j int) bool {
		return result.Products[i].Name < result.Products[j].Name
	})

	s.log.Info("search completed",
		zap.String("query", query),
		zap.Int("products", len(result.Products)),
		zap.Int("recorded", result.Recorded),
		zap.Int("skipped", result.Skipped),
		zap.Int("write_failures", result.WriteFailures),
	)
	return result, nil
}

func (s *Service) Promotions(ctx context.Context, sources []string) (result domain.PromotionsResult, err error) {
	conns, err := s.registry.Select(sources)
	if err != nil {
		return domain.PromotionsResult{}, err
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "aggregation.Promotions", attribute.Int("sources", len(conns)))
	defer func() { tracing.EndSpan(span, err) }()

	results := s.fanOut(ctx, conns, "promotions", func(ctx context.Context, c connectordomain.Connector) ([]connectordomain.RawObservation, error) {
		return c.CurrentPromotions(ctx)
	}, s.normalizer.NormalizePromotionBatch)

	result = domain.PromotionsResult{
		Promotions: []domain.PromotionView{},
		Sources:    make([]domain.SourceStatus, 0, len(results)),
	}
	for _, r := range results {
		result.Sources = append(result.Sources, r.state)
		for _, obs := range r.batch.Accepted {
			result.Promotions = append(result.Promotions, domain.PromotionView{
				ProductObservation: obs,
				DiscountPercent:    obs.Promotion.DiscountPercent(),
			})
		}
	}

	sort.SliceStable(result.Promotions, func(i, j int) bool {
		a, b := result.Promotions[i], result.Promotions[j]
		if !a.DiscountPercent.Equal(b.DiscountPercent) {
			return a.DiscountPercent.GreaterThan(b.DiscountPercent)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Source < b.Source
	})
	return result, nil
}

type refreshTarget struct {
	product ledgerdomain.CurrentPrice
	obs     observation.ProductObservation
}

type refreshSource struct {
	targets     []refreshTarget
	unavailable int
	failed      int
}

func (s *Service) Refresh(ctx context.Context) (result domain.RefreshResult, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "aggregation.Refresh")
	defer func() { tracing.EndSpan(span, err) }()

	tracked, err := s.ledger.ListTracked(ctx)
	if err != nil {
		return domain.RefreshResult{}, err
	}

	bySource := make(map[string][]ledgerdomain.CurrentPrice)
	order := make([]string, 0)
	for _, p := range tracked {
		if _, ok := s.registry.Get(p.Source); !ok {
			continue
		}
		if _, seen := bySource[p.Source]; !seen {
			order = append(order, p.Source)
		}
		bySource[p.Source] = append(bySource[p.Source], p)
	}

	polled := make([]refreshSource, len(order))
	var g errgroup.Group
	for i, source := range order {
		c, _ := s.registry.Get(source)
		products := bySource[source]
		result.Checked += len(products)
		g.Go(func() error {
			polled[i] = s.pollSource(ctx, c, products)
			return nil
		})
	}
	_ = g.Wait()

	writeCtx := context.WithoutCancel(ctx)
	for _, src := range polled {
		result.Unavailable += src.unavailable
		result.Failed += src.failed
		for _, target := range src.targets {
			if _, werr := s.ledger.RecordObservation(writeCtx, target.obs); werr != nil {
				result.Failed++
				s.metrics.IncWriteFailure(target.obs.Source)
				s.log.Warn("refresh write skipped",
					zap.String("source", target.obs.Source),
					zap.String("name", target.obs.Name),
					zap.Error(werr),
				)
				continue
			}
			if !money.Equal(target.obs.Price, target.product.Price) {
				result.Updated++
			}
		}
	}

	s.log.Info("refresh completed",
		zap.Int("checked", result.Checked),
		zap.Int("updated", result.Updated),
		zap.Int("unavailable", result.Unavailable),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) pollSource(ctx context.Context, c connectordomain.Connector, products []ledgerdomain.CurrentPrice) refreshSource {
	var out refreshSource
	source := strings.TrimSpace(c.Name())
	timeout := s.registry.Timeout(source)
	log := obslogger.WithSource(s.log, source)

	for _, p := range products {
		type priceResult struct {
			price any
			ok    bool
		}
		start := time.Now()
		res, outcome, err := connector.Call(ctx, timeout, func(ctx context.Context) (priceResult, error) {
			price, ok, err := c.CurrentPrice(ctx, p.URL)
			return priceResult{price: price, ok: ok}, err
		})
		s.metrics.ObserveConnectorCall(source, "current_price", string(outcome), time.Since(start))
		if err != nil {
			out.failed++
			log.Warn("current price unavailable",
				zap.String("url", p.URL),
				zap.String("outcome", string(outcome)),
				zap.Error(err),
			)
			continue
		}
		if !res.ok {
			out.unavailable++
			continue
		}

		obs, err := s.normalizer.Normalize(source, connectordomain.RawObservation{
			Name:  p.Name,
			Price: res.price,
			URL:   p.URL,
		})
		if err != nil {
			out.failed++
			s.metrics.IncRejected(source, observation.Reason(err))
			log.Warn("current price rejected",
				zap.String("url", p.URL),
				zap.String("reason", observation.Reason(err)),
			)
			continue
		}
		out.targets = append(out.targets, refreshTarget{product: p, obs: obs})
	}
	return out
}

type fetchFunc func(ctx context.Context, c connectordomain.Connector) ([]connectordomain.RawObservation, error)

type batchFunc func(source string, raws []connectordomain.RawObservation) observation.Batch

// fanOut calls fetch on every connector concurrently, each under its own
// timeout, and returns one result per connector in input order.
func (s *Service) fanOut(ctx context.Context, conns []connectordomain.Connector, op string, fetch fetchFunc, normalize batchFunc) []sourceResult {
	results := make([]sourceResult, len(conns))

	var g errgroup.Group
	for i, c := range conns {
		g.Go(func() error {
			results[i] = s.callOne(ctx, c, op, fetch, normalize)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Service) callOne(ctx context.Context, c connectordomain.Connector, op string, fetch fetchFunc, normalize batchFunc) sourceResult {
	source := strings.TrimSpace(c.Name())
	res := sourceResult{
		state: domain.SourceStatus{Name: source},
		batch: observation.Batch{Source: source},
	}

	start := time.Now()
	raws, outcome, err := connector.Call(ctx, s.registry.Timeout(source), func(ctx context.Context) ([]connectordomain.RawObservation, error) {
		return fetch(ctx, c)
	})
	s.metrics.ObserveConnectorCall(source, op, string(outcome), time.Since(start))
	res.state.Status = string(outcome)
	if err != nil {
		res.state.Error = errorMessage(err)
		obslogger.WithSource(s.log, source).Warn("source unavailable",
			zap.String("op", op),
			zap.String("outcome", string(outcome)),
			zap.Error(err),
		)
		return res
	}

	res.batch = normalize(source, raws)
	res.state.Observations = len(res.batch.Accepted)
	res.state.Skipped = res.batch.Skipped
	return res
}

// lowestOf picks the cheapest slot; ties go to the alphabetically first source.
func lowestOf(prices map[string]domain.SourcePrice) (lowest decimal.Decimal, source string) {
	first := true
	for name, sp := range prices {
		if first || sp.Price.LessThan(lowest) || (sp.Price.Equal(lowest) && name < source) {
			lowest, source = sp.Price, name
			first = false
		}
	}
	return lowest, source
}

func errorMessage(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return err.Error()
}
