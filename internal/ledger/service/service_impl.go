package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pricewatch/internal/clock"
	"github.com/smallbiznis/pricewatch/internal/ledger/domain"
	"github.com/smallbiznis/pricewatch/internal/ledger/lock"
	"github.com/smallbiznis/pricewatch/internal/observation"
	obsmetrics "github.com/smallbiznis/pricewatch/internal/observability/metrics"
	"github.com/smallbiznis/pricewatch/internal/observability/tracing"
	"github.com/smallbiznis/pricewatch/pkg/db"
	"github.com/smallbiznis/pricewatch/pkg/money"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tracerName = "pricewatch/ledger"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Clock      clock.Clock
	Locker     domain.Locker       `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	clock      clock.Clock
	locker     domain.Locker
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	locker := p.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		clock:      clk,
		locker:     locker,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) RecordObservation(ctx context.Context, obs observation.ProductObservation) (id snowflake.ID, err error) {
	name := strings.TrimSpace(obs.Name)
	if name == "" {
		return 0, domain.ErrInvalidName
	}
	source := strings.TrimSpace(obs.Source)
	if source == "" {
		return 0, domain.ErrInvalidSource
	}
	if obs.Price.IsNegative() || !money.InRange(obs.Price) {
		return 0, domain.ErrInvalidPrice
	}
	price := money.ToMinor(obs.Price)

	var url *string
	if u := strings.TrimSpace(obs.URL); u != "" {
		url = &u
	}

	ctx, span := tracing.StartSpan(ctx, tracerName, "ledger.RecordObservation",
		attribute.String("source", source),
		attribute.String("product.name", name),
	)
	defer func() { tracing.EndSpan(span, err) }()

	unlock, err := s.locker.Lock(ctx, lockKey(name, source))
	if err != nil {
		s.obsMetrics.RecordLedgerWrite(ctx, source, string(domain.WriteOutcomeFailed))
		return 0, fmt.Errorf("%w: acquire lock for %s/%s: %w", domain.ErrStorageFailure, source, name, err)
	}
	defer unlock()

	// once the lock is held the write runs to completion
	writeCtx := context.WithoutCancel(ctx)

	id, outcome, err := s.upsert(writeCtx, name, source, price, url)
	if err != nil && db.IsDuplicateKeyErr(err) {
		// another instance inserted the row first; the second pass takes the update path
		id, outcome, err = s.upsert(writeCtx, name, source, price, url)
	}
	if err != nil {
		s.obsMetrics.RecordLedgerWrite(ctx, source, string(domain.WriteOutcomeFailed))
		s.log.Error("failed to record observation",
			zap.String("name", name),
			zap.String("source", source),
			zap.Error(err),
		)
		return 0, fmt.Errorf("%w: record %s/%s: %w", domain.ErrStorageFailure, source, name, err)
	}

	s.obsMetrics.RecordLedgerWrite(ctx, source, string(outcome))
	if outcome != domain.WriteOutcomeUnchanged {
		s.obsMetrics.RecordHistoryEntry(ctx, source)
	}
	s.log.Debug("observation recorded",
		zap.String("name", name),
		zap.String("source", source),
		zap.String("price", money.Format(money.FromMinor(price))),
		zap.String("outcome", string(outcome)),
		zap.String("product_id", id.String()),
	)
	return id, nil
}

func (s *Service) upsert(ctx context.Context, name, source string, price int64, url *string) (snowflake.ID, domain.WriteOutcome, error) {
	var (
		id      snowflake.ID
		outcome domain.WriteOutcome
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now().UTC()

		existing, err := s.repo.FindByKey(ctx, tx, name, source, true)
		if err != nil {
			return err
		}

		if existing == nil {
			product := &domain.Product{
				ID:        s.genID.Generate(),
				Name:      name,
				Source:    source,
				Price:     price,
				URL:       url,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.repo.InsertProduct(ctx, tx, product); err != nil {
				return err
			}
			if err := s.appendHistory(ctx, tx, product.ID, price, now); err != nil {
				return err
			}
			id, outcome = product.ID, domain.WriteOutcomeCreated
			return nil
		}

		id = existing.ID
		if existing.Price == price {
			outcome = domain.WriteOutcomeUnchanged
			return s.repo.Touch(ctx, tx, existing.ID, url, now)
		}

		if err := s.repo.UpdatePrice(ctx, tx, existing.ID, price, url, now); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, tx, existing.ID, price, now); err != nil {
			return err
		}
		outcome = domain.WriteOutcomeChanged
		return nil
	})
	if err != nil {
		return 0, domain.WriteOutcomeFailed, err
	}
	return id, outcome, nil
}

func (s *Service) appendHistory(ctx context.Context, tx *gorm.DB, productID snowflake.ID, price int64, at time.Time) error {
	return s.repo.AppendHistory(ctx, tx, &domain.PriceHistoryEntry{
		ID:         s.genID.Generate(),
		ProductID:  productID,
		Price:      price,
		RecordedAt: at,
	})
}

func (s *Service) GetProduct(ctx context.Context, id snowflake.ID) (domain.Product, error) {
	if id == 0 {
		return domain.Product{}, domain.ErrInvalidProductID
	}
	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Product{}, storageErr("get product", err)
	}
	if product == nil {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return *product, nil
}

func (s *Service) GetHistory(ctx context.Context, id snowflake.ID, filter domain.HistoryFilter) ([]domain.HistoryPoint, bool, error) {
	if id == 0 {
		return nil, false, nil
	}
	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, false, storageErr("get history", err)
	}
	if product == nil {
		return nil, false, nil
	}
	return s.history(ctx, product.ID, filter)
}

func (s *Service) GetHistoryByName(ctx context.Context, name, source string, filter domain.HistoryFilter) ([]domain.HistoryPoint, bool, error) {
	name = strings.TrimSpace(name)
	source = strings.TrimSpace(source)
	if name == "" || source == "" {
		return nil, false, nil
	}
	product, err := s.repo.FindByKey(ctx, s.db, name, source, false)
	if err != nil {
		return nil, false, storageErr("get history by name", err)
	}
	if product == nil {
		return nil, false, nil
	}
	return s.history(ctx, product.ID, filter)
}

func (s *Service) history(ctx context.Context, productID snowflake.ID, filter domain.HistoryFilter) ([]domain.HistoryPoint, bool, error) {
	entries, err := s.repo.ListHistory(ctx, s.db, productID, filter)
	if err != nil {
		return nil, true, storageErr("list history", err)
	}
	points := make([]domain.HistoryPoint, 0, len(entries))
	for _, entry := range entries {
		points = append(points, domain.HistoryPoint{
			Price:      money.FromMinor(entry.Price),
			RecordedAt: entry.RecordedAt.UTC(),
		})
	}
	return points, true, nil
}

func (s *Service) GetLowestPrice(ctx context.Context, name string) (decimal.Decimal, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return decimal.Zero, false, nil
	}
	lowest, ok, err := s.repo.LowestPrice(ctx, s.db, name)
	if err != nil {
		return decimal.Zero, false, storageErr("lowest price", err)
	}
	if !ok {
		return decimal.Zero, false, nil
	}
	return money.FromMinor(lowest), true, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.ProductKey, error) {
	keys, err := s.repo.ListKeys(ctx, s.db)
	if err != nil {
		return nil, storageErr("list products", err)
	}
	return keys, nil
}

func (s *Service) ListByName(ctx context.Context, name string) ([]domain.CurrentPrice, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	products, err := s.repo.ListByName(ctx, s.db, name)
	if err != nil {
		return nil, storageErr("list by name", err)
	}
	return toCurrentPrices(products), nil
}

func (s *Service) FindAtOrBelow(ctx context.Context, name string, maxPrice decimal.Decimal) ([]domain.CurrentPrice, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	// floor so a sub-cent limit never admits the next cent up
	limit := maxPrice.RoundFloor(money.Scale)
	if limit.IsNegative() || !money.InRange(limit) {
		return nil, domain.ErrInvalidPrice
	}
	products, err := s.repo.ListAtOrBelow(ctx, s.db, name, money.FloorToMinor(limit))
	if err != nil {
		return nil, storageErr("find at or below", err)
	}
	return toCurrentPrices(products), nil
}

func (s *Service) ListTracked(ctx context.Context) ([]domain.CurrentPrice, error) {
	products, err := s.repo.ListTracked(ctx, s.db)
	if err != nil {
		return nil, storageErr("list tracked", err)
	}
	return toCurrentPrices(products), nil
}

func toCurrentPrices(products []domain.Product) []domain.CurrentPrice {
	out := make([]domain.CurrentPrice, 0, len(products))
	for _, p := range products {
		out = append(out, domain.CurrentPrice{
			ProductID: p.ID,
			Name:      p.Name,
			Source:    p.Source,
			Price:     p.PriceDecimal(),
			URL:       p.URLString(),
			UpdatedAt: p.UpdatedAt.UTC(),
		})
	}
	return out
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageFailure, op, err)
}

func lockKey(name, source string) string {
	return name + "|" + source
}
