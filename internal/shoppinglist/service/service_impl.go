package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pricewatch/internal/clock"
	ledgerdomain "github.com/smallbiznis/pricewatch/internal/ledger/domain"
	savingsdomain "github.com/smallbiznis/pricewatch/internal/savings/domain"
	"github.com/smallbiznis/pricewatch/internal/shoppinglist/domain"
	"github.com/smallbiznis/pricewatch/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock
	Ledger  ledgerdomain.Service
	Savings savingsdomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	ledger  ledgerdomain.Service
	savings savingsdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("shoppinglist.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   p.Clock,
		ledger:  p.Ledger,
		savings: p.Savings,
	}
}

func (s *Service) CreateList(ctx context.Context, name string) (domain.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.List{}, domain.ErrInvalidName
	}

	now := s.clock.Now().UTC()
	list := domain.List{
		ID:        s.genID.Generate(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertList(ctx, s.db, &list); err != nil {
		return domain.List{}, storageErr("create list", err)
	}
	s.log.Info("shopping list created", zap.String("list_id", list.ID.String()), zap.String("name", name))
	return list, nil
}

func (s *Service) ListLists(ctx context.Context) ([]domain.List, error) {
	lists, err := s.repo.ListLists(ctx, s.db)
	if err != nil {
		return nil, storageErr("list lists", err)
	}
	return lists, nil
}

func (s *Service) GetList(ctx context.Context, id snowflake.ID) (domain.ListView, error) {
	list, err := s.findList(ctx, s.db, id)
	if err != nil {
		return domain.ListView{}, err
	}
	rows, err := s.repo.ListItems(ctx, s.db, list.ID)
	if err != nil {
		return domain.ListView{}, storageErr("list items", err)
	}

	view := domain.ListView{List: *list, Items: make([]domain.ItemView, 0, len(rows))}
	for _, row := range rows {
		view.Items = append(view.Items, toItemView(row))
	}
	return view, nil
}

func (s *Service) AddItem(ctx context.Context, listID snowflake.ID, req domain.AddItemRequest) (domain.ItemView, error) {
	if listID == 0 || req.ProductID == 0 {
		return domain.ItemView{}, domain.ErrInvalidID
	}
	if req.Quantity < 1 {
		return domain.ItemView{}, domain.ErrInvalidQuantity
	}

	product, err := s.ledger.GetProduct(ctx, req.ProductID)
	if err != nil {
		return domain.ItemView{}, err
	}

	var item domain.Item
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findList(ctx, tx, listID); err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		existing, err := s.repo.FindItemByProduct(ctx, tx, listID, product.ID)
		if err != nil {
			return storageErr("find item", err)
		}
		if existing != nil {
			if err := s.repo.AddQuantity(ctx, tx, existing.ID, req.Quantity, now); err != nil {
				return storageErr("update item", err)
			}
			item = *existing
			item.Quantity += req.Quantity
			item.UpdatedAt = now
		} else {
			item = domain.Item{
				ID:            s.genID.Generate(),
				ListID:        listID,
				ProductID:     product.ID,
				Quantity:      req.Quantity,
				RecordedPrice: product.Price,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := s.repo.InsertItem(ctx, tx, &item); err != nil {
				return storageErr("insert item", err)
			}
		}
		if err := s.repo.TouchList(ctx, tx, listID, now); err != nil {
			return storageErr("touch list", err)
		}
		return nil
	})
	if err != nil {
		return domain.ItemView{}, err
	}

	return domain.ItemView{
		ID:            item.ID,
		ProductID:     product.ID,
		Name:          product.Name,
		Source:        product.Source,
		URL:           product.URLString(),
		Quantity:      item.Quantity,
		RecordedPrice: money.FromMinor(item.RecordedPrice),
		CurrentPrice:  product.PriceDecimal(),
	}, nil
}

func (s *Service) RemoveItem(ctx context.Context, listID, itemID snowflake.ID) error {
	if listID == 0 || itemID == 0 {
		return domain.ErrInvalidID
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findList(ctx, tx, listID); err != nil {
			return err
		}
		affected, err := s.repo.DeleteItem(ctx, tx, listID, itemID)
		if err != nil {
			return storageErr("delete item", err)
		}
		if affected == 0 {
			return domain.ErrItemNotFound
		}
		return s.repo.TouchList(ctx, tx, listID, s.clock.Now().UTC())
	})
}

func (s *Service) LineItems(ctx context.Context, listID snowflake.ID) ([]savingsdomain.LineItem, error) {
	view, err := s.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	items := make([]savingsdomain.LineItem, 0, len(view.Items))
	for _, item := range view.Items {
		items = append(items, savingsdomain.LineItem{
			Name:          item.Name,
			Source:        item.Source,
			Quantity:      item.Quantity,
			RecordedPrice: item.RecordedPrice,
		})
	}
	return items, nil
}

func (s *Service) Price(ctx context.Context, listID snowflake.ID) (domain.Pricing, error) {
	items, err := s.LineItems(ctx, listID)
	if err != nil {
		return domain.Pricing{}, err
	}

	report, err := s.savings.Breakdown(ctx, items)
	if err != nil {
		return domain.Pricing{}, err
	}

	recorded := decimal.Zero
	for _, item := range items {
		recorded = recorded.Add(item.RecordedPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return domain.Pricing{
		ListID:        listID,
		RecordedTotal: recorded,
		LowestTotal:   recorded.Sub(report.Total),
		Savings:       report.Total,
		Lines:         report.Lines,
	}, nil
}

func (s *Service) findList(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.List, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	list, err := s.repo.FindList(ctx, db, id)
	if err != nil {
		return nil, storageErr("find list", err)
	}
	if list == nil {
		return nil, domain.ErrListNotFound
	}
	return list, nil
}

func toItemView(row domain.ItemRow) domain.ItemView {
	view := domain.ItemView{
		ID:            row.ID,
		ProductID:     row.ProductID,
		Name:          row.Name,
		Source:        row.Source,
		Quantity:      row.Quantity,
		RecordedPrice: money.FromMinor(row.RecordedPrice),
		CurrentPrice:  money.FromMinor(row.CurrentPrice),
	}
	if row.URL != nil {
		view.URL = *row.URL
	}
	return view
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ledgerdomain.ErrStorageFailure, op, err)
}
