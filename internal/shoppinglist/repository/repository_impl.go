package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pricewatch/internal/shoppinglist/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertList(ctx context.Context, db *gorm.DB, list *domain.List) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO shopping_lists (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		list.ID,
		list.Name,
		list.CreatedAt,
		list.UpdatedAt,
	).Error
}

func (r *repo) FindList(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.List, error) {
	var list domain.List
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, created_at, updated_at FROM shopping_lists WHERE id = ?`,
		id,
	).Scan(&list).Error
	if err != nil {
		return nil, err
	}
	if list.ID == 0 {
		return nil, nil
	}
	return &list, nil
}

func (r *repo) ListLists(ctx context.Context, db *gorm.DB) ([]domain.List, error) {
	var lists []domain.List
	err := db.WithContext(ctx).
		Model(&domain.List{}).
		Order("created_at desc, id desc").
		Find(&lists).Error
	if err != nil {
		return nil, err
	}
	return lists, nil
}

func (r *repo) TouchList(ctx context.Context, db *gorm.DB, id snowflake.ID, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE shopping_lists SET updated_at = ? WHERE id = ?`,
		updatedAt,
		id,
	).Error
}

func (r *repo) FindItemByProduct(ctx context.Context, db *gorm.DB, listID, productID snowflake.ID) (*domain.Item, error) {
	var item domain.Item
	err := db.WithContext(ctx).Raw(
		`SELECT id, list_id, product_id, quantity, recorded_price, created_at, updated_at
		 FROM shopping_list_items WHERE list_id = ? AND product_id = ?`,
		listID,
		productID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *domain.Item) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO shopping_list_items (id, list_id, product_id, quantity, recorded_price, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.ListID,
		item.ProductID,
		item.Quantity,
		item.RecordedPrice,
		item.CreatedAt,
		item.UpdatedAt,
	).Error
}

func (r *repo) AddQuantity(ctx context.Context, db *gorm.DB, itemID snowflake.ID, delta int, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE shopping_list_items SET quantity = quantity + ?, updated_at = ? WHERE id = ?`,
		delta,
		updatedAt,
		itemID,
	).Error
}

func (r *repo) DeleteItem(ctx context.Context, db *gorm.DB, listID, itemID snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM shopping_list_items WHERE list_id = ? AND id = ?`,
		listID,
		itemID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, listID snowflake.ID) ([]domain.ItemRow, error) {
	var rows []domain.ItemRow
	err := db.WithContext(ctx).Raw(
		`SELECT i.id, i.product_id, p.name, p.source, p.url, i.quantity, i.recorded_price,
		        p.price AS current_price, i.created_at
		 FROM shopping_list_items i
		 JOIN products p ON p.id = i.product_id
		 WHERE i.list_id = ?
		 ORDER BY i.created_at, i.id`,
		listID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
