package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/pricewatch/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const productColumns = `id, name, source, price, url, created_at, updated_at`

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, name, source string, forUpdate bool) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE name = ? AND source = ?`
	if forUpdate && supportsRowLocks(db) {
		query += ` FOR UPDATE`
	}

	var product domain.Product
	if err := db.WithContext(ctx).Raw(query, name, source).Scan(&product).Error; err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT `+productColumns+` FROM products WHERE id = ?`,
		id,
	).Scan(&product).Error
	if err != nil {
		return nil, err
	}
	if product.ID == 0 {
		return nil, nil
	}
	return &product, nil
}

func (r *repo) InsertProduct(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (id, name, source, price, url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Name,
		product.Source,
		product.Price,
		product.URL,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) UpdatePrice(ctx context.Context, db *gorm.DB, id snowflake.ID, price int64, url *string, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products SET price = ?, url = COALESCE(?, url), updated_at = ? WHERE id = ?`,
		price,
		url,
		updatedAt,
		id,
	).Error
}

func (r *repo) Touch(ctx context.Context, db *gorm.DB, id snowflake.ID, url *string, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE products SET url = COALESCE(?, url), updated_at = ? WHERE id = ?`,
		url,
		updatedAt,
		id,
	).Error
}

func (r *repo) AppendHistory(ctx context.Context, db *gorm.DB, entry *domain.PriceHistoryEntry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO price_history (id, product_id, price, recorded_at) VALUES (?, ?, ?, ?)`,
		entry.ID,
		entry.ProductID,
		entry.Price,
		entry.RecordedAt,
	).Error
}

func (r *repo) ListHistory(ctx context.Context, db *gorm.DB, productID snowflake.ID, filter domain.HistoryFilter) ([]domain.PriceHistoryEntry, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.PriceHistoryEntry{}).
		Where("product_id = ?", productID)
	if !filter.Since.IsZero() {
		stmt = stmt.Where("recorded_at >= ?", filter.Since.UTC())
	}

	var entries []domain.PriceHistoryEntry
	// snowflake ids grow with insertion order, which breaks recorded_at ties
	err := stmt.Order("recorded_at desc, id desc").Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) LowestPrice(ctx context.Context, db *gorm.DB, name string) (int64, bool, error) {
	var row struct {
		N      int64
		Lowest *int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) AS n, MIN(price) AS lowest FROM products WHERE name = ?`,
		name,
	).Scan(&row).Error
	if err != nil {
		return 0, false, err
	}
	if row.N == 0 || row.Lowest == nil {
		return 0, false, nil
	}
	return *row.Lowest, true, nil
}

func (r *repo) ListKeys(ctx context.Context, db *gorm.DB) ([]domain.ProductKey, error) {
	var keys []domain.ProductKey
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT name, source FROM products ORDER BY name, source`,
	).Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *repo) ListByName(ctx context.Context, db *gorm.DB, name string) ([]domain.Product, error) {
	var products []domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT `+productColumns+` FROM products WHERE name = ? ORDER BY price, source`,
		name,
	).Scan(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) ListAtOrBelow(ctx context.Context, db *gorm.DB, name string, maxPrice int64) ([]domain.Product, error) {
	var products []domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT `+productColumns+` FROM products WHERE name = ? AND price <= ? ORDER BY price, source`,
		name,
		maxPrice,
	).Scan(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) ListTracked(ctx context.Context, db *gorm.DB) ([]domain.Product, error) {
	var products []domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT ` + productColumns + ` FROM products WHERE url IS NOT NULL AND url <> '' ORDER BY source, name`,
	).Scan(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func supportsRowLocks(db *gorm.DB) bool {
	if db == nil || db.Dialector == nil {
		return false
	}
	return db.Dialector.Name() != "sqlite"
}
