package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository is stateless; callers pass the handle (or transaction) to use.
type Repository interface {
	FindByKey(ctx context.Context, db *gorm.DB, name, source string, forUpdate bool) (*Product, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	InsertProduct(ctx context.Context, db *gorm.DB, product *Product) error
	UpdatePrice(ctx context.Context, db *gorm.DB, id snowflake.ID, price int64, url *string, updatedAt time.Time) error
	Touch(ctx context.Context, db *gorm.DB, id snowflake.ID, url *string, updatedAt time.Time) error
	AppendHistory(ctx context.Context, db *gorm.DB, entry *PriceHistoryEntry) error

	ListHistory(ctx context.Context, db *gorm.DB, productID snowflake.ID, filter HistoryFilter) ([]PriceHistoryEntry, error)
	LowestPrice(ctx context.Context, db *gorm.DB, name string) (int64, bool, error)
	ListKeys(ctx context.Context, db *gorm.DB) ([]ProductKey, error)
	ListByName(ctx context.Context, db *gorm.DB, name string) ([]Product, error)
	ListAtOrBelow(ctx context.Context, db *gorm.DB, name string, maxPrice int64) ([]Product, error)
	ListTracked(ctx context.Context, db *gorm.DB) ([]Product, error)
}
