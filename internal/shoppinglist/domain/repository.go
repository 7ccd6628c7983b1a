package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertList(ctx context.Context, db *gorm.DB, list *List) error
	FindList(ctx context.Context, db *gorm.DB, id snowflake.ID) (*List, error)
	ListLists(ctx context.Context, db *gorm.DB) ([]List, error)
	TouchList(ctx context.Context, db *gorm.DB, id snowflake.ID, updatedAt time.Time) error

	FindItemByProduct(ctx context.Context, db *gorm.DB, listID, productID snowflake.ID) (*Item, error)
	InsertItem(ctx context.Context, db *gorm.DB, item *Item) error
	AddQuantity(ctx context.Context, db *gorm.DB, itemID snowflake.ID, delta int, updatedAt time.Time) error
	DeleteItem(ctx context.Context, db *gorm.DB, listID, itemID snowflake.ID) (int64, error)
	ListItems(ctx context.Context, db *gorm.DB, listID snowflake.ID) ([]ItemRow, error)
}
