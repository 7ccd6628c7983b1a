package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	savingsdomain "github.com/smallbiznis/pricewatch/internal/savings/domain"
)

type Service interface {
	CreateList(ctx context.Context, name string) (List, error)
	ListLists(ctx context.Context) ([]List, error)
	GetList(ctx context.Context, id snowflake.ID) (ListView, error)
	// AddItem adds a product at its current price. Adding a product that is
	// already on the list increases its quantity.
	AddItem(ctx context.Context, listID snowflake.ID, req AddItemRequest) (ItemView, error)
	RemoveItem(ctx context.Context, listID, itemID snowflake.ID) error
	LineItems(ctx context.Context, listID snowflake.ID) ([]savingsdomain.LineItem, error)
	Price(ctx context.Context, listID snowflake.ID) (Pricing, error)
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrListNotFound    = errors.New("list_not_found")
	ErrItemNotFound    = errors.New("item_not_found")
)
