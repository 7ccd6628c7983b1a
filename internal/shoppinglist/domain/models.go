package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	savingsdomain "github.com/smallbiznis/pricewatch/internal/savings/domain"
)

type List struct {
	ID        snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name      string       `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (List) TableName() string { return "shopping_lists" }

// Item references a ledger product. RecordedPrice is the product's price, in
// minor units, when the item was first added.
type Item struct {
	ID            snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ListID        snowflake.ID `gorm:"not null;uniqueIndex:ux_shopping_list_items_list_product,priority:1" json:"list_id"`
	ProductID     snowflake.ID `gorm:"not null;uniqueIndex:ux_shopping_list_items_list_product,priority:2" json:"product_id"`
	Quantity      int          `gorm:"not null" json:"quantity"`
	RecordedPrice int64        `gorm:"not null" json:"recorded_price"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
}

func (Item) TableName() string { return "shopping_list_items" }

// ItemRow is an item joined with its product.
type ItemRow struct {
	ID            snowflake.ID
	ProductID     snowflake.ID
	Name          string
	Source        string
	URL           *string
	Quantity      int
	RecordedPrice int64
	CurrentPrice  int64
	CreatedAt     time.Time
}

type ItemView struct {
	ID            snowflake.ID    `json:"id"`
	ProductID     snowflake.ID    `json:"product_id"`
	Name          string          `json:"name"`
	Source        string          `json:"source"`
	URL           string          `json:"url,omitempty"`
	Quantity      int             `json:"quantity"`
	RecordedPrice decimal.Decimal `json:"recorded_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
}

type ListView struct {
	List
	Items []ItemView `json:"items"`
}

type AddItemRequest struct {
	ProductID snowflake.ID
	Quantity  int
}

// Pricing totals a list at recorded prices and at the cheapest known price
// per name.
type Pricing struct {
	ListID        snowflake.ID         `json:"list_id"`
	RecordedTotal decimal.Decimal      `json:"recorded_total"`
	LowestTotal   decimal.Decimal      `json:"lowest_total"`
	Savings       decimal.Decimal      `json:"savings"`
	Lines         []savingsdomain.Line `json:"lines"`
}
