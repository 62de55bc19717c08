package product

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog row the cart and order workflows read from.
// Price is only ever copied into snapshots; stock is decremented at placement.
type Product struct {
	ID          uint
	Title       string
	Price       decimal.Decimal
	Currency    string
	InStock     int
	IsPublished bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type GetProductOptions struct {
	ProductID     uint
	OnlyPublished bool
}
