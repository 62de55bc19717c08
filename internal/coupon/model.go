package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindPercent Kind = "percent"
	KindFixed   Kind = "fixed"
)

type Coupon struct {
	ID                uint
	Code              string
	Kind              Kind
	Value             decimal.Decimal
	MinTotal          decimal.Decimal
	StartsAt          time.Time
	EndsAt            time.Time
	UsageLimitTotal   *int
	UsageLimitPerUser *int
	IsActive          bool
	// Stackable is stored but a checkout only ever carries one coupon.
	Stackable bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ActiveAt reports whether the coupon is switched on and now falls inside
// [StartsAt, EndsAt].
func (c *Coupon) ActiveAt(now time.Time) bool {
	return c.IsActive && !now.Before(c.StartsAt) && !now.After(c.EndsAt)
}

// Identity is who a redemption is counted against: the account when
// authenticated, otherwise the contact email.
type Identity struct {
	UserID *uint
	Email  string
}

type Quote struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount_total"`
	Total    decimal.Decimal `json:"total"`
}
