package session

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CookieName = "sf_session"
	keyLength  = 32
)

// CouponSelection is the code a shopper applied on the checkout page and the
// subtotal it was applied against. It is a hint only: every read re-evaluates
// the code.
type CouponSelection struct {
	Code       string          `json:"code"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	SelectedAt time.Time       `json:"selected_at"`
}
