package coupon

import (
	"errors"
	"fmt"

	"storefront-be/internal/utils"

	"github.com/shopspring/decimal"
)

var (
	// -- Rejection reasons, in evaluation order --
	ErrCodeMissing         = errors.New("coupon code missing")
	ErrNotFound            = errors.New("coupon not found")
	ErrExpired             = errors.New("coupon expired or inactive")
	ErrBelowMinimum        = errors.New("subtotal below coupon minimum")
	ErrTotalLimitReached   = errors.New("coupon usage limit reached")
	ErrPerUserLimitReached = errors.New("coupon per-user usage limit reached")
)

// Rejection is a business-rule refusal. It unwraps to one of the reason
// sentinels above.
type Rejection struct {
	Reason   error
	MinTotal decimal.Decimal
}

func reject(reason error) *Rejection {
	return &Rejection{Reason: reason}
}

func (r *Rejection) Error() string {
	return r.Reason.Error()
}

func (r *Rejection) Unwrap() error {
	return r.Reason
}

// Message is the text shown next to the promo code field.
func (r *Rejection) Message() string {
	switch r.Reason {
	case ErrCodeMissing:
		return "Promo code is not specified."
	case ErrNotFound:
		return "Promo code not found."
	case ErrExpired:
		return "Promo code has expired or is not active."
	case ErrBelowMinimum:
		return fmt.Sprintf("Minimum order total for this promo code: %s.", utils.FormatMoney(r.MinTotal))
	case ErrTotalLimitReached:
		return "Promo code usage limit has been reached."
	case ErrPerUserLimitReached:
		return "You have already used this promo code the maximum number of times."
	default:
		return "Promo code cannot be applied."
	}
}

// Code is a stable label for metrics and API clients.
func (r *Rejection) Code() string {
	switch r.Reason {
	case ErrCodeMissing:
		return "code_missing"
	case ErrNotFound:
		return "not_found"
	case ErrExpired:
		return "expired"
	case ErrBelowMinimum:
		return "below_minimum"
	case ErrTotalLimitReached:
		return "total_limit_reached"
	case ErrPerUserLimitReached:
		return "per_user_limit_reached"
	default:
		return "unknown"
	}
}

func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
