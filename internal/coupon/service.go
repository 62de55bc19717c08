package coupon

import (
	"context"
	"strings"
	"time"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	// Evaluate runs the checks in order and stops at the first failure,
	// returned as a *Rejection. Other errors are infrastructure failures.
	Evaluate(ctx context.Context, code string, identity Identity, subtotal decimal.Decimal, now time.Time) (*Coupon, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Evaluate(ctx context.Context, code string, identity Identity, subtotal decimal.Decimal, now time.Time) (*Coupon, error) {
	c, err := s.evaluate(ctx, code, identity, subtotal, now)
	if rej, ok := AsRejection(err); ok {
		logger.FromCtx(ctx).Debug("coupon rejected",
			zap.String("layer", "service"),
			zap.String("method", "Evaluate"),
			zap.String("code", code),
			zap.String("reason", rej.Code()),
		)
		metrics.Default().CouponRejected(ctx, rej.Code())
	}
	return c, err
}

func (s *service) evaluate(ctx context.Context, code string, identity Identity, subtotal decimal.Decimal, now time.Time) (*Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, reject(ErrCodeMissing)
	}

	c, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, reject(ErrNotFound)
	}

	if !c.ActiveAt(now) {
		return nil, reject(ErrExpired)
	}

	if subtotal.LessThan(c.MinTotal) {
		return nil, &Rejection{Reason: ErrBelowMinimum, MinTotal: c.MinTotal}
	}

	if c.UsageLimitTotal != nil {
		used, err := s.repo.CountRedemptions(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if used >= *c.UsageLimitTotal {
			return nil, reject(ErrTotalLimitReached)
		}
	}

	if c.UsageLimitPerUser != nil {
		used, err := s.repo.CountRedemptionsBy(ctx, c.ID, identity)
		if err != nil {
			return nil, err
		}
		if used >= *c.UsageLimitPerUser {
			return nil, reject(ErrPerUserLimitReached)
		}
	}

	return c, nil
}

var hundred = decimal.NewFromInt(100)

// ComputeDiscount never exceeds subtotal and rounds half-up to cents. A nil
// coupon discounts nothing.
func ComputeDiscount(c *Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch c.Kind {
	case KindPercent:
		discount = decimal.Min(subtotal.Mul(c.Value).Div(hundred), subtotal)
	case KindFixed:
		discount = decimal.Min(c.Value, subtotal)
	default:
		return decimal.Zero
	}

	return utils.RoundMoney(utils.ClampZero(discount))
}

// QuoteFor prices a subtotal with the coupon applied, before shipping.
func QuoteFor(c *Coupon, subtotal decimal.Decimal) Quote {
	q := Quote{
		Subtotal: utils.RoundMoney(subtotal),
		Discount: ComputeDiscount(c, subtotal),
	}
	if c != nil {
		q.Code = c.Code
	}
	q.Total = utils.RoundMoney(utils.ClampZero(subtotal.Sub(q.Discount)))
	return q
}
