package checkout

import (
	"context"
	"time"

	"storefront-be/internal/cart"
	"storefront-be/internal/coupon"
	"storefront-be/internal/logger"
	"storefront-be/internal/order"
	"storefront-be/internal/session"
	"storefront-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	// View prices the current cart with the session's applied code, if it
	// still holds.
	View(ctx context.Context, v Viewer, method order.DeliveryMethod) (*View, error)
	Apply(ctx context.Context, v Viewer, f Form) (*View, error)
	Place(ctx context.Context, v Viewer, f Form) (*order.Order, error)
}

type Options struct {
	Currency string
	Now      func() time.Time
}

type service struct {
	carts   cart.Service
	coupons coupon.Service
	orders  order.Service
	store   session.Store
	opts    Options
}

func NewService(carts cart.Service, coupons coupon.Service, orders order.Service, store session.Store, opts Options) Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{
		carts:   carts,
		coupons: coupons,
		orders:  orders,
		store:   store,
		opts:    opts,
	}
}

func (s *service) baseView(ctx context.Context, v Viewer, method order.DeliveryMethod) (*View, error) {
	owner, err := s.carts.OwnerFor(ctx, v.UserID, v.SessionKey)
	if err != nil {
		return nil, err
	}
	sum, err := s.carts.Summary(ctx, owner)
	if err != nil {
		return nil, err
	}

	shipping := decimal.Zero
	if method.Valid() {
		shipping = s.orders.ShippingFor(method)
	}

	return &View{
		Lines:         sum.Lines,
		Subtotal:      utils.RoundMoney(sum.Subtotal),
		ShippingTotal: shipping,
		DiscountTotal: decimal.Zero,
		Total:         order.ComputeTotal(sum.Subtotal, decimal.Zero, shipping),
		Currency:      s.opts.Currency,
	}, nil
}

func (s *service) applyCoupon(view *View, c *coupon.Coupon) {
	q := coupon.QuoteFor(c, view.Subtotal)
	view.DiscountTotal = q.Discount
	view.Total = utils.RoundMoney(q.Total.Add(view.ShippingTotal))
	view.AppliedCode = q.Code
}

// selection never fails the caller; an unreadable store behaves as empty.
func (s *service) selection(ctx context.Context, key string) *session.CouponSelection {
	if key == "" {
		return nil
	}
	sel, err := s.store.GetCoupon(ctx, key)
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to read coupon selection", zap.Error(err))
		return nil
	}
	return sel
}

func (s *service) clearSelection(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.store.ClearCoupon(ctx, key); err != nil {
		logger.FromCtx(ctx).Warn("failed to clear coupon selection", zap.Error(err))
	}
}

func (s *service) View(ctx context.Context, v Viewer, method order.DeliveryMethod) (*View, error) {
	view, err := s.baseView(ctx, v, method)
	if err != nil {
		return nil, err
	}

	sel := s.selection(ctx, v.SessionKey)
	if sel == nil {
		return view, nil
	}

	identity := coupon.Identity{UserID: v.UserID, Email: v.Email}
	c, err := s.coupons.Evaluate(ctx, sel.Code, identity, view.Subtotal, s.opts.Now())
	if rej, ok := coupon.AsRejection(err); ok {
		s.clearSelection(ctx, v.SessionKey)
		view.addMessage(LevelError, rej.Message())
		return view, nil
	}
	if err != nil {
		return nil, err
	}

	s.applyCoupon(view, c)
	return view, nil
}

// Apply checks only the promo code; contact fields may still be empty. The
// typed email, if any, is what per-customer limits are counted against.
func (s *service) Apply(ctx context.Context, v Viewer, f Form) (*View, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Apply"),
	)

	view, err := s.baseView(ctx, v, order.DeliveryMethod(f.DeliveryMethod))
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	identity := coupon.Identity{UserID: v.UserID, Email: f.Email}
	c, err := s.coupons.Evaluate(ctx, f.PromoCode, identity, view.Subtotal, now)
	if rej, ok := coupon.AsRejection(err); ok {
		s.clearSelection(ctx, v.SessionKey)
		view.addMessage(LevelError, rej.Message())
		return view, nil
	}
	if err != nil {
		log.Error("coupon evaluation failed", zap.Error(err))
		return nil, err
	}

	if v.SessionKey != "" {
		sel := session.CouponSelection{Code: c.Code, Subtotal: view.Subtotal, SelectedAt: now}
		if err := s.store.SetCoupon(ctx, v.SessionKey, sel); err != nil {
			log.Error("failed to store coupon selection", zap.Error(err))
			return nil, err
		}
	}

	s.applyCoupon(view, c)
	view.addMessage(LevelSuccess, "Promo code applied.")
	return view, nil
}

func (s *service) Place(ctx context.Context, v Viewer, f Form) (*order.Order, error) {
	// folds the guest cart in for freshly authenticated shoppers
	if _, err := s.carts.OwnerFor(ctx, v.UserID, v.SessionKey); err != nil {
		return nil, err
	}

	applied := ""
	if sel := s.selection(ctx, v.SessionKey); sel != nil {
		applied = sel.Code
	}

	o, err := s.orders.Place(ctx, f.PlaceInput(v, applied))
	if err != nil {
		return nil, err
	}

	s.clearSelection(ctx, v.SessionKey)
	return o, nil
}
