package order

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"storefront-be/internal/cart"
	"storefront-be/internal/coupon"
	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	Place(ctx context.Context, in PlaceInput) (*Order, error)
	Get(ctx context.Context, id uint, viewerID *uint) (*Order, error)
	ListForUser(ctx context.Context, userID uint, limit, page int) ([]Order, error)
	ConfirmPayment(ctx context.Context, id uint) (PaymentOutcome, error)
	UpdateStatus(ctx context.Context, id uint, to Status, trackingNumber string) error
	SendPaymentReminders(ctx context.Context) (int, error)
	ShippingFor(method DeliveryMethod) decimal.Decimal
}

// Notifier is poked after an order-related commit so queued events go out
// without waiting for the next poll.
type Notifier interface {
	Wake()
}

type Options struct {
	Currency    string
	ShippingFee decimal.Decimal
	Now         func() time.Time
}

const (
	reminderAfter  = 24 * time.Hour
	reminderWithin = 48 * time.Hour
	reminderBatch  = 100
)

type service struct {
	repo     Repository
	carts    cart.Service
	coupons  coupon.Service
	notifier Notifier
	opts     Options
}

func NewService(repo Repository, carts cart.Service, coupons coupon.Service, notifier Notifier, opts Options) Service {
	if opts.Currency == "" {
		opts.Currency = "GEL"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{
		repo:     repo,
		carts:    carts,
		coupons:  coupons,
		notifier: notifier,
		opts:     opts,
	}
}

// ValidatePlaceInput checks the contact and address fields in form order and
// reports the first offending field.
func ValidatePlaceInput(in PlaceInput) error {
	if !in.DeliveryMethod.Valid() {
		return &ValidationError{Field: "delivery_method", Message: ErrInvalidDeliveryMethod.Error()}
	}
	if strings.TrimSpace(in.CustomerName) == "" {
		return &ValidationError{Field: "customer_name", Message: "This field is required."}
	}
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "This field is required."}
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Message: "Enter a valid email address."}
	}
	if strings.TrimSpace(in.Phone) == "" {
		return &ValidationError{Field: "phone", Message: "This field is required."}
	}
	if in.DeliveryMethod.RequiresAddress() && strings.TrimSpace(in.ShippingAddress) == "" {
		return &ValidationError{Field: "shipping_address", Message: "Please provide a delivery address."}
	}
	if !in.BillingSame && strings.TrimSpace(in.BillingAddress) == "" {
		return &ValidationError{Field: "billing_address", Message: "Please provide a billing address."}
	}
	return nil
}

// ComputeTotal is subtotal - discount + shipping, floored at zero and
// rounded to cents.
func ComputeTotal(subtotal, discount, shipping decimal.Decimal) decimal.Decimal {
	return utils.RoundMoney(utils.ClampZero(subtotal.Sub(discount).Add(shipping)))
}

func (s *service) ShippingFor(method DeliveryMethod) decimal.Decimal {
	if method.RequiresAddress() {
		return utils.RoundMoney(s.opts.ShippingFee)
	}
	return decimal.Zero
}

func identityFor(in PlaceInput) coupon.Identity {
	return coupon.Identity{UserID: in.UserID, Email: strings.TrimSpace(in.Email)}
}

func ownerFor(in PlaceInput) cart.Owner {
	if in.UserID != nil {
		return cart.AccountOwner(*in.UserID)
	}
	return cart.GuestOwner(in.SessionKey)
}

func (s *service) Place(ctx context.Context, in PlaceInput) (*Order, error) {
	timer := metrics.StartTimer()
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Place"),
	)

	if err := ValidatePlaceInput(in); err != nil {
		return nil, err
	}

	c, err := s.carts.Find(ctx, ownerFor(in))
	if err != nil {
		log.Error("failed to load cart", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPlacementFailed, err)
	}
	if c == nil || c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	subtotal := c.Subtotal()
	identity := identityFor(in)

	cp, err := s.resolveCoupon(ctx, in, identity, subtotal)
	if err != nil {
		return nil, err
	}

	discount := coupon.ComputeDiscount(cp, subtotal)
	shipping := s.ShippingFor(in.DeliveryMethod)
	now := s.opts.Now()

	shippingAddress := strings.TrimSpace(in.ShippingAddress)
	billingAddress := strings.TrimSpace(in.BillingAddress)
	if in.BillingSame {
		billingAddress = shippingAddress
	}

	o := &Order{
		UserID:          in.UserID,
		Status:          StatusPending,
		DeliveryMethod:  in.DeliveryMethod,
		Total:           ComputeTotal(subtotal, discount, shipping),
		DiscountTotal:   discount,
		ShippingTotal:   shipping,
		Currency:        s.opts.Currency,
		Email:           strings.TrimSpace(in.Email),
		Phone:           strings.TrimSpace(in.Phone),
		CustomerName:    strings.TrimSpace(in.CustomerName),
		ShippingAddress: Address{Line: shippingAddress},
		BillingAddress:  Address{Line: billingAddress},
		PaymentProvider: PaymentProviderMock,
		PaymentIntentID: utils.GeneratePaymentReference("MP"),
		PlacedAt:        &now,
		Lines:           make([]OrderLine, 0, len(c.Lines)),
	}
	if cp != nil {
		o.CouponID = &cp.ID
	}
	for _, l := range c.Lines {
		o.Lines = append(o.Lines, OrderLine{
			ProductID: l.ProductID,
			Title:     l.Title,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}

	err = s.repo.Place(ctx, o, c.ID, identity)
	if rej, ok := coupon.AsRejection(err); ok && o.CouponID != nil && strings.TrimSpace(in.PromoCode) == "" {
		// A session-applied code lost its last use to a concurrent order.
		log.Warn("applied coupon dropped under lock",
			zap.String("code", strings.TrimSpace(in.AppliedCode)),
			zap.String("reason", rej.Code()),
		)
		o.CouponID = nil
		o.DiscountTotal = decimal.Zero
		o.Total = ComputeTotal(subtotal, decimal.Zero, shipping)
		err = s.repo.Place(ctx, o, c.ID, identity)
	}
	if err != nil {
		if _, ok := coupon.AsRejection(err); ok {
			return nil, err
		}
		log.Error("order placement rolled back", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPlacementFailed, err)
	}

	s.notify(ctx)
	metrics.Default().OrderPlaced(ctx, string(o.DeliveryMethod), timer.Duration())

	log.Info("order placed",
		zap.Uint("order_id", o.ID),
		zap.String("total", utils.FormatMoney(o.Total)),
		zap.String("discount_total", utils.FormatMoney(o.DiscountTotal)),
	)
	return o, nil
}

// resolveCoupon prefers the code typed on this submission; its rejection
// aborts the placement. A code applied earlier in the session is re-checked
// and silently dropped when it no longer holds, here or under the lock in
// Place.
func (s *service) resolveCoupon(ctx context.Context, in PlaceInput, identity coupon.Identity, subtotal decimal.Decimal) (*coupon.Coupon, error) {
	now := s.opts.Now()

	if code := strings.TrimSpace(in.PromoCode); code != "" {
		return s.coupons.Evaluate(ctx, code, identity, subtotal, now)
	}

	code := strings.TrimSpace(in.AppliedCode)
	if code == "" {
		return nil, nil
	}

	cp, err := s.coupons.Evaluate(ctx, code, identity, subtotal, now)
	if rej, ok := coupon.AsRejection(err); ok {
		logger.FromCtx(ctx).Warn("applied coupon dropped at placement",
			zap.String("code", code),
			zap.String("reason", rej.Code()),
		)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPlacementFailed, err)
	}
	return cp, nil
}

// notify never fails the caller.
func (s *service) notify(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.FromCtx(ctx).Error("order notifier panicked", zap.Any("panic", r))
		}
	}()
	s.notifier.Wake()
}

func (s *service) Get(ctx context.Context, id uint, viewerID *uint) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if !o.OwnedBy(viewerID) {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *service) ListForUser(ctx context.Context, userID uint, limit, page int) ([]Order, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page <= 0 {
		page = 1
	}
	return s.repo.ListByUser(ctx, userID, limit, (page-1)*limit)
}

// ConfirmPayment applies a verified "paid" report from the payment provider.
func (s *service) ConfirmPayment(ctx context.Context, id uint) (PaymentOutcome, error) {
	outcome, err := s.repo.MarkPaid(ctx, id, s.opts.Now())
	if err != nil {
		return "", err
	}
	if outcome == PaymentApplied {
		s.notify(ctx)
	}
	return outcome, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uint, to Status, trackingNumber string) error {
	if !to.Valid() {
		return ErrInvalidStatus
	}
	if err := s.repo.UpdateStatus(ctx, id, to, strings.TrimSpace(trackingNumber)); err != nil {
		return err
	}

	logger.FromCtx(ctx).Info("order status updated",
		zap.String("layer", "service"),
		zap.Uint("order_id", id),
		zap.String("status", string(to)),
	)
	return nil
}

// SendPaymentReminders queues one reminder per order left pending for
// 24 to 48 hours.
func (s *service) SendPaymentReminders(ctx context.Context) (int, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "SendPaymentReminders"),
	)

	now := s.opts.Now()
	due, err := s.repo.DueReminders(ctx, now.Add(-reminderAfter), now.Add(-reminderWithin), reminderBatch)
	if err != nil {
		log.Error("failed to load due reminders", zap.Error(err))
		return 0, err
	}

	sent := 0
	for _, d := range due {
		ok, err := s.repo.MarkReminded(ctx, d)
		if err != nil {
			log.Error("failed to queue reminder", zap.Uint("order_id", d.OrderID), zap.Error(err))
			continue
		}
		if ok {
			sent++
		}
	}

	if sent > 0 {
		s.notify(ctx)
		log.Info("payment reminders queued", zap.Int("count", sent))
	}
	return sent, nil
}
