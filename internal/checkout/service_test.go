package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-be/internal/cart"
	"storefront-be/internal/coupon"
	"storefront-be/internal/order"
	"storefront-be/internal/session"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCartService overrides only what checkout calls.
type MockCartService struct {
	mock.Mock
	cart.Service
}

func (m *MockCartService) OwnerFor(ctx context.Context, userID *uint, sessionKey string) (cart.Owner, error) {
	args := m.Called(ctx, userID, sessionKey)
	return args.Get(0).(cart.Owner), args.Error(1)
}

func (m *MockCartService) Summary(ctx context.Context, owner cart.Owner) (*cart.Summary, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Summary), args.Error(1)
}

type MockCouponService struct {
	mock.Mock
}

func (m *MockCouponService) Evaluate(ctx context.Context, code string, identity coupon.Identity, subtotal decimal.Decimal, now time.Time) (*coupon.Coupon, error) {
	args := m.Called(ctx, code, identity, subtotal, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*coupon.Coupon), args.Error(1)
}

type MockOrderService struct {
	mock.Mock
	order.Service
}

func (m *MockOrderService) Place(ctx context.Context, in order.PlaceInput) (*order.Order, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ShippingFor(method order.DeliveryMethod) decimal.Decimal {
	return m.Called(method).Get(0).(decimal.Decimal)
}

const sessionKey = "0123456789abcdef0123456789abcdef"

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func save10() *coupon.Coupon {
	return &coupon.Coupon{ID: 7, Code: "SAVE10", Kind: coupon.KindPercent, Value: dec("10"), IsActive: true}
}

type fixture struct {
	carts   *MockCartService
	coupons *MockCouponService
	orders  *MockOrderService
	store   *session.MemoryStore
	svc     Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		carts:   new(MockCartService),
		coupons: new(MockCouponService),
		orders:  new(MockOrderService),
		store:   session.NewMemoryStore(time.Hour),
	}
	f.svc = NewService(f.carts, f.coupons, f.orders, f.store, Options{
		Currency: "GEL",
		Now:      func() time.Time { return fixedNow },
	})
	return f
}

func (f *fixture) guestCart(subtotal string) {
	owner := cart.GuestOwner(sessionKey)
	f.carts.On("OwnerFor", mock.Anything, (*uint)(nil), sessionKey).Return(owner, nil)
	f.carts.On("Summary", mock.Anything, owner).Return(&cart.Summary{
		CartID: 1,
		Lines: []cart.CartLine{
			{ID: 1, ProductID: 10, Title: "Mug", Quantity: 1, UnitPrice: dec(subtotal)},
		},
		ItemCount: 1,
		Subtotal:  dec(subtotal),
	}, nil)
}

func guest() Viewer {
	return Viewer{SessionKey: sessionKey}
}

func TestService_ViewWithoutSelection(t *testing.T) {
	f := newFixture(t)
	f.guestCart("250.00")

	view, err := f.svc.View(context.Background(), guest(), "")
	require.NoError(t, err)

	assert.True(t, view.Subtotal.Equal(dec("250")))
	assert.True(t, view.DiscountTotal.IsZero())
	assert.True(t, view.Total.Equal(dec("250")))
	assert.Equal(t, "", view.AppliedCode)
	assert.Equal(t, "GEL", view.Currency)
	f.coupons.AssertNotCalled(t, "Evaluate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ApplyStoresSelection(t *testing.T) {
	f := newFixture(t)
	f.guestCart("250.00")
	f.coupons.On("Evaluate", mock.Anything, "save10", coupon.Identity{Email: "a@b.ge"}, mock.Anything, fixedNow).
		Return(save10(), nil)

	view, err := f.svc.Apply(context.Background(), guest(), Form{PromoCode: "save10", Email: "a@b.ge"})
	require.NoError(t, err)

	assert.True(t, view.DiscountTotal.Equal(dec("25")))
	assert.True(t, view.Total.Equal(dec("225")))
	assert.Equal(t, "SAVE10", view.AppliedCode)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, LevelSuccess, view.Messages[0].Level)

	sel, err := f.store.GetCoupon(context.Background(), sessionKey)
	require.NoError(t, err)
	require.NotNil(t, sel)
	assert.Equal(t, "SAVE10", sel.Code)
	assert.True(t, sel.Subtotal.Equal(dec("250")))
}

func TestService_ApplyWithShipping(t *testing.T) {
	f := newFixture(t)
	f.guestCart("250.00")
	f.orders.On("ShippingFor", order.DeliveryAddress).Return(dec("5.00"))
	f.coupons.On("Evaluate", mock.Anything, "SAVE10", mock.Anything, mock.Anything, fixedNow).Return(save10(), nil)

	view, err := f.svc.Apply(context.Background(), guest(), Form{PromoCode: "SAVE10", DeliveryMethod: "address"})
	require.NoError(t, err)

	assert.True(t, view.ShippingTotal.Equal(dec("5")))
	assert.True(t, view.Total.Equal(dec("230")))
}

func TestService_ApplyFullCoverStillChargesShipping(t *testing.T) {
	f := newFixture(t)
	f.guestCart("250.00")
	f.orders.On("ShippingFor", order.DeliveryAddress).Return(dec("5.00"))
	giftCard := &coupon.Coupon{ID: 4, Code: "GIFT300", Kind: coupon.KindFixed, Value: dec("300")}
	f.coupons.On("Evaluate", mock.Anything, "GIFT300", mock.Anything, mock.Anything, fixedNow).Return(giftCard, nil)

	view, err := f.svc.Apply(context.Background(), guest(), Form{PromoCode: "GIFT300", DeliveryMethod: "address"})
	require.NoError(t, err)

	assert.Equal(t, "GIFT300", view.AppliedCode)
	assert.True(t, view.DiscountTotal.Equal(dec("250")))
	assert.True(t, view.Total.Equal(dec("5")))
}

func TestService_ApplyRejectedClearsSelection(t *testing.T) {
	f := newFixture(t)
	f.guestCart("250.00")
	require.NoError(t, f.store.SetCoupon(context.Background(), sessionKey, session.CouponSelection{Code: "OLD"}))
	f.coupons.On("Evaluate", mock.Anything, "NOPE", mock.Anything, mock.Anything, fixedNow).
		Return(nil, &coupon.Rejection{Reason: coupon.ErrNotFound})

	view, err := f.svc.Apply(context.Background(), guest(), Form{PromoCode: "NOPE"})
	require.NoError(t, err)

	assert.True(t, view.DiscountTotal.IsZero())
	assert.Equal(t, "", view.AppliedCode)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, Message{Level: LevelError, Text: "Promo code not found."}, view.Messages[0])

	sel, err := f.store.GetCoupon(context.Background(), sessionKey)
	require.NoError(t, err)
	assert.Nil(t, sel)
}

func TestService_ApplyInfrastructureError(t *testing.T) {
	f := newFixture(t)
	f.guestCart("250.00")
	f.coupons.On("Evaluate", mock.Anything, "SAVE10", mock.Anything, mock.Anything, fixedNow).
		Return(nil, errors.New("db down"))

	view, err := f.svc.Apply(context.Background(), guest(), Form{PromoCode: "SAVE10"})
	assert.Error(t, err)
	assert.Nil(t, view)
}

func TestService_ViewRevalidatesSelection(t *testing.T) {
	f := newFixture(t)
	f.guestCart("250.00")
	require.NoError(t, f.store.SetCoupon(context.Background(), sessionKey, session.CouponSelection{Code: "SAVE10"}))
	f.coupons.On("Evaluate", mock.Anything, "SAVE10", mock.Anything, mock.Anything, fixedNow).Return(save10(), nil)

	view, err := f.svc.View(context.Background(), guest(), "")
	require.NoError(t, err)

	assert.Equal(t, "SAVE10", view.AppliedCode)
	assert.True(t, view.Total.Equal(dec("225")))
}

func TestService_ViewDropsStaleSelection(t *testing.T) {
	f := newFixture(t)
	f.guestCart("40.00")
	require.NoError(t, f.store.SetCoupon(context.Background(), sessionKey, session.CouponSelection{Code: "BIG"}))
	f.coupons.On("Evaluate", mock.Anything, "BIG", mock.Anything, mock.Anything, fixedNow).
		Return(nil, &coupon.Rejection{Reason: coupon.ErrBelowMinimum, MinTotal: dec("100")})

	view, err := f.svc.View(context.Background(), guest(), "")
	require.NoError(t, err)

	assert.Equal(t, "", view.AppliedCode)
	assert.True(t, view.Total.Equal(dec("40")))
	require.Len(t, view.Messages, 1)
	assert.Contains(t, view.Messages[0].Text, "100.00")

	sel, _ := f.store.GetCoupon(context.Background(), sessionKey)
	assert.Nil(t, sel)
}

func TestService_PlaceCarriesAppliedCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetCoupon(ctx, sessionKey, session.CouponSelection{Code: "SAVE10"}))
	f.carts.On("OwnerFor", mock.Anything, (*uint)(nil), sessionKey).Return(cart.GuestOwner(sessionKey), nil)

	form := Form{DeliveryMethod: "pickup", CustomerName: "Nino", Email: "nino@example.ge", Phone: "555", BillingSame: true}
	f.orders.On("Place", mock.Anything, mock.MatchedBy(func(in order.PlaceInput) bool {
		return in.AppliedCode == "SAVE10" && in.PromoCode == "" && in.SessionKey == sessionKey && in.DeliveryMethod == order.DeliveryPickup
	})).Return(&order.Order{ID: 42, Status: order.StatusPending}, nil)

	o, err := f.svc.Place(ctx, guest(), form)
	require.NoError(t, err)
	assert.Equal(t, uint(42), o.ID)

	sel, _ := f.store.GetCoupon(ctx, sessionKey)
	assert.Nil(t, sel, "selection is cleared after a successful placement")
}

func TestService_PlaceFailureKeepsSelection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetCoupon(ctx, sessionKey, session.CouponSelection{Code: "SAVE10"}))
	f.carts.On("OwnerFor", mock.Anything, (*uint)(nil), sessionKey).Return(cart.GuestOwner(sessionKey), nil)
	f.orders.On("Place", mock.Anything, mock.Anything).Return(nil, order.ErrEmptyCart)

	_, err := f.svc.Place(ctx, guest(), Form{})
	assert.ErrorIs(t, err, order.ErrEmptyCart)

	sel, _ := f.store.GetCoupon(ctx, sessionKey)
	require.NotNil(t, sel)
}

func TestService_PlaceMergesForAccount(t *testing.T) {
	f := newFixture(t)
	uid := uint(5)
	v := Viewer{UserID: &uid, SessionKey: sessionKey, Email: "acc@example.ge"}
	f.carts.On("OwnerFor", mock.Anything, &uid, sessionKey).Return(cart.AccountOwner(uid), nil).Once()
	f.orders.On("Place", mock.Anything, mock.MatchedBy(func(in order.PlaceInput) bool {
		return in.UserID != nil && *in.UserID == uid
	})).Return(&order.Order{ID: 1}, nil)

	_, err := f.svc.Place(context.Background(), v, Form{})
	require.NoError(t, err)
	f.carts.AssertExpectations(t)
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		raw     string
		want    Action
		wantErr bool
	}{
		{"apply", ActionApply, false},
		{" Place ", ActionPlace, false},
		{"", 0, true},
		{"delete", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAction(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownAction)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
