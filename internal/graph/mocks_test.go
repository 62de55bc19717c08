package graph

import (
	"context"

	"storefront-be/internal/cart"
	"storefront-be/internal/order"
	"storefront-be/internal/user"

	"github.com/stretchr/testify/mock"
)

type MockCartService struct {
	cart.Service
	mock.Mock
}

func (m *MockCartService) OwnerFor(ctx context.Context, userID *uint, sessionKey string) (cart.Owner, error) {
	args := m.Called(ctx, userID, sessionKey)
	return args.Get(0).(cart.Owner), args.Error(1)
}

func (m *MockCartService) AddLine(ctx context.Context, owner cart.Owner, productID uint, quantity int) (*cart.CartLine, error) {
	args := m.Called(ctx, owner, productID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.CartLine), args.Error(1)
}

func (m *MockCartService) SetQuantity(ctx context.Context, owner cart.Owner, lineID uint, quantity int) error {
	return m.Called(ctx, owner, lineID, quantity).Error(0)
}

func (m *MockCartService) RemoveLine(ctx context.Context, owner cart.Owner, lineID uint) error {
	return m.Called(ctx, owner, lineID).Error(0)
}

func (m *MockCartService) Clear(ctx context.Context, owner cart.Owner) error {
	return m.Called(ctx, owner).Error(0)
}

func (m *MockCartService) Summary(ctx context.Context, owner cart.Owner) (*cart.Summary, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Summary), args.Error(1)
}

type MockOrderService struct {
	order.Service
	mock.Mock
}

func (m *MockOrderService) Get(ctx context.Context, id uint, viewerID *uint) (*order.Order, error) {
	args := m.Called(ctx, id, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListForUser(ctx context.Context, userID uint, limit, page int) ([]order.Order, error) {
	args := m.Called(ctx, userID, limit, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id uint, to order.Status, trackingNumber string) error {
	return m.Called(ctx, id, to, trackingNumber).Error(0)
}

type MockUserService struct {
	user.Service
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, in user.RegisterInput) (*user.AuthResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.AuthResult), args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, in user.LoginInput) (*user.AuthResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.AuthResult), args.Error(1)
}

func (m *MockUserService) GetProfile(ctx context.Context, userID uint) (*user.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.Profile), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, params user.UpdateProfileParams) (*user.Profile, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.Profile), args.Error(1)
}
