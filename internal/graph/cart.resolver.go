package graph

import (
	"context"

	"storefront-be/internal/cart"
	"storefront-be/internal/logger"
	"storefront-be/internal/session"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

func (r *Resolver) cartOwner(ctx context.Context) (cart.Owner, error) {
	return r.CartSvc.OwnerFor(ctx, utils.UserIDPtrFromContext(ctx), session.KeyFrom(ctx))
}

func (r *Resolver) cartSummary(ctx context.Context, owner cart.Owner) (*cart.Summary, error) {
	sum, err := r.CartSvc.Summary(ctx, owner)
	if err != nil {
		return nil, err
	}
	if sum.Lines == nil {
		sum.Lines = []cart.CartLine{}
	}
	return sum, nil
}

func (r *queryResolver) Cart(ctx context.Context) (*cart.Summary, error) {
	owner, err := r.cartOwner(ctx)
	if err != nil {
		return nil, err
	}
	return r.cartSummary(ctx, owner)
}

// Add to Cart
func (r *mutationResolver) AddToCart(ctx context.Context, productID uint, qty int) (*cart.Summary, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("resolver", "AddToCart"),
		zap.Uint("product_id", productID),
		zap.Int("qty", qty),
	)

	owner, err := r.cartOwner(ctx)
	if err != nil {
		return nil, err
	}
	line, err := r.CartSvc.AddLine(ctx, owner, productID, qty)
	if err != nil {
		log.Warn("failed to add item to cart", zap.Error(err))
		return nil, err
	}

	log.Info("cart item added", zap.Uint("line_id", line.ID), zap.Int("final_qty", line.Quantity))
	return r.cartSummary(ctx, owner)
}

// Update cart quantity; zero or less removes the line.
func (r *mutationResolver) UpdateCartItem(ctx context.Context, lineID uint, qty int) (*cart.Summary, error) {
	owner, err := r.cartOwner(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.CartSvc.SetQuantity(ctx, owner, lineID, qty); err != nil {
		return nil, err
	}
	return r.cartSummary(ctx, owner)
}

func (r *mutationResolver) RemoveCartItem(ctx context.Context, lineID uint) (*cart.Summary, error) {
	owner, err := r.cartOwner(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.CartSvc.RemoveLine(ctx, owner, lineID); err != nil {
		return nil, err
	}
	return r.cartSummary(ctx, owner)
}

func (r *mutationResolver) ClearCart(ctx context.Context) (*cart.Summary, error) {
	owner, err := r.cartOwner(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.CartSvc.Clear(ctx, owner); err != nil {
		logger.FromCtx(ctx).Error("failed to clear cart", zap.Error(err))
		return nil, err
	}
	return r.cartSummary(ctx, owner)
}
