package graph

import (
	"context"
	"strings"

	"storefront-be/internal/logger"
	"storefront-be/internal/order"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

type tracking struct {
	OrderID        uint                 `json:"order_id"`
	Status         order.Status         `json:"status"`
	TrackingNumber string               `json:"tracking_number,omitempty"`
	Steps          []order.TrackingStep `json:"steps"`
}

type statusChange struct {
	OrderID uint         `json:"order_id"`
	Status  order.Status `json:"status"`
}

func (r *queryResolver) Order(ctx context.Context, id uint) (*order.Order, error) {
	return r.OrderSvc.Get(ctx, id, utils.UserIDPtrFromContext(ctx))
}

func (r *queryResolver) OrderTracking(ctx context.Context, id uint) (*tracking, error) {
	o, err := r.OrderSvc.Get(ctx, id, utils.UserIDPtrFromContext(ctx))
	if err != nil {
		return nil, err
	}
	return &tracking{
		OrderID:        o.ID,
		Status:         o.Status,
		TrackingNumber: o.TrackingNumber,
		Steps:          order.Tracking(o.Status),
	}, nil
}

func (r *queryResolver) MyOrders(ctx context.Context, limit, page int) ([]order.Order, error) {
	userID, _ := utils.GetUserIDFromContext(ctx)
	orders, err := r.OrderSvc.ListForUser(ctx, userID, limit, page)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []order.Order{}
	}
	return orders, nil
}

func (r *mutationResolver) UpdateOrderStatus(ctx context.Context, id uint, status, trackingNumber string) (*statusChange, error) {
	to := order.Status(strings.ToLower(strings.TrimSpace(status)))

	if err := r.OrderSvc.UpdateStatus(ctx, id, to, strings.TrimSpace(trackingNumber)); err != nil {
		logger.FromCtx(ctx).Warn("order status update refused",
			zap.Uint("order_id", id),
			zap.String("status", string(to)),
			zap.Error(err),
		)
		return nil, err
	}
	return &statusChange{OrderID: id, Status: to}, nil
}
