package payment

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"storefront-be/internal/logger"
	"storefront-be/internal/metrics"
	"storefront-be/internal/order"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

type Service interface {
	// HandleWebhook answers a provider delivery. A non-nil error means the
	// order could not be updated for infrastructure reasons.
	HandleWebhook(ctx context.Context, d Delivery) (Result, error)
	// PayPage loads an order for the mock pay page. Orders that are past
	// pending come back together with order.ErrPaymentNotRequired.
	PayPage(ctx context.Context, orderID uint, viewerID *uint) (*order.Order, error)
	// Pay is the pay page's confirm button.
	Pay(ctx context.Context, orderID uint, viewerID *uint) (*order.Order, error)
}

type service struct {
	orders order.Service
	signer *Signer
	repo   Repository
}

func NewService(orders order.Service, signer *Signer, repo Repository) Service {
	return &service{orders: orders, signer: signer, repo: repo}
}

func (s *service) HandleWebhook(ctx context.Context, d Delivery) (Result, error) {
	result, err := s.handleWebhook(ctx, d)
	if err == nil {
		metrics.Default().WebhookDelivered(ctx, string(result))
	} else {
		metrics.Default().WebhookDelivered(ctx, "error")
	}
	return result, err
}

func (s *service) handleWebhook(ctx context.Context, d Delivery) (Result, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "HandleWebhook"),
	)

	if !utils.IsDigits(d.OrderID) || d.Status == "" || d.Signature == "" {
		s.audit(ctx, d, nil, false, ResultBadRequest, "")
		return ResultBadRequest, nil
	}

	id64, err := strconv.ParseUint(d.OrderID, 10, 64)
	if err != nil {
		s.audit(ctx, d, nil, false, ResultBadRequest, "")
		return ResultBadRequest, nil
	}
	orderID := uint(id64)

	if !s.signer.Verify(d.OrderID, d.Status, d.Signature) {
		log.Warn("webhook signature mismatch", zap.Uint("order_id", orderID))
		s.audit(ctx, d, &orderID, false, ResultInvalidSignature, "")
		return ResultInvalidSignature, nil
	}

	if d.Status != StatusPaid {
		s.audit(ctx, d, &orderID, true, ResultNoop, "")
		return ResultNoop, nil
	}

	outcome, err := s.orders.ConfirmPayment(ctx, orderID)
	if errors.Is(err, order.ErrOrderNotFound) {
		s.audit(ctx, d, &orderID, true, ResultNoop, "")
		return ResultNoop, nil
	}
	if err != nil {
		log.Error("failed to confirm payment", zap.Uint("order_id", orderID), zap.Error(err))
		s.audit(ctx, d, &orderID, true, "", err.Error())
		return "", err
	}

	result := ResultNoop
	if outcome == order.PaymentApplied {
		result = ResultOK
		log.Info("order paid via webhook", zap.Uint("order_id", orderID))
	}
	s.audit(ctx, d, &orderID, true, result, "")
	return result, nil
}

// audit never fails the delivery.
func (s *service) audit(ctx context.Context, d Delivery, orderID *uint, valid bool, result Result, processErr string) {
	if s.repo == nil {
		return
	}
	log := logger.FromCtx(ctx)

	payload, _ := json.Marshal(map[string]string{
		"order_id":  d.OrderID,
		"status":    d.Status,
		"signature": d.Signature,
	})

	id, err := s.repo.SaveWebhook(ctx, WebhookRecord{
		Provider:       Provider,
		OrderID:        orderID,
		Status:         d.Status,
		SignatureValid: valid,
		Payload:        payload,
	})
	if err != nil {
		log.Warn("failed to record webhook delivery", zap.Error(err))
		return
	}

	if processErr != "" {
		err = s.repo.MarkWebhookFailed(ctx, id, processErr)
	} else {
		err = s.repo.MarkWebhookProcessed(ctx, id, result)
	}
	if err != nil {
		log.Warn("failed to update webhook delivery", zap.Int64("webhook_id", id), zap.Error(err))
	}
}

func (s *service) PayPage(ctx context.Context, orderID uint, viewerID *uint) (*order.Order, error) {
	o, err := s.orders.Get(ctx, orderID, viewerID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.StatusPending {
		return o, order.ErrPaymentNotRequired
	}
	return o, nil
}

func (s *service) Pay(ctx context.Context, orderID uint, viewerID *uint) (*order.Order, error) {
	o, err := s.PayPage(ctx, orderID, viewerID)
	if err != nil {
		return o, err
	}

	outcome, err := s.orders.ConfirmPayment(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if outcome != order.PaymentApplied {
		// paid by a concurrent webhook in the meantime
		return o, order.ErrPaymentNotRequired
	}

	o.Status = order.StatusPaid
	logger.FromCtx(ctx).Info("order paid via pay page",
		zap.String("layer", "service"),
		zap.Uint("order_id", orderID),
	)
	return o, nil
}
