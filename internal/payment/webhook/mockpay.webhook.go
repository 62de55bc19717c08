package webhook

import (
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/payment"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

type Handler struct {
	svc payment.Service
}

func NewWebhookHandler(svc payment.Service) *Handler {
	return &Handler{svc: svc}
}

var statusFor = map[payment.Result]int{
	payment.ResultOK:               http.StatusOK,
	payment.ResultNoop:             http.StatusOK,
	payment.ResultBadRequest:       http.StatusBadRequest,
	payment.ResultInvalidSignature: http.StatusUnauthorized,
}

// MockPayWebhookHandler accepts form fields order_id, status and signature
// and answers with a bare result token.
func (h *Handler) MockPayWebhookHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utils.WriteText(w, http.StatusBadRequest, string(payment.ResultBadRequest))
		return
	}

	d := payment.Delivery{
		OrderID:   r.PostForm.Get("order_id"),
		Status:    r.PostForm.Get("status"),
		Signature: r.PostForm.Get("signature"),
	}

	result, err := h.svc.HandleWebhook(r.Context(), d)
	if err != nil {
		logger.FromCtx(r.Context()).Error("mockpay webhook failed",
			zap.String("order_id", d.OrderID),
			zap.Error(err),
		)
		utils.WriteText(w, http.StatusInternalServerError, "error")
		return
	}

	utils.WriteText(w, statusFor[result], string(result))
}
