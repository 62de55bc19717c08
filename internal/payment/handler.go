package payment

import (
	"errors"
	"fmt"
	"net/http"

	"storefront-be/internal/logger"
	"storefront-be/internal/order"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PageHandler serves the mock provider's hosted pay page.
type PageHandler struct {
	svc Service
}

func NewPageHandler(svc Service) *PageHandler {
	return &PageHandler{svc: svc}
}

func (h *PageHandler) Routes(r chi.Router) {
	r.Get("/pay/return", h.Return)
	r.Get("/pay/{id}", h.Show)
	r.Post("/pay/{id}", h.Pay)
}

type payView struct {
	OrderID         uint            `json:"order_id"`
	Status          order.Status    `json:"status"`
	Total           decimal.Decimal `json:"total"`
	Currency        string          `json:"currency"`
	PaymentIntentID string          `json:"payment_intent_id"`
	Payable         bool            `json:"payable"`
	Message         string          `json:"message,omitempty"`
	TrackURL        string          `json:"track_url"`
}

func newPayView(o *order.Order) payView {
	return payView{
		OrderID:         o.ID,
		Status:          o.Status,
		Total:           o.Total,
		Currency:        o.Currency,
		PaymentIntentID: o.PaymentIntentID,
		Payable:         o.Status == order.StatusPending,
		TrackURL:        trackURL(o.ID),
	}
}

func trackURL(id uint) string {
	return fmt.Sprintf("/orders/%d/track", id)
}

func (h *PageHandler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ToUint(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteJSONError(w, "invalid order id", http.StatusBadRequest)
		return
	}

	o, err := h.svc.PayPage(r.Context(), id, utils.UserIDPtrFromContext(r.Context()))
	h.write(w, r, o, err, "")
}

func (h *PageHandler) Pay(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ToUint(chi.URLParam(r, "id"))
	if err != nil {
		utils.WriteJSONError(w, "invalid order id", http.StatusBadRequest)
		return
	}

	o, err := h.svc.Pay(r.Context(), id, utils.UserIDPtrFromContext(r.Context()))
	h.write(w, r, o, err, "The payment was successful.")
}

func (h *PageHandler) write(w http.ResponseWriter, r *http.Request, o *order.Order, err error, okMessage string) {
	switch {
	case err == nil:
		view := newPayView(o)
		view.Message = okMessage
		utils.WriteJSON(w, http.StatusOK, view)
	case errors.Is(err, order.ErrPaymentNotRequired) && o != nil:
		view := newPayView(o)
		view.Message = "This order no longer requires payment."
		utils.WriteJSON(w, http.StatusConflict, view)
	case errors.Is(err, order.ErrOrderNotFound):
		utils.WriteJSONError(w, "order not found", http.StatusNotFound)
	case errors.Is(err, order.ErrForbidden):
		utils.WriteJSONError(w, "There is no access to the order.", http.StatusForbidden)
	default:
		logger.FromCtx(r.Context()).Error("pay page failed", zap.Error(err))
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}

// Return is where the provider sends the shopper back to.
func (h *PageHandler) Return(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("order_id")
	id, err := utils.ToUint(raw)
	if !utils.IsDigits(raw) || err != nil {
		utils.WriteJSONError(w, "Incorrect response from the payment system.", http.StatusBadRequest)
		return
	}
	http.Redirect(w, r, trackURL(id), http.StatusFound)
}
