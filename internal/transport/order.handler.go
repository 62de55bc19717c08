package transport

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"storefront-be/internal/logger"
	"storefront-be/internal/middleware"
	"storefront-be/internal/order"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders order.Service
}

func NewOrderHandler(orders order.Service) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) Routes(r chi.Router) {
	r.Get("/orders/{id}", h.Show)
	r.Get("/orders/{id}/track", h.Track)
	r.With(middleware.RequireAuth).Get("/account/orders", h.List)
	r.With(middleware.RequireAdmin).Post("/admin/orders/{id}/status", h.UpdateStatus)
}

type trackView struct {
	OrderID        uint                 `json:"order_id"`
	Status         order.Status         `json:"status"`
	TrackingNumber string               `json:"tracking_number,omitempty"`
	Steps          []order.TrackingStep `json:"steps"`
}

func (h *OrderHandler) load(w http.ResponseWriter, r *http.Request) (*order.Order, bool) {
	id, ok := URLID(r, "id")
	if !ok {
		utils.WriteJSONError(w, "invalid order id", http.StatusBadRequest)
		return nil, false
	}
	o, err := h.orders.Get(r.Context(), id, CallerFrom(r).UserID)
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return o, true
}

func (h *OrderHandler) Show(w http.ResponseWriter, r *http.Request) {
	o, ok := h.load(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	o, ok := h.load(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, trackView{
		OrderID:        o.ID,
		Status:         o.Status,
		TrackingNumber: o.TrackingNumber,
		Steps:          order.Tracking(o.Status),
	})
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := utils.GetUserIDFromContext(r.Context())
	orders, err := h.orders.ListForUser(r.Context(), userID, queryInt(r, "limit"), queryInt(r, "page"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := URLID(r, "id")
	if !ok {
		utils.WriteJSONError(w, "invalid order id", http.StatusBadRequest)
		return
	}
	to := order.Status(strings.ToLower(strings.TrimSpace(r.FormValue("status"))))

	if err := h.orders.UpdateStatus(r.Context(), id, to, r.FormValue("tracking_number")); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"order_id": id, "status": to})
}

func (h *OrderHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrOrderNotFound):
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, order.ErrForbidden):
		utils.WriteJSONError(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, order.ErrInvalidStatus):
		utils.WriteJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, order.ErrInvalidTransition):
		utils.WriteJSONError(w, err.Error(), http.StatusConflict)
	default:
		logger.FromCtx(r.Context()).Error("order request failed", zap.Error(err))
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
