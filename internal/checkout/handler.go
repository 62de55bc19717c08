package checkout

import (
	"errors"
	"fmt"
	"net/http"

	"storefront-be/internal/cart"
	"storefront-be/internal/coupon"
	"storefront-be/internal/logger"
	"storefront-be/internal/order"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const genericFailure = "We could not place your order. Please try again."

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/checkout", h.Show)
	r.Post("/checkout", h.Submit)
}

type failure struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Code  string `json:"code,omitempty"`
	View  *View  `json:"view,omitempty"`
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	method := order.DeliveryMethod(r.URL.Query().Get("delivery_method"))

	view, err := h.svc.View(r.Context(), ViewerFrom(r.Context()), method)
	if err != nil {
		logger.FromCtx(r.Context()).Error("failed to render checkout", zap.Error(err))
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	form, err := ParseForm(r)
	if err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	action, err := ParseAction(form.Action)
	if err != nil {
		utils.WriteJSON(w, http.StatusUnprocessableEntity, failure{Error: err.Error(), Field: "action"})
		return
	}

	switch action {
	case ActionApply:
		h.apply(w, r, form)
	case ActionPlace:
		h.place(w, r, form)
	}
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, form Form) {
	view, err := h.svc.Apply(r.Context(), ViewerFrom(r.Context()), form)
	if err != nil {
		logger.FromCtx(r.Context()).Error("failed to apply promo code", zap.Error(err))
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) place(w http.ResponseWriter, r *http.Request, form Form) {
	ctx := r.Context()
	viewer := ViewerFrom(ctx)

	o, err := h.svc.Place(ctx, viewer, form)
	if err == nil {
		utils.WriteJSON(w, http.StatusCreated, Placed{
			OrderID:    o.ID,
			Status:     o.Status,
			Total:      o.Total,
			Currency:   o.Currency,
			SuccessURL: fmt.Sprintf("/orders/%d", o.ID),
			PayURL:     fmt.Sprintf("/pay/%d", o.ID),
		})
		return
	}

	if ve, ok := order.AsValidationError(err); ok {
		h.writeRejected(w, r, form, failure{Error: ve.Message, Field: ve.Field})
		return
	}
	if rej, ok := coupon.AsRejection(err); ok {
		h.writeRejected(w, r, form, failure{Error: rej.Message(), Field: "promo_code", Code: rej.Code()})
		return
	}

	switch {
	case errors.Is(err, order.ErrEmptyCart):
		utils.WriteJSON(w, http.StatusConflict, failure{Error: "Your cart is empty.", Code: "empty_cart"})
	case errors.Is(err, cart.ErrInvalidOwner):
		utils.WriteJSONError(w, "missing session", http.StatusBadRequest)
	default:
		logger.FromCtx(ctx).Error("checkout placement failed", zap.Error(err))
		utils.WriteJSONError(w, genericFailure, http.StatusInternalServerError)
	}
}

// writeRejected attaches a fresh view so the page can be re-rendered with the
// message next to the field.
func (h *Handler) writeRejected(w http.ResponseWriter, r *http.Request, form Form, f failure) {
	view, err := h.svc.View(r.Context(), ViewerFrom(r.Context()), order.DeliveryMethod(form.DeliveryMethod))
	if err != nil {
		logger.FromCtx(r.Context()).Warn("failed to render checkout after rejection", zap.Error(err))
	} else {
		f.View = view
	}
	utils.WriteJSON(w, http.StatusUnprocessableEntity, f)
}
