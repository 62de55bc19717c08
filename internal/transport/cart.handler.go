package transport

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"storefront-be/internal/cart"
	"storefront-be/internal/logger"
	"storefront-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CartHandler struct {
	carts cart.Service
}

func NewCartHandler(carts cart.Service) *CartHandler {
	return &CartHandler{carts: carts}
}

func (h *CartHandler) Routes(r chi.Router) {
	r.Get("/cart", h.Show)
	r.Post("/cart/items", h.Add)
	r.Post("/cart/items/{id}", h.Update)
	r.Delete("/cart/items/{id}", h.Remove)
	r.Delete("/cart", h.Clear)
}

func (h *CartHandler) owner(w http.ResponseWriter, r *http.Request) (cart.Owner, bool) {
	c := CallerFrom(r)
	owner, err := h.carts.OwnerFor(r.Context(), c.UserID, c.SessionKey)
	if err != nil {
		h.writeError(w, r, err)
		return cart.Owner{}, false
	}
	return owner, true
}

func (h *CartHandler) Show(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	h.writeSummary(w, r, owner, http.StatusOK)
}

func formInt(r *http.Request, key string, fallback int) (int, bool) {
	raw := strings.TrimSpace(r.FormValue(key))
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	productID, err := utils.ToUint(strings.TrimSpace(r.FormValue("product_id")))
	if err != nil {
		utils.WriteJSONError(w, "invalid product_id", http.StatusBadRequest)
		return
	}
	qty, ok := formInt(r, "qty", 1)
	if !ok {
		utils.WriteJSONError(w, "invalid qty", http.StatusBadRequest)
		return
	}

	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	if _, err := h.carts.AddLine(r.Context(), owner, productID, qty); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSummary(w, r, owner, http.StatusOK)
}

// Update sets the quantity; zero or less removes the line.
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	lineID, ok := URLID(r, "id")
	if !ok {
		utils.WriteJSONError(w, "invalid item id", http.StatusBadRequest)
		return
	}
	qty, ok := formInt(r, "qty", 0)
	if !ok {
		utils.WriteJSONError(w, "invalid qty", http.StatusBadRequest)
		return
	}

	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	if err := h.carts.SetQuantity(r.Context(), owner, lineID, qty); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSummary(w, r, owner, http.StatusOK)
}

func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	lineID, ok := URLID(r, "id")
	if !ok {
		utils.WriteJSONError(w, "invalid item id", http.StatusBadRequest)
		return
	}

	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	if err := h.carts.RemoveLine(r.Context(), owner, lineID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSummary(w, r, owner, http.StatusOK)
}

func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.owner(w, r)
	if !ok {
		return
	}
	if err := h.carts.Clear(r.Context(), owner); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSummary(w, r, owner, http.StatusOK)
}

func (h *CartHandler) writeSummary(w http.ResponseWriter, r *http.Request, owner cart.Owner, code int) {
	sum, err := h.carts.Summary(r.Context(), owner)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, code, sum)
}

func (h *CartHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		utils.WriteJSONError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, cart.ErrProductNotFound), errors.Is(err, cart.ErrCartItemNotFound):
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, cart.ErrInvalidOwner):
		utils.WriteJSONError(w, "missing session", http.StatusBadRequest)
	default:
		logger.FromCtx(r.Context()).Error("cart request failed", zap.Error(err))
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
