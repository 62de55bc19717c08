package checkout

import (
	"context"
	"net/http"
	"strings"

	"storefront-be/internal/cart"
	"storefront-be/internal/order"
	"storefront-be/internal/session"
	"storefront-be/internal/utils"

	"github.com/shopspring/decimal"
)

// Viewer is who is checking out.
type Viewer struct {
	UserID     *uint
	SessionKey string
	Email      string
}

func ViewerFrom(ctx context.Context) Viewer {
	return Viewer{
		UserID:     utils.UserIDPtrFromContext(ctx),
		SessionKey: session.KeyFrom(ctx),
		Email:      utils.GetUserEmailFromContext(ctx),
	}
}

// Form is the checkout submission.
type Form struct {
	Action          string
	DeliveryMethod  string
	CustomerName    string
	Email           string
	Phone           string
	ShippingAddress string
	BillingSame     bool
	BillingAddress  string
	PromoCode       string
}

func ParseForm(r *http.Request) (Form, error) {
	if err := r.ParseForm(); err != nil {
		return Form{}, ErrMalformedForm
	}

	get := func(k string) string { return strings.TrimSpace(r.PostForm.Get(k)) }
	return Form{
		Action:          get("action"),
		DeliveryMethod:  get("delivery_method"),
		CustomerName:    get("customer_name"),
		Email:           get("email"),
		Phone:           get("phone"),
		ShippingAddress: get("shipping_address"),
		BillingSame:     checkbox(get("billing_same")),
		BillingAddress:  get("billing_address"),
		PromoCode:       get("promo_code"),
	}, nil
}

func checkbox(v string) bool {
	switch strings.ToLower(v) {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}

// PlaceInput carries the form into the order workflow.
func (f Form) PlaceInput(v Viewer, appliedCode string) order.PlaceInput {
	return order.PlaceInput{
		UserID:          v.UserID,
		SessionKey:      v.SessionKey,
		DeliveryMethod:  order.DeliveryMethod(f.DeliveryMethod),
		CustomerName:    f.CustomerName,
		Email:           f.Email,
		Phone:           f.Phone,
		ShippingAddress: f.ShippingAddress,
		BillingSame:     f.BillingSame,
		BillingAddress:  f.BillingAddress,
		PromoCode:       f.PromoCode,
		AppliedCode:     appliedCode,
	}
}

const (
	LevelSuccess = "success"
	LevelError   = "error"
)

type Message struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// View is what the front end needs to render the checkout page.
type View struct {
	Lines         []cart.CartLine `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	ShippingTotal decimal.Decimal `json:"shipping_total"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	Total         decimal.Decimal `json:"total"`
	Currency      string          `json:"currency"`
	AppliedCode   string          `json:"applied_code"`
	Messages      []Message       `json:"messages,omitempty"`
}

func (v *View) addMessage(level, text string) {
	v.Messages = append(v.Messages, Message{Level: level, Text: text})
}

// Placed is the response to a successful placement.
type Placed struct {
	OrderID    uint            `json:"order_id"`
	Status     order.Status    `json:"status"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency"`
	SuccessURL string          `json:"success_url"`
	PayURL     string          `json:"pay_url"`
}
