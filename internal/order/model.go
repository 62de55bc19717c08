package order

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
)

type DeliveryMethod string

const (
	DeliveryPickup  DeliveryMethod = "pickup"
	DeliveryAddress DeliveryMethod = "address"
)

func (d DeliveryMethod) Valid() bool {
	return d == DeliveryPickup || d == DeliveryAddress
}

func (d DeliveryMethod) RequiresAddress() bool {
	return d == DeliveryAddress
}

const PaymentProviderMock = "mockpay"

// Address is the frozen address payload, stored as JSON.
type Address struct {
	Line string `json:"address"`
}

func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Address{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return errors.New("order: unsupported address payload")
	}
}

type Order struct {
	ID              uint            `json:"id"`
	UserID          *uint           `json:"user_id,omitempty"`
	Status          Status          `json:"status"`
	DeliveryMethod  DeliveryMethod  `json:"delivery_method"`
	Total           decimal.Decimal `json:"total"`
	DiscountTotal   decimal.Decimal `json:"discount_total"`
	ShippingTotal   decimal.Decimal `json:"shipping_total"`
	Currency        string          `json:"currency"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	CustomerName    string          `json:"customer_name"`
	ShippingAddress Address         `json:"shipping_address"`
	BillingAddress  Address         `json:"billing_address"`
	CouponID        *uint           `json:"coupon_id,omitempty"`
	PaymentProvider string          `json:"payment_provider"`
	PaymentIntentID string          `json:"payment_intent_id"`
	PlacedAt        *time.Time      `json:"placed_at,omitempty"`
	TrackingNumber  string          `json:"tracking_number,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Lines []OrderLine `json:"lines,omitempty"`
}

// OrderLine is a frozen copy of a cart line at placement time.
type OrderLine struct {
	ID        uint            `json:"id"`
	OrderID   uint            `json:"-"`
	ProductID uint            `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (l OrderLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (o *Order) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

// OwnedBy reports whether a viewer may see the order. Anonymous viewers and
// guest orders are not gated.
func (o *Order) OwnedBy(viewerID *uint) bool {
	if viewerID == nil || o.UserID == nil {
		return true
	}
	return *o.UserID == *viewerID
}

type PlaceInput struct {
	UserID          *uint
	SessionKey      string
	DeliveryMethod  DeliveryMethod
	CustomerName    string
	Email           string
	Phone           string
	ShippingAddress string
	BillingSame     bool
	BillingAddress  string
	// PromoCode is what the customer typed on this submission.
	PromoCode string
	// AppliedCode is the code selected earlier in the session, if any.
	AppliedCode string
}

// PaymentOutcome is the effect a verified payment report had.
type PaymentOutcome string

const (
	PaymentApplied PaymentOutcome = "ok"
	PaymentNoop    PaymentOutcome = "noop"
)

// ReminderDue is a pending order picked for a payment reminder.
type ReminderDue struct {
	OrderID         uint
	Email           string
	CustomerName    string
	Total           decimal.Decimal
	Currency        string
	PaymentIntentID string
}
