package order

import (
	"strconv"
	"time"
)

// Event payloads written to the outbox. Consumers (the emailer) depend on
// these field names.

type PlacedEvent struct {
	OrderID         uint      `json:"order_id"`
	Email           string    `json:"email"`
	CustomerName    string    `json:"customer_name"`
	Total           string    `json:"total"`
	Currency        string    `json:"currency"`
	PaymentIntentID string    `json:"payment_intent_id"`
	PlacedAt        time.Time `json:"placed_at"`
}

type PaidEvent struct {
	OrderID uint      `json:"order_id"`
	Email   string    `json:"email"`
	PaidAt  time.Time `json:"paid_at"`
}

type ReminderEvent struct {
	OrderID         uint   `json:"order_id"`
	Email           string `json:"email"`
	CustomerName    string `json:"customer_name"`
	Total           string `json:"total"`
	Currency        string `json:"currency"`
	PaymentIntentID string `json:"payment_intent_id"`
}

func aggregateID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
