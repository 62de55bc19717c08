package outbox

import (
	"time"
)

type EventType string

const (
	EventOrderPlaced     EventType = "order.placed"
	EventOrderPaid       EventType = "order.paid"
	EventPaymentReminder EventType = "order.payment_reminder"
)

// MaxAttempts bounds how often a failing event is retried before it is left
// for manual inspection.
const MaxAttempts = 10

type Event struct {
	ID          uint
	AggregateID string
	EventType   EventType
	Payload     []byte
	Attempts    int
	LastError   *string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}
