package payment

import (
	"encoding/json"
	"time"
)

const Provider = "mockpay"

// StatusPaid is the only provider status that moves an order.
const StatusPaid = "paid"

// Result is the plain-text token a webhook delivery is answered with.
type Result string

const (
	ResultOK               Result = "ok"
	ResultNoop             Result = "noop"
	ResultBadRequest       Result = "bad_request"
	ResultInvalidSignature Result = "invalid_signature"
)

// Delivery is a webhook call as received, before any parsing.
type Delivery struct {
	OrderID   string
	Status    string
	Signature string
}

// WebhookRecord is the audit row written for every delivery.
type WebhookRecord struct {
	ID             int64
	Provider       string
	OrderID        *uint
	Status         string
	SignatureValid bool
	Payload        json.RawMessage
	Result         Result
	ProcessError   string
	ReceivedAt     time.Time
	ProcessedAt    *time.Time
}
