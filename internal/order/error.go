package order

import (
	"errors"
	"fmt"
)

var (
	// -- Validation & Input --
	ErrEmptyCart             = errors.New("cart is empty")
	ErrInvalidStatus         = errors.New("invalid order status")
	ErrInvalidDeliveryMethod = errors.New("invalid delivery method")

	// -- Resource State --
	ErrOrderNotFound      = errors.New("order not found")
	ErrForbidden          = errors.New("order belongs to another account")
	ErrInvalidTransition  = errors.New("order status transition not allowed")
	ErrPaymentNotRequired = errors.New("order no longer requires payment")

	// -- Persistence --
	ErrPlacementFailed = errors.New("order placement failed")
)

// ValidationError names the checkout field that failed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
