package outbox

import "errors"

var (
	ErrEventNotFound = errors.New("outbox event not found")
	ErrEmptyPayload  = errors.New("outbox event payload is empty")
)
