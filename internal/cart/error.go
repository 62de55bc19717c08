package cart

import "errors"

var (
	// -- Validation & Input --
	ErrInvalidQuantity = errors.New("invalid cart quantity")
	ErrInvalidOwner    = errors.New("cart owner must be an account or a session key")

	// -- Resource State --
	ErrProductNotFound  = errors.New("product not found")
	ErrCartItemNotFound = errors.New("cart item not found")

	// -- Constants (External Systems) --
	PgUniqueViolation = "23505"
)
