package payment

import "errors"

var (
	ErrMissingSecret = errors.New("mockpay webhook secret is not configured")
)
