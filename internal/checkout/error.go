package checkout

import "errors"

var (
	ErrUnknownAction = errors.New("unknown checkout action")
	ErrMalformedForm = errors.New("malformed checkout form")
)
