package session

import "errors"

var (
	ErrNoSessionKey = errors.New("request has no session key")
	ErrEmptyCode    = errors.New("coupon selection has no code")
)
