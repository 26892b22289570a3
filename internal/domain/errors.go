package domain

import "errors"

var (
	// ErrInsufficientHistory means a symbol returned fewer than two daily
	// bars. It is recovered locally by retry-after-pause, never fatal.
	ErrInsufficientHistory = errors.New("insufficient price history")

	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrInvalidOrder = errors.New("invalid order parameters")
)
