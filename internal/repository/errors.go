package repository

import "errors"

var (
	// ErrAccountNotFound is returned when a snapshot references an unknown account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrNegativeDelta is returned when a counter increment is negative.
	ErrNegativeDelta = errors.New("counter delta must not be negative")
)
