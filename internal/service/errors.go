package service

import "errors"

var (
	// ErrNotConfigured is returned when a required secret is missing.
	ErrNotConfigured = errors.New("admin token not configured")

	// ErrUnauthorized is returned when the admin token does not match.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput is returned for malformed request bodies.
	ErrInvalidInput = errors.New("invalid input")

	// ErrWrite wraps persistence failures on the write path.
	ErrWrite = errors.New("write failed")
)
