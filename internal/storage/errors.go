package storage

import "errors"

// Storage errors returned by series sources and sinks.
var (
	// ErrNotFound is returned when a requested series does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a series key or type is malformed.
	ErrInvalidInput = errors.New("invalid input")
)
