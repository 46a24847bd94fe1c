package repository

import "errors"

var (
	// ErrNotFound is returned when a ride, driver or rider does not exist.
	// Services pass it through unchanged so handlers can map it to a 404.
	ErrNotFound = errors.New("entity not found")
)
