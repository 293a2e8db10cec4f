package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates caller input was rejected before persistence.
	ErrValidation = errors.New("validation failed")
)
