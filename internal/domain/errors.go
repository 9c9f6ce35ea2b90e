// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates a request failed input validation.
// Wrap it with a field-specific message: fmt.Errorf("%w: rating must be 1-5", ErrValidation).
var ErrValidation = errors.New("validation failed")
