// Package apperr defines the sentinel errors shared across othala packages.
// Callers wrap them with fmt.Errorf("...: %w", ...) and match with errors.Is.
package apperr

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrAlreadyExists       = errors.New("already exists")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidHierarchy    = errors.New("invalid hierarchy")
	ErrInUse               = errors.New("in use")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrMalformedExpression = errors.New("malformed filter expression")
)
