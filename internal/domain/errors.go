// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a concurrent modification conflict (a lost compare-and-set).
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates invalid input.
var ErrValidation = errors.New("validation failed")

// ErrConstraintViolation indicates a write rejected by a uniqueness or ownership
// constraint (duplicate vote, self vote, duplicate child). Callers treat it as a no-op.
var ErrConstraintViolation = errors.New("constraint violation")
