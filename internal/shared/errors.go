package shared

import "errors"

// Error classes shared by the domain packages. Domain sentinels wrap one of these so
// transport layers can map them without knowing every domain error.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates the request clashes with current state.
	ErrConflict = errors.New("conflict")
)
