package bracket

import "errors"

// Every core operation fails with one of these kinds, wrapped with context.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)
