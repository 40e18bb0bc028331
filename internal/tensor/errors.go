package tensor

import "errors"

// Common errors.
var (
	ErrInvalidShape  = errors.New("invalid shape")
	ErrRankMismatch  = errors.New("rank mismatch")
	ErrShapeMismatch = errors.New("shape does not match element count")
	ErrNotContiguous = errors.New("tensor is not contiguous")
	ErrReleased      = errors.New("storage already released")
)
