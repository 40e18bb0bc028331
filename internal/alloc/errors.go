package alloc

import (
	"errors"
	"fmt"
)

// Allocation error kinds.
var (
	ErrInvalidLayout = errors.New("invalid layout")
	ErrInvalidBlock  = errors.New("invalid block")
)

// AllocationError reports a failed allocator operation.
// Err wraps ErrInvalidLayout or ErrInvalidBlock, so callers can use errors.Is.
type AllocationError struct {
	Op     string // Operation that failed ("layout", "alloc")
	Layout Layout // Layout requested
	Err    error  // Underlying cause
}

// Error implements the error interface.
func (e *AllocationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Layout, e.Err)
}

// Unwrap returns the underlying cause.
func (e *AllocationError) Unwrap() error {
	return e.Err
}
