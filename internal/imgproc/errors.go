package imgproc

import "errors"

// Common errors.
var (
	ErrInvalidSize     = errors.New("invalid image size")
	ErrChannelMismatch = errors.New("channel count mismatch")
	ErrInvalidMatrix   = errors.New("invalid affine matrix")
	ErrInvalidMode     = errors.New("invalid interpolation mode")
)
