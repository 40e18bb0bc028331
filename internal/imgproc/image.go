// Package imgproc implements image resampling over allocator-backed tensors:
// uniform resize and affine warp with bilinear or nearest-neighbor sampling.
//
// Every entry point is a pure function from a source image to a freshly
// allocated output image. Sources are never mutated.
package imgproc

import (
	"fmt"

	"github.com/born-ml/vision/internal/alloc"
	"github.com/born-ml/vision/internal/tensor"
)

// Pixel is the constraint for image element types.
type Pixel interface {
	~uint8 | ~float32 | ~float64
}

// ImageSize is the spatial size of an image in pixels.
type ImageSize struct {
	Width  int
	Height int
}

// Validate returns ErrInvalidSize unless both extents are positive.
func (s ImageSize) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, s.Width, s.Height)
	}
	return nil
}

// String returns the size as WIDTHxHEIGHT.
func (s ImageSize) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Image is a rank-3 tensor laid out as (height, width, channels).
//
// Floating-point images carry no implied value range; use CastAndScale to move
// between [0, 255] and [0, 1].
type Image[T Pixel] struct {
	data *tensor.Tensor[T]
}

// NewImage creates an image from interleaved pixel data, copied into storage
// obtained from a (alloc.Default() when nil).
func NewImage[T Pixel](a alloc.Allocator, size ImageSize, channels int, data []T) (*Image[T], error) {
	if err := validateGeometry(size, channels); err != nil {
		return nil, err
	}
	t, err := tensor.FromSlice(a, data, tensor.Shape{size.Height, size.Width, channels})
	if err != nil {
		return nil, err
	}
	return &Image[T]{data: t}, nil
}

// FromSizeVal creates an image with every element set to val.
func FromSizeVal[T Pixel](a alloc.Allocator, size ImageSize, channels int, val T) (*Image[T], error) {
	if err := validateGeometry(size, channels); err != nil {
		return nil, err
	}
	t, err := tensor.Full(a, tensor.Shape{size.Height, size.Width, channels}, val)
	if err != nil {
		return nil, err
	}
	return &Image[T]{data: t}, nil
}

// FromTensor wraps a rank-3 (height, width, channels) tensor, taking ownership of it.
func FromTensor[T Pixel](t *tensor.Tensor[T]) (*Image[T], error) {
	if err := t.CheckRank(3); err != nil {
		return nil, err
	}
	return &Image[T]{data: t}, nil
}

func validateGeometry(size ImageSize, channels int) error {
	if err := size.Validate(); err != nil {
		return err
	}
	if channels <= 0 {
		return fmt.Errorf("%w: %d channels", ErrChannelMismatch, channels)
	}
	return nil
}

// Size returns the spatial size.
func (img *Image[T]) Size() ImageSize {
	s := img.data.Shape()
	return ImageSize{Width: s[1], Height: s[0]}
}

// Width returns the number of columns.
func (img *Image[T]) Width() int { return img.data.Shape()[1] }

// Height returns the number of rows.
func (img *Image[T]) Height() int { return img.data.Shape()[0] }

// Channels returns the number of channels per pixel.
func (img *Image[T]) Channels() int { return img.data.Shape()[2] }

// Tensor returns the underlying tensor.
func (img *Image[T]) Tensor() *tensor.Tensor[T] { return img.data }

// Allocator returns the allocator backing the image.
func (img *Image[T]) Allocator() alloc.Allocator { return img.data.Allocator() }

// Data returns a read view of the elements in storage order.
func (img *Image[T]) Data() []T { return img.data.Data() }

// MutData returns the exclusive mutable view of the elements.
func (img *Image[T]) MutData() []T { return img.data.MutData() }

// Pixel returns channel c of the pixel at column x, row y.
// Panics if out of bounds.
func (img *Image[T]) Pixel(x, y, c int) T {
	return img.data.At(y, x, c)
}

// SetPixel sets channel c of the pixel at column x, row y.
// Panics if out of bounds.
func (img *Image[T]) SetPixel(x, y, c int, v T) {
	img.data.Set(v, y, x, c)
}

// Clone returns a deep, row-major copy.
func (img *Image[T]) Clone() (*Image[T], error) {
	t, err := img.data.Clone(nil)
	if err != nil {
		return nil, err
	}
	return &Image[T]{data: t}, nil
}

// Release drops the image's reference to its storage.
func (img *Image[T]) Release() {
	img.data.Release()
}

// String returns a short description of the image.
func (img *Image[T]) String() string {
	return fmt.Sprintf("Image[%s]%s@%d", img.data.DType(), img.Size(), img.Channels())
}

// CastAndScale converts every element to U after multiplying it by scale.
// The output is allocated from the image's allocator.
//
// Example:
//
//	f, err := imgproc.CastAndScale[uint8, float32](img, 1.0/255)
func CastAndScale[T, U Pixel](img *Image[T], scale float64) (*Image[U], error) {
	t, err := tensor.Cast[T, U](img.data, nil, scale)
	if err != nil {
		return nil, err
	}
	return &Image[U]{data: t}, nil
}
