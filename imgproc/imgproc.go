// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package imgproc provides image resampling over allocator-backed tensors.
//
// Images are (height, width, channels) tensors of uint8, float32 or float64.
// Resize and WarpAffine are pure functions: the source is never mutated and the
// output is freshly allocated (from the source image's allocator unless
// WithAllocator says otherwise). Output rows are split across goroutines.
//
// Example:
//
//	img, err := imgproc.FromSizeVal[uint8](nil, imgproc.ImageSize{Width: 640, Height: 480}, 3, 0)
//	if err != nil {
//	    return err
//	}
//	defer img.Release()
//
//	small, err := imgproc.Resize(img, imgproc.ImageSize{Width: 224, Height: 224}, imgproc.Bilinear)
//	if err != nil {
//	    return err
//	}
//	defer small.Release()
//
//	m, _ := imgproc.RotationMatrix2D(320, 240, 45, 1).Invert()
//	rotated, err := imgproc.WarpAffine(img, m, img.Size(), imgproc.Bilinear)
package imgproc

import (
	"github.com/born-ml/vision/internal/imgproc"
	"github.com/born-ml/vision/tensor"
)

// Pixel is the constraint for image element types.
type Pixel = imgproc.Pixel

// Image is a (height, width, channels) tensor.
type Image[T Pixel] = imgproc.Image[T]

// ImageSize is the spatial size of an image in pixels.
type ImageSize = imgproc.ImageSize

// InterpolationMode selects how a source coordinate is sampled.
type InterpolationMode = imgproc.InterpolationMode

// Interpolation modes.
const (
	Bilinear = imgproc.Bilinear
	Nearest  = imgproc.Nearest
)

// CastMode selects how interpolated values are stored in uint8 images.
type CastMode = imgproc.CastMode

// Cast modes.
const (
	CastTruncate = imgproc.CastTruncate
	CastRound    = imgproc.CastRound
)

// AffineMatrix maps output pixel (x, y) to source coordinate
// (m0*x + m1*y + m2, m3*x + m4*y + m5).
type AffineMatrix = imgproc.AffineMatrix

// Identity maps every pixel to itself.
var Identity = imgproc.Identity

// Options and functional options for resampling calls.
type (
	Options = imgproc.Options
	Option  = imgproc.Option
)

// Errors.
var (
	ErrInvalidSize     = imgproc.ErrInvalidSize
	ErrChannelMismatch = imgproc.ErrChannelMismatch
	ErrInvalidMatrix   = imgproc.ErrInvalidMatrix
	ErrInvalidMode     = imgproc.ErrInvalidMode
)

// NewImage copies interleaved pixel data into a new image.
func NewImage[T Pixel](a tensor.Allocator, size ImageSize, channels int, data []T) (*Image[T], error) {
	return imgproc.NewImage(a, size, channels, data)
}

// FromSizeVal creates an image with every element set to val.
func FromSizeVal[T Pixel](a tensor.Allocator, size ImageSize, channels int, val T) (*Image[T], error) {
	return imgproc.FromSizeVal(a, size, channels, val)
}

// FromTensor wraps a rank-3 tensor, taking ownership of it.
func FromTensor[T Pixel](t *tensor.Tensor[T]) (*Image[T], error) {
	return imgproc.FromTensor(t)
}

// CastAndScale converts an image to U after multiplying every element by scale.
func CastAndScale[T, U Pixel](img *Image[T], scale float64) (*Image[U], error) {
	return imgproc.CastAndScale[T, U](img, scale)
}

// Resize resamples src to size, mapping corners onto corners.
func Resize[T Pixel](src *Image[T], size ImageSize, mode InterpolationMode, opts ...Option) (*Image[T], error) {
	return imgproc.Resize(src, size, mode, opts...)
}

// WarpAffine samples src at m.Apply(x, y) for every output pixel; pixels that
// map outside the source stay zero.
func WarpAffine[T Pixel](src *Image[T], m AffineMatrix, size ImageSize, mode InterpolationMode, opts ...Option) (*Image[T], error) {
	return imgproc.WarpAffine(src, m, size, mode, opts...)
}

// Rotate rotates src by angle degrees around its center.
func Rotate[T Pixel](src *Image[T], angle, scale float32, mode InterpolationMode, opts ...Option) (*Image[T], error) {
	return imgproc.Rotate(src, angle, scale, mode, opts...)
}

// RotationMatrix2D returns the source-to-destination rotation around (cx, cy).
func RotationMatrix2D(cx, cy, angle, scale float32) AffineMatrix {
	return imgproc.RotationMatrix2D(cx, cy, angle, scale)
}

// Translation returns the matrix sampling the source at (x+tx, y+ty).
func Translation(tx, ty float32) AffineMatrix {
	return imgproc.Translation(tx, ty)
}

// ParseInterpolationMode parses "bilinear" or "nearest".
func ParseInterpolationMode(s string) (InterpolationMode, error) {
	return imgproc.ParseInterpolationMode(s)
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return imgproc.DefaultOptions()
}

// WithAllocator allocates outputs from a.
func WithAllocator(a tensor.Allocator) Option {
	return imgproc.WithAllocator(a)
}

// WithWorkers sets the number of row workers; 1 runs sequentially.
func WithWorkers(n int) Option {
	return imgproc.WithWorkers(n)
}

// WithChannels sets the channel count the source must have (3 by default).
func WithChannels(n int) Option {
	return imgproc.WithChannels(n)
}

// WithCastMode selects truncation or rounding for uint8 outputs.
func WithCastMode(m CastMode) Option {
	return imgproc.WithCastMode(m)
}
