// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import "github.com/born-ml/vision/internal/tensor"

// DType is a constraint for tensor data types.
// Supported types: float32, float64, int32, int64, uint8, bool.
type DType = tensor.DType

// Numeric is the subset of DType that supports Cast.
type Numeric = tensor.Numeric

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
	Int32   DataType = tensor.Int32
	Int64   DataType = tensor.Int64
	Uint8   DataType = tensor.Uint8
	Bool    DataType = tensor.Bool
)

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Tensor is a shape and strides over reference-counted storage.
type Tensor[T DType] = tensor.Tensor[T]

// Storage is a contiguous, allocator-owned element buffer.
type Storage[T DType] = tensor.Storage[T]

// Common errors.
var (
	ErrInvalidShape  = tensor.ErrInvalidShape
	ErrRankMismatch  = tensor.ErrRankMismatch
	ErrShapeMismatch = tensor.ErrShapeMismatch
	ErrNotContiguous = tensor.ErrNotContiguous
	ErrReleased      = tensor.ErrReleased
)

// NewStorage allocates zeroed storage for n elements from a (DefaultAllocator when nil).
func NewStorage[T DType](a Allocator, n int) (*Storage[T], error) {
	return tensor.NewStorage[T](a, n)
}

// New wraps storage in a row-major tensor of the given shape.
func New[T DType](storage *Storage[T], shape Shape) (*Tensor[T], error) {
	return tensor.New(storage, shape)
}

// NewWithStrides wraps storage with caller-supplied strides, which are trusted.
func NewWithStrides[T DType](storage *Storage[T], shape Shape, strides []int) (*Tensor[T], error) {
	return tensor.NewWithStrides(storage, shape, strides)
}

// FromSlice copies data into a new row-major tensor.
func FromSlice[T DType](a Allocator, data []T, shape Shape) (*Tensor[T], error) {
	return tensor.FromSlice(a, data, shape)
}

// Zeros creates a zero-filled tensor.
func Zeros[T DType](a Allocator, shape Shape) (*Tensor[T], error) {
	return tensor.Zeros[T](a, shape)
}

// Full creates a tensor with every element set to value.
func Full[T DType](a Allocator, shape Shape, value T) (*Tensor[T], error) {
	return tensor.Full(a, shape, value)
}

// Cast converts every element of t to U after multiplying it by scale.
// Integer results saturate; NaN becomes zero.
func Cast[T, U Numeric](t *Tensor[T], a Allocator, scale float64) (*Tensor[U], error) {
	return tensor.Cast[T, U](t, a, scale)
}

// ParseDataType parses a dtype name such as "float32".
func ParseDataType(s string) (DataType, bool) {
	return tensor.ParseDataType(s)
}

// DataTypeOf returns the DataType of T.
func DataTypeOf[T DType]() DataType {
	return tensor.DataTypeOf[T]()
}
