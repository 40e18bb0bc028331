package tensor

import (
	"fmt"
	"math"
	"reflect"

	"github.com/born-ml/vision/internal/alloc"
)

// Permute reorders the dimensions of the tensor.
//
// This is a view operation: the result shares storage with t and holds its own
// reference. Supports negative dim indexing (-1 = last dimension).
//
// Example:
//
//	hwc, _ := tensor.Zeros[float32](nil, tensor.Shape{224, 256, 3})
//	chw, _ := hwc.Permute(2, 0, 1) // Shape: [3, 224, 256]
func (t *Tensor[T]) Permute(dims ...int) (*Tensor[T], error) {
	rank := len(t.shape)
	if len(dims) != rank {
		return nil, fmt.Errorf("%w: permutation of %d dims for rank %d", ErrRankMismatch, len(dims), rank)
	}

	seen := make([]bool, rank)
	shape := make(Shape, rank)
	strides := make([]int, rank)
	for i, d := range dims {
		if d < 0 {
			d += rank
		}
		if d < 0 || d >= rank || seen[d] {
			return nil, fmt.Errorf("%w: invalid permutation %v", ErrInvalidShape, dims)
		}
		seen[d] = true
		shape[i] = t.shape[d]
		strides[i] = t.strides[d]
	}

	return &Tensor[T]{storage: t.storage.Retain(), shape: shape, strides: strides}, nil
}

// Reshape returns a view of the tensor with a new shape.
//
// The tensor must be contiguous and the new shape must have the same number of
// elements. One dimension may be -1 and is inferred.
func (t *Tensor[T]) Reshape(dims ...int) (*Tensor[T], error) {
	if !t.IsContiguous() {
		return nil, ErrNotContiguous
	}

	shape := Shape(append([]int(nil), dims...))
	inferred := -1
	known := 1
	for i, d := range shape {
		switch {
		case d == -1 && inferred < 0:
			inferred = i
		case d > 0:
			known *= d
		default:
			return nil, fmt.Errorf("%w: cannot reshape to %v", ErrInvalidShape, dims)
		}
	}
	if inferred >= 0 {
		if t.NumElements()%known != 0 {
			return nil, fmt.Errorf("%w: cannot infer dimension of %v for %d elements",
				ErrShapeMismatch, dims, t.NumElements())
		}
		shape[inferred] = t.NumElements() / known
	}

	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != t.NumElements() {
		return nil, fmt.Errorf("%w: cannot reshape %v to %v", ErrShapeMismatch, t.shape, shape)
	}

	return &Tensor[T]{storage: t.storage.Retain(), shape: shape, strides: shape.ComputeStrides()}, nil
}

// Contiguous returns a row-major tensor with the same logical contents.
// A tensor that is already contiguous is returned as a view; otherwise the
// elements are gathered into new storage from the same allocator.
func (t *Tensor[T]) Contiguous() (*Tensor[T], error) {
	if t.IsContiguous() {
		return &Tensor[T]{
			storage: t.storage.Retain(),
			shape:   t.shape.Clone(),
			strides: append([]int(nil), t.strides...),
		}, nil
	}
	return t.gather(t.Allocator())
}

// Clone creates a deep copy of the tensor in row-major order.
// A nil allocator uses the allocator of t.
func (t *Tensor[T]) Clone(a alloc.Allocator) (*Tensor[T], error) {
	if a == nil {
		a = t.Allocator()
	}
	return t.gather(a)
}

func (t *Tensor[T]) gather(a alloc.Allocator) (*Tensor[T], error) {
	if t.storage.Released() {
		return nil, ErrReleased
	}
	storage, err := NewStorage[T](a, t.NumElements())
	if err != nil {
		return nil, err
	}

	src := t.storage.Data()
	dst := storage.MutData()
	conv := converterFor[U]()
	i := 0
	t.forEachOffset(func(off int) {
		dst[i] = conv(float64(src[off]) * scale)
		i++
	})
	return New(storage, t.shape)
}

// converterFor returns the conversion from float64 to U, saturating for
// integer targets. The branch is chosen by the underlying kind of U.
func converterFor[U Numeric]() func(float64) U {
	switch reflect.TypeFor[U]().Kind() {
	case reflect.Float32, reflect.Float64:
		return func(v float64) U { return U(v) }
	case reflect.Uint8:
		return func(v float64) U { return U(clampTrunc(v, 0, math.MaxUint8)) }
	case reflect.Int32:
		return func(v float64) U { return U(clampTrunc(v, math.MinInt32, math.MaxInt32)) }
	default:
		return func(v float64) U {
			// float64(MaxInt64) rounds up to 2^63, which does not fit.
			if v >= math.MaxInt64 {
				maxI := int64(math.MaxInt64)
				return U(maxI)
			}
			return U(int64(clampTrunc(v, math.MinInt64, math.MaxInt64)))
		}
	}
}

func clampTrunc(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v <= lo:
		return lo
	case v >= hi:
		return hi
	default:
		return math.Trunc(v)
	}
}
