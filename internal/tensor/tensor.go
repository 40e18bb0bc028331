package tensor

import (
	"fmt"

	"github.com/born-ml/vision/internal/alloc"
)

// Tensor is a fixed-rank view over a Storage: a shape and an element stride per
// dimension. The rank is fixed when the tensor is constructed; every constructor
// checks that shape and strides have the same length and that the shape accounts
// for exactly the elements in the storage.
//
// A tensor owns one reference to its storage. Views created by Permute and
// Reshape share the storage and hold their own reference, so each tensor must
// be released independently.
//
// Example:
//
//	t, err := tensor.FromSlice(alloc.Default(), []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
//	if err != nil {
//	    return err
//	}
//	defer t.Release()
//	v := t.At(1, 2) // 6
type Tensor[T DType] struct {
	storage *Storage[T]
	shape   Shape
	strides []int
}

// New creates a row-major tensor over storage, taking ownership of the reference
// passed in.
func New[T DType](storage *Storage[T], shape Shape) (*Tensor[T], error) {
	return newTensor(storage, shape, shape.ComputeStrides())
}

// NewWithStrides creates a tensor with caller-supplied strides, taking ownership
// of the storage reference.
//
// Strides are trusted: beyond the rank and element-count checks no bounds
// guarantee is made for addresses they produce.
func NewWithStrides[T DType](storage *Storage[T], shape Shape, strides []int) (*Tensor[T], error) {
	return newTensor(storage, shape, strides)
}

func newTensor[T DType](storage *Storage[T], shape Shape, strides []int) (*Tensor[T], error) {
	if storage == nil || storage.Released() {
		return nil, ErrReleased
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if len(strides) != len(shape) {
		return nil, fmt.Errorf("%w: %d strides for rank %d", ErrRankMismatch, len(strides), len(shape))
	}
	for i, st := range strides {
		if st < 0 {
			return nil, fmt.Errorf("%w: negative stride %d at dimension %d", ErrInvalidShape, st, i)
		}
	}
	if n := shape.NumElements(); n != storage.Len() {
		return nil, fmt.Errorf("%w: shape %v requires %d elements, storage has %d",
			ErrShapeMismatch, shape, n, storage.Len())
	}

	return &Tensor[T]{
		storage: storage,
		shape:   shape.Clone(),
		strides: append([]int(nil), strides...),
	}, nil
}

// FromSlice creates a row-major tensor from a Go slice.
// The slice is copied into storage obtained from a (alloc.Default() when nil).
func FromSlice[T DType](a alloc.Allocator, data []T, shape Shape) (*Tensor[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != len(data) {
		return nil, fmt.Errorf("%w: shape %v requires %d elements, but got %d",
			ErrShapeMismatch, shape, shape.NumElements(), len(data))
	}

	storage, err := StorageFromSlice(a, data)
	if err != nil {
		return nil, err
	}
	return New(storage, shape)
}

// Shape returns the tensor's shape. It must not be modified.
func (t *Tensor[T]) Shape() Shape {
	return t.shape
}

// Strides returns the tensor's element strides. They must not be modified.
func (t *Tensor[T]) Strides() []int {
	return t.strides
}

// Rank returns the number of dimensions.
func (t *Tensor[T]) Rank() int {
	return len(t.shape)
}

// CheckRank returns ErrRankMismatch unless the tensor has the given rank.
func (t *Tensor[T]) CheckRank(rank int) error {
	if len(t.shape) != rank {
		return fmt.Errorf("%w: expected rank %d, got %d (shape %v)", ErrRankMismatch, rank, len(t.shape), t.shape)
	}
	return nil
}

// NumElements returns the total number of elements.
func (t *Tensor[T]) NumElements() int {
	return t.shape.NumElements()
}

// DType returns the runtime data type.
func (t *Tensor[T]) DType() DataType {
	return DataTypeOf[T]()
}

// Storage returns the underlying storage.
func (t *Tensor[T]) Storage() *Storage[T] {
	return t.storage
}

// Allocator returns the allocator backing the tensor's storage.
func (t *Tensor[T]) Allocator() alloc.Allocator {
	return t.storage.Allocator()
}

// Data returns a read view of the storage elements in memory order.
// See Storage.Data for the view rules.
func (t *Tensor[T]) Data() []T {
	return t.storage.Data()
}

// MutData returns the exclusive mutable view of the storage elements.
func (t *Tensor[T]) MutData() []T {
	return t.storage.MutData()
}

// Bytes returns a read view of the raw storage bytes.
func (t *Tensor[T]) Bytes() []byte {
	return t.storage.Bytes()
}

// IsContiguous reports whether the strides are row-major for the shape.
func (t *Tensor[T]) IsContiguous() bool {
	return t.shape.IsRowMajor(t.strides)
}

// Offset returns the flat storage offset of the given indices.
// Panics if the number of indices or any index is out of bounds.
func (t *Tensor[T]) Offset(indices ...int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("expected %d indices, got %d", len(t.shape), len(indices)))
	}

	offset := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("index %d out of bounds for dimension %d (size %d)", idx, i, t.shape[i]))
		}
		offset += idx * t.strides[i]
	}
	return offset
}

// At returns the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor[T]) At(indices ...int) T {
	return t.storage.Data()[t.Offset(indices...)]
}

// Set sets the element at the given indices.
// Panics if indices are out of bounds.
func (t *Tensor[T]) Set(value T, indices ...int) {
	t.storage.MutData()[t.Offset(indices...)] = value
}

// Release drops the tensor's reference to its storage.
func (t *Tensor[T]) Release() {
	t.storage.Release()
}

// String returns a human-readable representation of the tensor.
func (t *Tensor[T]) String() string {
	return fmt.Sprintf("Tensor[%s]%v strides=%v", t.DType(), t.shape, t.strides)
}
