package tensor

import "github.com/born-ml/vision/internal/alloc"

// Zeros creates a tensor filled with zeros.
//
// Example:
//
//	t, err := tensor.Zeros[float32](alloc.Default(), tensor.Shape{3, 4})
func Zeros[T DType](a alloc.Allocator, shape Shape) (*Tensor[T], error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	// NewStorage zero-initializes.
	storage, err := NewStorage[T](a, shape.NumElements())
	if err != nil {
		return nil, err
	}
	return New(storage, shape)
}

// Full creates a tensor filled with a specific value.
//
// Example:
//
//	t, err := tensor.Full[uint8](nil, tensor.Shape{4, 4, 3}, 100)
func Full[T DType](a alloc.Allocator, shape Shape, value T) (*Tensor[T], error) {
	t, err := Zeros[T](a, shape)
	if err != nil {
		return nil, err
	}
	data := t.MutData()
	for i := range data {
		data[i] = value
	}
	return t, nil
}
