package dataloader

import (
	"fmt"

	"github.com/born-ml/vision/internal/alloc"
	"github.com/born-ml/vision/internal/tensor"
)

// Batch is a group of consecutive samples handed to the Run callback.
type Batch struct {
	Index   int
	Samples []Sample
}

// Len returns the number of samples in the batch.
func (b Batch) Len() int { return len(b.Samples) }

// Release frees every sample image.
func (b Batch) Release() {
	releaseSamples(b.Samples)
}

// Stack copies the sample images into one (n, height, width, channels) tensor.
// All images must have the same shape.
func (b Batch) Stack(a alloc.Allocator) (*tensor.Tensor[float32], error) {
	if len(b.Samples) == 0 {
		return nil, fmt.Errorf("%w: empty batch", tensor.ErrInvalidShape)
	}
	first := b.Samples[0].Image.Tensor().Shape()
	out, err := tensor.Zeros[float32](a, tensor.Shape{len(b.Samples), first[0], first[1], first[2]})
	if err != nil {
		return nil, err
	}
	dst := out.MutData()
	stride := first.NumElements()

	for i, s := range b.Samples {
		if !s.Image.Tensor().Shape().Equal(first) {
			out.Release()
			return nil, fmt.Errorf("%w: sample %d has shape %v, batch has %v",
				tensor.ErrShapeMismatch, s.ID, s.Image.Tensor().Shape(), first)
		}
		dense, err := s.Image.Tensor().Contiguous()
		if err != nil {
			out.Release()
			return nil, err
		}
		copy(dst[i*stride:(i+1)*stride], dense.Data())
		dense.Release()
	}
	return out, nil
}

// Targets returns the angular velocities of the batch as a rank-1 tensor.
func (b Batch) Targets(a alloc.Allocator) (*tensor.Tensor[float64], error) {
	if len(b.Samples) == 0 {
		return nil, fmt.Errorf("%w: empty batch", tensor.ErrInvalidShape)
	}
	values := make([]float64, len(b.Samples))
	for i, s := range b.Samples {
		values[i] = s.AngularVelocity
	}
	return tensor.FromSlice(a, values, tensor.Shape{len(values)})
}
