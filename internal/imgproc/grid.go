package imgproc

import (
	"fmt"

	"github.com/born-ml/vision/internal/alloc"
	"github.com/born-ml/vision/internal/tensor"
)

// Linspace returns n evenly spaced values from start to end inclusive.
// With n == 1 the single value is start.
//
// Example:
//
//	x, _ := imgproc.Linspace(nil, 0, 3, 4) // [0 1 2 3]
func Linspace(a alloc.Allocator, start, end float32, n int) (*tensor.Tensor[float32], error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: linspace of %d points", ErrInvalidSize, n)
	}
	t, err := tensor.Zeros[float32](a, tensor.Shape{n})
	if err != nil {
		return nil, err
	}
	data := t.MutData()
	data[0] = start
	if n > 1 {
		span := float64(end) - float64(start)
		for i := 1; i < n; i++ {
			data[i] = float32(float64(start) + float64(i)*span/float64(n-1))
		}
	}
	return t, nil
}

// Arange returns the values 0, 1, ..., n-1.
func Arange(a alloc.Allocator, n int) (*tensor.Tensor[float32], error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: arange of %d points", ErrInvalidSize, n)
	}
	t, err := tensor.Zeros[float32](a, tensor.Shape{n})
	if err != nil {
		return nil, err
	}
	data := t.MutData()
	for i := range data {
		data[i] = float32(i)
	}
	return t, nil
}

// Meshgrid expands the rank-1 coordinate vectors x (length nx) and y (length ny)
// into two (ny, nx) grids: xx[i, j] = x[j] and yy[i, j] = y[i].
// Both grids are allocated from the allocator of x.
func Meshgrid(x, y *tensor.Tensor[float32]) (xx, yy *tensor.Tensor[float32], err error) {
	if err := x.CheckRank(1); err != nil {
		return nil, nil, err
	}
	if err := y.CheckRank(1); err != nil {
		return nil, nil, err
	}
	nx, ny := x.NumElements(), y.NumElements()
	a := x.Allocator()

	xx, err = tensor.Zeros[float32](a, tensor.Shape{ny, nx})
	if err != nil {
		return nil, nil, err
	}
	yy, err = tensor.Zeros[float32](a, tensor.Shape{ny, nx})
	if err != nil {
		xx.Release()
		return nil, nil, err
	}

	xs, ys := contiguousValues(x), contiguousValues(y)
	xxData, yyData := xx.MutData(), yy.MutData()
	for i := 0; i < ny; i++ {
		row := i * nx
		copy(xxData[row:row+nx], xs)
		for j := 0; j < nx; j++ {
			yyData[row+j] = ys[i]
		}
	}
	return xx, yy, nil
}

// contiguousValues returns the elements of a rank-1 tensor in index order.
func contiguousValues(t *tensor.Tensor[float32]) []float32 {
	if t.IsContiguous() {
		return t.Data()
	}
	out := make([]float32, t.NumElements())
	for i := range out {
		out[i] = t.At(i)
	}
	return out
}
