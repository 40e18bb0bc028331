package imgproc

import (
	"fmt"

	"github.com/born-ml/vision/internal/parallel"
	"github.com/born-ml/vision/internal/tensor"
)

// boundary decides which mapped coordinates are sampled.
type boundary int

const (
	// closedBounds samples [0, w-1] x [0, h-1].
	closedBounds boundary = iota
	// blankOutside samples [0, w-1) x [0, h-1) and leaves other pixels at zero.
	blankOutside
)

func (b boundary) contains(u, v, maxU, maxV float32) bool {
	if b == blankOutside {
		return u >= 0 && v >= 0 && u < maxU && v < maxV
	}
	return u >= 0 && v >= 0 && u <= maxU && v <= maxV
}

// prepare validates the source against the options and returns a contiguous
// view of it. The caller releases the returned tensor.
func prepare[T Pixel](src *Image[T], size ImageSize, mode InterpolationMode, o *Options) (*tensor.Tensor[T], error) {
	if err := size.Validate(); err != nil {
		return nil, err
	}
	if err := mode.validate(); err != nil {
		return nil, err
	}
	if o.Channels <= 0 {
		return nil, fmt.Errorf("%w: %d channels requested", ErrChannelMismatch, o.Channels)
	}
	if src.Channels() != o.Channels {
		return nil, fmt.Errorf("%w: image has %d channels, expected %d", ErrChannelMismatch, src.Channels(), o.Channels)
	}
	if o.Allocator == nil {
		o.Allocator = src.Allocator()
	}
	return src.data.Contiguous()
}

// remap fills a new (size.Height, size.Width, ch) image by sampling src at the
// coordinates (mapU[i], mapV[i]) of each output pixel i in row-major order.
// Rows are partitioned across workers; every output pixel is written by
// exactly one worker.
func remap[T Pixel](src *tensor.Tensor[T], mapU, mapV []float32, size ImageSize,
	bounds boundary, mode InterpolationMode, o *Options,
) (*Image[T], error) {
	shape := src.Shape()
	ch := shape[2]
	s := newSampler(src.Data(), shape[0], shape[1], ch)

	out, err := tensor.Zeros[T](o.Allocator, tensor.Shape{size.Height, size.Width, ch})
	if err != nil {
		return nil, err
	}
	dst := out.MutData()
	conv := converter[T](o.CastMode)
	maxU, maxV := float32(s.width-1), float32(s.height-1)
	w := size.Width

	parallel.ForRange(size.Height, func(start, end int) {
		for r := start; r < end; r++ {
			for c := 0; c < w; c++ {
				i := r*w + c
				u, v := mapU[i], mapV[i]
				if !bounds.contains(u, v, maxU, maxV) {
					continue
				}
				px := dst[i*ch : i*ch+ch]
				if mode == Nearest {
					s.nearest(u, v, px)
				} else {
					s.bilinear(u, v, px, conv)
				}
			}
		}
	}, o.Parallel)

	return &Image[T]{data: out}, nil
}

// coordinateGrid returns the (ny, nx) meshgrid of the vectors x and y,
// releasing the vectors.
func coordinateGrid(x, y *tensor.Tensor[float32]) (xx, yy *tensor.Tensor[float32], err error) {
	defer x.Release()
	defer y.Release()
	return Meshgrid(x, y)
}

func releaseAll(ts ...*tensor.Tensor[float32]) {
	for _, t := range ts {
		if t != nil {
			t.Release()
		}
	}
}
