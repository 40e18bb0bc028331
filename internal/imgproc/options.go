package imgproc

import (
	"github.com/born-ml/vision/internal/alloc"
	"github.com/born-ml/vision/internal/parallel"
)

// DefaultChannels is the channel count images are expected to have unless
// WithChannels says otherwise.
const DefaultChannels = 3

// Options controls a resampling call.
type Options struct {
	Allocator alloc.Allocator // Output allocator; nil uses the source image's allocator.
	Parallel  parallel.Config // Row partitioning.
	Channels  int             // Required channel count of the source image.
	CastMode  CastMode        // Float to integer conversion of interpolated values.
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Parallel: parallel.DefaultConfig(),
		Channels: DefaultChannels,
		CastMode: CastTruncate,
	}
}

// Option modifies Options.
type Option func(*Options)

// WithAllocator allocates output images (and the coordinate grids) from a.
func WithAllocator(a alloc.Allocator) Option {
	return func(o *Options) {
		o.Allocator = a
	}
}

// WithParallel replaces the parallel configuration.
func WithParallel(cfg parallel.Config) Option {
	return func(o *Options) {
		o.Parallel = cfg
	}
}

// WithWorkers sets the number of row workers; 1 runs sequentially.
func WithWorkers(n int) Option {
	return func(o *Options) {
		o.Parallel = o.Parallel.WithWorkers(n)
	}
}

// WithChannels sets the channel count the source image must have.
func WithChannels(n int) Option {
	return func(o *Options) {
		o.Channels = n
	}
}

// WithCastMode selects truncation or rounding for integral outputs.
func WithCastMode(m CastMode) Option {
	return func(o *Options) {
		o.CastMode = m
	}
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
