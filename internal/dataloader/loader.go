// Package dataloader streams training samples from a CSV-indexed image
// directory in batches.
//
// A data directory looks like:
//
//	DATA_DIR/
//	    samples.csv      image_files,angular_velocity
//	    oak0/left/*.jpg  images named by the index
//
// Each sample is decoded, optionally resized and converted to float32 in
// [0, 1]. Samples are prepared concurrently and arrive in completion order.
package dataloader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/born-ml/vision/internal/alloc"
	"github.com/born-ml/vision/internal/imageio"
	"github.com/born-ml/vision/internal/imgproc"
)

// Default layout of a data directory.
const (
	DefaultIndexFile = "samples.csv"
	DefaultImagesDir = "oak0/left"
	DefaultBatchSize = 8
)

// ErrInvalidConfig is returned by New for unusable settings.
var ErrInvalidConfig = errors.New("invalid dataloader config")

// Config describes where samples live and how they are prepared.
type Config struct {
	DataDir   string // Root of the data directory.
	IndexFile string // Index path relative to DataDir.
	ImagesDir string // Image directory relative to DataDir.

	BatchSize int // Samples per batch.
	Workers   int // Concurrent decoders; <= 0 uses GOMAXPROCS.

	// Size resizes every image when non-zero.
	Size imgproc.ImageSize
	Mode imgproc.InterpolationMode

	// Allocator backs the sample images; nil uses alloc.Default().
	Allocator alloc.Allocator

	// SkipErrors logs and drops samples that fail to load instead of
	// aborting the run.
	SkipErrors bool
}

// DefaultConfig returns the configuration for a data directory in the
// default layout.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:   dataDir,
		IndexFile: DefaultIndexFile,
		ImagesDir: DefaultImagesDir,
		BatchSize: DefaultBatchSize,
		Workers:   runtime.GOMAXPROCS(0),
		Mode:      imgproc.Bilinear,
	}
}

func (c *Config) validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Size != (imgproc.ImageSize{}) {
		if err := c.Size.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if c.IndexFile == "" {
		c.IndexFile = DefaultIndexFile
	}
	c.Allocator = alloc.OrDefault(c.Allocator)
	return nil
}

// Sample is one prepared training example.
type Sample struct {
	ID              int
	Path            string
	Image           *imgproc.Image[float32]
	AngularVelocity float64
}

// Release frees the sample image.
func (s Sample) Release() {
	if s.Image != nil {
		s.Image.Release()
	}
}

// Loader reads the samples named by an index.
type Loader struct {
	cfg     Config
	entries []Entry
}

// New reads the index of cfg.DataDir and returns a loader over it.
func New(cfg Config) (*Loader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	entries, err := LoadIndexFile(filepath.Join(cfg.DataDir, cfg.IndexFile))
	if err != nil {
		return nil, err
	}
	return &Loader{cfg: cfg, entries: entries}, nil
}

// NewFromEntries returns a loader over entries; cfg.IndexFile is ignored.
func NewFromEntries(cfg Config, entries []Entry) (*Loader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Loader{cfg: cfg, entries: entries}, nil
}

// Config returns the effective configuration.
func (l *Loader) Config() Config { return l.cfg }

// Len returns the number of indexed samples.
func (l *Loader) Len() int { return len(l.entries) }

// NumBatches returns the number of batches a run without skipped samples delivers.
func (l *Loader) NumBatches() int {
	return (len(l.entries) + l.cfg.BatchSize - 1) / l.cfg.BatchSize
}

// Prepare loads entry e as sample id.
func (l *Loader) Prepare(id int, e Entry) (Sample, error) {
	path := filepath.Join(l.cfg.DataDir, l.cfg.ImagesDir, e.ImageFile)
	img, err := imageio.Read(path, l.cfg.Allocator)
	if err != nil {
		return Sample{}, err
	}
	if l.cfg.Size != (imgproc.ImageSize{}) && img.Size() != l.cfg.Size {
		resized, err := imgproc.Resize(img, l.cfg.Size, l.cfg.Mode)
		img.Release()
		if err != nil {
			return Sample{}, fmt.Errorf("failed to resize %s: %w", path, err)
		}
		img = resized
	}
	scaled, err := imgproc.CastAndScale[uint8, float32](img, 1.0/255)
	img.Release()
	if err != nil {
		return Sample{}, err
	}
	return Sample{ID: id, Path: path, Image: scaled, AngularVelocity: e.AngularVelocity}, nil
}

// Run prepares every indexed sample and calls fn with consecutive batches of
// BatchSize samples. The last batch holds the remainder and may be smaller.
//
// fn runs on the calling goroutine, one batch at a time. Batch images are
// released when fn returns; fn must Clone anything it keeps. Run stops at the
// first error from fn, from loading (unless SkipErrors) or from ctx.
func (l *Loader) Run(ctx context.Context, fn func(Batch) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	klog.V(1).InfoS("Starting dataloader", "samples", len(l.entries),
		"batchSize", l.cfg.BatchSize, "workers", l.cfg.Workers)

	samples := make(chan Sample, l.cfg.BatchSize)
	var produceErr error
	go func() {
		defer close(samples)
		produceErr = l.produce(ctx, samples)
	}()

	pending := make([]Sample, 0, l.cfg.BatchSize)
	index := 0
	for s := range samples {
		pending = append(pending, s)
		if len(pending) < l.cfg.BatchSize {
			continue
		}
		if err := l.deliver(fn, index, pending); err != nil {
			cancel()
			drain(samples)
			return err
		}
		index++
		pending = make([]Sample, 0, l.cfg.BatchSize)
	}

	if produceErr != nil {
		releaseSamples(pending)
		return produceErr
	}
	if err := ctx.Err(); err != nil {
		releaseSamples(pending)
		return err
	}
	if len(pending) > 0 {
		return l.deliver(fn, index, pending)
	}
	return nil
}

func (l *Loader) deliver(fn func(Batch) error, index int, samples []Sample) error {
	b := Batch{Index: index, Samples: samples}
	defer b.Release()
	klog.V(2).InfoS("Delivering batch", "index", index, "size", len(samples))
	return fn(b)
}

// produce prepares the samples with at most Workers concurrent decoders.
func (l *Loader) produce(ctx context.Context, out chan<- Sample) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.Workers)

	for id, e := range l.entries {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			s, err := l.Prepare(id, e)
			if err != nil {
				if l.cfg.SkipErrors {
					klog.ErrorS(err, "Skipping sample", "id", id, "file", e.ImageFile)
					return nil
				}
				return fmt.Errorf("sample %d: %w", id, err)
			}
			select {
			case out <- s:
				return nil
			case <-ctx.Done():
				s.Release()
				return ctx.Err()
			}
		})
	}
	return g.Wait()
}

func drain(samples <-chan Sample) {
	for s := range samples {
		s.Release()
	}
}

func releaseSamples(samples []Sample) {
	for _, s := range samples {
		s.Release()
	}
}
