package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/born-ml/vision/internal/alloc"
	"github.com/born-ml/vision/internal/imageio"
	"github.com/born-ml/vision/internal/imgproc"
	"github.com/born-ml/vision/internal/parallel"
	"github.com/born-ml/vision/internal/serialization"
)

type resizeFlags struct {
	input   string
	output  string
	size    int
	height  int
	workers int
	mode    string
	iters   int
	quality int
	dryRun  bool
	tensors bool
	alloc   allocatorFlags
}

func runResize(args []string, stdout io.Writer) error {
	var f resizeFlags
	fs := newFlagSet("resize")
	fs.StringVar(&f.input, "input", "", "directory searched recursively for .jpg, .jpeg and .png images")
	fs.StringVar(&f.output, "output", "", "output directory")
	fs.IntVar(&f.size, "size", 0, "output width (and height unless -height is set)")
	fs.IntVar(&f.height, "height", 0, "output height (defaults to -size)")
	fs.IntVar(&f.workers, "workers", 8, "images processed concurrently")
	fs.StringVar(&f.mode, "mode", "bilinear", "interpolation: bilinear or nearest")
	fs.IntVar(&f.iters, "iters", 1, "repeat the whole run and report the average time")
	fs.IntVar(&f.quality, "quality", imageio.DefaultQuality, "JPEG quality")
	fs.BoolVar(&f.dryRun, "dry-run", false, "resize without writing results")
	fs.BoolVar(&f.tensors, "bvt", false, "write zstd-compressed .bvt tensors instead of images")
	f.alloc.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if f.input == "" || (f.output == "" && !f.dryRun) {
		return errors.New("resize: -input and -output are required")
	}
	if f.height == 0 {
		f.height = f.size
	}
	size := imgproc.ImageSize{Width: f.size, Height: f.height}
	if err := size.Validate(); err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	mode, err := imgproc.ParseInterpolationMode(f.mode)
	if err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	if f.workers <= 0 || f.iters <= 0 {
		return errors.New("resize: -workers and -iters must be positive")
	}

	paths, err := findImages(f.input)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintln(stdout, "No images found in", f.input)
		return nil
	}
	if !f.dryRun {
		if err := os.MkdirAll(f.output, 0o755); err != nil {
			return err
		}
	}

	a, tr, arena, err := f.alloc.build()
	if err != nil {
		return err
	}
	klog.InfoS("Resizing images", "count", len(paths), "size", size, "mode", mode,
		"workers", f.workers, "allocator", f.alloc.name)

	var total time.Duration
	for i := 0; i < f.iters; i++ {
		start := time.Now()
		done, err := resizeAll(context.Background(), paths, &f, size, mode, a)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		total += elapsed
		klog.V(1).InfoS("Iteration done", "iter", i, "images", done, "elapsed", elapsed)
		if arena != nil {
			arena.Reset()
		}
	}

	avg := total / time.Duration(f.iters)
	fmt.Fprintf(stdout, "Resized %d images to %s: average %v per iteration (%.1f img/s)\n",
		len(paths), size, avg.Round(time.Microsecond), float64(len(paths))/avg.Seconds())
	if f.alloc.stats {
		printStats(stdout, tr)
	}
	return nil
}

// resizeAll resizes every path with at most f.workers images in flight.
// Each image is resampled on a single goroutine.
func resizeAll(ctx context.Context, paths []string, f *resizeFlags, size imgproc.ImageSize,
	mode imgproc.InterpolationMode, a alloc.Allocator,
) (int64, error) {
	var done atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)

	for _, path := range paths {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := resizeOne(path, f, size, mode, a); err != nil {
				return err
			}
			done.Add(1)
			return nil
		})
	}
	return done.Load(), g.Wait()
}

func resizeOne(path string, f *resizeFlags, size imgproc.ImageSize, mode imgproc.InterpolationMode, a alloc.Allocator) error {
	img, err := imageio.Read(path, a)
	if err != nil {
		return err
	}
	defer img.Release()

	out, err := imgproc.Resize(img, size, mode, imgproc.WithParallel(parallel.Sequential()))
	if err != nil {
		return fmt.Errorf("failed to resize %s: %w", path, err)
	}
	defer out.Release()

	if f.dryRun {
		return nil
	}
	dst, err := outputPath(f.input, f.output, path, f.tensors)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	if f.tensors {
		return serialization.Save(dst, out.Tensor(), serialization.WriterOptions{
			Compress: true,
			Level:    zstd.SpeedFastest,
			Metadata: map[string]string{"source": filepath.Base(path)},
		})
	}
	return imageio.Write(dst, out, f.quality)
}

// outputPath mirrors path, relative to the input directory, under output.
func outputPath(input, output, path string, tensors bool) (string, error) {
	rel, err := filepath.Rel(input, path)
	if err != nil {
		return "", err
	}
	if tensors {
		rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + ".bvt"
	}
	return filepath.Join(output, rel), nil
}

// findImages walks dir for JPEG and PNG files, in lexical order.
func findImages(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && isInputImage(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return paths, nil
}

func isInputImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		return true
	default:
		return false
	}
}
