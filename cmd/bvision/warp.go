package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"k8s.io/klog/v2"

	"github.com/born-ml/vision/internal/imageio"
	"github.com/born-ml/vision/internal/imgproc"
)

func runWarp(args []string, stdout io.Writer) error {
	var (
		input, output, mode, matrix string
		angle, scale                float64
		width, height, quality      int
		af                          allocatorFlags
	)
	fs := newFlagSet("warp")
	fs.StringVar(&input, "input", "", "input image")
	fs.StringVar(&output, "output", "", "output image")
	fs.Float64Var(&angle, "angle", 0, "rotation in degrees, counter-clockwise around the image center")
	fs.Float64Var(&scale, "scale", 1, "isotropic scale applied with the rotation")
	fs.StringVar(&matrix, "matrix", "", "explicit output-to-source matrix \"m0,m1,m2,m3,m4,m5\" (overrides -angle)")
	fs.IntVar(&width, "width", 0, "output width (defaults to the input width)")
	fs.IntVar(&height, "height", 0, "output height (defaults to the input height)")
	fs.StringVar(&mode, "mode", "bilinear", "interpolation: bilinear or nearest")
	fs.IntVar(&quality, "quality", imageio.DefaultQuality, "JPEG quality")
	af.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if input == "" || output == "" {
		return errors.New("warp: -input and -output are required")
	}
	interp, err := imgproc.ParseInterpolationMode(mode)
	if err != nil {
		return fmt.Errorf("warp: %w", err)
	}

	a, tr, _, err := af.build()
	if err != nil {
		return err
	}
	src, err := imageio.Read(input, a)
	if err != nil {
		return err
	}
	defer src.Release()

	size := src.Size()
	if width > 0 {
		size.Width = width
	}
	if height > 0 {
		size.Height = height
	}

	m, err := warpMatrix(matrix, src.Size(), float32(angle), float32(scale))
	if err != nil {
		return fmt.Errorf("warp: %w", err)
	}
	klog.V(1).InfoS("Warping image", "input", input, "matrix", m, "size", size, "mode", interp)

	out, err := imgproc.WarpAffine(src, m, size, interp)
	if err != nil {
		return fmt.Errorf("warp: %w", err)
	}
	defer out.Release()

	if err := imageio.Write(output, out, quality); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %s (%s)\n", output, size)
	if af.stats {
		printStats(stdout, tr)
	}
	return nil
}

// warpMatrix returns the explicit matrix when given, otherwise the inverse of
// the rotation around the center of an image of the given size.
func warpMatrix(explicit string, size imgproc.ImageSize, angle, scale float32) (imgproc.AffineMatrix, error) {
	if explicit == "" {
		rot := imgproc.RotationMatrix2D(float32(size.Width)/2, float32(size.Height)/2, angle, scale)
		return rot.Invert()
	}
	return parseMatrix(explicit)
}

func parseMatrix(s string) (imgproc.AffineMatrix, error) {
	var m imgproc.AffineMatrix
	parts := strings.Split(s, ",")
	if len(parts) != len(m) {
		return m, fmt.Errorf("%w: want %d comma-separated values, got %d", imgproc.ErrInvalidMatrix, len(m), len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return m, fmt.Errorf("%w: %w", imgproc.ErrInvalidMatrix, err)
		}
		m[i] = float32(v)
	}
	return m, m.Validate()
}
