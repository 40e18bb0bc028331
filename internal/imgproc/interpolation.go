package imgproc

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// InterpolationMode selects how a source coordinate is sampled.
type InterpolationMode int

// Interpolation modes.
const (
	// Bilinear blends the four neighboring pixels.
	Bilinear InterpolationMode = iota
	// Nearest takes the single pixel at the rounded coordinate.
	Nearest
)

// String returns the mode name.
func (m InterpolationMode) String() string {
	switch m {
	case Bilinear:
		return "bilinear"
	case Nearest:
		return "nearest"
	default:
		return fmt.Sprintf("InterpolationMode(%d)", int(m))
	}
}

// ParseInterpolationMode parses "bilinear" or "nearest" (case-insensitive).
func ParseInterpolationMode(s string) (InterpolationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bilinear", "linear":
		return Bilinear, nil
	case "nearest":
		return Nearest, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

func (m InterpolationMode) validate() error {
	if m != Bilinear && m != Nearest {
		return fmt.Errorf("%w: %d", ErrInvalidMode, int(m))
	}
	return nil
}

// CastMode selects how interpolated values are converted to integral pixel types.
// Floating-point images are never rounded.
type CastMode int

// Cast modes.
const (
	// CastTruncate truncates toward zero.
	CastTruncate CastMode = iota
	// CastRound rounds half away from zero.
	CastRound
)

// String returns the cast mode name.
func (m CastMode) String() string {
	if m == CastRound {
		return "round"
	}
	return "truncate"
}

// converter returns the function that stores an interpolated value as T.
// Integral results are clamped to [0, 255].
func converter[T Pixel](mode CastMode) func(float64) T {
	if reflect.TypeFor[T]().Kind() != reflect.Uint8 {
		return func(v float64) T {
			return T(v)
		}
	}
	if mode == CastRound {
		return func(v float64) T {
			return T(clampUint8(math.Round(v)))
		}
	}
	return func(v float64) T {
		return T(clampUint8(v))
	}
}

// clampUint8 truncates v into [0, 255].
func clampUint8(v float64) uint8 {
	switch {
	case !(v > 0): // also catches NaN
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}

// sampler reads interpolated values from one contiguous (h, w, ch) source.
// float64 sources are blended in float64; all others in float32.
type sampler[T Pixel] struct {
	data   []T
	width  int
	height int
	ch     int
	wide   bool
}

func newSampler[T Pixel](data []T, height, width, ch int) *sampler[T] {
	return &sampler[T]{
		data:   data,
		width:  width,
		height: height,
		ch:     ch,
		wide:   reflect.TypeFor[T]().Kind() == reflect.Float64,
	}
}

// bilinear writes the bilinear sample at (u, v) for every channel into out.
// u and v must be non-negative; taps past the last column or row reuse the
// (iu, iv) sample.
func (s *sampler[T]) bilinear(u, v float32, out []T, conv func(float64) T) {
	iu := int(u)
	iv := int(v)

	right, below := s.ch, s.width*s.ch
	if iu+1 >= s.width {
		right = 0
	}
	if iv+1 >= s.height {
		below = 0
	}
	base := (iv*s.width + iu) * s.ch

	if s.wide {
		fu := float64(u) - float64(iu)
		fv := float64(v) - float64(iv)
		for c := range out {
			p := base + c
			v00 := float64(s.data[p])
			v01, v10, v11 := v00, v00, v00
			if right != 0 {
				v01 = float64(s.data[p+right])
			}
			if below != 0 {
				v10 = float64(s.data[p+below])
			}
			if right != 0 && below != 0 {
				v11 = float64(s.data[p+right+below])
			}
			out[c] = conv(v00*(1-fu)*(1-fv) + v01*fu*(1-fv) + v10*(1-fu)*fv + v11*fu*fv)
		}
		return
	}

	fu := u - float32(iu)
	fv := v - float32(iv)
	for c := range out {
		p := base + c
		v00 := float32(s.data[p])
		v01, v10, v11 := v00, v00, v00
		if right != 0 {
			v01 = float32(s.data[p+right])
		}
		if below != 0 {
			v10 = float32(s.data[p+below])
		}
		if right != 0 && below != 0 {
			v11 = float32(s.data[p+right+below])
		}
		out[c] = conv(float64(v00*(1-fu)*(1-fv) + v01*fu*(1-fv) + v10*(1-fu)*fv + v11*fu*fv))
	}
}

// nearest copies the pixel at the rounded coordinate into out.
func (s *sampler[T]) nearest(u, v float32, out []T) {
	x := min(int(math.Round(float64(u))), s.width-1)
	y := min(int(math.Round(float64(v))), s.height-1)
	base := (y*s.width + x) * s.ch
	copy(out, s.data[base:base+len(out)])
}
