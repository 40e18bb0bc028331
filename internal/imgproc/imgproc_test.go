package imgproc

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/vision/internal/alloc"
	"github.com/born-ml/vision/internal/parallel"
	"github.com/born-ml/vision/internal/tensor"
)

func randomImage(t testing.TB, size ImageSize, seed uint64) *Image[uint8] {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed+1))
	data := make([]uint8, size.Width*size.Height*3)
	for i := range data {
		data[i] = uint8(rng.IntN(256))
	}
	img, err := NewImage(nil, size, 3, data)
	require.NoError(t, err)
	t.Cleanup(img.Release)
	return img
}

// gray2x2 is the single-channel image
//
//	  0 100
//	200 255
func gray2x2(t *testing.T) *Image[uint8] {
	t.Helper()
	img, err := NewImage(nil, ImageSize{Width: 2, Height: 2}, 1, []uint8{0, 100, 200, 255})
	require.NoError(t, err)
	t.Cleanup(img.Release)
	return img
}

func TestResizeConstantField(t *testing.T) {
	src, err := FromSizeVal[uint8](nil, ImageSize{Width: 4, Height: 4}, 3, 100)
	require.NoError(t, err)
	defer src.Release()

	out, err := Resize(src, ImageSize{Width: 2, Height: 2}, Bilinear)
	require.NoError(t, err)
	defer out.Release()

	assert.Equal(t, ImageSize{Width: 2, Height: 2}, out.Size())
	assert.Equal(t, 3, out.Channels())
	for _, v := range out.Data() {
		assert.Equal(t, uint8(100), v)
	}
}

func TestResizeIdentity(t *testing.T) {
	size := ImageSize{Width: 37, Height: 23}
	src := randomImage(t, size, 7)

	for _, mode := range []InterpolationMode{Bilinear, Nearest} {
		t.Run(mode.String(), func(t *testing.T) {
			out, err := Resize(src, size, mode)
			require.NoError(t, err)
			defer out.Release()
			assert.Equal(t, src.Data(), out.Data())
		})
	}
}

func TestResizeIdentityFloat(t *testing.T) {
	src := randomImage(t, ImageSize{Width: 16, Height: 9}, 3)
	f, err := CastAndScale[uint8, float32](src, 1.0/255)
	require.NoError(t, err)
	defer f.Release()

	out, err := Resize(f, f.Size(), Bilinear)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, f.Data(), out.Data())
}

func TestResizeIdentityFloat64(t *testing.T) {
	size := ImageSize{Width: 4, Height: 3}
	data := make([]float64, size.Width*size.Height*3)
	for i := range data {
		data[i] = 0.1 * float64(i+1)
	}
	src, err := NewImage(nil, size, 3, data)
	require.NoError(t, err)
	defer src.Release()

	out, err := Resize(src, size, Bilinear)
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, src.Data(), out.Data())
}

func TestResizeFloat64Precision(t *testing.T) {
	src, err := NewImage(nil, ImageSize{Width: 2, Height: 1}, 1, []float64{0.1, 0.3})
	require.NoError(t, err)
	defer src.Release()

	out, err := Resize(src, ImageSize{Width: 3, Height: 1}, Bilinear, WithChannels(1))
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, 0.1, out.Pixel(0, 0, 0))
	assert.InDelta(t, 0.2, out.Pixel(1, 0, 0), 1e-15)
	assert.Equal(t, 0.3, out.Pixel(2, 0, 0))
}

func TestResizeBilinearTaps(t *testing.T) {
	src := gray2x2(t)

	out, err := Resize(src, ImageSize{Width: 3, Height: 3}, Bilinear, WithChannels(1))
	require.NoError(t, err)
	defer out.Release()

	want := []uint8{
		0, 50, 100,
		100, 138, 177,
		200, 227, 255,
	}
	assert.Equal(t, want, out.Data())
}

func TestResizeCastRound(t *testing.T) {
	src := gray2x2(t)

	out, err := Resize(src, ImageSize{Width: 3, Height: 3}, Bilinear, WithChannels(1), WithCastMode(CastRound))
	require.NoError(t, err)
	defer out.Release()

	// 138.75 rounds up where truncation gives 138; 227.5 rounds away from zero.
	assert.Equal(t, uint8(139), out.Pixel(1, 1, 0))
	assert.Equal(t, uint8(228), out.Pixel(1, 2, 0))
	assert.Equal(t, uint8(178), out.Pixel(2, 1, 0))
}

type gray uint8

func TestResizeNamedPixelType(t *testing.T) {
	src, err := NewImage(nil, ImageSize{Width: 2, Height: 2}, 1, []gray{0, 100, 200, 255})
	require.NoError(t, err)
	defer src.Release()

	out, err := Resize(src, ImageSize{Width: 3, Height: 3}, Bilinear, WithChannels(1), WithCastMode(CastRound))
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, gray(139), out.Pixel(1, 1, 0))
	assert.Equal(t, gray(228), out.Pixel(1, 2, 0))
	assert.Equal(t, gray(255), out.Pixel(2, 2, 0))
}

func TestResizeNearest(t *testing.T) {
	src := gray2x2(t)

	out, err := Resize(src, ImageSize{Width: 3, Height: 3}, Nearest, WithChannels(1))
	require.NoError(t, err)
	defer out.Release()

	// 0.5 rounds half away from zero.
	want := []uint8{
		0, 100, 100,
		200, 255, 255,
		200, 255, 255,
	}
	assert.Equal(t, want, out.Data())
}

func TestResizeSingleExtent(t *testing.T) {
	src := gray2x2(t)

	out, err := Resize(src, ImageSize{Width: 1, Height: 1}, Bilinear, WithChannels(1))
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, []uint8{0}, out.Data())
}

func TestResizeUpscaleKeepsCorners(t *testing.T) {
	src := randomImage(t, ImageSize{Width: 5, Height: 4}, 11)

	out, err := Resize(src, ImageSize{Width: 13, Height: 9}, Bilinear)
	require.NoError(t, err)
	defer out.Release()

	for c := 0; c < 3; c++ {
		assert.Equal(t, src.Pixel(0, 0, c), out.Pixel(0, 0, c))
		assert.Equal(t, src.Pixel(4, 0, c), out.Pixel(12, 0, c))
		assert.Equal(t, src.Pixel(0, 3, c), out.Pixel(0, 8, c))
		assert.Equal(t, src.Pixel(4, 3, c), out.Pixel(12, 8, c))
	}
}

func TestResizeParallelDeterminism(t *testing.T) {
	src := randomImage(t, ImageSize{Width: 97, Height: 61}, 42)
	size := ImageSize{Width: 50, Height: 131}

	seq, err := Resize(src, size, Bilinear, WithParallel(parallel.Sequential()))
	require.NoError(t, err)
	defer seq.Release()

	for _, workers := range []int{2, 3, 8, 64} {
		cfg := parallel.Config{Enabled: true, NumWorkers: workers, MinChunkSize: 1}
		par, err := Resize(src, size, Bilinear, WithParallel(cfg))
		require.NoError(t, err)
		assert.Equal(t, seq.Data(), par.Data(), "workers=%d", workers)
		par.Release()
	}
}

func TestResizeDoesNotMutateSource(t *testing.T) {
	src := randomImage(t, ImageSize{Width: 8, Height: 8}, 5)
	before := append([]uint8(nil), src.Data()...)

	out, err := Resize(src, ImageSize{Width: 3, Height: 5}, Bilinear)
	require.NoError(t, err)
	out.Release()

	assert.Equal(t, before, src.Data())
}

func TestResizeNonContiguousSource(t *testing.T) {
	// Build a (w, h, c) tensor and view it as (h, w, c).
	data := make([]uint8, 6*4*3)
	for i := range data {
		data[i] = uint8(i)
	}
	whc, err := tensor.FromSlice(nil, data, tensor.Shape{6, 4, 3})
	require.NoError(t, err)
	defer whc.Release()
	hwc, err := whc.Permute(1, 0, 2)
	require.NoError(t, err)

	view, err := FromTensor(hwc)
	require.NoError(t, err)
	defer view.Release()
	dense, err := view.Clone()
	require.NoError(t, err)
	defer dense.Release()

	a, err := Resize(view, ImageSize{Width: 3, Height: 2}, Bilinear)
	require.NoError(t, err)
	defer a.Release()
	b, err := Resize(dense, ImageSize{Width: 3, Height: 2}, Bilinear)
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, b.Data(), a.Data())
}

func TestResizeAllocator(t *testing.T) {
	src := randomImage(t, ImageSize{Width: 20, Height: 10}, 9)
	tr := alloc.NewTracking(alloc.NewPool())

	out, err := Resize(src, ImageSize{Width: 7, Height: 7}, Bilinear, WithAllocator(tr))
	require.NoError(t, err)
	assert.Equal(t, tr, out.Allocator())
	assert.Equal(t, int64(1), tr.Stats().LiveBlocks, "coordinate grids are released")

	out.Release()
	assert.Equal(t, int64(0), tr.Stats().LiveBlocks)
}

func TestResizeErrors(t *testing.T) {
	src := randomImage(t, ImageSize{Width: 4, Height: 4}, 1)
	tr := alloc.NewTracking(nil)

	tests := []struct {
		name string
		size ImageSize
		mode InterpolationMode
		opts []Option
		want error
	}{
		{"zero width", ImageSize{Width: 0, Height: 4}, Bilinear, nil, ErrInvalidSize},
		{"negative height", ImageSize{Width: 4, Height: -1}, Bilinear, nil, ErrInvalidSize},
		{"channel mismatch", ImageSize{Width: 2, Height: 2}, Bilinear, []Option{WithChannels(4)}, ErrChannelMismatch},
		{"bad mode", ImageSize{Width: 2, Height: 2}, InterpolationMode(9), nil, ErrInvalidMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithAllocator(tr)}, tt.opts...)
			_, err := Resize(src, tt.size, tt.mode, opts...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, int64(0), tr.Stats().Allocs, "rejected before allocation")
}

func TestWarpTranslationOutOfFrame(t *testing.T) {
	src, err := FromSizeVal[uint8](nil, ImageSize{Width: 8, Height: 6}, 3, 200)
	require.NoError(t, err)
	defer src.Release()

	size := ImageSize{Width: 5, Height: 7}
	for _, m := range []AffineMatrix{Translation(100, 0), Translation(0, -50), Translation(-8, -6)} {
		out, err := WarpAffine(src, m, size, Bilinear)
		require.NoError(t, err)
		assert.Equal(t, size, out.Size())
		for _, v := range out.Data() {
			require.Equal(t, uint8(0), v)
		}
		out.Release()
	}
}

func TestWarpIntegerTranslation(t *testing.T) {
	src := randomImage(t, ImageSize{Width: 9, Height: 7}, 21)

	out, err := WarpAffine(src, Translation(2, 1), src.Size(), Bilinear)
	require.NoError(t, err)
	defer out.Release()

	for y := 0; y < 7; y++ {
		for x := 0; x < 9; x++ {
			for c := 0; c < 3; c++ {
				u, v := x+2, y+1
				if u < 8 && v < 6 {
					require.Equal(t, src.Pixel(u, v, c), out.Pixel(x, y, c), "(%d,%d,%d)", x, y, c)
				} else {
					require.Equal(t, uint8(0), out.Pixel(x, y, c), "(%d,%d,%d)", x, y, c)
				}
			}
		}
	}

	wide, err := CastAndScale[uint8, float64](src, 0.1)
	require.NoError(t, err)
	defer wide.Release()
	out64, err := WarpAffine(wide, Translation(2, 1), wide.Size(), Bilinear)
	require.NoError(t, err)
	defer out64.Release()

	for y := 0; y < 6-1; y++ {
		for x := 0; x < 8-2; x++ {
			for c := 0; c < 3; c++ {
				require.Equal(t, wide.Pixel(x+2, y+1, c), out64.Pixel(x, y, c), "(%d,%d,%d)", x, y, c)
			}
		}
	}
}

func TestWarpIdentityBlanksLastCell(t *testing.T) {
	src, err := FromSizeVal[float32](nil, ImageSize{Width: 3, Height: 3}, 3, 0.5)
	require.NoError(t, err)
	defer src.Release()

	out, err := WarpAffine(src, Identity, src.Size(), Bilinear)
	require.NoError(t, err)
	defer out.Release()

	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			want := float32(0.5)
			if x == 2 || y == 2 {
				want = 0
			}
			assert.Equal(t, want, out.Pixel(x, y, 1), "(%d,%d)", x, y)
		}
	}
}

func TestWarpHalfPixel(t *testing.T) {
	src := gray2x2(t)
	big, err := Resize(src, ImageSize{Width: 3, Height: 3}, Bilinear, WithChannels(1))
	require.NoError(t, err)
	defer big.Release()

	// Sample the center of the top-left cell of the 2x2 source.
	out, err := WarpAffine(src, Translation(0.5, 0.5), ImageSize{Width: 1, Height: 1}, Bilinear, WithChannels(1))
	require.NoError(t, err)
	defer out.Release()
	assert.Equal(t, big.Pixel(1, 1, 0), out.Pixel(0, 0, 0))
}

func TestWarpParallelDeterminism(t *testing.T) {
	src := randomImage(t, ImageSize{Width: 64, Height: 48}, 99)
	m, err := RotationMatrix2D(32, 24, 30, 1.2).Invert()
	require.NoError(t, err)

	seq, err := WarpAffine(src, m, src.Size(), Bilinear, WithWorkers(1))
	require.NoError(t, err)
	defer seq.Release()
	par, err := WarpAffine(src, m, src.Size(), Bilinear,
		WithParallel(parallel.Config{Enabled: true, NumWorkers: 5, MinChunkSize: 1}))
	require.NoError(t, err)
	defer par.Release()

	assert.Equal(t, seq.Data(), par.Data())
}

func TestWarpErrors(t *testing.T) {
	src := randomImage(t, ImageSize{Width: 4, Height: 4}, 1)
	nan := float32(0)
	nan /= nan

	_, err := WarpAffine(src, AffineMatrix{1, 0, nan, 0, 1, 0}, src.Size(), Bilinear)
	assert.ErrorIs(t, err, ErrInvalidMatrix)

	_, err = WarpAffine(src, Identity, ImageSize{}, Bilinear)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = Rotate(src, 10, 0, Bilinear)
	assert.ErrorIs(t, err, ErrInvalidMatrix)
}

func TestRotateZeroIsIdentityWarp(t *testing.T) {
	src := randomImage(t, ImageSize{Width: 10, Height: 8}, 4)

	a, err := Rotate(src, 0, 1, Nearest)
	require.NoError(t, err)
	defer a.Release()
	b, err := WarpAffine(src, Identity, src.Size(), Nearest)
	require.NoError(t, err)
	defer b.Release()

	assert.Equal(t, b.Data(), a.Data())
}
