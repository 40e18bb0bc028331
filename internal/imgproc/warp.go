package imgproc

// WarpAffine produces an image of the given size whose pixel (column x, row y)
// samples src at m.Apply(x, y).
//
// Coordinates outside [0, srcW-1) x [0, srcH-1) are not clamped: those output
// pixels stay zero, so rotations leave blank corners.
//
// m maps output to source coordinates. To apply a source-to-destination
// transform such as RotationMatrix2D, pass its Invert.
func WarpAffine[T Pixel](src *Image[T], m AffineMatrix, size ImageSize, mode InterpolationMode, opts ...Option) (*Image[T], error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	view, err := prepare(src, size, mode, &o)
	if err != nil {
		return nil, err
	}
	defer view.Release()

	x, err := Arange(o.Allocator, size.Width)
	if err != nil {
		return nil, err
	}
	y, err := Arange(o.Allocator, size.Height)
	if err != nil {
		x.Release()
		return nil, err
	}
	uu, vv, err := coordinateGrid(x, y)
	if err != nil {
		return nil, err
	}
	defer releaseAll(uu, vv)

	us, vs := uu.MutData(), vv.MutData()
	for i := range us {
		us[i], vs[i] = m.Apply(us[i], vs[i])
	}

	return remap(view, us, vs, size, blankOutside, mode, &o)
}

// Rotate rotates src by angle degrees around its center with the given scale,
// keeping the source size. Uncovered pixels are zero.
func Rotate[T Pixel](src *Image[T], angle, scale float32, mode InterpolationMode, opts ...Option) (*Image[T], error) {
	size := src.Size()
	fwd := RotationMatrix2D(float32(size.Width)/2, float32(size.Height)/2, angle, scale)
	inv, err := fwd.Invert()
	if err != nil {
		return nil, err
	}
	return WarpAffine(src, inv, size, mode, opts...)
}
