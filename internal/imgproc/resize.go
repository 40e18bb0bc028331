package imgproc

// Resize resamples src to size.
//
// Output column c and row r sample the source at
//
//	u = c*(srcW-1)/(dstW-1),  v = r*(srcH-1)/(dstH-1)
//
// so the corner pixels of the output map exactly onto the corner pixels of
// the source (no half-pixel offset). An output extent of 1 samples coordinate 0.
// Every mapped coordinate lies inside the source, so no output pixel is left
// blank. Resizing to the source size returns an identical image.
//
// Example:
//
//	small, err := imgproc.Resize(img, imgproc.ImageSize{Width: 224, Height: 224}, imgproc.Bilinear)
//	if err != nil {
//	    return err
//	}
//	defer small.Release()
func Resize[T Pixel](src *Image[T], size ImageSize, mode InterpolationMode, opts ...Option) (*Image[T], error) {
	o := buildOptions(opts)
	view, err := prepare(src, size, mode, &o)
	if err != nil {
		return nil, err
	}
	defer view.Release()

	srcSize := src.Size()
	x, err := Linspace(o.Allocator, 0, float32(srcSize.Width-1), size.Width)
	if err != nil {
		return nil, err
	}
	y, err := Linspace(o.Allocator, 0, float32(srcSize.Height-1), size.Height)
	if err != nil {
		x.Release()
		return nil, err
	}
	xx, yy, err := coordinateGrid(x, y)
	if err != nil {
		return nil, err
	}
	defer releaseAll(xx, yy)

	return remap(view, xx.Data(), yy.Data(), size, closedBounds, mode, &o)
}
