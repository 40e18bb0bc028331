// Package imageio converts between encoded image files and RGB pixel buffers.
//
// Decoding and encoding are delegated to github.com/disintegration/imaging;
// this package only moves pixels in and out of imgproc images.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"k8s.io/klog/v2"

	"github.com/born-ml/vision/internal/alloc"
	"github.com/born-ml/vision/internal/imgproc"
)

// DefaultQuality is the JPEG quality used by Write when none is given.
const DefaultQuality = 95

// ErrUnsupportedFormat is returned for file extensions no codec handles.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// IsSupported reports whether path has an extension Read and Write understand.
func IsSupported(path string) bool {
	_, err := imaging.FormatFromFilename(path)
	return err == nil
}

// Read decodes the image file at path into an RGB image.
// EXIF orientation is applied. Pixel storage comes from a (alloc.Default() when nil).
func Read(path string, a alloc.Allocator) (*imgproc.Image[uint8], error) {
	if !IsSupported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	img, err := FromStdImage(a, src)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s: %w", path, err)
	}
	klog.V(4).InfoS("Decoded image", "path", path, "size", img.Size())
	return img, nil
}

// Decode reads an encoded image from r into an RGB image.
func Decode(r io.Reader, a alloc.Allocator) (*imgproc.Image[uint8], error) {
	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return FromStdImage(a, src)
}

// Write encodes img to path; the format follows the file extension.
// quality applies to JPEG output (DefaultQuality when <= 0).
func Write(path string, img *imgproc.Image[uint8], quality int) error {
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if quality <= 0 {
		quality = DefaultQuality
	}
	dst, err := ToStdImage(img)
	if err != nil {
		return err
	}
	if err := imaging.Save(dst, path, imaging.JPEGQuality(quality)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	klog.V(4).InfoS("Encoded image", "path", path, "format", format, "size", img.Size())
	return nil
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img *imgproc.Image[uint8], format imaging.Format, quality int) error {
	if quality <= 0 {
		quality = DefaultQuality
	}
	dst, err := ToStdImage(img)
	if err != nil {
		return err
	}
	return imaging.Encode(w, dst, format, imaging.JPEGQuality(quality))
}

// FromStdImage copies any image.Image into a 3-channel RGB image.
// Alpha is dropped.
func FromStdImage(a alloc.Allocator, src image.Image) (*imgproc.Image[uint8], error) {
	nrgba := imaging.Clone(src)
	b := nrgba.Bounds()
	size := imgproc.ImageSize{Width: b.Dx(), Height: b.Dy()}

	img, err := imgproc.FromSizeVal[uint8](a, size, 3, 0)
	if err != nil {
		return nil, err
	}
	dst := img.MutData()
	for y := 0; y < size.Height; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+size.Width*4]
		out := dst[y*size.Width*3 : (y+1)*size.Width*3]
		for x := 0; x < size.Width; x++ {
			copy(out[x*3:x*3+3], row[x*4:x*4+3])
		}
	}
	return img, nil
}

// ToStdImage copies img into an opaque NRGBA image.
// Images with 1 (gray), 3 (RGB) or 4 (RGBA) channels are accepted.
func ToStdImage(img *imgproc.Image[uint8]) (*image.NRGBA, error) {
	size, ch := img.Size(), img.Channels()
	if ch != 1 && ch != 3 && ch != 4 {
		return nil, fmt.Errorf("%w: cannot encode %d channels", imgproc.ErrChannelMismatch, ch)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size.Width, size.Height))
	for y := 0; y < size.Height; y++ {
		for x := 0; x < size.Width; x++ {
			i := y*dst.Stride + x*4
			px := dst.Pix[i : i+4 : i+4]
			switch ch {
			case 1:
				g := img.Pixel(x, y, 0)
				px[0], px[1], px[2], px[3] = g, g, g, 0xff
			case 3:
				px[0], px[1], px[2], px[3] = img.Pixel(x, y, 0), img.Pixel(x, y, 1), img.Pixel(x, y, 2), 0xff
			default:
				px[0], px[1], px[2], px[3] = img.Pixel(x, y, 0), img.Pixel(x, y, 1), img.Pixel(x, y, 2), img.Pixel(x, y, 3)
			}
		}
	}
	return dst, nil
}
