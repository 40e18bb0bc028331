package imgproc

import (
	"fmt"
	"math"
)

// AffineMatrix is the 2x3 matrix [m0 m1 m2; m3 m4 m5] mapping an output pixel
// (column x, row y) to the source coordinate
//
//	u = m0*x + m1*y + m2
//	v = m3*x + m4*y + m5
type AffineMatrix [6]float32

// Identity is the affine matrix that maps every pixel to itself.
var Identity = AffineMatrix{1, 0, 0, 0, 1, 0}

// Translation returns the matrix that samples the source at (x+tx, y+ty).
func Translation(tx, ty float32) AffineMatrix {
	return AffineMatrix{1, 0, tx, 0, 1, ty}
}

// Apply maps (x, y) through the matrix.
func (m AffineMatrix) Apply(x, y float32) (u, v float32) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// Validate returns ErrInvalidMatrix if any coefficient is NaN or infinite.
func (m AffineMatrix) Validate() error {
	for i, c := range m {
		if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
			return fmt.Errorf("%w: coefficient %d is %v", ErrInvalidMatrix, i, c)
		}
	}
	return nil
}

// Invert returns the inverse transform.
// Returns ErrInvalidMatrix if the linear part is singular.
func (m AffineMatrix) Invert() (AffineMatrix, error) {
	if err := m.Validate(); err != nil {
		return AffineMatrix{}, err
	}
	a, b, c := float64(m[0]), float64(m[1]), float64(m[2])
	d, e, f := float64(m[3]), float64(m[4]), float64(m[5])

	det := a*e - b*d
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return AffineMatrix{}, fmt.Errorf("%w: singular matrix %v", ErrInvalidMatrix, m)
	}
	return AffineMatrix{
		float32(e / det), float32(-b / det), float32((b*f - e*c) / det),
		float32(-d / det), float32(a / det), float32((d*c - a*f) / det),
	}, nil
}

// RotationMatrix2D returns the matrix rotating by angle degrees
// (counter-clockwise in image coordinates) around center, with isotropic scale:
//
//	[ α  β  (1-α)*cx - β*cy ]
//	[ -β α  β*cx + (1-α)*cy ]
//
// where α = scale*cos(angle) and β = scale*sin(angle).
//
// The matrix maps source to destination coordinates; pass its inverse to
// WarpAffine to rotate an image.
func RotationMatrix2D(cx, cy, angle, scale float32) AffineMatrix {
	rad := float64(angle) * math.Pi / 180
	alpha := float64(scale) * math.Cos(rad)
	beta := float64(scale) * math.Sin(rad)
	x, y := float64(cx), float64(cy)

	return AffineMatrix{
		float32(alpha), float32(beta), float32((1-alpha)*x - beta*y),
		float32(-beta), float32(alpha), float32(beta*x + (1-alpha)*y),
	}
}
