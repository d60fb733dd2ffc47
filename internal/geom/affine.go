package geom

import (
	"fmt"
	"math"
)

// Affine is a 2D affine transformation in rendering-context order.
// Layout: [a, b, c, d, e, f] representing:
// | a  c  e |
// | b  d  f |
// | 0  0  1 |
type Affine [6]float64

// AffineIdentity returns the identity transform.
func AffineIdentity() Affine {
	return Affine{1, 0, 0, 1, 0, 0}
}

// AffineTranslate returns a translation transform.
func AffineTranslate(tx, ty float64) Affine {
	return Affine{1, 0, 0, 1, tx, ty}
}

// Multiply returns m * other: other is applied first, then m.
func (m Affine) Multiply(other Affine) Affine {
	return Affine{
		m[0]*other[0] + m[2]*other[1],
		m[1]*other[0] + m[3]*other[1],
		m[0]*other[2] + m[2]*other[3],
		m[1]*other[2] + m[3]*other[3],
		m[0]*other[4] + m[2]*other[5] + m[4],
		m[1]*other[4] + m[3]*other[5] + m[5],
	}
}

// TransformPoint applies the full transform to p.
func (m Affine) TransformPoint(p Point) Point {
	return Point{X: m[0]*p.X + m[2]*p.Y + m[4], Y: m[1]*p.X + m[3]*p.Y + m[5]}
}

// TransformVector applies the linear part only, ignoring translation.
func (m Affine) TransformVector(p Point) Point {
	return Point{X: m[0]*p.X + m[2]*p.Y, Y: m[1]*p.X + m[3]*p.Y}
}

// TransformRect transforms a box and returns its axis-aligned bounding box.
func (m Affine) TransformRect(b Box) Box {
	corners := b.Points()

	lo := m.TransformPoint(corners[0])
	hi := lo
	for _, c := range corners[1:] {
		p := m.TransformPoint(c)
		lo.X, lo.Y = min(lo.X, p.X), min(lo.Y, p.Y)
		hi.X, hi.Y = max(hi.X, p.X), max(hi.Y, p.Y)
	}

	return Box{X: lo.X, Y: lo.Y, W: hi.X - lo.X, H: hi.Y - lo.Y}
}

// Determinant returns the determinant of the linear part.
func (m Affine) Determinant() float64 {
	return m[0]*m[3] - m[1]*m[2]
}

// Invert returns the inverse transform. A zero determinant is reported as
// ErrSingularMatrix instead of silently producing the identity.
func (m Affine) Invert() (Affine, error) {
	det := m.Determinant()
	if math.Abs(det) < singularEps {
		return Affine{}, fmt.Errorf("%w: affine determinant %g", ErrSingularMatrix, det)
	}

	invDet := 1.0 / det
	return Affine{
		m[3] * invDet,
		-m[1] * invDet,
		-m[2] * invDet,
		m[0] * invDet,
		(m[2]*m[5] - m[3]*m[4]) * invDet,
		(m[1]*m[4] - m[0]*m[5]) * invDet,
	}, nil
}

// ToSlice returns the transform as a float64 slice for JSON serialization.
func (m Affine) ToSlice() []float64 {
	return []float64{m[0], m[1], m[2], m[3], m[4], m[5]}
}

// IsIdentity checks if this is the identity transform (within epsilon).
func (m Affine) IsIdentity() bool {
	const eps = 1e-10
	return math.Abs(m[0]-1) < eps &&
		math.Abs(m[1]) < eps &&
		math.Abs(m[2]) < eps &&
		math.Abs(m[3]-1) < eps &&
		math.Abs(m[4]) < eps &&
		math.Abs(m[5]) < eps
}
