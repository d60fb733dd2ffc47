package geom

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

var (
	ErrMissingCoords = errors.New("missing coordinates")
	ErrInvalidCoords = errors.New("invalid coordinates")
)

// Point is an immutable 2D coordinate.
// Invalid marks a point that does not exist, e.g. a curve root outside (0, 1).
type Point struct {
	X       float64
	Y       float64
	Invalid bool
}

// InvalidPoint is the canonical "no such point" value.
var InvalidPoint = Point{Invalid: true}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Eq reports whether both coordinates are equal.
func (p Point) Eq(o Point) bool {
	return p.X == o.X && p.Y == o.Y
}

// Gt reports whether both coordinates are strictly greater than o's.
func (p Point) Gt(o Point) bool {
	return p.X > o.X && p.Y > o.Y
}

// Lt reports whether both coordinates are strictly less than o's.
func (p Point) Lt(o Point) bool {
	return p.X < o.X && p.Y < o.Y
}

// Lerp interpolates linearly between p (t=0) and o (t=1).
func (p Point) Lerp(o Point, t float64) Point {
	return Point{
		X: p.X + (o.X-p.X)*t,
		Y: p.Y + (o.Y-p.Y)*t,
	}
}

// Mid returns the midpoint of p and o.
func (p Point) Mid(o Point) Point {
	return p.Lerp(o, 0.5)
}

// Add returns p + o.
func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

// Sub returns p - o.
func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

// Contains reports whether o lies inside the axis-aligned square of side
// radius centered on p. A radius below 1 is rejected with a logged error.
func (p Point) Contains(o Point, radius float64) bool {
	if radius < 1 {
		slog.Error("point containment with invalid radius", "radius", radius)
		return false
	}

	half := radius / 2
	return p.X-half < o.X && p.X+half > o.X &&
		p.Y-half < o.Y && p.Y+half > o.Y
}

func (p Point) String() string {
	if p.Invalid {
		return "invalid"
	}
	return fmt.Sprintf("%g, %g", p.X, p.Y)
}

// ToPoints normalizes a mix of coordinate representations into Points.
// Accepted: Point, *Point, [2]float64, []float64 and []any of length 2,
// and map[string]any with "x" and "y" (as produced by encoding/json).
// A nil value is a caller bug and fails with ErrMissingCoords.
func ToPoints(vals ...any) ([]Point, error) {
	out := make([]Point, 0, len(vals))
	for i, v := range vals {
		p, err := toPoint(v)
		if err != nil {
			return nil, fmt.Errorf("coordinate %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func toPoint(v any) (Point, error) {
	switch c := v.(type) {
	case nil:
		return Point{}, ErrMissingCoords
	case Point:
		return c, nil
	case *Point:
		if c == nil {
			return Point{}, ErrMissingCoords
		}
		return *c, nil
	case [2]float64:
		return Pt(c[0], c[1]), nil
	case []float64:
		if len(c) != 2 {
			return Point{}, fmt.Errorf("%w: want 2 values, got %d", ErrInvalidCoords, len(c))
		}
		return Pt(c[0], c[1]), nil
	case []any:
		if len(c) != 2 {
			return Point{}, fmt.Errorf("%w: want 2 values, got %d", ErrInvalidCoords, len(c))
		}
		x, okx := c[0].(float64)
		y, oky := c[1].(float64)
		if !okx || !oky {
			return Point{}, fmt.Errorf("%w: non-numeric pair %v", ErrInvalidCoords, c)
		}
		return Pt(x, y), nil
	case map[string]any:
		x, okx := c["x"].(float64)
		y, oky := c["y"].(float64)
		if !okx || !oky {
			return Point{}, fmt.Errorf("%w: object without numeric x/y", ErrInvalidCoords)
		}
		return Pt(x, y), nil
	default:
		return Point{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidCoords, v)
	}
}

// PointOnQuadratic evaluates the quadratic Bezier (p0, p1, p2) at t.
func PointOnQuadratic(p0, p1, p2 Point, t float64) Point {
	return p0.Lerp(p1, t).Lerp(p1.Lerp(p2, t), t)
}

// PointOnCubic evaluates the cubic Bezier (p0, p1, p2, p3) at t using
// De Casteljau's nested interpolation.
func PointOnCubic(p0, p1, p2, p3 Point, t float64) Point {
	a := p0.Lerp(p1, t)
	b := p1.Lerp(p2, t)
	c := p2.Lerp(p3, t)
	return a.Lerp(b, t).Lerp(b.Lerp(c, t), t)
}

// QuadraticMid estimates the middle of a quadratic curve as the midpoint of
// the midpoints of its two control segments.
func QuadraticMid(start, ctrl, end Point) Point {
	return start.Mid(ctrl).Mid(ctrl.Mid(end))
}

const rootEps = 1e-12

// CubicExtrema returns the points of the cubic Bezier where dx/dt or dy/dt is
// zero for t strictly inside (0, 1). Up to four points are returned.
func CubicExtrema(p0, p1, p2, p3 Point) []Point {
	candidates := make([]Point, 0, 4)
	for _, t := range derivativeRoots(p0.X, p1.X, p2.X, p3.X) {
		candidates = append(candidates, cubicAt(p0, p1, p2, p3, t))
	}
	for _, t := range derivativeRoots(p0.Y, p1.Y, p2.Y, p3.Y) {
		candidates = append(candidates, cubicAt(p0, p1, p2, p3, t))
	}

	out := candidates[:0]
	for _, p := range candidates {
		if !p.Invalid {
			out = append(out, p)
		}
	}
	return out
}

func cubicAt(p0, p1, p2, p3 Point, t float64) Point {
	if !(t > 0 && t < 1) {
		return InvalidPoint
	}
	return PointOnCubic(p0, p1, p2, p3, t)
}

// derivativeRoots solves a*t^2 + b*t + c = 0 for the derivative of one axis
// of a cubic Bezier. Missing roots are reported as NaN.
func derivativeRoots(s, c1, c2, e float64) [2]float64 {
	a := 3*e - 9*c2 + 9*c1 - 3*s
	b := 6*c2 - 12*c1 + 6*s
	c := 3*c1 - 3*s

	nan := math.NaN()
	if math.Abs(a) < rootEps {
		if math.Abs(b) < rootEps {
			return [2]float64{nan, nan}
		}
		return [2]float64{-c / b, nan}
	}

	disc := b*b - 4*a*c
	if disc < 0 {
		return [2]float64{nan, nan}
	}
	sq := math.Sqrt(disc)
	return [2]float64{(-b + sq) / (2 * a), (-b - sq) / (2 * a)}
}
