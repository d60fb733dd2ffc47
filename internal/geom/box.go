package geom

import "fmt"

// Box is an axis-aligned rectangle: position plus size.
type Box struct {
	X float64
	Y float64
	W float64
	H float64
}

// NewBox returns the box at (x, y) with size w×h.
func NewBox(x, y, w, h float64) Box {
	return Box{X: x, Y: y, W: w, H: h}
}

// BoxFromCorners returns the box spanned by two corners regardless of their
// relative order; the origin is always the upper-left corner.
func BoxFromCorners(a, b Point) Box {
	return Box{
		X: min(a.X, b.X),
		Y: min(a.Y, b.Y),
		W: max(a.X, b.X) - min(a.X, b.X),
		H: max(a.Y, b.Y) - min(a.Y, b.Y),
	}
}

// Move translates the box by d. With bounds set, each axis moves only if the
// box stays fully inside bounds on that axis; the other axis is unaffected.
func (b *Box) Move(d Point, bounds *Box) {
	if bounds == nil {
		b.X += d.X
		b.Y += d.Y
		return
	}

	if nx := b.X + d.X; nx >= bounds.X && nx+b.W <= bounds.X+bounds.W {
		b.X = nx
	}
	if ny := b.Y + d.Y; ny >= bounds.Y && ny+b.H <= bounds.Y+bounds.H {
		b.Y = ny
	}
}

// SetPosition moves the box origin to p.
func (b *Box) SetPosition(p Point) {
	b.X, b.Y = p.X, p.Y
}

// Position returns the box origin.
func (b Box) Position() Point {
	return Pt(b.X, b.Y)
}

// Contains reports whether p lies strictly inside the box. Points on an edge
// are outside.
func (b Box) Contains(p Point) bool {
	return p.X > b.X && p.X < b.X+b.W &&
		p.Y > b.Y && p.Y < b.Y+b.H
}

// ContainsBox reports whether all four corners of o lie strictly inside b.
func (b Box) ContainsBox(o Box) bool {
	for _, c := range o.Points() {
		if !b.Contains(c) {
			return false
		}
	}
	return true
}

// ContainedIn reports whether b lies strictly inside o.
func (b Box) ContainedIn(o Box) bool {
	return o.ContainsBox(b)
}

// Points returns the corners: top-left, top-right, bottom-right, bottom-left.
func (b Box) Points() [4]Point {
	return [4]Point{
		Pt(b.X, b.Y),
		Pt(b.X+b.W, b.Y),
		Pt(b.X+b.W, b.Y+b.H),
		Pt(b.X, b.Y+b.H),
	}
}

// Expand grows the box by m on every side.
func (b Box) Expand(m float64) Box {
	return Box{X: b.X - m, Y: b.Y - m, W: b.W + 2*m, H: b.H + 2*m}
}

// IsZero reports whether the box has neither width nor height.
func (b Box) IsZero() bool {
	return b.W == 0 && b.H == 0
}

// Union returns the smallest box containing both boxes.
func (b Box) Union(o Box) Box {
	minX := min(b.X, o.X)
	minY := min(b.Y, o.Y)
	maxX := max(b.X+b.W, o.X+o.W)
	maxY := max(b.Y+b.H, o.Y+o.H)

	return Box{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

func (b Box) String() string {
	return fmt.Sprintf("[%g %g %g %g]", b.X, b.Y, b.W, b.H)
}
