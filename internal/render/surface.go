// Package render defines the drawing surface consumed by the canvas and two
// implementations of it: a command recorder for a browser Canvas2D executor
// and an in-memory rasterizer.
package render

import "github.com/simplercanvas/simplercanvas/internal/geom"

// Surface is a 2D drawing context with Canvas2D semantics: a current path,
// a saved-state stack and a current transform applied to all coordinates.
type Surface interface {
	Size() (w, h int)

	ClearRect(x, y, w, h float64)
	Save()
	Restore()
	Transform(m geom.Affine)

	BeginPath()
	MoveTo(x, y float64)
	LineTo(x, y float64)
	QuadTo(cx, cy, x, y float64)
	CubeTo(c1x, c1y, c2x, c2y, x, y float64)
	ClosePath()
	Rect(x, y, w, h float64)

	Stroke()
	Fill()
	StrokeRect(x, y, w, h float64)

	SetStrokeStyle(color string)
	SetFillStyle(color string)
	SetLineWidth(w float64)
	SetLineJoin(join string)
	SetLineCap(lineCap string)
	SetMiterLimit(limit float64)
	SetGlobalAlpha(a float64)
}

// Line join and cap names, as understood by Canvas2D.
const (
	JoinRound = "round"
	JoinBevel = "bevel"
	JoinMiter = "miter"

	CapButt   = "butt"
	CapRound  = "round"
	CapSquare = "square"
)
