package render

import (
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"

	"github.com/simplercanvas/simplercanvas/internal/geom"
)

// curveSteps is the number of line segments a curve is flattened into.
const curveSteps = 16

type rasterState struct {
	transform  geom.Affine
	stroke     string
	fill       string
	lineWidth  float64
	lineJoin   string
	lineCap    string
	miterLimit float64
	alpha      float64
}

type subpath struct {
	pts    []geom.Point
	closed bool
}

// Raster is a Surface backed by an RGBA image. Strokes are approximated
// with per-segment quads and round or square joints; miter and bevel joins
// render as round.
type Raster struct {
	img   *image.RGBA
	state rasterState
	stack []rasterState
	path  []subpath
}

// NewRaster creates a transparent w×h raster surface.
func NewRaster(w, h int) *Raster {
	return &Raster{
		img:   image.NewRGBA(image.Rect(0, 0, w, h)),
		state: defaultState(),
	}
}

func defaultState() rasterState {
	return rasterState{
		transform:  geom.AffineIdentity(),
		stroke:     "#000000",
		fill:       "#000000",
		lineWidth:  1,
		lineJoin:   JoinMiter,
		lineCap:    CapButt,
		miterLimit: 10,
		alpha:      1,
	}
}

// Image returns the backing image.
func (r *Raster) Image() *image.RGBA { return r.img }

func (r *Raster) Size() (int, int) {
	b := r.img.Bounds()
	return b.Dx(), b.Dy()
}

func (r *Raster) Save() {
	r.stack = append(r.stack, r.state)
}

func (r *Raster) Restore() {
	if len(r.stack) == 0 {
		return
	}
	r.state = r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
}

func (r *Raster) Transform(m geom.Affine) {
	r.state.transform = r.state.transform.Multiply(m)
}

func (r *Raster) ClearRect(x, y, w, h float64) {
	b := r.state.transform.TransformRect(geom.NewBox(x, y, w, h))
	rect := image.Rect(
		int(math.Floor(b.X)), int(math.Floor(b.Y)),
		int(math.Ceil(b.X+b.W)), int(math.Ceil(b.Y+b.H)),
	)
	draw.Draw(r.img, rect.Intersect(r.img.Bounds()), image.Transparent, image.Point{}, draw.Src)
}

func (r *Raster) BeginPath() {
	r.path = r.path[:0]
}

func (r *Raster) device(x, y float64) geom.Point {
	return r.state.transform.TransformPoint(geom.Pt(x, y))
}

func (r *Raster) current() *subpath {
	if len(r.path) == 0 {
		return nil
	}
	return &r.path[len(r.path)-1]
}

func (r *Raster) MoveTo(x, y float64) {
	r.path = append(r.path, subpath{pts: []geom.Point{r.device(x, y)}})
}

func (r *Raster) LineTo(x, y float64) {
	sp := r.current()
	if sp == nil || sp.closed {
		r.MoveTo(x, y)
		return
	}
	sp.pts = append(sp.pts, r.device(x, y))
}

func (r *Raster) QuadTo(cx, cy, x, y float64) {
	sp := r.current()
	if sp == nil || sp.closed {
		r.MoveTo(cx, cy)
		sp = r.current()
	}
	p0 := sp.pts[len(sp.pts)-1]
	p1, p2 := r.device(cx, cy), r.device(x, y)
	for i := 1; i <= curveSteps; i++ {
		sp.pts = append(sp.pts, geom.PointOnQuadratic(p0, p1, p2, float64(i)/curveSteps))
	}
}

func (r *Raster) CubeTo(c1x, c1y, c2x, c2y, x, y float64) {
	sp := r.current()
	if sp == nil || sp.closed {
		r.MoveTo(c1x, c1y)
		sp = r.current()
	}
	p0 := sp.pts[len(sp.pts)-1]
	p1, p2, p3 := r.device(c1x, c1y), r.device(c2x, c2y), r.device(x, y)
	for i := 1; i <= curveSteps; i++ {
		sp.pts = append(sp.pts, geom.PointOnCubic(p0, p1, p2, p3, float64(i)/curveSteps))
	}
}

func (r *Raster) ClosePath() {
	sp := r.current()
	if sp == nil || sp.closed {
		return
	}
	sp.closed = true
	// a new subpath starts where the closed one began
	r.path = append(r.path, subpath{pts: []geom.Point{sp.pts[0]}})
}

func (r *Raster) Rect(x, y, w, h float64) {
	r.path = append(r.path, subpath{
		pts: []geom.Point{
			r.device(x, y), r.device(x+w, y), r.device(x+w, y+h), r.device(x, y+h),
		},
		closed: true,
	})
	r.path = append(r.path, subpath{pts: []geom.Point{r.device(x, y)}})
}

func (r *Raster) StrokeRect(x, y, w, h float64) {
	saved := r.path
	r.path = nil
	r.Rect(x, y, w, h)
	r.Stroke()
	r.path = saved
}

func (r *Raster) SetStrokeStyle(c string)  { r.state.stroke = c }
func (r *Raster) SetFillStyle(c string)    { r.state.fill = c }
func (r *Raster) SetLineWidth(w float64)   { r.state.lineWidth = w }
func (r *Raster) SetLineJoin(j string)     { r.state.lineJoin = j }
func (r *Raster) SetLineCap(c string)      { r.state.lineCap = c }
func (r *Raster) SetMiterLimit(l float64)  { r.state.miterLimit = l }
func (r *Raster) SetGlobalAlpha(a float64) { r.state.alpha = min(max(a, 0), 1) }

func (r *Raster) newRasterizer() *vector.Rasterizer {
	w, h := r.Size()
	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Over
	return z
}

func (r *Raster) paint(z *vector.Rasterizer, style string) {
	c, ok := ParseColor(style)
	if !ok {
		return
	}
	c.A = uint8(float64(c.A) * r.state.alpha)
	if c.A == 0 {
		return
	}
	z.Draw(r.img, r.img.Bounds(), image.NewUniform(c), image.Point{})
}

// Fill fills every subpath with the nonzero rule; open subpaths are closed
// implicitly.
func (r *Raster) Fill() {
	z := r.newRasterizer()
	for _, sp := range r.path {
		if len(sp.pts) < 3 {
			continue
		}
		z.MoveTo(float32(sp.pts[0].X), float32(sp.pts[0].Y))
		for _, p := range sp.pts[1:] {
			z.LineTo(float32(p.X), float32(p.Y))
		}
		z.ClosePath()
	}
	r.paint(z, r.state.fill)
}

// Stroke outlines the current path with the current line width.
func (r *Raster) Stroke() {
	hw := r.state.lineWidth * math.Sqrt(math.Abs(r.state.transform.Determinant())) / 2
	if hw <= 0 {
		return
	}

	z := r.newRasterizer()
	for _, sp := range r.path {
		r.strokeSubpath(z, sp, hw)
	}
	r.paint(z, r.state.stroke)
}

func (r *Raster) strokeSubpath(z *vector.Rasterizer, sp subpath, hw float64) {
	pts := sp.pts
	if sp.closed && len(pts) > 1 {
		pts = append(append([]geom.Point(nil), pts...), pts[0])
	}
	if len(pts) < 2 {
		return
	}

	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		d := b.Sub(a)
		l := math.Hypot(d.X, d.Y)
		if l == 0 {
			continue
		}
		n := geom.Pt(-d.Y/l*hw, d.X/l*hw)
		if !sp.closed && r.state.lineCap == CapSquare {
			ext := geom.Pt(d.X/l*hw, d.Y/l*hw)
			if i == 1 {
				a = a.Sub(ext)
			}
			if i == len(pts)-1 {
				b = b.Add(ext)
			}
		}
		polygon(z, a.Add(n), b.Add(n), b.Sub(n), a.Sub(n))
	}

	for i, p := range pts {
		end := i == 0 || i == len(pts)-1
		if end && !sp.closed && r.state.lineCap != CapRound {
			continue
		}
		polygon(z, octagon(p, hw)...)
	}
}

func octagon(c geom.Point, rad float64) []geom.Point {
	out := make([]geom.Point, 8)
	for i := range out {
		a := float64(i) * math.Pi / 4
		out[i] = geom.Pt(c.X+rad*math.Cos(a), c.Y+rad*math.Sin(a))
	}
	return out
}

// polygon adds a closed polygon with a fixed winding direction. The
// rasterizer accumulates signed coverage, so overlapping shapes of opposite
// orientation would cancel each other out.
func polygon(z *vector.Rasterizer, pts ...geom.Point) {
	var area float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		area += p.X*q.Y - q.X*p.Y
	}
	if area > 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}

	z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X), float32(p.Y))
	}
	z.ClosePath()
}

// Composite paints background, then each layer in order, into a new image
// the size of the first layer.
func Composite(background string, layers ...*Raster) *image.RGBA {
	if len(layers) == 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	out := image.NewRGBA(layers[0].img.Bounds())
	if c, ok := ParseColor(background); ok {
		draw.Draw(out, out.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	}
	for _, l := range layers {
		draw.Draw(out, out.Bounds(), l.img, image.Point{}, draw.Over)
	}
	return out
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}
