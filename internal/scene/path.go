package scene

import (
	"errors"
	"fmt"
	"math"

	"github.com/simplercanvas/simplercanvas/internal/geom"
	"github.com/simplercanvas/simplercanvas/internal/render"
	"github.com/simplercanvas/simplercanvas/internal/svgpath"
)

var ErrEmptyPath = errors.New("path has no drawable instructions")

// originEps is how far from (0, 0) a hydrated path's bounds may start and
// still count as already normalized.
const originEps = 1e-9

// Path is a vector stroke. Its instructions are stored relative to the
// origin of its own box.
type Path struct {
	Base
	ins []svgpath.Instruction
}

// NewPath computes the bounds of ins and re-expresses every instruction
// relative to the bounds origin, which becomes the path's position.
func NewPath(ins []svgpath.Instruction, style Style) (*Path, error) {
	for i, in := range ins {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
	}

	box, ok := svgpath.Bounds(ins)
	if !ok {
		return nil, ErrEmptyPath
	}

	if style.Weight <= 0 {
		style.Weight = DefaultWeight
	}

	return &Path{
		Base: newBase(box, style),
		ins:  svgpath.Translate(ins, geom.Pt(-box.X, -box.Y)),
	}, nil
}

// ParsePath builds a Path from a whitespace-delimited path string.
func ParsePath(s string, style Style) (*Path, error) {
	ins, err := svgpath.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parse path: %w", err)
	}
	return NewPath(ins, style)
}

// MustPath is like NewPath but panics on error.
func MustPath(ins []svgpath.Instruction, style Style) *Path {
	p, err := NewPath(ins, style)
	if err != nil {
		panic(err)
	}
	return p
}

// HydratePath rebuilds a Path from its export record. Instructions that are
// already origin-relative are kept verbatim so that exporting again yields
// the same record.
func HydratePath(r Record) (*Path, error) {
	if r.Type != KindPath {
		return nil, fmt.Errorf("%w: %q is not a path", ErrUnknownKind, r.Type)
	}

	ins, err := svgpath.Parse(r.Path)
	if err != nil {
		return nil, fmt.Errorf("hydrate path: %w", err)
	}
	box, ok := svgpath.Bounds(ins)
	if !ok {
		return nil, ErrEmptyPath
	}
	if math.Abs(box.X) > originEps || math.Abs(box.Y) > originEps {
		ins = svgpath.Translate(ins, geom.Pt(-box.X, -box.Y))
	}

	p := &Path{
		Base: newBase(geom.NewBox(0, 0, box.W, box.H), DefaultStyle()),
		ins:  ins,
	}
	p.applyRecord(r)
	return p, nil
}

func (p *Path) Kind() Kind { return KindPath }

// Instructions returns a copy of the origin-relative instructions.
func (p *Path) Instructions() []svgpath.Instruction {
	return svgpath.Clone(p.ins)
}

// String is the path in token form.
func (p *Path) String() string {
	return svgpath.Format(p.ins)
}

func (p *Path) Render(s render.Surface) {
	st := p.style

	s.Save()
	s.Transform(p.m)
	s.SetStrokeStyle(st.Stroke)
	s.SetFillStyle(st.Fill)
	s.SetLineWidth(st.Weight)

	s.BeginPath()
	Trace(s, p.ins, p.box.Position())
	s.ClosePath()

	if st.Stroke != "" {
		s.Stroke()
	}
	if st.Fill != "" {
		s.Fill()
	}
	s.Restore()
}

func (p *Path) Record() Record {
	r := p.baseRecord(KindPath)
	r.Path = svgpath.Format(p.ins)
	return r
}

// Trace adds ins, offset by at, to the surface's current path.
func Trace(s render.Surface, ins []svgpath.Instruction, at geom.Point) {
	for _, seg := range svgpath.Resolve(ins) {
		pts := make([]geom.Point, len(seg.Pts))
		for i, q := range seg.Pts {
			pts[i] = q.Add(at)
		}

		switch seg.Kind {
		case svgpath.SegMove:
			s.MoveTo(pts[0].X, pts[0].Y)
		case svgpath.SegLine:
			s.LineTo(pts[0].X, pts[0].Y)
		case svgpath.SegQuad:
			s.QuadTo(pts[0].X, pts[0].Y, pts[1].X, pts[1].Y)
		case svgpath.SegCubic:
			s.CubeTo(pts[0].X, pts[0].Y, pts[1].X, pts[1].Y, pts[2].X, pts[2].Y)
		}
	}
}
