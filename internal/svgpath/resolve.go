package svgpath

import (
	"github.com/simplercanvas/simplercanvas/internal/geom"
)

// SegmentKind identifies an absolute drawing primitive.
type SegmentKind uint8

const (
	SegMove SegmentKind = iota
	SegLine
	SegQuad
	SegCubic
)

// Segment is an instruction resolved to absolute coordinates. Start is the
// current point before the segment; Pts holds the control points followed by
// the end point.
type Segment struct {
	Kind  SegmentKind
	Start geom.Point
	Pts   []geom.Point
}

// End returns the point the segment finishes at.
func (s Segment) End() geom.Point {
	return s.Pts[len(s.Pts)-1]
}

// Resolve converts instructions to absolute segments. Relative opcodes are
// offset by the current point and smooth shorthands reflect the previous
// control point, falling back to the current point as SVG does.
// Instructions with a wrong operand count are skipped.
func Resolve(ins []Instruction) []Segment {
	out := make([]Segment, 0, len(ins))

	var cur, lastCtrl geom.Point
	var lastKind Op

	for _, in := range ins {
		if in.Validate() != nil {
			continue
		}

		var base geom.Point
		if in.Op.Relative() {
			base = cur
		}
		pt := func(i int) geom.Point {
			return geom.Pt(base.X+in.Args[i], base.Y+in.Args[i+1])
		}

		seg := Segment{Start: cur}
		switch in.Op {
		case MoveTo, MoveToRel:
			seg.Kind = SegMove
			seg.Pts = []geom.Point{pt(0)}
		case LineTo, LineToRel:
			seg.Kind = SegLine
			seg.Pts = []geom.Point{pt(0)}
		case QuadTo, QuadToRel:
			seg.Kind = SegQuad
			seg.Pts = []geom.Point{pt(0), pt(2)}
		case SmoothQuad, SmoothQuadR:
			ctrl := cur
			if lastKind == QuadTo || lastKind == SmoothQuad {
				ctrl = reflect(lastCtrl, cur)
			}
			seg.Kind = SegQuad
			seg.Pts = []geom.Point{ctrl, pt(0)}
		case CubicTo, CubicToRel:
			seg.Kind = SegCubic
			seg.Pts = []geom.Point{pt(0), pt(2), pt(4)}
		case SmoothCubic, SmoothCubicR:
			ctrl := cur
			if lastKind == CubicTo || lastKind == SmoothCubic {
				ctrl = reflect(lastCtrl, cur)
			}
			seg.Kind = SegCubic
			seg.Pts = []geom.Point{ctrl, pt(0), pt(2)}
		}

		switch seg.Kind {
		case SegQuad, SegCubic:
			lastCtrl = seg.Pts[len(seg.Pts)-2]
		}
		lastKind = absolute(in.Op)
		cur = seg.End()
		out = append(out, seg)
	}

	return out
}

func reflect(ctrl, about geom.Point) geom.Point {
	return geom.Pt(2*about.X-ctrl.X, 2*about.Y-ctrl.Y)
}

func absolute(op Op) Op {
	switch op {
	case MoveToRel:
		return MoveTo
	case LineToRel:
		return LineTo
	case QuadToRel:
		return QuadTo
	case SmoothQuadR:
		return SmoothQuad
	case CubicToRel:
		return CubicTo
	case SmoothCubicR:
		return SmoothCubic
	}
	return op
}

// Bounds estimates the bounding box of a path. Line and move endpoints are
// exact; quadratics add the midpoint-of-midpoints estimate; cubics add every
// interior extremum of the curve. Control points are not included.
func Bounds(ins []Instruction) (geom.Box, bool) {
	segs := Resolve(ins)
	if len(segs) == 0 {
		return geom.Box{}, false
	}

	lo := segs[0].End()
	hi := lo
	extend := func(p geom.Point) {
		lo.X, lo.Y = min(lo.X, p.X), min(lo.Y, p.Y)
		hi.X, hi.Y = max(hi.X, p.X), max(hi.Y, p.Y)
	}

	for _, s := range segs {
		switch s.Kind {
		case SegQuad:
			extend(geom.QuadraticMid(s.Start, s.Pts[0], s.Pts[1]))
		case SegCubic:
			for _, p := range geom.CubicExtrema(s.Start, s.Pts[0], s.Pts[1], s.Pts[2]) {
				extend(p)
			}
		}
		extend(s.End())
	}

	return geom.Box{X: lo.X, Y: lo.Y, W: hi.X - lo.X, H: hi.Y - lo.Y}, true
}

// Translate returns a copy of ins with every absolute coordinate shifted by
// d. Relative operands are left alone, except a leading relative moveto whose
// reference point is the origin.
func Translate(ins []Instruction, d geom.Point) []Instruction {
	out := Clone(ins)
	for i := range out {
		if out[i].Op.Relative() && i > 0 {
			continue
		}
		for j := 0; j+1 < len(out[i].Args); j += 2 {
			out[i].Args[j] += d.X
			out[i].Args[j+1] += d.Y
		}
	}
	return out
}
