package scene

import (
	"slices"

	"github.com/simplercanvas/simplercanvas/internal/geom"
	"github.com/simplercanvas/simplercanvas/internal/render"
)

// SelectionColor is used for the rubber band and for member highlights.
const SelectionColor = "#22ffbb"

// Selection is a rubber-band rectangle that, once finalized, owns a fixed
// member list which can be moved as a group. Finalizing is one-way.
type Selection struct {
	start, end geom.Point
	hasEnd     bool

	finalized bool
	members   []Object
	box       geom.Box
}

// NewSelection starts a drag at start.
func NewSelection(start geom.Point) *Selection {
	return &Selection{start: start}
}

// SetEnd tracks the moving corner. Ignored once finalized.
func (s *Selection) SetEnd(p geom.Point) {
	if s.finalized {
		return
	}
	s.end = p
	s.hasEnd = true
}

// DragBox is the rectangle spanned by both corners, normalized to a
// top-left origin. ok is false until an end corner is known.
func (s *Selection) DragBox() (box geom.Box, ok bool) {
	if !s.hasEnd {
		return geom.Box{}, false
	}
	return geom.BoxFromCorners(s.start, s.end), true
}

// Finalize captures members. Calling it again has no effect.
func (s *Selection) Finalize(members ...Object) {
	if s.finalized {
		return
	}
	s.members = slices.Clone(members)
	s.finalized = true
	s.calcBox()
}

func (s *Selection) Finalized() bool { return s.finalized }

// Members returns a copy of the member list.
func (s *Selection) Members() []Object { return slices.Clone(s.members) }

func (s *Selection) IsMember(o Object) bool { return slices.Contains(s.members, o) }

// Box is the drag rectangle while dragging and the members' combined world
// bounds once finalized.
func (s *Selection) Box() (geom.Box, bool) {
	if !s.finalized {
		return s.DragBox()
	}
	return s.box, len(s.members) > 0
}

// Contains reports whether p lies strictly inside a finalized selection.
func (s *Selection) Contains(p geom.Point) bool {
	if !s.finalized || len(s.members) == 0 {
		return false
	}
	return s.box.Contains(p)
}

// Move translates every member by d and recomputes the box from them.
func (s *Selection) Move(d geom.Point, bounds *geom.Box) {
	if !s.finalized {
		return
	}
	for _, o := range s.members {
		o.Move(d, bounds)
	}
	s.calcBox()
}

// Remove drops o from the members.
func (s *Selection) Remove(o Object) {
	i := slices.Index(s.members, o)
	if i < 0 {
		return
	}
	s.members = slices.Delete(s.members, i, i+1)
	s.calcBox()
}

func (s *Selection) calcBox() {
	if len(s.members) == 0 {
		s.box = geom.Box{}
		return
	}
	box := s.members[0].WorldBounds()
	for _, o := range s.members[1:] {
		box = box.Union(o.WorldBounds())
	}
	s.box = box
}

// Render outlines the selection; an unfinished drag is also filled
// translucently.
func (s *Selection) Render(surf render.Surface) {
	box, ok := s.Box()
	if !ok {
		return
	}

	surf.Save()
	surf.BeginPath()
	surf.Rect(box.X, box.Y, box.W, box.H)
	surf.SetStrokeStyle(SelectionColor)
	surf.SetLineWidth(1)
	surf.Stroke()
	if !s.finalized {
		surf.SetFillStyle(SelectionColor)
		surf.SetGlobalAlpha(0.4)
		surf.Fill()
	}
	surf.Restore()
}
