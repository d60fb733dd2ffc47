// Package scene holds the drawable objects of a canvas, their z-ordered
// container and the rubber-band selection.
package scene

import (
	"log/slog"

	"github.com/simplercanvas/simplercanvas/internal/geom"
	"github.com/simplercanvas/simplercanvas/internal/render"
	"github.com/simplercanvas/simplercanvas/internal/typeid"
)

// Kind is the type discriminator used in export records.
type Kind string

const KindPath Kind = "path"

// Default style values.
const (
	DefaultStroke = "#000000"
	DefaultWeight = 1.0
)

// Object is anything that can be placed on a canvas.
type Object interface {
	ID() string
	Kind() Kind

	// Box is the position and size in object-local (pre-transform) space.
	Box() geom.Box
	// WorldBounds is the canvas-space bounding box of the stroke-expanded box.
	WorldBounds() geom.Box
	Position() geom.Point
	SetPosition(p geom.Point)
	// Move translates the object by a canvas-space delta.
	Move(d geom.Point, bounds *geom.Box)

	Scale(v, h float64)
	Rotate(degrees float64)
	Transform() geom.Affine

	Style() Style
	SetStyle(s Style)

	Selected() bool
	SetSelected(v bool)
	Selectable() bool
	PendingDelete() bool
	SetPendingDelete(v bool)

	// Contains reports whether a canvas-space point hits the object.
	Contains(p geom.Point) bool
	// ContainedIn reports whether the object lies strictly inside box.
	ContainedIn(box geom.Box) bool

	Render(s render.Surface)
	RenderBox(s render.Surface, color string)

	Record() Record
}

// Style holds the visual attributes shared by all objects.
type Style struct {
	Stroke     string
	Fill       string
	Weight     float64
	Selectable bool
}

// DefaultStyle is a selectable 1px black stroke without fill.
func DefaultStyle() Style {
	return Style{Stroke: DefaultStroke, Weight: DefaultWeight, Selectable: true}
}

// Base implements the state every object kind shares: the box, the
// transform and its inverse, flags and style.
type Base struct {
	id  string
	box geom.Box

	scaleX, scaleY float64
	rotation       float64
	m              geom.Affine
	inv            geom.Affine

	selected      bool
	pendingDelete bool
	style         Style
}

func newBase(box geom.Box, style Style) Base {
	return Base{
		id:     typeid.NewObjectID(),
		box:    box,
		scaleX: 1,
		scaleY: 1,
		m:      geom.AffineIdentity(),
		inv:    geom.AffineIdentity(),
		style:  style,
	}
}

func (b *Base) ID() string { return b.id }

func (b *Base) Box() geom.Box { return b.box }

func (b *Base) Position() geom.Point { return b.box.Position() }

func (b *Base) SetPosition(p geom.Point) { b.box.SetPosition(p) }

// Move maps the canvas-space delta, and bounds if given, into object space
// before moving the box.
func (b *Base) Move(d geom.Point, bounds *geom.Box) {
	if bounds != nil {
		local := b.inv.TransformRect(*bounds)
		bounds = &local
	}
	b.box.Move(b.inv.TransformVector(d), bounds)
}

func (b *Base) Transform() geom.Affine { return b.m }

// Rotation returns the current rotation in degrees.
func (b *Base) Rotation() float64 { return b.rotation }

// Scale sets the absolute vertical and horizontal scale. Non-positive values
// leave that axis unchanged.
func (b *Base) Scale(v, h float64) {
	sx, sy := b.scaleX, b.scaleY
	if h > 0 {
		sx = h
	}
	if v > 0 {
		sy = v
	}
	b.applyTransform(sx, sy, b.rotation)
}

// Rotate sets the absolute rotation in degrees.
func (b *Base) Rotate(degrees float64) {
	b.applyTransform(b.scaleX, b.scaleY, degrees)
}

// applyTransform rebuilds the matrix as scale then rotation. The box origin
// keeps its canvas position. A singular result keeps the previous matrix.
func (b *Base) applyTransform(sx, sy, deg float64) {
	m, err := geom.Identity(3).Scale(sy, sx).Rotate(deg).ToCtxInterp()
	if err != nil {
		slog.Error("build object transform", "object", b.id, "error", err)
		return
	}
	inv, err := m.Invert()
	if err != nil {
		slog.Warn("object transform not invertible", "object", b.id, "error", err)
		return
	}

	world := b.m.TransformPoint(b.box.Position())
	b.box.SetPosition(inv.TransformPoint(world))

	b.scaleX, b.scaleY, b.rotation = sx, sy, deg
	b.m, b.inv = m, inv
}

func (b *Base) Style() Style { return b.style }

func (b *Base) SetStyle(s Style) {
	if s.Weight <= 0 {
		s.Weight = b.style.Weight
	}
	b.style = s
	if !s.Selectable {
		b.selected = false
	}
}

func (b *Base) Selected() bool { return b.selected }

// SetSelected changes the selection flag of selectable objects only.
func (b *Base) SetSelected(v bool) {
	if b.style.Selectable {
		b.selected = v
	}
}

func (b *Base) Selectable() bool { return b.style.Selectable }

func (b *Base) PendingDelete() bool { return b.pendingDelete }

func (b *Base) SetPendingDelete(v bool) { b.pendingDelete = v }

// StrokeBox is the box grown by half the stroke weight on every side.
func (b *Base) StrokeBox() geom.Box {
	return b.box.Expand(b.style.Weight / 2)
}

func (b *Base) WorldBounds() geom.Box {
	return b.m.TransformRect(b.StrokeBox())
}

func (b *Base) Contains(p geom.Point) bool {
	return b.StrokeBox().Contains(b.inv.TransformPoint(p))
}

func (b *Base) ContainedIn(box geom.Box) bool {
	return b.WorldBounds().ContainedIn(box)
}

// RenderBox outlines the stroke box in object space.
func (b *Base) RenderBox(s render.Surface, color string) {
	box := b.StrokeBox()

	s.Save()
	s.Transform(b.m)
	s.SetStrokeStyle(color)
	s.SetLineWidth(1)
	s.StrokeRect(box.X, box.Y, box.W, box.H)
	s.Restore()
}

func (b *Base) baseRecord(kind Kind) Record {
	r := Record{
		ID:         b.id,
		Type:       kind,
		X:          b.box.X,
		Y:          b.box.Y,
		Selectable: b.style.Selectable,
		Stroke:     b.style.Stroke,
		Weight:     b.style.Weight,
		Fill:       b.style.Fill,
		Rotation:   b.rotation,
	}
	if b.scaleX != 1 || b.scaleY != 1 {
		r.Scale = &[2]float64{b.scaleX, b.scaleY}
	}
	return r
}

// applyRecord restores the shared state from an export record.
func (b *Base) applyRecord(r Record) {
	if r.ID != "" && typeid.Validate(r.ID, typeid.PrefixObject) == nil {
		b.id = r.ID
	}

	weight := r.Weight
	if weight <= 0 {
		weight = DefaultWeight
	}
	b.style = Style{Stroke: r.Stroke, Fill: r.Fill, Weight: weight, Selectable: r.Selectable}

	sx, sy := 1.0, 1.0
	if r.Scale != nil {
		sx, sy = r.Scale[0], r.Scale[1]
	}
	if sx != 1 || sy != 1 || r.Rotation != 0 {
		b.applyTransform(sx, sy, r.Rotation)
	}
	b.box.SetPosition(geom.Pt(r.X, r.Y))
}
