// Package brush records freehand strokes and turns them into smoothed
// scene paths.
package brush

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/simplercanvas/simplercanvas/internal/events"
	"github.com/simplercanvas/simplercanvas/internal/geom"
	"github.com/simplercanvas/simplercanvas/internal/render"
	"github.com/simplercanvas/simplercanvas/internal/scene"
)

// JitterRadius is the side of the square around a new sample inside which
// the previous sample must not lie for the new one to be kept.
const JitterRadius = 5

// Event names.
const (
	EventCreated    = "created"
	EventBeforeMove = "before:move"
	EventMove       = "move"
)

var ErrAngleTolerance = errors.New("angle tolerance must be at least 0 and below 45 degrees")

// Options configures a brush.
type Options struct {
	Color      string
	Width      float64
	LineJoin   string
	LineCap    string
	MiterLimit float64

	// AngleTolerance is the snapping window in degrees for straight lines.
	AngleTolerance float64
	// Straight starts the brush in straight-line mode.
	Straight bool
	// StraightenAfter switches a free stroke to a straight line once the
	// pointer rests this long. Zero disables it.
	StraightenAfter time.Duration
	// CapCorrection pushes the stroke ends outward by this many pixels.
	CapCorrection float64
	// SnapDiagonal also snaps straight lines to 45 degrees.
	SnapDiagonal bool
}

// DefaultOptions returns a 1px black brush.
func DefaultOptions() Options {
	return Options{
		Color:          scene.DefaultStroke,
		Width:          1,
		LineJoin:       render.JoinMiter,
		LineCap:        render.CapButt,
		MiterLimit:     10,
		AngleTolerance: 5,
	}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	if o.AngleTolerance < 0 || o.AngleTolerance >= 45 {
		return fmt.Errorf("%w: got %g", ErrAngleTolerance, o.AngleTolerance)
	}
	if o.Width <= 0 {
		return fmt.Errorf("brush width must be positive, got %g", o.Width)
	}
	if o.StraightenAfter < 0 {
		return fmt.Errorf("straighten delay must not be negative, got %s", o.StraightenAfter)
	}
	return nil
}

// Event is delivered to brush listeners. Path is only set for
// EventCreated.
type Event struct {
	Pointer geom.Point
	Points  []geom.Point
	Path    *scene.Path
}

// Brush collects pointer samples between Down and Up. It is safe for
// concurrent use; the auto-straighten timer fires on its own goroutine.
type Brush struct {
	mu   sync.Mutex
	opts Options

	straight bool
	auto     bool
	points   []geom.Point

	timer        *time.Timer
	gen          uint64
	onStraighten func()

	evs *events.Map[Event]
}

// New creates a brush.
func New(opts Options) (*Brush, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Brush{
		opts:     opts,
		straight: opts.Straight,
		evs:      events.NewMap[Event](EventCreated, EventBeforeMove, EventMove),
	}, nil
}

// On subscribes to a brush event.
func (b *Brush) On(name string, fn events.Handler[Event]) events.Unsubscribe {
	return b.evs.On(name, fn)
}

// OnStraighten sets the callback run after the auto-straighten timer changed
// the stroke, typically a redraw of the live layer.
func (b *Brush) OnStraighten(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStraighten = fn
}

func (b *Brush) Options() Options {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opts
}

// SetOptions replaces the options. The straight-line mode follows the new
// options.
func (b *Brush) SetOptions(o Options) error {
	if err := o.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opts = o
	b.straight = o.Straight
	return nil
}

// Straight reports whether the brush currently draws straight lines, either
// by choice or because the stroke was auto-straightened.
func (b *Brush) Straight() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.straight || b.auto
}

// SetStraight toggles the user-chosen straight-line mode.
func (b *Brush) SetStraight(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.straight = v
	b.opts.Straight = v
}

// Points returns a copy of the samples of the current stroke.
func (b *Brush) Points() []geom.Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.points)
}

// Down starts a stroke at p, dropping any unfinished one.
func (b *Brush) Down(p geom.Point) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopTimerLocked()
	b.auto = false
	b.points = []geom.Point{p}
}

// Move adds a sample. In straight mode only the first and the latest
// sample are kept and the latest one is snapped to an axis when the line
// is within the angle tolerance of it.
func (b *Brush) Move(p geom.Point) {
	b.mu.Lock()
	b.stopTimerLocked()
	before := Event{Pointer: p, Points: slices.Clone(b.points)}
	b.mu.Unlock()

	b.evs.Fire(EventBeforeMove, before)

	b.mu.Lock()
	if b.straight || b.auto {
		b.straightSample(p)
	} else {
		b.freeSample(p)
	}
	after := Event{Pointer: p, Points: slices.Clone(b.points)}
	b.mu.Unlock()

	b.evs.Fire(EventMove, after)
}

func (b *Brush) straightSample(p geom.Point) {
	if len(b.points) == 0 {
		b.points = []geom.Point{p}
		return
	}
	b.points = []geom.Point{b.points[0], b.snap(b.points[0], p)}
}

func (b *Brush) freeSample(p geom.Point) {
	if n := len(b.points); n == 0 || !p.Contains(b.points[n-1], JitterRadius) {
		b.points = append(b.points, p)
	}

	if d := b.opts.StraightenAfter; d > 0 {
		b.gen++
		gen := b.gen
		b.timer = time.AfterFunc(d, func() { b.straighten(gen) })
	}
}

// snap aligns p with p0 when the angle between them is within the
// tolerance of horizontal, vertical or (optionally) diagonal.
func (b *Brush) snap(p0, p geom.Point) geom.Point {
	dx, dy := p.X-p0.X, p.Y-p0.Y
	if dx == 0 && dy == 0 {
		return p
	}

	rot := math.Abs(math.Round(math.Atan(dx/dy) * 180 / math.Pi))
	tol := b.opts.AngleTolerance

	switch {
	case rot > 90-tol && rot < 90+tol:
		return geom.Pt(p.X, p0.Y)
	case rot < tol:
		return geom.Pt(p0.X, p.Y)
	case b.opts.SnapDiagonal && rot > 45-tol && rot < 45+tol:
		s := (math.Abs(dx) + math.Abs(dy)) / 2
		return geom.Pt(p0.X+sign(dx)*s, p0.Y+sign(dy)*s)
	}
	return p
}

func (b *Brush) straighten(gen uint64) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		slog.Debug("stale straighten timer", "gen", gen)
		return
	}
	b.timer = nil
	b.auto = true
	if n := len(b.points); n >= 2 {
		b.points = []geom.Point{b.points[0], b.points[n-1]}
	}
	cb := b.onStraighten
	b.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (b *Brush) stopTimerLocked() {
	b.gen++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// Up finishes the stroke and returns it as a smoothed path, or nil when
// fewer than two samples were recorded.
func (b *Brush) Up() *scene.Path {
	b.mu.Lock()
	b.stopTimerLocked()
	pts := b.points
	b.points = nil
	b.auto = false
	opts := b.opts
	b.mu.Unlock()

	if len(pts) < 2 {
		return nil
	}

	style := scene.DefaultStyle()
	style.Stroke = opts.Color
	style.Weight = opts.Width

	path, err := scene.NewPath(Smooth(pts, opts.CapCorrection), style)
	if err != nil {
		slog.Error("create path from stroke", "points", len(pts), "error", err)
		return nil
	}

	b.evs.Fire(EventCreated, Event{Pointer: pts[len(pts)-1], Points: pts, Path: path})
	return path
}

// Cancel drops the current stroke without creating a path.
func (b *Brush) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopTimerLocked()
	b.points = nil
	b.auto = false
}

// RenderLive draws the stroke in progress.
func (b *Brush) RenderLive(s render.Surface) {
	b.mu.Lock()
	pts := slices.Clone(b.points)
	straight := b.straight || b.auto
	opts := b.opts
	b.mu.Unlock()

	if len(pts) < 2 {
		return
	}

	s.Save()
	s.SetStrokeStyle(opts.Color)
	s.SetLineWidth(opts.Width)
	s.SetLineJoin(opts.LineJoin)
	s.SetLineCap(opts.LineCap)
	s.SetMiterLimit(opts.MiterLimit)

	s.BeginPath()
	if straight {
		s.MoveTo(pts[0].X, pts[0].Y)
		s.LineTo(pts[1].X, pts[1].Y)
	} else {
		scene.Trace(s, Smooth(pts, opts.CapCorrection), geom.Point{})
	}
	s.Stroke()
	s.Restore()
}
