// Package canvas is the controller tying the scene, the selection and the
// brush to two rendering surfaces: a lower layer with the committed objects
// and an upper layer with live feedback.
package canvas

import (
	"math"
	"slices"
	"sync"

	"github.com/simplercanvas/simplercanvas/internal/brush"
	"github.com/simplercanvas/simplercanvas/internal/events"
	"github.com/simplercanvas/simplercanvas/internal/geom"
	"github.com/simplercanvas/simplercanvas/internal/render"
	"github.com/simplercanvas/simplercanvas/internal/scene"
)

// Event names.
const (
	EventAdd         = "add"
	EventRemove      = "remove"
	EventSelect      = "select"
	EventChange      = "change"
	EventRenderLower = "render:lower"
	EventRenderUpper = "render:upper"
)

// HighlightColor outlines selected objects on the upper layer.
const HighlightColor = "#54bdff"

// Default logical size.
const (
	DefaultWidth  = 600
	DefaultHeight = 400
)

// Host is the element hosting both surfaces.
type Host interface {
	PixelRatio() float64
	// Resize is called with the device-pixel size of both layers.
	Resize(w, h int)
	Style(background, overlay string)
}

// Event is delivered to canvas listeners. Objects is empty for render
// events.
type Event struct {
	Objects []scene.Object
}

// Options configures a new canvas. Sizes are logical pixels.
type Options struct {
	Background  string
	Overlay     string
	Width       float64
	Height      float64
	ContextMenu bool
}

// Canvas owns the scene content and interprets pointer input. All methods
// are safe for concurrent use; listeners and the context menu are invoked
// after the canvas lock is released.
type Canvas struct {
	mu    sync.Mutex
	after []func()

	host         Host
	lower, upper render.Surface
	menu         ContextMenu
	menuEnabled  bool

	bg, ov string
	w, h   float64 // device pixels
	ratio  float64

	objs     *scene.Layered[scene.Object]
	sel      *scene.Selection
	brush    *brush.Brush
	drawMode bool

	down       bool
	downButton Button
	last       geom.Point

	evs *events.Map[Event]
}

// New creates a canvas drawing on lower and upper. host may be nil for a
// headless canvas with a pixel ratio of 1.
func New(lower, upper render.Surface, host Host, opts Options) *Canvas {
	ratio := 1.0
	if host != nil && host.PixelRatio() > 0 {
		ratio = host.PixelRatio()
	}

	c := &Canvas{
		host:        host,
		lower:       lower,
		upper:       upper,
		menuEnabled: opts.ContextMenu,
		bg:          opts.Background,
		ov:          opts.Overlay,
		ratio:       ratio,
		objs:        scene.NewLayered[scene.Object](),
		evs: events.NewMap[Event](
			EventAdd, EventRemove, EventSelect, EventChange, EventRenderLower, EventRenderUpper,
		),
	}
	c.w = DefaultWidth * ratio
	c.h = DefaultHeight * ratio
	c.setSizeLocked(opts.Width, opts.Height)
	c.applyHostLocked()
	return c
}

// unlock releases the canvas lock, then runs everything queued while it
// was held.
func (c *Canvas) unlock() {
	after := c.after
	c.after = nil
	c.mu.Unlock()

	for _, fn := range after {
		fn()
	}
}

func (c *Canvas) queue(name string, objs ...scene.Object) {
	ev := Event{Objects: objs}
	c.after = append(c.after, func() { c.evs.Fire(name, ev) })
}

// On subscribes to a canvas event.
func (c *Canvas) On(name string, fn events.Handler[Event]) events.Unsubscribe {
	return c.evs.On(name, fn)
}

// --- scene mutation ---

// Add places objects on top of the scene.
func (c *Canvas) Add(objs ...scene.Object) {
	if len(objs) == 0 {
		return
	}
	c.mu.Lock()
	defer c.unlock()

	c.objs.Push(objs...)
	c.queue(EventAdd, objs...)
	c.renderLowerLocked()
}

// Remove takes objects off the scene immediately.
func (c *Canvas) Remove(objs ...scene.Object) {
	c.mu.Lock()
	defer c.unlock()

	var removed []scene.Object
	for _, o := range objs {
		if c.objs.Remove(o) {
			c.dropFromSelectionLocked(o)
			removed = append(removed, o)
		}
	}
	if len(removed) == 0 {
		return
	}
	c.queue(EventRemove, removed...)
	c.renderLowerLocked()
	c.renderUpperLocked()
}

// Delete marks objects for removal. They disappear from hit-testing and
// rendering at once and leave the scene on the next lower-layer render.
func (c *Canvas) Delete(objs ...scene.Object) {
	c.mu.Lock()
	defer c.unlock()

	for _, o := range objs {
		if c.objs.Contains(o) {
			o.SetPendingDelete(true)
			c.dropFromSelectionLocked(o)
		}
	}
	c.renderLowerLocked()
	c.renderUpperLocked()
}

func (c *Canvas) dropFromSelectionLocked(o scene.Object) {
	o.SetSelected(false)
	if c.sel != nil {
		c.sel.Remove(o)
		if _, ok := c.sel.Box(); !ok && c.sel.Finalized() {
			c.sel = nil
		}
	}
}

// Objects returns the live scene content in z-order.
func (c *Canvas) Objects() []scene.Object {
	c.mu.Lock()
	defer c.unlock()
	return slices.DeleteFunc(c.objs.Items(), scene.Object.PendingDelete)
}

// ToFront moves o to the top of the z-order.
func (c *Canvas) ToFront(o scene.Object) {
	c.reorder(o, func() { c.objs.ToEnd(o) })
}

// ToBack moves o to the bottom of the z-order.
func (c *Canvas) ToBack(o scene.Object) {
	c.reorder(o, func() { c.objs.ToStart(o) })
}

// Forward moves o up by n places, stopping at the top.
func (c *Canvas) Forward(o scene.Object, n int) {
	c.reorder(o, func() {
		i := c.objs.Index(o)
		c.objs.ToPosition(o, min(max(i+n, 0), c.objs.LastIndex()))
	})
}

// Backward moves o down by n places, stopping at the bottom.
func (c *Canvas) Backward(o scene.Object, n int) {
	c.Forward(o, -n)
}

func (c *Canvas) reorder(o scene.Object, move func()) {
	c.mu.Lock()
	defer c.unlock()

	if !c.objs.Contains(o) {
		return
	}
	move()
	c.queue(EventChange, o)
	c.renderLowerLocked()
}

// --- selection ---

// Selected returns the selected objects in z-order.
func (c *Canvas) Selected() []scene.Object {
	c.mu.Lock()
	defer c.unlock()
	return c.selectedLocked()
}

func (c *Canvas) selectedLocked() []scene.Object {
	var out []scene.Object
	for _, o := range c.objs.All() {
		if o.Selected() && !o.PendingDelete() {
			out = append(out, o)
		}
	}
	return out
}

// Select replaces the selection with objs.
func (c *Canvas) Select(objs ...scene.Object) {
	c.mu.Lock()
	defer c.unlock()

	c.clearSelectionLocked()
	for _, o := range objs {
		if c.objs.Contains(o) {
			o.SetSelected(true)
		}
	}
	c.queue(EventSelect, c.selectedLocked()...)
	c.renderUpperLocked()
}

// ClearSelection deselects everything.
func (c *Canvas) ClearSelection() {
	c.mu.Lock()
	defer c.unlock()

	c.clearSelectionLocked()
	c.queue(EventSelect)
	c.renderUpperLocked()
}

func (c *Canvas) clearSelectionLocked() {
	for _, o := range c.objs.All() {
		o.SetSelected(false)
	}
	c.sel = nil
}

// MoveSelection translates every selected object by d.
func (c *Canvas) MoveSelection(d geom.Point) {
	c.mu.Lock()
	defer c.unlock()
	c.moveSelectedLocked(d)
}

func (c *Canvas) moveSelectedLocked(d geom.Point) {
	var moved []scene.Object
	if c.sel != nil && c.sel.Finalized() {
		c.sel.Move(d, nil)
		moved = c.sel.Members()
	} else {
		moved = c.selectedLocked()
		for _, o := range moved {
			o.Move(d, nil)
		}
	}
	if len(moved) == 0 {
		return
	}
	c.queue(EventChange, moved...)
	c.renderLowerLocked()
	c.renderUpperLocked()
}

// --- appearance and size ---

func (c *Canvas) SetBackground(bg string) {
	c.mu.Lock()
	defer c.unlock()
	c.bg = bg
	c.applyHostLocked()
}

func (c *Canvas) SetOverlay(ov string) {
	c.mu.Lock()
	defer c.unlock()
	c.ov = ov
	c.applyHostLocked()
}

func (c *Canvas) Background() (bg, overlay string) {
	c.mu.Lock()
	defer c.unlock()
	return c.bg, c.ov
}

// SetSize sets the logical size. Non-positive values keep that dimension.
// Call Render afterwards.
func (c *Canvas) SetSize(w, h float64) {
	c.mu.Lock()
	defer c.unlock()
	c.setSizeLocked(w, h)
}

func (c *Canvas) setSizeLocked(w, h float64) {
	if w > 0 {
		c.w = w * c.ratio
	}
	if h > 0 {
		c.h = h * c.ratio
	}
}

// Size returns the logical size.
func (c *Canvas) Size() (w, h float64) {
	c.mu.Lock()
	defer c.unlock()
	return c.w / c.ratio, c.h / c.ratio
}

// DeviceSize returns the size in whole device pixels.
func (c *Canvas) DeviceSize() (w, h int) {
	c.mu.Lock()
	defer c.unlock()
	return int(math.Round(c.w)), int(math.Round(c.h))
}

func (c *Canvas) PixelRatio() float64 { return c.ratio }

func (c *Canvas) applyHostLocked() {
	if c.host == nil {
		return
	}
	c.host.Resize(int(math.Round(c.w)), int(math.Round(c.h)))
	c.host.Style(c.bg, c.ov)
}

// --- modes ---

// SetDrawMode switches between drawing with the brush and selecting.
func (c *Canvas) SetDrawMode(on bool) {
	c.mu.Lock()
	defer c.unlock()

	if c.drawMode == on {
		return
	}
	if c.down && c.drawMode && c.brush != nil {
		c.brush.Cancel()
	}
	c.drawMode = on
	c.down = false
	c.renderUpperLocked()
}

func (c *Canvas) DrawMode() bool {
	c.mu.Lock()
	defer c.unlock()
	return c.drawMode
}

// SetBrush attaches b, or detaches the current brush when b is nil.
func (c *Canvas) SetBrush(b *brush.Brush) {
	c.mu.Lock()
	defer c.unlock()

	if c.brush != nil {
		c.brush.OnStraighten(nil)
		c.brush.Cancel()
		if c.drawMode {
			c.down = false
		}
	}
	c.brush = b
	if b != nil {
		b.OnStraighten(c.RenderUpper)
	}
	c.renderUpperLocked()
}

func (c *Canvas) Brush() *brush.Brush {
	c.mu.Lock()
	defer c.unlock()
	return c.brush
}

// SetContextMenu installs the menu widget opened on secondary clicks.
func (c *Canvas) SetContextMenu(m ContextMenu) {
	c.mu.Lock()
	defer c.unlock()
	c.menu = m
}

// EnableContextMenu turns the context menu on or off.
func (c *Canvas) EnableContextMenu(on bool) {
	c.mu.Lock()
	defer c.unlock()
	c.menuEnabled = on
}

// --- rendering ---

// Render applies size and background to the host, then redraws both
// layers.
func (c *Canvas) Render() {
	c.mu.Lock()
	defer c.unlock()

	c.applyHostLocked()
	c.renderLowerLocked()
	c.renderUpperLocked()
}

// RenderLower redraws the committed objects.
func (c *Canvas) RenderLower() {
	c.mu.Lock()
	defer c.unlock()
	c.renderLowerLocked()
}

// RenderUpper redraws the selection feedback and the live stroke.
func (c *Canvas) RenderUpper() {
	c.mu.Lock()
	defer c.unlock()
	c.renderUpperLocked()
}

func (c *Canvas) renderLowerLocked() {
	if removed := c.objs.RemoveFunc(scene.Object.PendingDelete); len(removed) > 0 {
		c.queue(EventRemove, removed...)
	}

	s := c.lower
	s.ClearRect(0, 0, c.w, c.h)
	s.Save()
	s.Transform(geom.Affine{c.ratio, 0, 0, c.ratio, 0, 0})
	for _, o := range c.objs.All() {
		o.Render(s)
	}
	s.Restore()

	c.queue(EventRenderLower)
}

func (c *Canvas) renderUpperLocked() {
	s := c.upper
	s.ClearRect(0, 0, c.w, c.h)
	s.Save()
	s.Transform(geom.Affine{c.ratio, 0, 0, c.ratio, 0, 0})

	for _, o := range c.objs.All() {
		if o.Selected() && !o.PendingDelete() {
			o.RenderBox(s, HighlightColor)
		}
	}
	if c.sel != nil {
		c.sel.Render(s)
	}
	if c.drawMode && c.down && c.brush != nil {
		c.brush.RenderLive(s)
	}

	s.Restore()
	c.queue(EventRenderUpper)
}
