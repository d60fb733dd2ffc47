package canvas

import (
	"github.com/simplercanvas/simplercanvas/internal/geom"
	"github.com/simplercanvas/simplercanvas/internal/scene"
)

type Button int

const (
	Primary Button = iota
	Secondary
)

// PointerEvent is a pointer sample in logical pixels relative to the
// canvas' top-left corner.
type PointerEvent struct {
	X, Y   float64
	Button Button
	Ctrl   bool
}

func (e PointerEvent) Point() geom.Point { return geom.Pt(e.X, e.Y) }

// PointerDown starts a stroke in draw mode with a brush attached. Otherwise
// it updates the selection: a hit selects only that object (toggles it with
// Ctrl), a miss starts a rubber-band drag, and a press on the finalized
// selection keeps it so it can be dragged.
func (c *Canvas) PointerDown(e PointerEvent) {
	p := e.Point()

	c.mu.Lock()
	if c.drawMode && c.brush != nil && e.Button == Primary {
		b := c.brush
		c.down = true
		c.downButton = e.Button
		c.last = p
		c.mu.Unlock()

		b.Down(p)
		c.RenderUpper()
		return
	}
	defer c.unlock()

	c.down = true
	c.downButton = e.Button
	c.last = p
	if e.Button == Secondary {
		return
	}

	target := c.hitLocked(p)

	if c.sel != nil && c.sel.Finalized() && !e.Ctrl {
		if (target != nil && c.sel.IsMember(target)) || (target == nil && c.sel.Contains(p)) {
			return
		}
	}
	// Anything else dissolves the group; individual flags are handled below.
	c.sel = nil

	switch {
	case target != nil && e.Ctrl:
		target.SetSelected(!target.Selected())
		c.queue(EventSelect, c.selectedLocked()...)
	case target != nil:
		c.clearSelectionLocked()
		target.SetSelected(true)
		c.queue(EventSelect, target)
	case target == nil:
		c.clearSelectionLocked()
		c.sel = scene.NewSelection(p)
		c.queue(EventSelect)
	}
	c.renderUpperLocked()
}

// PointerMove extends the stroke, the rubber band, or drags the selected
// objects by the distance the pointer travelled since the last sample.
func (c *Canvas) PointerMove(e PointerEvent) {
	p := e.Point()

	c.mu.Lock()
	if !c.down || c.downButton != Primary {
		c.unlock()
		return
	}
	if c.drawMode && c.brush != nil {
		b := c.brush
		c.last = p
		c.mu.Unlock()

		b.Move(p)
		c.RenderUpper()
		return
	}
	defer c.unlock()

	d := p.Sub(c.last)
	c.last = p

	if c.sel != nil && !c.sel.Finalized() {
		c.sel.SetEnd(p)
		c.renderUpperLocked()
		return
	}
	if d.X == 0 && d.Y == 0 {
		return
	}
	c.moveSelectedLocked(d)
}

// PointerUp commits a stroke or a rubber-band selection. A secondary
// button release opens the context menu for the object under the pointer.
func (c *Canvas) PointerUp(e PointerEvent) {
	p := e.Point()

	c.mu.Lock()
	if !c.down {
		c.unlock()
		return
	}
	c.down = false
	button := c.downButton

	if c.drawMode && c.brush != nil && button == Primary {
		b := c.brush
		c.mu.Unlock()

		if path := b.Up(); path != nil {
			c.Add(path)
		}
		c.RenderUpper()
		return
	}
	defer c.unlock()

	if button == Secondary {
		c.openMenuLocked(p)
		return
	}

	if c.sel != nil && !c.sel.Finalized() {
		c.finalizeLocked()
		c.renderUpperLocked()
	}
}

// finalizeLocked turns the rubber band into a group of the objects fully
// inside it, or discards it when it is empty or collapsed to a point.
func (c *Canvas) finalizeLocked() {
	box, ok := c.sel.DragBox()
	if !ok || box.IsZero() {
		c.sel = nil
		return
	}

	var members []scene.Object
	for _, o := range c.objs.All() {
		if o.Selectable() && !o.PendingDelete() && o.ContainedIn(box) {
			members = append(members, o)
		}
	}
	if len(members) == 0 {
		c.sel = nil
		return
	}

	for _, o := range members {
		o.SetSelected(true)
	}
	c.sel.Finalize(members...)
	c.queue(EventSelect, members...)
}

// hitLocked returns the topmost selectable object under p.
func (c *Canvas) hitLocked(p geom.Point) scene.Object {
	for _, o := range c.objs.Backward() {
		if o.Selectable() && !o.PendingDelete() && o.Contains(p) {
			return o
		}
	}
	return nil
}

// ObjectAt returns the topmost selectable object under p, or nil.
func (c *Canvas) ObjectAt(p geom.Point) scene.Object {
	c.mu.Lock()
	defer c.unlock()
	return c.hitLocked(p)
}
