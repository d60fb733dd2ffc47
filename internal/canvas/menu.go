package canvas

import (
	"github.com/simplercanvas/simplercanvas/internal/geom"
	"github.com/simplercanvas/simplercanvas/internal/scene"
)

// MenuEntry is one item of the object context menu.
type MenuEntry struct {
	Label  string
	Action func()
}

// ContextMenu is the widget that shows the object context menu. Open is
// called without the canvas lock held, so actions may call back into the
// canvas.
type ContextMenu interface {
	Open(at geom.Point, target scene.Object, entries []MenuEntry)
}

// MenuEntries lists the actions offered for target.
func (c *Canvas) MenuEntries(target scene.Object) []MenuEntry {
	return []MenuEntry{
		{Label: "Bring to front", Action: func() { c.ToFront(target) }},
		{Label: "Bring forward", Action: func() { c.Forward(target, 1) }},
		{Label: "Send backward", Action: func() { c.Backward(target, 1) }},
		{Label: "Send to back", Action: func() { c.ToBack(target) }},
		{Label: "Delete", Action: func() { c.Delete(target) }},
	}
}

func (c *Canvas) openMenuLocked(at geom.Point) {
	if !c.menuEnabled || c.menu == nil {
		return
	}
	target := c.hitLocked(at)
	if target == nil {
		return
	}

	menu := c.menu
	entries := c.MenuEntries(target)
	c.after = append(c.after, func() { menu.Open(at, target, entries) })
}
