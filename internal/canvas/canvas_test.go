package canvas

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplercanvas/simplercanvas/internal/brush"
	"github.com/simplercanvas/simplercanvas/internal/geom"
	"github.com/simplercanvas/simplercanvas/internal/render"
	"github.com/simplercanvas/simplercanvas/internal/scene"
	sp "github.com/simplercanvas/simplercanvas/internal/svgpath"
)

type fakeHost struct {
	ratio  float64
	w, h   int
	bg, ov string
}

func (h *fakeHost) PixelRatio() float64       { return h.ratio }
func (h *fakeHost) Resize(w, ht int)          { h.w, h.h = w, ht }
func (h *fakeHost) Style(bg, overlay string) { h.bg, h.ov = bg, overlay }

type fakeMenu struct {
	opened  int
	at      geom.Point
	target  scene.Object
	entries []MenuEntry
}

func (m *fakeMenu) Open(at geom.Point, target scene.Object, entries []MenuEntry) {
	m.opened++
	m.at, m.target, m.entries = at, target, entries
}

type recorded struct {
	mu     sync.Mutex
	events map[string][]Event
}

func record(c *Canvas, names ...string) *recorded {
	r := &recorded{events: map[string][]Event{}}
	for _, n := range names {
		c.On(n, func(name string, ev Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events[name] = append(r.events[name], ev)
		})
	}
	return r
}

func (r *recorded) get(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[name]
}

type fixture struct {
	c            *Canvas
	lower, upper *render.Recorder
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	lower, upper := render.NewRecorder(600, 400), render.NewRecorder(600, 400)
	return fixture{c: New(lower, upper, nil, opts), lower: lower, upper: upper}
}

// diagonal is a line from (x, y) to (x+size, y+size).
func diagonal(t *testing.T, x, y, size float64) *scene.Path {
	t.Helper()
	p, err := scene.NewPath([]sp.Instruction{
		sp.I(sp.MoveTo, x, y),
		sp.I(sp.LineTo, x+size, y+size),
	}, scene.DefaultStyle())
	require.NoError(t, err)
	return p
}

func down(x, y float64) PointerEvent { return PointerEvent{X: x, Y: y} }

func click(c *Canvas, e PointerEvent) {
	c.PointerDown(e)
	c.PointerUp(e)
}

func drag(c *Canvas, from, to geom.Point) {
	c.PointerDown(down(from.X, from.Y))
	c.PointerMove(down(to.X, to.Y))
	c.PointerUp(down(to.X, to.Y))
}

func TestNewAppliesHost(t *testing.T) {
	host := &fakeHost{ratio: 2}
	c := New(render.NewRecorder(0, 0), render.NewRecorder(0, 0), host, Options{
		Background: "#ffffff",
		Overlay:    "url(grid.png)",
		Width:      300,
		Height:     200,
	})

	assert.Equal(t, 600, host.w)
	assert.Equal(t, 400, host.h)
	assert.Equal(t, "#ffffff", host.bg)
	assert.Equal(t, "url(grid.png)", host.ov)

	w, h := c.Size()
	assert.Equal(t, 300.0, w)
	assert.Equal(t, 200.0, h)

	c.SetSize(100, 0)
	dw, dh := c.DeviceSize()
	assert.Equal(t, 200, dw)
	assert.Equal(t, 400, dh)

	c.SetBackground("#000000")
	assert.Equal(t, "#000000", host.bg)
}

func TestDefaultSize(t *testing.T) {
	f := newFixture(t, Options{})

	w, h := f.c.Size()
	assert.Equal(t, float64(DefaultWidth), w)
	assert.Equal(t, float64(DefaultHeight), h)
}

func TestAddRendersLowerLayer(t *testing.T) {
	f := newFixture(t, Options{})
	rec := record(f.c, EventAdd, EventRenderLower)
	p := diagonal(t, 10, 10, 40)

	f.c.Add(p)

	require.Len(t, rec.get(EventAdd), 1)
	assert.Equal(t, []scene.Object{p}, rec.get(EventAdd)[0].Objects)
	assert.Len(t, rec.get(EventRenderLower), 1)

	cmds := f.lower.Flush()
	assert.Equal(t, render.Command{Op: "clearRect", Args: []float64{0, 0, 600, 400}}, cmds[0])
	assert.Contains(t, cmds, render.Command{Op: "lineTo", Args: []float64{50, 50}})
	assert.Equal(t, []scene.Object{p}, f.c.Objects())
}

func TestDrawStroke(t *testing.T) {
	f := newFixture(t, Options{})
	b, err := brush.New(brush.DefaultOptions())
	require.NoError(t, err)
	f.c.SetBrush(b)
	f.c.SetDrawMode(true)
	assert.True(t, f.c.DrawMode())

	rec := record(f.c, EventAdd)

	f.c.PointerDown(down(10, 10))
	f.c.PointerMove(down(50, 10))
	f.c.PointerMove(down(90, 10))

	assert.Contains(t, f.upper.Flush(), render.Command{Op: "quadraticCurveTo", Args: []float64{50, 10, 70, 10}},
		"live stroke is drawn on the upper layer")

	f.c.PointerUp(down(90, 10))

	objs := f.c.Objects()
	require.Len(t, objs, 1)
	assert.Equal(t, geom.NewBox(10, 10, 80, 0), objs[0].Box())
	require.Len(t, rec.get(EventAdd), 1)
	assert.NotContains(t, f.upper.Flush(), render.Command{Op: "quadraticCurveTo", Args: []float64{50, 10, 70, 10}},
		"live stroke is gone after the stroke ends")
}

func TestDrawThenRubberBandSelect(t *testing.T) {
	f := newFixture(t, Options{})
	b, err := brush.New(brush.DefaultOptions())
	require.NoError(t, err)
	f.c.SetBrush(b)
	f.c.SetDrawMode(true)

	drag(f.c, geom.Pt(0, 0), geom.Pt(100, 0))
	objs := f.c.Objects()
	require.Len(t, objs, 1)

	f.c.SetDrawMode(false)
	drag(f.c, geom.Pt(-10, -10), geom.Pt(110, 10))
	assert.Equal(t, objs, f.c.Selected())
}

func TestDrawModeIgnoresTinyStrokes(t *testing.T) {
	f := newFixture(t, Options{})
	b, err := brush.New(brush.DefaultOptions())
	require.NoError(t, err)
	f.c.SetBrush(b)
	f.c.SetDrawMode(true)

	click(f.c, down(10, 10))
	assert.Empty(t, f.c.Objects())
}

func TestDrawModeWithoutBrush(t *testing.T) {
	f := newFixture(t, Options{})
	a := diagonal(t, 10, 10, 40)
	f.c.Add(a)
	f.c.SetDrawMode(true)

	// without a brush the pointer selects as usual
	click(f.c, down(30, 30))
	assert.Equal(t, []scene.Object{a}, f.c.Selected())

	f.c.ClearSelection()
	drag(f.c, geom.Pt(0, 0), geom.Pt(100, 100))
	assert.Equal(t, []scene.Object{a}, f.c.Selected())

	f.c.PointerDown(down(30, 30))
	f.c.PointerMove(down(35, 30))
	f.c.PointerUp(down(35, 30))
	assert.Len(t, f.c.Objects(), 1)
	assert.Equal(t, geom.Pt(15, 10), a.Position())
}

func TestFractionalPixelRatioKeepsLogicalSize(t *testing.T) {
	host := &fakeHost{ratio: 1.5}
	c := New(render.NewRecorder(0, 0), render.NewRecorder(0, 0), host, Options{Width: 333, Height: 201})

	w, h := c.Size()
	assert.Equal(t, 333.0, w)
	assert.Equal(t, 201.0, h)

	ex := c.Export()
	assert.Equal(t, 499.5, ex.Width)
	assert.Equal(t, 301.5, ex.Height)

	dw, dh := c.DeviceSize()
	assert.Equal(t, 500, dw)
	assert.Equal(t, 302, dh)
	assert.Equal(t, 500, host.w)

	require.NoError(t, c.Load(ex))
	w, _ = c.Size()
	assert.Equal(t, 333.0, w)
}

func TestLeavingDrawModeCancelsStroke(t *testing.T) {
	f := newFixture(t, Options{})
	b, err := brush.New(brush.DefaultOptions())
	require.NoError(t, err)
	f.c.SetBrush(b)
	f.c.SetDrawMode(true)

	f.c.PointerDown(down(10, 10))
	f.c.PointerMove(down(50, 50))
	f.c.SetDrawMode(false)
	f.c.PointerUp(down(50, 50))

	assert.Empty(t, f.c.Objects())
	assert.Empty(t, b.Points())
}

func TestClickSelection(t *testing.T) {
	f := newFixture(t, Options{})
	a, b := diagonal(t, 10, 10, 40), diagonal(t, 100, 100, 40)
	f.c.Add(a, b)
	rec := record(f.c, EventSelect)

	click(f.c, down(30, 30))
	assert.Equal(t, []scene.Object{a}, f.c.Selected())

	click(f.c, down(120, 120))
	assert.Equal(t, []scene.Object{b}, f.c.Selected())

	click(f.c, PointerEvent{X: 30, Y: 30, Ctrl: true})
	assert.Equal(t, []scene.Object{a, b}, f.c.Selected())

	click(f.c, PointerEvent{X: 30, Y: 30, Ctrl: true})
	assert.Equal(t, []scene.Object{b}, f.c.Selected())

	// a plain click on a selected object drops the others
	click(f.c, PointerEvent{X: 30, Y: 30, Ctrl: true})
	click(f.c, down(120, 120))
	assert.Equal(t, []scene.Object{b}, f.c.Selected())

	click(f.c, down(300, 300))
	assert.Empty(t, f.c.Selected())

	assert.Len(t, rec.get(EventSelect), 7)
}

func TestHitTest(t *testing.T) {
	f := newFixture(t, Options{})
	bottom, top := diagonal(t, 10, 10, 40), diagonal(t, 20, 20, 40)
	locked := diagonal(t, 25, 25, 10)
	style := locked.Style()
	style.Selectable = false
	locked.SetStyle(style)
	f.c.Add(bottom, top, locked)

	assert.Same(t, top, f.c.ObjectAt(geom.Pt(30, 30)))
	assert.Same(t, bottom, f.c.ObjectAt(geom.Pt(15, 15)))
	assert.Nil(t, f.c.ObjectAt(geom.Pt(500, 10)))

	f.c.Delete(top)
	assert.Same(t, bottom, f.c.ObjectAt(geom.Pt(30, 30)))
}

func TestRubberBandSelection(t *testing.T) {
	f := newFixture(t, Options{})
	a, b := diagonal(t, 10, 10, 40), diagonal(t, 100, 100, 40)
	f.c.Add(a, b)
	rec := record(f.c, EventSelect)

	f.c.PointerDown(down(60, 60))
	f.c.PointerMove(down(30, 30))
	assert.Contains(t, f.upper.Flush(), render.Command{Op: "rect", Args: []float64{30, 30, 30, 30}},
		"rubber band follows the pointer in any direction")
	f.c.PointerMove(down(0, 0))
	f.c.PointerUp(down(0, 0))

	assert.Equal(t, []scene.Object{a}, f.c.Selected())
	events := rec.get(EventSelect)
	require.NotEmpty(t, events)
	assert.Equal(t, []scene.Object{a}, events[len(events)-1].Objects)
}

func TestRubberBandWithoutMembers(t *testing.T) {
	f := newFixture(t, Options{})
	a := diagonal(t, 10, 10, 40)
	f.c.Add(a)

	drag(f.c, geom.Pt(200, 200), geom.Pt(300, 300))
	assert.Empty(t, f.c.Selected())

	// partially covered objects are not members
	drag(f.c, geom.Pt(0, 0), geom.Pt(30, 30))
	assert.Empty(t, f.c.Selected())

	// zero-area drag
	drag(f.c, geom.Pt(0, 0), geom.Pt(0, 100))
	assert.Empty(t, f.c.Selected())
}

func TestGroupMove(t *testing.T) {
	f := newFixture(t, Options{})
	a, b := diagonal(t, 10, 10, 40), diagonal(t, 100, 100, 40)
	f.c.Add(a, b)
	rec := record(f.c, EventChange)

	drag(f.c, geom.Pt(0, 0), geom.Pt(200, 200))
	require.Len(t, f.c.Selected(), 2)

	// grab a member
	f.c.PointerDown(down(30, 30))
	f.c.PointerMove(down(35, 40))
	f.c.PointerMove(down(40, 45))
	f.c.PointerUp(down(40, 45))

	assert.Equal(t, geom.Pt(20, 25), a.Position())
	assert.Equal(t, geom.Pt(110, 115), b.Position())
	assert.Len(t, rec.get(EventChange), 2)

	// grab empty space inside the group box
	f.c.PointerDown(down(80, 80))
	f.c.PointerMove(down(85, 80))
	f.c.PointerUp(down(85, 80))

	assert.Equal(t, geom.Pt(25, 25), a.Position())
	assert.Equal(t, geom.Pt(115, 115), b.Position())
	assert.Len(t, f.c.Selected(), 2)
}

func TestClickOnNonMemberDissolvesGroup(t *testing.T) {
	f := newFixture(t, Options{})
	a, b := diagonal(t, 10, 10, 40), diagonal(t, 100, 100, 40)
	f.c.Add(a, b)

	drag(f.c, geom.Pt(0, 0), geom.Pt(60, 60))
	require.Equal(t, []scene.Object{a}, f.c.Selected())

	f.c.PointerDown(down(120, 120))
	f.c.PointerMove(down(130, 120))
	f.c.PointerUp(down(130, 120))

	assert.Equal(t, []scene.Object{b}, f.c.Selected())
	assert.Equal(t, geom.Pt(10, 10), a.Position())
	assert.Equal(t, geom.Pt(110, 100), b.Position())
}

func TestSelectionHighlight(t *testing.T) {
	f := newFixture(t, Options{})
	a := diagonal(t, 10, 10, 40)
	f.c.Add(a)
	f.upper.Flush()

	f.c.Select(a)

	cmds := f.upper.Flush()
	assert.Contains(t, cmds, render.Command{Op: "strokeStyle", Value: HighlightColor})
	assert.Contains(t, cmds, render.Command{Op: "strokeRect", Args: []float64{9.5, 9.5, 41, 41}})

	f.c.ClearSelection()
	assert.NotContains(t, f.upper.Flush(), render.Command{Op: "strokeStyle", Value: HighlightColor})
}

func TestZOrder(t *testing.T) {
	f := newFixture(t, Options{})
	a, b, c := diagonal(t, 0, 0, 10), diagonal(t, 20, 0, 10), diagonal(t, 40, 0, 10)
	f.c.Add(a, b, c)
	rec := record(f.c, EventChange)

	f.c.ToBack(c)
	assert.Equal(t, []scene.Object{c, a, b}, f.c.Objects())

	f.c.Forward(c, 5)
	assert.Equal(t, []scene.Object{a, b, c}, f.c.Objects())

	f.c.Backward(c, 1)
	assert.Equal(t, []scene.Object{a, c, b}, f.c.Objects())

	f.c.Backward(a, 10)
	assert.Equal(t, []scene.Object{a, c, b}, f.c.Objects())

	f.c.ToFront(a)
	assert.Equal(t, []scene.Object{c, b, a}, f.c.Objects())

	f.c.ToFront(diagonal(t, 0, 0, 1))
	assert.Equal(t, []scene.Object{c, b, a}, f.c.Objects())

	assert.Len(t, rec.get(EventChange), 5)
}

func TestRemove(t *testing.T) {
	f := newFixture(t, Options{})
	a, b := diagonal(t, 10, 10, 40), diagonal(t, 100, 100, 40)
	f.c.Add(a, b)
	f.c.Select(a, b)
	rec := record(f.c, EventRemove)

	f.c.Remove(a, diagonal(t, 0, 0, 1))

	assert.Equal(t, []scene.Object{b}, f.c.Objects())
	assert.Equal(t, []scene.Object{b}, f.c.Selected())
	assert.False(t, a.Selected())
	require.Len(t, rec.get(EventRemove), 1)
	assert.Equal(t, []scene.Object{a}, rec.get(EventRemove)[0].Objects)
}

func TestContextMenu(t *testing.T) {
	f := newFixture(t, Options{ContextMenu: true})
	menu := &fakeMenu{}
	f.c.SetContextMenu(menu)
	a, b := diagonal(t, 10, 10, 40), diagonal(t, 100, 100, 40)
	f.c.Add(a, b)
	rec := record(f.c, EventRemove)

	right := PointerEvent{X: 30, Y: 30, Button: Secondary}
	click(f.c, right)

	require.Equal(t, 1, menu.opened)
	assert.Same(t, a, menu.target)
	assert.Equal(t, geom.Pt(30, 30), menu.at)
	var labels []string
	for _, e := range menu.entries {
		labels = append(labels, e.Label)
	}
	assert.Equal(t, []string{"Bring to front", "Bring forward", "Send backward", "Send to back", "Delete"}, labels)
	assert.Empty(t, f.c.Selected(), "secondary clicks do not select")

	menu.entries[0].Action()
	assert.Equal(t, []scene.Object{b, a}, f.c.Objects())

	menu.entries[4].Action()
	assert.Equal(t, []scene.Object{b}, f.c.Objects())
	require.Len(t, rec.get(EventRemove), 1)
	assert.Equal(t, []scene.Object{a}, rec.get(EventRemove)[0].Objects)

	// nothing under the pointer
	click(f.c, PointerEvent{X: 500, Y: 10, Button: Secondary})
	assert.Equal(t, 1, menu.opened)

	f.c.EnableContextMenu(false)
	click(f.c, PointerEvent{X: 120, Y: 120, Button: Secondary})
	assert.Equal(t, 1, menu.opened)
}

func TestExportImportRoundTrip(t *testing.T) {
	f := newFixture(t, Options{Background: "#fafafa", Overlay: "none", Width: 320, Height: 240})
	a := diagonal(t, 10, 10, 40)
	b, err := scene.ParsePath("M 100 100 Q 150 50 200 100", scene.Style{
		Stroke: "#ff0000", Fill: "#00ff00", Weight: 3, Selectable: true,
	})
	require.NoError(t, err)
	b.Rotate(15)
	f.c.Add(a, b)

	ex := f.c.Export()
	assert.Equal(t, Version, ex.Version)
	assert.Equal(t, 320.0, ex.Width)
	assert.Equal(t, 240.0, ex.Height)
	require.Len(t, ex.Objects, 2)
	assert.Equal(t, scene.KindPath, ex.Objects[0].Type)

	data, err := json.Marshal(f.c)
	require.NoError(t, err)

	g := newFixture(t, Options{})
	g.c.Add(diagonal(t, 0, 0, 5))
	rec := record(g.c, EventChange)
	require.NoError(t, g.c.LoadJSON(data))

	assert.Equal(t, ex, g.c.Export())
	assert.Len(t, g.c.Objects(), 2)
	assert.Len(t, rec.get(EventChange), 1)

	again, err := json.Marshal(g.c)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestExportSkipsPendingDelete(t *testing.T) {
	f := newFixture(t, Options{})
	a := diagonal(t, 10, 10, 40)
	f.c.Add(a)
	a.SetPendingDelete(true)

	assert.Empty(t, f.c.Export().Objects)
	assert.Empty(t, f.c.Objects())
}

func TestLoadSkipsUnknownTypes(t *testing.T) {
	f := newFixture(t, Options{})
	data := `{
		"objects": [
			{"type": "circle", "x": 1, "y": 1},
			{"type": "path", "path": "M 0 0 L 10 10", "x": 5, "y": 5, "selectable": true, "stroke": "#000000", "weight": 1, "fill": ""}
		],
		"background": "", "overlay": "", "version": "smp:canvas/data@0.1.0-alpha",
		"height": 50, "width": 100
	}`

	require.NoError(t, f.c.LoadJSON([]byte(data)))

	objs := f.c.Objects()
	require.Len(t, objs, 1)
	assert.Equal(t, geom.Pt(5, 5), objs[0].Position())
	w, h := f.c.DeviceSize()
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
}

func TestLoadFailureKeepsCanvas(t *testing.T) {
	f := newFixture(t, Options{Background: "#111111"})
	a := diagonal(t, 10, 10, 40)
	f.c.Add(a)

	err := f.c.Load(Export{
		Objects:    []scene.Record{{Type: scene.KindPath, Path: "M 0 0 Z"}},
		Background: "#222222",
		Version:    Version,
	})
	assert.ErrorIs(t, err, sp.ErrUnknownOp)

	assert.Equal(t, []scene.Object{a}, f.c.Objects())
	bg, _ := f.c.Background()
	assert.Equal(t, "#111111", bg)

	assert.Error(t, f.c.LoadJSON([]byte("{")))
}
