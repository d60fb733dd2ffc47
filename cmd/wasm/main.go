//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/simplercanvas/simplercanvas/internal/brush"
	"github.com/simplercanvas/simplercanvas/internal/canvas"
	"github.com/simplercanvas/simplercanvas/internal/config"
	"github.com/simplercanvas/simplercanvas/internal/geom"
	"github.com/simplercanvas/simplercanvas/internal/render"
	"github.com/simplercanvas/simplercanvas/internal/scene"
)

var (
	cv     *canvas.Canvas
	host   *jsHost
	preset = config.DefaultPreset()
	lower  = render.NewRecorder(0, 0)
	upper  = render.NewRecorder(0, 0)
	menu   *jsMenu
)

func main() {
	api := js.Global().Get("Object").New()

	// --- Commands (frontend → canvas) ---
	api.Set("create", js.FuncOf(create))
	api.Set("pointerDown", js.FuncOf(pointer(func(e canvas.PointerEvent) { cv.PointerDown(e) })))
	api.Set("pointerMove", js.FuncOf(pointer(func(e canvas.PointerEvent) { cv.PointerMove(e) })))
	api.Set("pointerUp", js.FuncOf(pointer(func(e canvas.PointerEvent) { cv.PointerUp(e) })))
	api.Set("setDrawMode", js.FuncOf(setDrawMode))
	api.Set("setBrush", js.FuncOf(setBrush))
	api.Set("setStraight", js.FuncOf(setStraight))
	api.Set("setBackground", js.FuncOf(setBackground))
	api.Set("setSize", js.FuncOf(setSize))
	api.Set("enableContextMenu", js.FuncOf(enableContextMenu))
	api.Set("menuSelect", js.FuncOf(menuSelect))
	api.Set("toFront", js.FuncOf(reorder(func(o scene.Object) { cv.ToFront(o) })))
	api.Set("toBack", js.FuncOf(reorder(func(o scene.Object) { cv.ToBack(o) })))
	api.Set("forward", js.FuncOf(reorder(func(o scene.Object) { cv.Forward(o, 1) })))
	api.Set("backward", js.FuncOf(reorder(func(o scene.Object) { cv.Backward(o, 1) })))
	api.Set("deleteSelection", js.FuncOf(deleteSelection))
	api.Set("clearSelection", js.FuncOf(clearSelection))
	api.Set("render", js.FuncOf(renderAll))
	api.Set("load", js.FuncOf(load))

	// --- Queries (frontend ← canvas) ---
	api.Set("export", js.FuncOf(export))
	api.Set("getSelection", js.FuncOf(getSelection))
	api.Set("getSize", js.FuncOf(getSize))

	js.Global().Set("simplerCanvas", api)
	js.Global().Set("simplerCanvasReady", js.ValueOf(true))

	select {}
}

// jsHost forwards host calls to the callbacks object passed to create:
//
//	{pixelRatio, resize(w, h), style(bg, overlay), draw(layer, commands),
//	 openMenu(x, y, labels), event(name, ids)}
type jsHost struct {
	cb js.Value
}

func (h *jsHost) PixelRatio() float64 {
	if r := h.cb.Get("pixelRatio"); r.Type() == js.TypeNumber && r.Float() > 0 {
		return r.Float()
	}
	if r := js.Global().Get("devicePixelRatio"); r.Type() == js.TypeNumber && r.Float() > 0 {
		return r.Float()
	}
	return preset.Canvas.PixelRatio
}

func (h *jsHost) Resize(w, hgt int) {
	lower.Resize(w, hgt)
	upper.Resize(w, hgt)
	h.call("resize", w, hgt)
}

func (h *jsHost) Style(background, overlay string) {
	h.call("style", background, overlay)
}

func (h *jsHost) call(name string, args ...any) {
	if fn := h.cb.Get(name); fn.Type() == js.TypeFunction {
		fn.Invoke(args...)
	}
}

func (h *jsHost) flush(layer string, r *render.Recorder) {
	cmds, err := r.FlushJSON()
	if err != nil {
		return
	}
	h.call("draw", layer, cmds)
}

// jsMenu keeps the entries of the open menu until the frontend picks one.
type jsMenu struct {
	host    *jsHost
	entries []canvas.MenuEntry
}

func (m *jsMenu) Open(at geom.Point, _ scene.Object, entries []canvas.MenuEntry) {
	m.entries = entries
	labels := make([]any, len(entries))
	for i, e := range entries {
		labels[i] = e.Label
	}
	m.host.call("openMenu", at.X, at.Y, labels)
}

func result(err error) any {
	if err != nil {
		return js.ValueOf(map[string]any{"error": err.Error()})
	}
	return js.ValueOf(map[string]any{"ok": true})
}

func ready() bool { return cv != nil }

// --- Command Handlers ---

// create builds the canvas. args: callbacks object, optional TOML preset.
func create(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		return js.ValueOf(map[string]any{"error": "missing host callbacks"})
	}
	if len(args) > 1 && args[1].Type() == js.TypeString {
		p, err := config.ParsePreset(args[1].String())
		if err != nil {
			return result(err)
		}
		preset = p
	}

	b, err := brush.New(preset.BrushOptions())
	if err != nil {
		return result(err)
	}

	host = &jsHost{cb: args[0]}
	menu = &jsMenu{host: host}
	cv = canvas.New(lower, upper, host, preset.CanvasOptions())
	cv.SetContextMenu(menu)
	cv.SetBrush(b)

	cv.On(canvas.EventRenderLower, func(string, canvas.Event) { host.flush("lower", lower) })
	cv.On(canvas.EventRenderUpper, func(string, canvas.Event) { host.flush("upper", upper) })
	notify := func(name string, e canvas.Event) {
		ids := make([]any, len(e.Objects))
		for i, o := range e.Objects {
			ids[i] = o.ID()
		}
		host.call("event", name, ids)
	}
	for _, name := range []string{canvas.EventAdd, canvas.EventRemove, canvas.EventSelect, canvas.EventChange} {
		cv.On(name, notify)
	}

	cv.Render()
	return result(nil)
}

func pointer(fn func(canvas.PointerEvent)) func(js.Value, []js.Value) any {
	return func(this js.Value, args []js.Value) any {
		if !ready() || len(args) < 2 {
			return nil
		}
		e := canvas.PointerEvent{X: args[0].Float(), Y: args[1].Float()}
		if len(args) > 2 && args[2].Int() == 2 {
			e.Button = canvas.Secondary
		}
		if len(args) > 3 {
			e.Ctrl = args[3].Truthy()
		}
		fn(e)
		return nil
	}
}

func setDrawMode(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return nil
	}
	cv.SetDrawMode(args[0].Truthy())
	return nil
}

// setBrush takes a partial JSON object over the current brush options.
func setBrush(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return nil
	}
	b := cv.Brush()
	if b == nil {
		return js.ValueOf(map[string]any{"error": "no brush"})
	}

	var patch struct {
		Color          *string  `json:"color"`
		Width          *float64 `json:"width"`
		LineJoin       *string  `json:"lineJoin"`
		LineCap        *string  `json:"lineCap"`
		AngleTolerance *float64 `json:"angleTolerance"`
	}
	if err := json.Unmarshal([]byte(args[0].String()), &patch); err != nil {
		return result(err)
	}

	o := b.Options()
	if patch.Color != nil {
		o.Color = *patch.Color
	}
	if patch.Width != nil {
		o.Width = *patch.Width
	}
	if patch.LineJoin != nil {
		o.LineJoin = *patch.LineJoin
	}
	if patch.LineCap != nil {
		o.LineCap = *patch.LineCap
	}
	if patch.AngleTolerance != nil {
		o.AngleTolerance = *patch.AngleTolerance
	}
	return result(b.SetOptions(o))
}

func setStraight(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return nil
	}
	if b := cv.Brush(); b != nil {
		b.SetStraight(args[0].Truthy())
	}
	return nil
}

func setBackground(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return nil
	}
	cv.SetBackground(args[0].String())
	if len(args) > 1 && args[1].Type() == js.TypeString {
		cv.SetOverlay(args[1].String())
	}
	cv.Render()
	return nil
}

func setSize(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 2 {
		return nil
	}
	cv.SetSize(args[0].Float(), args[1].Float())
	cv.Render()
	return nil
}

func enableContextMenu(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return nil
	}
	cv.EnableContextMenu(args[0].Truthy())
	return nil
}

func menuSelect(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return nil
	}
	i := args[0].Int()
	entries := menu.entries
	menu.entries = nil
	if i < 0 || i >= len(entries) {
		return nil
	}
	entries[i].Action()
	return nil
}

// reorder applies fn to every selected object.
func reorder(fn func(scene.Object)) func(js.Value, []js.Value) any {
	return func(this js.Value, args []js.Value) any {
		if !ready() {
			return nil
		}
		for _, o := range cv.Selected() {
			fn(o)
		}
		return nil
	}
}

func deleteSelection(this js.Value, args []js.Value) any {
	if !ready() {
		return nil
	}
	cv.Delete(cv.Selected()...)
	return nil
}

func clearSelection(this js.Value, args []js.Value) any {
	if !ready() {
		return nil
	}
	cv.ClearSelection()
	return nil
}

func renderAll(this js.Value, args []js.Value) any {
	if !ready() {
		return nil
	}
	cv.Render()
	return nil
}

func load(this js.Value, args []js.Value) any {
	if !ready() || len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing canvas JSON"})
	}
	return result(cv.LoadJSON([]byte(args[0].String())))
}

// --- Query Handlers ---

func export(this js.Value, args []js.Value) any {
	if !ready() {
		return nil
	}
	data, err := json.Marshal(cv)
	if err != nil {
		return nil
	}
	return js.ValueOf(string(data))
}

func getSelection(this js.Value, args []js.Value) any {
	if !ready() {
		return nil
	}
	sel := cv.Selected()
	ids := make([]any, len(sel))
	for i, o := range sel {
		ids[i] = o.ID()
	}
	return js.ValueOf(ids)
}

func getSize(this js.Value, args []js.Value) any {
	if !ready() {
		return nil
	}
	w, h := cv.Size()
	dw, dh := cv.DeviceSize()
	return js.ValueOf(map[string]any{
		"width": w, "height": h,
		"deviceWidth": dw, "deviceHeight": dh,
		"pixelRatio": cv.PixelRatio(),
	})
}
