package render

import (
	"encoding/json"
	"sync"

	"github.com/simplercanvas/simplercanvas/internal/geom"
)

// Command is a single drawing operation for the frontend to execute on a
// Canvas2D context. Args holds numeric operands in call order; Value holds
// string operands such as colors and join/cap names.
type Command struct {
	Op    string    `json:"op"`
	Args  []float64 `json:"args,omitempty"`
	Value string    `json:"value,omitempty"`
}

// Recorder is a Surface that buffers commands instead of drawing them.
type Recorder struct {
	mu   sync.Mutex
	w, h int
	cmds []Command
}

// NewRecorder creates a recorder for a surface of the given pixel size.
func NewRecorder(w, h int) *Recorder {
	return &Recorder{w: w, h: h}
}

func (r *Recorder) push(op string, args ...float64) {
	r.mu.Lock()
	r.cmds = append(r.cmds, Command{Op: op, Args: args})
	r.mu.Unlock()
}

func (r *Recorder) pushValue(op, v string) {
	r.mu.Lock()
	r.cmds = append(r.cmds, Command{Op: op, Value: v})
	r.mu.Unlock()
}

// Size returns the surface size in pixels.
func (r *Recorder) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w, r.h
}

// Resize changes the surface size. Like a canvas element, resizing drops
// anything recorded so far.
func (r *Recorder) Resize(w, h int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w, r.h = w, h
	r.cmds = nil
}

// Commands returns a copy of the buffered commands.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.cmds...)
}

// Flush returns the buffered commands and empties the buffer.
func (r *Recorder) Flush() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.cmds
	r.cmds = nil
	return out
}

// FlushJSON is Flush serialized to JSON.
func (r *Recorder) FlushJSON() (string, error) {
	cmds := r.Flush()
	if cmds == nil {
		cmds = []Command{}
	}
	data, err := json.Marshal(cmds)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

func (r *Recorder) ClearRect(x, y, w, h float64) { r.push("clearRect", x, y, w, h) }
func (r *Recorder) Save()                        { r.push("save") }
func (r *Recorder) Restore()                     { r.push("restore") }
func (r *Recorder) Transform(m geom.Affine)      { r.push("transform", m.ToSlice()...) }
func (r *Recorder) BeginPath()                   { r.push("beginPath") }
func (r *Recorder) MoveTo(x, y float64)          { r.push("moveTo", x, y) }
func (r *Recorder) LineTo(x, y float64)          { r.push("lineTo", x, y) }
func (r *Recorder) QuadTo(cx, cy, x, y float64)  { r.push("quadraticCurveTo", cx, cy, x, y) }
func (r *Recorder) CubeTo(c1x, c1y, c2x, c2y, x, y float64) {
	r.push("bezierCurveTo", c1x, c1y, c2x, c2y, x, y)
}
func (r *Recorder) ClosePath()                    { r.push("closePath") }
func (r *Recorder) Rect(x, y, w, h float64)       { r.push("rect", x, y, w, h) }
func (r *Recorder) Stroke()                       { r.push("stroke") }
func (r *Recorder) Fill()                         { r.push("fill") }
func (r *Recorder) StrokeRect(x, y, w, h float64) { r.push("strokeRect", x, y, w, h) }
func (r *Recorder) SetStrokeStyle(c string)       { r.pushValue("strokeStyle", c) }
func (r *Recorder) SetFillStyle(c string)         { r.pushValue("fillStyle", c) }
func (r *Recorder) SetLineWidth(w float64)        { r.push("lineWidth", w) }
func (r *Recorder) SetLineJoin(j string)          { r.pushValue("lineJoin", j) }
func (r *Recorder) SetLineCap(c string)           { r.pushValue("lineCap", c) }
func (r *Recorder) SetMiterLimit(l float64)       { r.push("miterLimit", l) }
func (r *Recorder) SetGlobalAlpha(a float64)      { r.push("globalAlpha", a) }
