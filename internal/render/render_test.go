package render

import (
	"bytes"
	"encoding/json"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplercanvas/simplercanvas/internal/geom"
)

var (
	red         = color.RGBA{R: 255, A: 255}
	blue        = color.RGBA{B: 255, A: 255}
	transparent = color.RGBA{}
)

func TestRecorderBuffersCommands(t *testing.T) {
	r := NewRecorder(100, 50)

	r.Save()
	r.Transform(geom.AffineTranslate(3, 4))
	r.SetStrokeStyle("#ff0000")
	r.BeginPath()
	r.MoveTo(1, 2)
	r.QuadTo(3, 4, 5, 6)
	r.Stroke()
	r.Restore()

	cmds := r.Commands()
	require.Len(t, cmds, 8)
	assert.Equal(t, Command{Op: "transform", Args: []float64{1, 0, 0, 1, 3, 4}}, cmds[1])
	assert.Equal(t, Command{Op: "strokeStyle", Value: "#ff0000"}, cmds[2])
	assert.Equal(t, Command{Op: "quadraticCurveTo", Args: []float64{3, 4, 5, 6}}, cmds[5])

	w, h := r.Size()
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)
}

func TestRecorderFlush(t *testing.T) {
	r := NewRecorder(10, 10)
	r.ClearRect(0, 0, 10, 10)

	out, err := r.FlushJSON()
	require.NoError(t, err)

	var cmds []Command
	require.NoError(t, json.Unmarshal([]byte(out), &cmds))
	assert.Equal(t, []Command{{Op: "clearRect", Args: []float64{0, 0, 10, 10}}}, cmds)

	out, err = r.FlushJSON()
	require.NoError(t, err)
	assert.Equal(t, "[]", out)
}

func TestRecorderResizeDropsBuffer(t *testing.T) {
	r := NewRecorder(10, 10)
	r.Fill()
	r.Resize(20, 30)

	assert.Empty(t, r.Commands())
	w, h := r.Size()
	assert.Equal(t, 20, w)
	assert.Equal(t, 30, h)
}

func TestRasterFillRect(t *testing.T) {
	r := NewRaster(20, 20)
	r.SetFillStyle("#ff0000")
	r.BeginPath()
	r.Rect(5, 5, 10, 10)
	r.Fill()

	img := r.Image()
	assert.Equal(t, red, img.RGBAAt(10, 10))
	assert.Equal(t, red, img.RGBAAt(5, 5))
	assert.Equal(t, transparent, img.RGBAAt(2, 2))
	assert.Equal(t, transparent, img.RGBAAt(16, 16))
}

func TestRasterStrokeLine(t *testing.T) {
	r := NewRaster(20, 20)
	r.SetStrokeStyle("blue")
	r.SetLineWidth(4)
	r.BeginPath()
	r.MoveTo(2, 10)
	r.LineTo(18, 10)
	r.Stroke()

	img := r.Image()
	assert.Equal(t, blue, img.RGBAAt(10, 10))
	assert.Equal(t, blue, img.RGBAAt(10, 8))
	assert.Equal(t, transparent, img.RGBAAt(10, 3))
	assert.Equal(t, transparent, img.RGBAAt(0, 10), "butt cap does not extend past the end")
}

func TestRasterTransformAndRestore(t *testing.T) {
	r := NewRaster(20, 20)
	r.SetFillStyle("#f00")

	r.Save()
	r.Transform(geom.AffineTranslate(10, 0))
	r.BeginPath()
	r.Rect(0, 0, 5, 5)
	r.Fill()
	r.Restore()

	r.BeginPath()
	r.Rect(0, 10, 5, 5)
	r.Fill()

	img := r.Image()
	assert.Equal(t, red, img.RGBAAt(12, 2))
	assert.Equal(t, transparent, img.RGBAAt(2, 2))
	assert.Equal(t, red, img.RGBAAt(2, 12), "transform restored")
}

func TestRasterClearRect(t *testing.T) {
	r := NewRaster(10, 10)
	r.SetFillStyle("#ff0000")
	r.BeginPath()
	r.Rect(0, 0, 10, 10)
	r.Fill()

	r.ClearRect(0, 0, 5, 10)

	img := r.Image()
	assert.Equal(t, transparent, img.RGBAAt(2, 2))
	assert.Equal(t, red, img.RGBAAt(7, 2))
}

func TestRasterNoPaintForTransparent(t *testing.T) {
	r := NewRaster(10, 10)
	r.SetFillStyle("transparent")
	r.BeginPath()
	r.Rect(0, 0, 10, 10)
	r.Fill()

	assert.Equal(t, transparent, r.Image().RGBAAt(5, 5))
}

func TestCompositePNG(t *testing.T) {
	lower := NewRaster(8, 8)
	lower.SetFillStyle("#0000ff")
	lower.BeginPath()
	lower.Rect(0, 0, 4, 8)
	lower.Fill()
	upper := NewRaster(8, 8)

	img := Composite("#ff0000", lower, upper)
	assert.Equal(t, blue, img.RGBAAt(1, 1))
	assert.Equal(t, red, img.RGBAAt(6, 1))

	var buf bytes.Buffer
	require.NoError(t, EncodePNG(&buf, img))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 8, decoded.Bounds().Dx())
}

func TestParseColor(t *testing.T) {
	cases := []struct {
		in   string
		want color.NRGBA
		ok   bool
	}{
		{"#ff0000", color.NRGBA{R: 255, A: 255}, true},
		{"#0f0", color.NRGBA{G: 255, A: 255}, true},
		{"#0000ff80", color.NRGBA{B: 255, A: 128}, true},
		{"Black", color.NRGBA{A: 255}, true},
		{"rgb(10, 20, 30)", color.NRGBA{R: 10, G: 20, B: 30, A: 255}, true},
		{"rgba(255, 255, 255, 0)", color.NRGBA{R: 255, G: 255, B: 255}, true},
		{"", color.NRGBA{}, false},
		{"none", color.NRGBA{}, false},
		{"transparent", color.NRGBA{}, false},
		{"#zzzzzz", color.NRGBA{}, false},
		{"rgb(1, 2)", color.NRGBA{}, false},
	}

	for _, tc := range cases {
		got, ok := ParseColor(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
