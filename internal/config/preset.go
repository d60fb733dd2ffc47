package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/simplercanvas/simplercanvas/internal/brush"
	"github.com/simplercanvas/simplercanvas/internal/canvas"
)

// Preset holds the canvas and brush defaults read from a TOML file:
//
//	[canvas]
//	background = "#ffffff"
//	width = 800
//
//	[brush]
//	color = "#222222"
//	straighten_after_ms = 600
type Preset struct {
	Canvas CanvasPreset `toml:"canvas"`
	Brush  BrushPreset  `toml:"brush"`
}

type CanvasPreset struct {
	Background  string  `toml:"background"`
	Overlay     string  `toml:"overlay"`
	Width       float64 `toml:"width"`
	Height      float64 `toml:"height"`
	PixelRatio  float64 `toml:"pixel_ratio"`
	ContextMenu bool    `toml:"context_menu"`
}

type BrushPreset struct {
	Color             string  `toml:"color"`
	Width             float64 `toml:"width"`
	LineJoin          string  `toml:"line_join"`
	LineCap           string  `toml:"line_cap"`
	MiterLimit        float64 `toml:"miter_limit"`
	AngleTolerance    float64 `toml:"angle_tolerance"`
	Straight          bool    `toml:"straight"`
	StraightenAfterMS int     `toml:"straighten_after_ms"`
	CapCorrection     float64 `toml:"cap_correction"`
	SnapDiagonal      bool    `toml:"snap_diagonal"`
}

func DefaultPreset() Preset {
	b := brush.DefaultOptions()
	return Preset{
		Canvas: CanvasPreset{
			Background:  "#ffffff",
			Width:       canvas.DefaultWidth,
			Height:      canvas.DefaultHeight,
			PixelRatio:  1,
			ContextMenu: true,
		},
		Brush: BrushPreset{
			Color:          b.Color,
			Width:          b.Width,
			LineJoin:       b.LineJoin,
			LineCap:        b.LineCap,
			MiterLimit:     b.MiterLimit,
			AngleTolerance: b.AngleTolerance,
		},
	}
}

// LoadPreset reads path over the defaults. An empty path or a missing file
// yields the defaults.
func LoadPreset(path string) (Preset, error) {
	p := DefaultPreset()
	if path == "" {
		return p, nil
	}

	md, err := toml.DecodeFile(path, &p)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("preset file not found, using defaults", "path", path)
		return DefaultPreset(), nil
	}
	if err != nil {
		return Preset{}, fmt.Errorf("decode preset %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("unknown preset key", "path", path, "key", key.String())
	}

	if err := p.validate(path); err != nil {
		return Preset{}, err
	}
	return p, nil
}

// ParsePreset decodes a TOML document over the defaults.
func ParsePreset(data string) (Preset, error) {
	p := DefaultPreset()
	if _, err := toml.Decode(data, &p); err != nil {
		return Preset{}, fmt.Errorf("decode preset: %w", err)
	}
	if err := p.validate("inline"); err != nil {
		return Preset{}, err
	}
	return p, nil
}

func (p Preset) validate(source string) error {
	if p.Canvas.PixelRatio <= 0 {
		return fmt.Errorf("preset %s: pixel_ratio must be positive", source)
	}
	if err := p.BrushOptions().Validate(); err != nil {
		return fmt.Errorf("preset %s: %w", source, err)
	}
	return nil
}

func (p Preset) CanvasOptions() canvas.Options {
	return canvas.Options{
		Background:  p.Canvas.Background,
		Overlay:     p.Canvas.Overlay,
		Width:       p.Canvas.Width,
		Height:      p.Canvas.Height,
		ContextMenu: p.Canvas.ContextMenu,
	}
}

func (p Preset) BrushOptions() brush.Options {
	b := p.Brush
	return brush.Options{
		Color:           b.Color,
		Width:           b.Width,
		LineJoin:        b.LineJoin,
		LineCap:         b.LineCap,
		MiterLimit:      b.MiterLimit,
		AngleTolerance:  b.AngleTolerance,
		Straight:        b.Straight,
		StraightenAfter: time.Duration(b.StraightenAfterMS) * time.Millisecond,
		CapCorrection:   b.CapCorrection,
		SnapDiagonal:    b.SnapDiagonal,
	}
}
