package canvas

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/simplercanvas/simplercanvas/internal/scene"
)

// Version tags every exported record.
const Version = "smp:canvas/data@0.1.0-alpha"

// Export is the serialized canvas. Height and Width are in device pixels.
type Export struct {
	Objects    []scene.Record `json:"objects"`
	Background string         `json:"background"`
	Overlay    string         `json:"overlay"`
	Version    string         `json:"version"`
	Height     float64        `json:"height"`
	Width      float64        `json:"width"`
}

// Export snapshots the canvas. Objects pending deletion are left out.
func (c *Canvas) Export() Export {
	c.mu.Lock()
	defer c.unlock()

	ex := Export{
		Objects:    []scene.Record{},
		Background: c.bg,
		Overlay:    c.ov,
		Version:    Version,
		Height:     c.h,
		Width:      c.w,
	}
	for _, o := range c.objs.All() {
		if !o.PendingDelete() {
			ex.Objects = append(ex.Objects, o.Record())
		}
	}
	return ex
}

func (c *Canvas) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Export())
}

// Load replaces size, background and all content with ex. Records of
// unknown type are skipped. If a known record fails to hydrate the canvas
// is left untouched.
func (c *Canvas) Load(ex Export) error {
	if ex.Version != Version {
		slog.Warn("loading canvas with different version", "version", ex.Version, "want", Version)
	}

	objs := make([]scene.Object, 0, len(ex.Objects))
	for i, r := range ex.Objects {
		if !scene.Known(r.Type) {
			slog.Warn("skipping canvas object of unknown type", "index", i, "type", r.Type)
			continue
		}
		o, err := scene.Hydrate(r)
		if err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
		objs = append(objs, o)
	}

	c.mu.Lock()
	defer c.unlock()

	c.sel = nil
	c.objs.Set(objs)
	c.bg, c.ov = ex.Background, ex.Overlay
	if ex.Width > 0 {
		c.w = ex.Width
	}
	if ex.Height > 0 {
		c.h = ex.Height
	}

	c.applyHostLocked()
	c.queue(EventChange, objs...)
	c.renderLowerLocked()
	c.renderUpperLocked()
	return nil
}

// LoadJSON decodes data and loads it.
func (c *Canvas) LoadJSON(data []byte) error {
	var ex Export
	if err := json.Unmarshal(data, &ex); err != nil {
		return fmt.Errorf("decode canvas: %w", err)
	}
	return c.Load(ex)
}
