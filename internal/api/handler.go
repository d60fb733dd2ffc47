// Package api serves canvases over HTTP. Every request that changes a
// canvas runs it through a headless canvas.Canvas, so stored documents are
// always records the canvas itself produced.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"

	"github.com/simplercanvas/simplercanvas/internal/auth"
	"github.com/simplercanvas/simplercanvas/internal/brush"
	"github.com/simplercanvas/simplercanvas/internal/canvas"
	"github.com/simplercanvas/simplercanvas/internal/config"
	"github.com/simplercanvas/simplercanvas/internal/geom"
	"github.com/simplercanvas/simplercanvas/internal/render"
	"github.com/simplercanvas/simplercanvas/internal/scene"
	"github.com/simplercanvas/simplercanvas/internal/store"
	"github.com/simplercanvas/simplercanvas/internal/typeid"
)

// MaxRasterSide bounds the PNG size in device pixels.
const MaxRasterSide = 8192

var (
	errShortStroke = errors.New("stroke needs at least two distinct points")
	errTooLarge    = errors.New("canvas too large to render")
)

type Store interface {
	Create(ctx context.Context, id string, doc []byte) (*store.Canvas, error)
	Get(ctx context.Context, id string) (*store.Canvas, error)
	Save(ctx context.Context, id string, doc []byte) (*store.Canvas, error)
}

// Publisher is told about every stored change.
type Publisher interface {
	Publish(canvasID string, doc []byte)
}

type Handler struct {
	store  Store
	auth   *auth.Service
	live   Publisher
	preset config.Preset

	// serializes read-modify-write cycles
	writeMu sync.Mutex
}

func NewHandler(s Store, authSvc *auth.Service, live Publisher, preset config.Preset) *Handler {
	return &Handler{store: s, auth: authSvc, live: live, preset: preset}
}

// Routes registers the canvas endpoints on r.
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/canvases", h.Create).Methods("POST")
	r.HandleFunc("/canvases/{canvasId}", h.Get).Methods("GET")
	r.HandleFunc("/canvases/{canvasId}/png", h.PNG).Methods("GET")

	edit := r.PathPrefix("/canvases/{canvasId}").Subrouter()
	edit.Use(h.auth.RequireEdit("canvasId"))
	edit.HandleFunc("", h.Put).Methods("PUT")
	edit.HandleFunc("/strokes", h.Stroke).Methods("POST")
}

type createRequest struct {
	Background *string  `json:"background"`
	Overlay    *string  `json:"overlay"`
	Width      *float64 `json:"width"`
	Height     *float64 `json:"height"`
}

type createResponse struct {
	ID      string        `json:"id"`
	Token   string        `json:"token"`
	Version int32         `json:"version"`
	Canvas  canvas.Export `json:"canvas"`
}

type saveResponse struct {
	Version int32         `json:"version"`
	Canvas  canvas.Export `json:"canvas"`
}

type strokeRequest struct {
	Points   []any   `json:"points"`
	Color    string  `json:"color"`
	Width    float64 `json:"width"`
	Straight bool    `json:"straight"`
}

type strokeResponse struct {
	Version int32        `json:"version"`
	Object  scene.Record `json:"object"`
}

// newCanvas returns a canvas that renders into nothing.
func (h *Handler) newCanvas(opts canvas.Options) *canvas.Canvas {
	return canvas.New(render.NewRecorder(0, 0), render.NewRecorder(0, 0), nil, opts)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	opts := h.preset.CanvasOptions()

	if r.ContentLength != 0 {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
		if req.Background != nil {
			opts.Background = *req.Background
		}
		if req.Overlay != nil {
			opts.Overlay = *req.Overlay
		}
		if req.Width != nil {
			opts.Width = *req.Width
		}
		if req.Height != nil {
			opts.Height = *req.Height
		}
	}

	c := h.newCanvas(opts)
	ex := c.Export()
	doc, err := json.Marshal(ex)
	if err != nil {
		slog.Error("marshal new canvas", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	id := typeid.NewCanvasID()
	stored, err := h.store.Create(r.Context(), id, doc)
	if err != nil {
		handleStoreError(w, err)
		return
	}

	token, err := h.auth.IssueEditToken(id)
	if err != nil {
		slog.Error("issue edit token", "canvas", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, createResponse{ID: id, Token: token, Version: stored.Version, Canvas: ex})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*store.Canvas, bool) {
	canvasID := mux.Vars(r)["canvasId"]
	if err := typeid.Validate(canvasID, typeid.PrefixCanvas); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return nil, false
	}

	stored, err := h.store.Get(r.Context(), canvasID)
	if err != nil {
		handleStoreError(w, err)
		return nil, false
	}
	return stored, true
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	stored, ok := h.load(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Canvas-Version", strconv.Itoa(int(stored.Version)))
	w.WriteHeader(http.StatusOK)
	w.Write(stored.Document)
}

// Put replaces the whole canvas with the record in the body.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	canvasID := auth.CanvasIDFromContext(r.Context())

	var ex canvas.Export
	if err := json.NewDecoder(r.Body).Decode(&ex); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	c := h.newCanvas(h.preset.CanvasOptions())
	if err := c.Load(ex); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	saved, out, err := h.save(r.Context(), canvasID, c)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saveResponse{Version: saved.Version, Canvas: out})
}

// Stroke draws the sampled points with the brush and appends the result.
func (h *Handler) Stroke(w http.ResponseWriter, r *http.Request) {
	var req strokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	pts, err := geom.ToPoints(req.Points...)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	opts := h.preset.BrushOptions()
	opts.StraightenAfter = 0
	opts.Straight = req.Straight
	if req.Color != "" {
		opts.Color = req.Color
	}
	if req.Width > 0 {
		opts.Width = req.Width
	}
	b, err := brush.New(opts)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	stored, ok := h.load(w, r)
	if !ok {
		return
	}
	c := h.newCanvas(h.preset.CanvasOptions())
	if err := c.LoadJSON(stored.Document); err != nil {
		slog.Error("stored canvas does not load", "canvas", stored.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	obj, err := draw(c, b, pts)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	saved, _, err := h.save(r.Context(), stored.ID, c)
	if err != nil {
		handleStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, strokeResponse{Version: saved.Version, Object: obj.Record()})
}

// draw feeds pts through the canvas pointer pipeline in draw mode and
// returns the object it added.
func draw(c *canvas.Canvas, b *brush.Brush, pts []geom.Point) (scene.Object, error) {
	if len(pts) < 2 {
		return nil, errShortStroke
	}

	var added scene.Object
	unsubscribe := c.On(canvas.EventAdd, func(_ string, ev canvas.Event) {
		if len(ev.Objects) > 0 {
			added = ev.Objects[len(ev.Objects)-1]
		}
	})
	defer unsubscribe()

	c.SetBrush(b)
	c.SetDrawMode(true)
	c.PointerDown(canvas.PointerEvent{X: pts[0].X, Y: pts[0].Y})
	for _, p := range pts[1:] {
		c.PointerMove(canvas.PointerEvent{X: p.X, Y: p.Y})
	}
	last := pts[len(pts)-1]
	c.PointerUp(canvas.PointerEvent{X: last.X, Y: last.Y})
	c.SetDrawMode(false)
	c.SetBrush(nil)

	if added == nil {
		return nil, errShortStroke
	}
	return added, nil
}

func (h *Handler) save(ctx context.Context, canvasID string, c *canvas.Canvas) (*store.Canvas, canvas.Export, error) {
	ex := c.Export()
	doc, err := json.Marshal(ex)
	if err != nil {
		return nil, canvas.Export{}, fmt.Errorf("marshal canvas: %w", err)
	}

	saved, err := h.store.Save(ctx, canvasID, doc)
	if err != nil {
		return nil, canvas.Export{}, err
	}
	if h.live != nil {
		h.live.Publish(canvasID, doc)
	}
	return saved, ex, nil
}

// PNG renders both layers over the background.
func (h *Handler) PNG(w http.ResponseWriter, r *http.Request) {
	stored, ok := h.load(w, r)
	if !ok {
		return
	}

	var ex canvas.Export
	if err := json.Unmarshal(stored.Document, &ex); err != nil {
		slog.Error("decode stored canvas", "canvas", stored.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	var buf bytes.Buffer
	if err := rasterize(&buf, ex); err != nil {
		if errors.Is(err, errTooLarge) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
			return
		}
		slog.Error("render canvas", "canvas", stored.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func rasterize(buf *bytes.Buffer, ex canvas.Export) error {
	width, height := int(math.Round(ex.Width)), int(math.Round(ex.Height))
	if width <= 0 {
		width = canvas.DefaultWidth
	}
	if height <= 0 {
		height = canvas.DefaultHeight
	}
	if width > MaxRasterSide || height > MaxRasterSide {
		return fmt.Errorf("%w: %dx%d", errTooLarge, width, height)
	}

	lower, upper := render.NewRaster(width, height), render.NewRaster(width, height)
	c := canvas.New(lower, upper, nil, canvas.Options{})
	if err := c.Load(ex); err != nil {
		return err
	}
	return render.EncodePNG(buf, render.Composite(ex.Background, lower, upper))
}

func handleStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, store.ErrExists):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "canvas already exists"})
	default:
		slog.Error("store error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
