package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/simplercanvas/simplercanvas/internal/api"
	"github.com/simplercanvas/simplercanvas/internal/auth"
	"github.com/simplercanvas/simplercanvas/internal/config"
	"github.com/simplercanvas/simplercanvas/internal/live"
	mw "github.com/simplercanvas/simplercanvas/internal/middleware"
	"github.com/simplercanvas/simplercanvas/internal/store"
	"github.com/simplercanvas/simplercanvas/internal/typeid"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	preset, err := config.LoadPreset(cfg.PresetFile)
	if err != nil {
		slog.Error("load preset", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := store.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	canvases := store.New(pool)
	if err := canvases.Migrate(ctx); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(cfg.JWTSecret, cfg.TokenTTL)

	// Viewers get the stored record when they join.
	hub := live.NewHub(func(ctx context.Context, canvasID string) ([]byte, error) {
		c, err := canvases.Get(ctx, canvasID)
		if err != nil {
			return nil, err
		}
		return c.Document, nil
	})
	go hub.Run(ctx)

	canvasHandler := api.NewHandler(canvases, authService, hub, preset)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	canvasHandler.Routes(r)

	// WebSocket endpoint, read-only for viewers
	originHosts := cfg.OriginHosts()
	r.HandleFunc("/ws/canvas/{canvasId}", func(w http.ResponseWriter, r *http.Request) {
		canvasID := mux.Vars(r)["canvasId"]
		if err := typeid.Validate(canvasID, typeid.PrefixCanvas); err != nil {
			http.Error(w, "unknown canvas", http.StatusNotFound)
			return
		}
		if _, err := canvases.Get(r.Context(), canvasID); err != nil {
			http.Error(w, "unknown canvas", http.StatusNotFound)
			return
		}
		hub.Serve(w, r, canvasID, originHosts)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "instance", uuid.New().String())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
