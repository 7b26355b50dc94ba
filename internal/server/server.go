// Package server exposes the camera controls, the snapshot archive and the
// live snapshot stream over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/andresmejia3/vigil/internal/lifecycle"
	"github.com/andresmejia3/vigil/internal/notifier"
	"github.com/andresmejia3/vigil/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Camera is the worker control surface.
type Camera interface {
	Start() lifecycle.Status
	Stop() lifecycle.Status
}

// Events hands out live snapshot subscriptions.
type Events interface {
	Subscribe(ctx context.Context) <-chan notifier.Event
}

// Server wires the HTTP routes to the core components.
type Server struct {
	Camera    Camera
	Archive   store.Ranger
	Events    Events
	StaticDir string
	Logger    *slog.Logger
	// Heartbeat is the interval between SSE keep-alive comments. Default: 15s.
	Heartbeat time.Duration
}

var cameraMessages = map[lifecycle.Status]string{
	lifecycle.Started:        "camera started",
	lifecycle.AlreadyRunning: "The camera is already running",
	lifecycle.Stopped:        "camera stopped",
	lifecycle.AlreadyStopped: "the camera is already turned off",
}

type messageResponse struct {
	Message string `json:"message"`
}

type humansResponse struct {
	Images []string `json:"images"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/start", s.handleStart)
	r.Get("/stop", s.handleStop)
	r.Get("/humans", s.handleHumans)
	r.Post("/humans", s.handleHumans)
	r.Get("/events", s.handleEvents)

	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.StaticDir))))
	return r
}

func (s *Server) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger().Debug("http request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(), "duration", time.Since(start))
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: cameraMessages[s.Camera.Start()]})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: cameraMessages[s.Camera.Stop()]})
}

func (s *Server) handleHumans(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: err.Error()})
		return
	}
	images := store.ImagePaths(r.Context(), s.Archive, start, end, s.logger())
	writeJSON(w, http.StatusOK, humansResponse{Images: images})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.StaticDir, "index.html"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts it
// down gracefully. Request contexts derive from ctx, so open event streams
// end as soon as shutdown begins.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http: listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("http: stopped")
	return nil
}
