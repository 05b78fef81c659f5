// Package server provides the HTTP server for the curl counter dashboard.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/curlcount/internal/rep"
	"github.com/ayusman/curlcount/internal/server/api"
	"github.com/ayusman/curlcount/internal/store"
)

// Counter is the running counter the server exposes.
type Counter interface {
	api.Counter
	Subscribe() <-chan rep.Snapshot
	Unsubscribe(ch <-chan rep.Snapshot)
	LatestFrameJPEG() []byte
}

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Counter   Counter
}

// Server represents the HTTP server for the curl counter.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Counter != nil {
		counts := api.NewCountsHandler(s.config.Counter)
		s.mux.HandleFunc("/api/counts", counts.Counts)
		s.mux.HandleFunc("/api/reset", counts.Reset)
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Counter))
		s.mux.Handle("/api/live", NewLiveHandler(s.config.Counter))
	}

	if s.config.Store != nil {
		var current func() string
		if s.config.Counter != nil {
			current = s.config.Counter.SessionID
		}
		sessions := api.NewSessionHandler(s.config.Store, current)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("http server stopped")
	return nil
}
