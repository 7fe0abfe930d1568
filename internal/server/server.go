// Package server exposes the raster pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz
//	POST /v1/layout                        dataset body → layout JSON
//	POST /v1/render/{format}               dataset body → svg, png, pdf or json
//	GET  /v1/datasets                      stored dataset ids
//	GET  /v1/datasets/{id}/layout          stored dataset → layout JSON
//	GET  /v1/datasets/{id}/render/{format} stored dataset → artifact
//
// Dataset bodies are decoded by Content-Type: application/json (default),
// application/yaml or text/csv; the unit query parameter sets the time unit
// of CSV bodies. Render settings come from query parameters (width, height,
// title, xlabel, ylabel, grid, refresh). A dataset that
// fails validation is answered with 422 and its diagnostics.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/spikeraster/pkg/pipeline"
)

// Defaults for Config.
const (
	DefaultAddr         = "127.0.0.1:8080"
	DefaultMaxBodyBytes = 32 << 20
	DefaultTimeout      = 30 * time.Second
)

// SourceFunc resolves a stored dataset id to a pipeline source.
type SourceFunc func(id string) pipeline.Source

// ListFunc returns the ids of stored datasets.
type ListFunc func(ctx context.Context) ([]string, error)

// Config configures a Server.
type Config struct {
	Addr         string
	MaxBodyBytes int64
	Timeout      time.Duration

	// Sources enables the /v1/datasets/{id} routes when non-nil.
	Sources SourceFunc

	// List enables GET /v1/datasets when non-nil.
	List ListFunc
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

// Server serves layout and render requests.
type Server struct {
	cfg    Config
	runner *pipeline.Runner
	logger *log.Logger
	router chi.Router
}

// New creates a server backed by runner.
func New(runner *pipeline.Runner, logger *log.Logger, cfg Config) *Server {
	cfg.setDefaults()
	s := &Server{cfg: cfg, runner: runner, logger: logger}
	s.router = s.buildRouter()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Addr returns the listen address.
func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(s.recovererMiddleware)
	r.Use(hooksMiddleware)
	r.Use(chimw.Timeout(s.cfg.Timeout))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Post("/render/{format}", s.handleRender)

		if s.cfg.List != nil {
			r.Get("/datasets", s.handleListDatasets)
		}
		if s.cfg.Sources != nil {
			r.Get("/datasets/{id}/layout", s.handleStoredLayout)
			r.Get("/datasets/{id}/render/{format}", s.handleStoredRender)
		}
	})

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("starting server", "addr", s.cfg.Addr, "stored_datasets", s.cfg.Sources != nil)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
}
