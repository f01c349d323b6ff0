// Package server implements the transitmap HTTP API.
//
// Routes:
//
//	GET    /healthz
//	POST   /v1/schematic                   body: network, response: schematic
//	GET    /v1/layers                      list layer ids
//	GET    /v1/layers/{id}                 export a layer
//	PUT    /v1/layers/{id}                 store a network as a layer
//	DELETE /v1/layers/{id}
//	POST   /v1/layers/{id}/schematic       schematize a layer, store it under ?target=
//
// Request bodies are segment JSON or GeoJSON. Pipeline options come from the
// seed, attempts, searcher and refresh query parameters; a format parameter
// returns the rendered artifact instead of the JSON envelope. Errors carry
// their code and map to HTTP statuses with errors.HTTPStatus.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/matzehuels/transitmap/pkg/cache"
	"github.com/matzehuels/transitmap/pkg/layer"
	"github.com/matzehuels/transitmap/pkg/observability"
	"github.com/matzehuels/transitmap/pkg/pipeline"
)

// KeyPrefix scopes the server's cache keys so it can share a backend with
// CLI users.
const KeyPrefix = "api:"

// Server serves the HTTP API over a runner and a layer store.
type Server struct {
	runner *pipeline.Runner
	layers layer.Store
	logger *log.Logger
	cfg    Config
	router chi.Router
}

// New creates a server. The caller keeps ownership of runner and layers.
func New(runner *pipeline.Runner, layers layer.Store, logger *log.Logger, cfg Config) *Server {
	cfg.SetDefaults()
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{runner: runner, layers: layers, logger: logger, cfg: cfg}
	s.router = s.routes()
	return s
}

// Open builds a server from cfg, opening its cache and layer store.
// Close releases both.
func Open(ctx context.Context, cfg Config, logger *log.Logger) (*Server, error) {
	cfg.SetDefaults()
	cacheURL := cfg.cacheURL()
	if cacheURL == "" {
		cacheURL = fmt.Sprintf("mem://?size=%d", DefaultMemoryCache)
	}
	c, err := cache.Open(ctx, cacheURL)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	store, err := layer.Open(ctx, cfg.layerURL())
	if err != nil {
		c.Close()
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	logger.Info("server backends", "layers", layer.Describe(cfg.layerURL()), "cache", layer.Describe(cacheURL))
	keyer := cache.NewScopedKeyer(nil, KeyPrefix)
	return New(pipeline.NewRunner(c, keyer, logger), store, logger, cfg), nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Close releases the runner cache and the layer store.
func (s *Server) Close() error {
	return errors.Join(s.runner.Close(), s.layers.Close())
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.observe)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Run-Id", "X-Cache"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
		r.Post("/schematic", s.postSchematic)
		r.Get("/layers", s.listLayers)
		r.Route("/layers/{id}", func(r chi.Router) {
			r.Get("/", s.getLayer)
			r.Put("/", s.putLayer)
			r.Delete("/", s.deleteLayer)
			r.Post("/schematic", s.schematizeLayer)
		})
	})
	return r
}

// observe reports every request to the HTTP observability hooks and logs it
// at debug level.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		start := time.Now()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, d)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", status,
			"duration", d.Round(time.Millisecond), "request_id", middleware.GetReqID(r.Context()))
	})
}
