// Package server exposes a datamap.Map over HTTP.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"datamap/internal/datamap"
	"datamap/internal/metrics"
)

// Config holds server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
}

// Server owns one map and serialises every access to it.
type Server struct {
	cfg   Config
	cache *RenderCache

	mu sync.Mutex
	m  *datamap.Map
	// state identifies the map contents: a hash chained over the initial
	// options and every applied update.
	state string

	router     chi.Router
	httpServer *http.Server
}

// New creates a server for m. seed identifies the initial map (for example
// the config it was built from) so replicas built the same way share cached
// renders.
func New(cfg Config, m *datamap.Map, cache *RenderCache, seed string) *Server {
	s := &Server{
		cfg:   cfg,
		cache: cache,
		m:     m,
	}
	s.state = chain("", "seed", []byte(seed))
	s.router = s.buildRouter()
	return s
}

func chain(prev, kind string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(prev))
	h.Write([]byte{0})
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-None-Match"},
		ExposedHeaders: []string{"ETag", "X-Cache"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/", s.handleRender("html"))
	r.Get("/map.svg", s.handleRender("svg"))
	r.Get("/popup", s.handlePopup)
	r.Get("/cache", s.handleCacheStats)

	r.Post("/choropleth", s.handleChoropleth)
	r.Post("/bubbles", s.handleLayer("bubbles"))
	r.Post("/arcs", s.handleLayer("arc"))
	r.Post("/labels", s.handleOptionsLayer("labels"))
	r.Post("/legend", s.handleOptionsLayer("legend"))
	r.Post("/graticule", s.handleOptionsLayer("graticule"))
	r.Delete("/layers/{name}", s.handleRemoveLayer)
	r.Post("/resize", s.handleResize)
	r.Post("/zoom", s.handleZoom)
	r.Post("/pan", s.handlePan)
	r.Delete("/zoom", s.handleResetZoom)
	r.Post("/pointer", s.handlePointer)
	r.Delete("/pointer", s.handlePointerLeave)
	r.Post("/settle", s.handleSettle)

	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	zap.L().Info("starting map server", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// update runs fn against the map under the lock and, on success, advances
// the state hash with kind and body.
func (s *Server) update(kind string, body []byte, fn func(m *datamap.Map) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(s.m); err != nil {
		metrics.UpdateFailuresTotal.WithLabelValues(kind).Inc()
		return err
	}
	s.state = chain(s.state, kind, body)
	metrics.UpdatesTotal.WithLabelValues(kind).Inc()
	return nil
}

// State returns the current state hash.
func (s *Server) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
