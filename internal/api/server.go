package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/medicsearch/rcpgest/internal/chunker"
	"github.com/medicsearch/rcpgest/internal/config"
	"github.com/medicsearch/rcpgest/internal/filters"
	"github.com/medicsearch/rcpgest/internal/metrics"
	"github.com/medicsearch/rcpgest/internal/pipeline"
	"github.com/medicsearch/rcpgest/internal/store"
	"github.com/medicsearch/rcpgest/internal/structure"
)

// Server is the HTTP API server for rcpgest.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	store        *store.Store
	filters      *filters.Cache
	engine       *structure.Engine
	metrics      metrics.Recorder
	metricsHTTP  http.Handler
	log          *slog.Logger
	cfg          config.Config
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithMetrics records structuring events on rec and serves handler on
// /metrics.
func WithMetrics(rec metrics.Recorder, handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = rec
		s.metricsHTTP = handler
	}
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, st *store.Store, cache *filters.Cache, engine *structure.Engine, log *slog.Logger, cfg config.Config, opts ...Option) *Server {
	s := &Server{
		orchestrator: orch,
		store:        st,
		filters:      cache,
		engine:       engine,
		metrics:      metrics.NoopRecorder{},
		log:          log,
		cfg:          cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	if s.metricsHTTP != nil {
		r.Method(http.MethodGet, "/metrics", s.metricsHTTP)
	}

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/structure", s.handleStructure)

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Post("/api/ingest/batch", s.handleBatchIngest)
		r.Get("/api/stats", s.handleStats)

		r.Get("/api/medicines", s.handleListMedicines)
		r.Get("/api/medicines/{id}", s.handleGetMedicine)
		r.Get("/api/medicines/{id}/html", s.handleMedicineHTML)
		r.Put("/api/medicines/{id}/document", s.handlePutDocument)
		r.Delete("/api/medicines/{id}", s.handleDeleteMedicine)

		r.Get("/api/search", s.handleSearch)
		r.Get("/api/filters", s.handleFilters)
	})

	s.router = r
}

func (s *Server) chunkConfig() chunker.Config {
	return chunker.Config{ChunkSize: s.cfg.ChunkSize, ChunkOverlap: s.cfg.ChunkOverlap, MinChunk: 1}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
