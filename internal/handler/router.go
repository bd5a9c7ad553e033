package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"osintgraph/internal/repository"
	"osintgraph/internal/service"
)

// RouterConfig wires the HTTP surface
type RouterConfig struct {
	Session *service.Session
	// Archive is optional; the session endpoints are only mounted with one
	Archive repository.Archive
	// Events serves the SSE stream; optional
	Events http.Handler
	// AllowedOrigins for CORS; empty allows any origin
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter builds the HTTP API
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := NewGraphHandler(cfg.Session, logger)

	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(Logger(logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", h.Health)
	router.Handle("/metrics", cfg.Session.Metrics().Handler())

	router.Route("/api", func(r chi.Router) {
		r.Post("/entities", h.AddEntity)
		r.Get("/entities/{id}", h.GetEntity)
		r.Post("/relations", h.AddRelation)
		r.Post("/fragments", h.ApplyFragment)

		r.Get("/graph", h.ExportGraph)
		r.Put("/graph", h.ImportGraph)

		r.Get("/patterns", h.Patterns)
		r.Get("/anomalies", h.Anomalies)
		r.Post("/timeline", h.Timeline)
		r.Post("/extract", h.Extract)
		r.Post("/insights", h.Insights)
		r.Get("/report", h.Report)

		if cfg.Events != nil {
			r.Get("/events", cfg.Events.ServeHTTP)
		}

		if cfg.Archive != nil {
			sh := NewSessionHandler(cfg.Session, cfg.Archive, logger)
			r.Route("/sessions", func(r chi.Router) {
				r.Get("/", sh.List)
				r.Post("/", sh.Save)
				r.Get("/{id}", sh.Get)
				r.Post("/{id}/restore", sh.Restore)
				r.Delete("/{id}", sh.Delete)
			})
		}
	})

	return router
}
