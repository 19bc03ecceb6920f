// Package server exposes the catalog over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/joseph-ayodele/reports-catalog/internal/async"
	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
	"github.com/joseph-ayodele/reports-catalog/internal/export"
	"github.com/joseph-ayodele/reports-catalog/internal/services/catalog"
)

// Claimer marks a document as processing before it is queued.
type Claimer interface {
	Claim(ctx context.Context, id string) (*entity.Document, error)
	Release(ctx context.Context, id string) error
}

type Deps struct {
	Catalog *catalog.Service
	Export  *export.Service

	// Claimer and Queue are nil when no LLM is configured; the process
	// route then answers 503.
	Claimer Claimer
	Queue   async.Queue

	Health         func(ctx context.Context) error
	AllowedOrigins []string
}

type Router struct {
	deps   Deps
	logger *slog.Logger
}

func NewRouter(deps Deps, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{deps: deps, logger: logger}

	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RequestID)
	mux.Use(r.requestContext)
	mux.Use(middleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	mux.Get("/healthz", r.wrap(r.handleHealth))

	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/documents", r.wrap(r.handleListDocuments))
		rt.Post("/documents", r.wrap(r.handleCreateDocument))
		rt.Get("/documents/{id}", r.wrap(r.handleGetDocument))
		rt.Put("/documents/{id}", r.wrap(r.handleUpdateDocument))
		rt.Delete("/documents/{id}", r.wrap(r.handleDeleteDocument))
		rt.Post("/documents/{id}/process", r.wrap(r.handleProcessDocument))

		rt.Get("/categories", r.wrap(r.handleCategories))
		rt.Get("/facets", r.wrap(r.handleFacets))
		rt.Get("/stats", r.wrap(r.handleStats))

		rt.Get("/export.xlsx", r.wrap(r.handleExportXLSX))
		rt.Get("/export.md", r.wrap(r.handleExportMarkdown))
	})

	return mux
}

// requestContext carries chi's request id into the context keys the rest of
// the code logs with, and logs one line per request.
func (r *Router) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		id := middleware.GetReqID(req.Context())
		w.Header().Set("X-Request-Id", id)
		ctx := common.WithRequestID(req.Context(), id)

		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req.WithContext(ctx))

		common.LoggerFrom(ctx, r.logger).Info("http.request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			r.writeError(w, req, err)
		}
	}
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) error {
	if r.deps.Health != nil {
		ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
		defer cancel()
		if err := r.deps.Health(ctx); err != nil {
			r.logger.Warn("http.health.failed", "error", err)
			return writeJSON(w, http.StatusServiceUnavailable, envelope{Success: false, Error: "store unavailable"})
		}
	}
	return writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]string{"status": "ok"}})
}
