package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/reports-catalog/internal/async"
	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
	"github.com/joseph-ayodele/reports-catalog/internal/services/catalog"
)

// GET /v1/documents?category=&year=&quarter=&region=&tags=a,b&reportType=&status=&searchQuery=&sortBy=&sortOrder=
func (r *Router) handleListDocuments(w http.ResponseWriter, req *http.Request) error {
	q, err := catalog.ParseQuery(req.URL.Query())
	if err != nil {
		return err
	}
	docs, err := r.deps.Catalog.Query(req.Context(), q)
	if err != nil {
		return err
	}
	if docs == nil {
		docs = []*entity.Document{}
	}
	return writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

// POST /v1/documents
func (r *Router) handleCreateDocument(w http.ResponseWriter, req *http.Request) error {
	var doc entity.Document
	if err := decodeJSON(req, &doc); err != nil {
		return err
	}
	created, err := r.deps.Catalog.Create(req.Context(), &doc)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, envelope{Success: true, Data: created, Message: "Document created successfully"})
}

// GET /v1/documents/{id}
func (r *Router) handleGetDocument(w http.ResponseWriter, req *http.Request) error {
	doc, err := r.deps.Catalog.Get(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, envelope{Success: true, Data: doc})
}

// PUT /v1/documents/{id}
func (r *Router) handleUpdateDocument(w http.ResponseWriter, req *http.Request) error {
	var patch catalog.Patch
	if err := decodeJSON(req, &patch); err != nil {
		return err
	}
	doc, err := r.deps.Catalog.Update(req.Context(), chi.URLParam(req, "id"), patch)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, envelope{Success: true, Data: doc, Message: "Document updated successfully"})
}

// DELETE /v1/documents/{id}
func (r *Router) handleDeleteDocument(w http.ResponseWriter, req *http.Request) error {
	if err := r.deps.Catalog.Delete(req.Context(), chi.URLParam(req, "id")); err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Document deleted successfully"})
}

// POST /v1/documents/{id}/process
// Claims the document and queues it; the analysis runs in the background.
func (r *Router) handleProcessDocument(w http.ResponseWriter, req *http.Request) error {
	if r.deps.Claimer == nil || r.deps.Queue == nil {
		return fmt.Errorf("document processing is not configured: %w", errUnavailable)
	}
	id := chi.URLParam(req, "id")
	doc, err := r.deps.Claimer.Claim(req.Context(), id)
	if err != nil {
		return err
	}
	job := async.Job{
		DocumentID:  doc.ID,
		SubmittedAt: time.Now(),
		RequestID:   common.RequestIDFromContext(req.Context()),
	}
	if err := r.deps.Queue.Enqueue(req.Context(), job); err != nil {
		if rerr := r.deps.Claimer.Release(context.WithoutCancel(req.Context()), id); rerr != nil {
			r.logger.Error("process.release.failed", "doc_id", id, "error", rerr)
		}
		if errors.Is(err, async.ErrQueueClosed) {
			return fmt.Errorf("enqueue %s: %w", id, errUnavailable)
		}
		return err
	}
	return writeJSON(w, http.StatusAccepted, envelope{
		Success: true,
		Data:    map[string]string{"id": doc.ID, "processingStatus": string(doc.ProcessingStatus)},
		Message: "Processing started",
	})
}

// GET /v1/categories
func (r *Router) handleCategories(w http.ResponseWriter, req *http.Request) error {
	cats, err := r.deps.Catalog.Categories(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": cats, "total": len(cats)})
}

// GET /v1/facets?topTags=20
func (r *Router) handleFacets(w http.ResponseWriter, req *http.Request) error {
	top := 0
	if v := req.URL.Query().Get("topTags"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return common.InvalidInputf("topTags must be a non-negative number")
		}
		top = n
	}
	f, err := r.deps.Catalog.Facets(req.Context(), top)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, envelope{Success: true, Data: f})
}

// GET /v1/stats
func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) error {
	st, err := r.deps.Catalog.Stats(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, envelope{Success: true, Data: st})
}
