// Package ingest discovers report PDFs under the category folders and keeps
// the catalog in step with the file tree.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/reports-catalog/constants"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
	"github.com/joseph-ayodele/reports-catalog/internal/repository"
)

type Options struct {
	Force  bool // refresh file info and metadata of already indexed documents
	DryRun bool // compute stats without saving
}

type Stats struct {
	Total   int
	New     int
	Updated int
	Skipped int
	Errors  int
}

type Indexer struct {
	store  repository.DocumentStore
	logger *slog.Logger
	now    func() time.Time
}

func NewIndexer(store repository.DocumentStore, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: store, logger: logger, now: time.Now}
}

type found struct {
	abs      string
	rel      string
	category constants.Category
}

// Index walks <root>/<category>/**/*.pdf for every known category and
// upserts a document per file. Per-file errors are counted, not returned.
func (ix *Indexer) Index(ctx context.Context, root string, opts Options) (Stats, error) {
	var stats Stats
	if strings.TrimSpace(root) == "" {
		return stats, errors.New("root is required")
	}

	files, err := ix.scan(ctx, root)
	if err != nil {
		return stats, err
	}
	stats.Total = len(files)
	ix.logger.Info("index.scan.done", "root", root, "pdfs", len(files))

	existing, err := ix.existingByPath(ctx)
	if err != nil {
		return stats, err
	}

	var changed []*entity.Document
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		prev := existing[f.rel]
		if prev != nil && !opts.Force {
			stats.Skipped++
			continue
		}
		doc, err := ix.buildDocument(f, prev)
		if err != nil {
			stats.Errors++
			ix.logger.Warn("index.file.failed", "path", f.rel, "error", err)
			continue
		}
		if prev != nil {
			stats.Updated++
			ix.logger.Debug("index.file.updated", "path", f.rel, "id", doc.ID)
		} else {
			stats.New++
			ix.logger.Debug("index.file.new", "path", f.rel, "id", doc.ID)
		}
		changed = append(changed, doc)
	}

	if !opts.DryRun && len(changed) > 0 {
		if err := ix.store.SaveAll(ctx, changed); err != nil {
			ix.logger.Error("index.save.failed", "error", err)
			return stats, fmt.Errorf("save indexed documents: %w", err)
		}
	}
	ix.logger.Info("index.done",
		"total", stats.Total,
		"new", stats.New,
		"updated", stats.Updated,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
		"dry_run", opts.DryRun,
	)
	return stats, nil
}

// IndexPaths refreshes the given absolute paths under root, creating or
// updating their documents. Paths outside a category folder are ignored.
func (ix *Indexer) IndexPaths(ctx context.Context, root string, paths []string) (Stats, error) {
	var stats Stats
	existing, err := ix.existingByPath(ctx)
	if err != nil {
		return stats, err
	}
	var changed []*entity.Document
	for _, p := range paths {
		f, ok := classify(root, p)
		if !ok {
			continue
		}
		stats.Total++
		prev := existing[f.rel]
		doc, err := ix.buildDocument(f, prev)
		if err != nil {
			stats.Errors++
			ix.logger.Warn("index.file.failed", "path", f.rel, "error", err)
			continue
		}
		if prev != nil {
			stats.Updated++
		} else {
			stats.New++
		}
		changed = append(changed, doc)
	}
	if len(changed) > 0 {
		if err := ix.store.SaveAll(ctx, changed); err != nil {
			return stats, fmt.Errorf("save indexed documents: %w", err)
		}
	}
	return stats, nil
}

func (ix *Indexer) scan(ctx context.Context, root string) ([]found, error) {
	var out []found
	for _, cat := range constants.AllCategories() {
		dir := filepath.Join(root, string(cat))
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			ix.logger.Debug("index.category.missing", "category", cat)
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				ix.logger.Warn("index.walk.error", "path", path, "error", walkErr)
				return nil
			}
			if path != dir && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}
			out = append(out, found{abs: path, rel: filepath.ToSlash(rel), category: cat})
			return ctx.Err()
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", dir, err)
		}
	}
	return out, nil
}

func (ix *Indexer) existingByPath(ctx context.Context) (map[string]*entity.Document, error) {
	docs, err := ix.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	m := make(map[string]*entity.Document, len(docs))
	for _, d := range docs {
		m[d.FilePath] = d
	}
	return m, nil
}

// buildDocument creates a pending document, or refreshes prev keeping its
// id, upload date, status and analysis.
func (ix *Indexer) buildDocument(f found, prev *entity.Document) (*entity.Document, error) {
	fi, err := os.Stat(f.abs)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(f.abs)
	meta := ParseFilename(name)

	var doc entity.Document
	if prev != nil {
		doc = prev.Clone()
	} else {
		doc = entity.Document{
			ID:               entity.DocumentID(f.rel),
			UploadDate:       ix.now().UTC(),
			ProcessingStatus: constants.StatusPending,
		}
	}
	doc.Title = meta.Title
	doc.FileName = name
	doc.FilePath = f.rel
	doc.FileSize = fi.Size()
	doc.Category = string(f.category)
	doc.Metadata.Source = meta.Source
	doc.Metadata.Year = meta.Year
	doc.Metadata.Quarter = meta.Quarter
	doc.Metadata.Tags = []string{string(f.category)}
	return &doc, nil
}

// classify maps an absolute path onto its category folder under root.
func classify(root, path string) (found, bool) {
	if !AllowedExt(filepath.Ext(path)) || IsHidden(path) {
		return found{}, false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return found{}, false
	}
	rel = filepath.ToSlash(rel)
	first, _, ok := strings.Cut(rel, "/")
	if !ok {
		return found{}, false
	}
	for _, c := range constants.AllCategories() {
		if string(c) == first {
			return found{abs: path, rel: rel, category: c}, true
		}
	}
	return found{}, false
}
