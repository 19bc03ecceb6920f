package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/reports-catalog/internal/common"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
)

// DocumentStore persists catalog documents.
type DocumentStore interface {
	List(ctx context.Context) ([]*entity.Document, error)
	// Get returns an error wrapping common.ErrNotFound when id is unknown.
	Get(ctx context.Context, id string) (*entity.Document, error)
	Save(ctx context.Context, doc *entity.Document) error
	// SaveAll upserts docs as one unit; used as the orchestrator checkpoint.
	SaveAll(ctx context.Context, docs []*entity.Document) error
	Delete(ctx context.Context, id string) error
}

// RecordStore persists the processing log, one authoritative record per file path.
type RecordStore interface {
	// LatestRecord returns nil, nil when the path has never been processed.
	LatestRecord(ctx context.Context, filePath string) (*entity.ProcessingRecord, error)
	ListRecords(ctx context.Context) ([]entity.ProcessingRecord, error)
	UpsertRecord(ctx context.Context, rec entity.ProcessingRecord) error
}

// Store is a backend serving both collections.
type Store interface {
	DocumentStore
	RecordStore
	HealthCheck(ctx context.Context) error
	Close() error
}

// Open builds the backend named by cfg.Store.Backend.
func Open(ctx context.Context, cfg *common.Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Store.Backend {
	case "", "json":
		return NewJSONStore(cfg.Store.DataDir, logger)
	case "postgres":
		drv, pool, err := OpenPostgres(ctx, ConfigFrom(cfg.Database), logger)
		if err != nil {
			return nil, err
		}
		s := NewSQLStore(drv, logger)
		s.pool = pool
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case "sqlite":
		drv, err := OpenSQLite(cfg.Database.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		s := NewSQLStore(drv, logger)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, common.InvalidInputf("unknown store backend %q", cfg.Store.Backend)
	}
}

func validateDoc(doc *entity.Document) error {
	if doc == nil {
		return common.InvalidInputf("nil document")
	}
	if err := doc.Validate(); err != nil {
		return common.NewAppError("VALIDATION_ERROR", err.Error(), common.ErrValidation)
	}
	return nil
}

// reportInvalid logs stored rows that would be rejected on write. They are
// still returned; only a write of that row fails.
func reportInvalid(logger *slog.Logger, docs []*entity.Document) {
	for _, d := range docs {
		if err := d.Validate(); err != nil {
			logger.Warn("store.document.invalid", "id", d.ID, "error", err)
		}
	}
}

func notFound(id string) error {
	return common.NotFoundf("document %s", id)
}

func wrapDB(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, common.ErrDatabase, err)
}
