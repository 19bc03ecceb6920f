package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/joseph-ayodele/reports-catalog/internal/entity"
)

const (
	documentsFile = "documents.json"
	recordsFile   = "processing-records.json"
)

// JSONStore keeps both collections as whole-file JSON arrays under one
// directory. Every write rewrites the file atomically.
type JSONStore struct {
	mu     sync.Mutex
	dir    string
	logger *slog.Logger
}

var _ Store = (*JSONStore)(nil)

func NewJSONStore(dir string, logger *slog.Logger) (*JSONStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	logger.Info("store.json.opened", "dir", dir)
	return &JSONStore{dir: dir, logger: logger}, nil
}

func (s *JSONStore) List(ctx context.Context) ([]*entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.loadDocs()
	if err != nil {
		return nil, err
	}
	reportInvalid(s.logger, docs)
	return docs, nil
}

func (s *JSONStore) Get(ctx context.Context, id string) (*entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.loadDocs()
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, notFound(id)
}

func (s *JSONStore) Save(ctx context.Context, doc *entity.Document) error {
	return s.SaveAll(ctx, []*entity.Document{doc})
}

func (s *JSONStore) SaveAll(ctx context.Context, docs []*entity.Document) error {
	for _, d := range docs {
		if err := validateDoc(d); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.loadDocs()
	if err != nil {
		return err
	}
	idx := make(map[string]int, len(current))
	for i, d := range current {
		idx[d.ID] = i
	}
	for _, d := range docs {
		cp := d.Clone()
		if i, ok := idx[d.ID]; ok {
			current[i] = &cp
			continue
		}
		idx[d.ID] = len(current)
		current = append(current, &cp)
	}
	if err := s.write(documentsFile, current); err != nil {
		return err
	}
	s.logger.Debug("store.json.saved", "file", documentsFile, "written", len(docs), "total", len(current))
	return nil
}

func (s *JSONStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.loadDocs()
	if err != nil {
		return err
	}
	out := make([]*entity.Document, 0, len(docs))
	for _, d := range docs {
		if d.ID != id {
			out = append(out, d)
		}
	}
	if len(out) == len(docs) {
		return notFound(id)
	}
	return s.write(documentsFile, out)
}

func (s *JSONStore) LatestRecord(ctx context.Context, filePath string) (*entity.ProcessingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.loadRecords()
	if err != nil {
		return nil, err
	}
	var latest *entity.ProcessingRecord
	for i := range recs {
		r := recs[i]
		if r.FilePath != filePath {
			continue
		}
		if latest == nil || r.ProcessedAt.After(latest.ProcessedAt) {
			latest = &r
		}
	}
	return latest, nil
}

// ListRecords returns all records, most recent first.
func (s *JSONStore) ListRecords(ctx context.Context) ([]entity.ProcessingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.loadRecords()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].ProcessedAt.After(recs[j].ProcessedAt) })
	return recs, nil
}

// UpsertRecord replaces any record for the same file path.
func (s *JSONStore) UpsertRecord(ctx context.Context, rec entity.ProcessingRecord) error {
	if rec.FilePath == "" {
		return fmt.Errorf("processing record: empty file path")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	recs, err := s.loadRecords()
	if err != nil {
		return err
	}
	out := make([]entity.ProcessingRecord, 0, len(recs)+1)
	for _, r := range recs {
		if r.FilePath != rec.FilePath {
			out = append(out, r)
		}
	}
	out = append(out, rec)
	return s.write(recordsFile, out)
}

func (s *JSONStore) HealthCheck(ctx context.Context) error {
	fi, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }

func (s *JSONStore) loadDocs() ([]*entity.Document, error) {
	var docs []*entity.Document
	if err := readJSON(filepath.Join(s.dir, documentsFile), &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *JSONStore) loadRecords() ([]entity.ProcessingRecord, error) {
	var recs []entity.ProcessingRecord
	if err := readJSON(filepath.Join(s.dir, recordsFile), &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (s *JSONStore) write(name string, v any) error {
	if err := writeJSONAtomic(filepath.Join(s.dir, name), v); err != nil {
		s.logger.Error("store.json.write_failed", "file", name, "error", err)
		return err
	}
	return nil
}

// readJSON decodes path into v; a missing file leaves v untouched.
func readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSONAtomic writes to a temp file in the same directory, fsyncs it and
// renames it over path, so readers see either the old or the new content.
func writeJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}
