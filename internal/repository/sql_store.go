package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/reports-catalog/constants"
	"github.com/joseph-ayodele/reports-catalog/internal/entity"
)

// SQLStore serves both collections from a Postgres or SQLite database through
// ent's SQL driver and query builder.
type SQLStore struct {
	drv    *entsql.Driver
	b      *entsql.DialectBuilder
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ Store = (*SQLStore)(nil)

func NewSQLStore(drv *entsql.Driver, logger *slog.Logger) *SQLStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLStore{
		drv:    drv,
		b:      entsql.Dialect(drv.Dialect()),
		logger: logger,
	}
}

// EnsureSchema creates the tables when missing. It never alters existing ones.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if err := s.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			s.logger.Error("store.sql.schema_failed", "error", err)
			return wrapDB("ensure schema", err)
		}
	}
	s.logger.Debug("store.sql.schema_ready", "dialect", s.drv.Dialect())
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]*entity.Document, error) {
	q, args := s.b.Select(documentColumns...).
		From(s.b.Table("documents")).
		OrderBy("upload_date", "id").
		Query()
	docs, err := s.queryDocs(ctx, q, args)
	if err != nil {
		return nil, err
	}
	reportInvalid(s.logger, docs)
	return docs, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*entity.Document, error) {
	q, args := s.b.Select(documentColumns...).
		From(s.b.Table("documents")).
		Where(entsql.EQ("id", id)).
		Query()
	docs, err := s.queryDocs(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, notFound(id)
	}
	return docs[0], nil
}

func (s *SQLStore) Save(ctx context.Context, doc *entity.Document) error {
	if err := validateDoc(doc); err != nil {
		return err
	}
	q, args, err := s.upsertDoc(doc)
	if err != nil {
		return err
	}
	if err := s.drv.Exec(ctx, q, args, nil); err != nil {
		s.logger.Error("store.sql.save_failed", "id", doc.ID, "error", err)
		return wrapDB("save document", err)
	}
	return nil
}

// SaveAll writes docs in a single transaction.
func (s *SQLStore) SaveAll(ctx context.Context, docs []*entity.Document) error {
	for _, d := range docs {
		if err := validateDoc(d); err != nil {
			return err
		}
	}
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return wrapDB("begin tx", err)
	}
	for _, d := range docs {
		q, args, err := s.upsertDoc(d)
		if err == nil {
			err = tx.Exec(ctx, q, args, nil)
		}
		if err != nil {
			_ = tx.Rollback()
			s.logger.Error("store.sql.save_all_failed", "id", d.ID, "error", err)
			return wrapDB("save documents", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapDB("commit", err)
	}
	s.logger.Debug("store.sql.saved", "written", len(docs))
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	q, args := s.b.Delete("documents").Where(entsql.EQ("id", id)).Query()
	var res sql.Result
	if err := s.drv.Exec(ctx, q, args, &res); err != nil {
		return wrapDB("delete document", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *SQLStore) LatestRecord(ctx context.Context, filePath string) (*entity.ProcessingRecord, error) {
	q, args := s.b.Select(recordColumns...).
		From(s.b.Table("processing_records")).
		Where(entsql.EQ("file_path", filePath)).
		Query()
	recs, err := s.queryRecords(ctx, q, args)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return &recs[0], nil
}

// ListRecords returns all records, most recent first.
func (s *SQLStore) ListRecords(ctx context.Context) ([]entity.ProcessingRecord, error) {
	q, args := s.b.Select(recordColumns...).
		From(s.b.Table("processing_records")).
		OrderBy(entsql.Desc("processed_at")).
		Query()
	return s.queryRecords(ctx, q, args)
}

func (s *SQLStore) UpsertRecord(ctx context.Context, rec entity.ProcessingRecord) error {
	if rec.FilePath == "" {
		return fmt.Errorf("processing record: empty file path")
	}
	q, args := s.b.Insert("processing_records").
		Columns(recordColumns...).
		Values(
			rec.FilePath, rec.DocumentID, rec.FileHash, formatTime(rec.ProcessedAt),
			rec.ProcessingVersion, string(rec.Status), nullString(rec.Error),
		).
		OnConflict(entsql.ConflictColumns("file_path"), entsql.ResolveWithNewValues()).
		Query()
	if err := s.drv.Exec(ctx, q, args, nil); err != nil {
		s.logger.Error("store.sql.record_failed", "file_path", rec.FilePath, "error", err)
		return wrapDB("upsert processing record", err)
	}
	return nil
}

func (s *SQLStore) HealthCheck(ctx context.Context) error {
	if s.pool != nil {
		return HealthCheck(ctx, s.pool, 2*time.Second, s.logger)
	}
	return s.drv.DB().PingContext(ctx)
}

func (s *SQLStore) Close() error {
	s.logger.Info("closing database connections")
	err := s.drv.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

func (s *SQLStore) upsertDoc(d *entity.Document) (string, []any, error) {
	row, err := documentRow(d)
	if err != nil {
		return "", nil, err
	}
	q, args := s.b.Insert("documents").
		Columns(documentColumns...).
		Values(row...).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	return q, args, nil
}

func (s *SQLStore) queryDocs(ctx context.Context, q string, args []any) ([]*entity.Document, error) {
	var rows entsql.Rows
	if err := s.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, wrapDB("query documents", err)
	}
	defer rows.Close()

	var out []*entity.Document
	for rows.Next() {
		d, err := scanDocument(&rows)
		if err != nil {
			return nil, wrapDB("scan document", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDB("query documents", err)
	}
	return out, nil
}

func (s *SQLStore) queryRecords(ctx context.Context, q string, args []any) ([]entity.ProcessingRecord, error) {
	var rows entsql.Rows
	if err := s.drv.Query(ctx, q, args, &rows); err != nil {
		return nil, wrapDB("query processing records", err)
	}
	defer rows.Close()

	var out []entity.ProcessingRecord
	for rows.Next() {
		var (
			rec         entity.ProcessingRecord
			processedAt string
			status      string
			errMsg      sql.NullString
		)
		if err := rows.Scan(&rec.FilePath, &rec.DocumentID, &rec.FileHash, &processedAt,
			&rec.ProcessingVersion, &status, &errMsg); err != nil {
			return nil, wrapDB("scan processing record", err)
		}
		t, err := parseTime(processedAt)
		if err != nil {
			return nil, err
		}
		rec.ProcessedAt = t
		rec.Status = constants.RecordStatus(status)
		rec.Error = errMsg.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDB("query processing records", err)
	}
	return out, nil
}

// documentRow flattens d in documentColumns order. List and nested values are
// stored as JSON text; analysis columns are NULL when there is no analysis.
func documentRow(d *entity.Document) ([]any, error) {
	tags, err := jsonText(nonNil(d.Metadata.Tags))
	if err != nil {
		return nil, err
	}
	row := []any{
		d.ID, d.Title, d.FileName, d.FilePath, d.FileSize, d.Category,
		formatTime(d.UploadDate), nil, string(d.ProcessingStatus),
		nullString(d.Metadata.Source), nullInt(d.Metadata.Year), nullString(d.Metadata.Quarter),
		nullString(d.Metadata.Region), tags, nullString(d.Metadata.Description),
	}
	if d.ProcessedDate != nil {
		row[7] = formatTime(*d.ProcessedDate)
	}

	a := d.Analysis
	if a == nil {
		for range documentColumns[len(row):] {
			row = append(row, nil)
		}
		return row, nil
	}
	var encErr error
	enc := func(v any) any {
		s, err := jsonText(v)
		if err != nil && encErr == nil {
			encErr = err
		}
		return s
	}
	row = append(row,
		a.Summary,
		enc(nonNil(a.KeyInsights)), enc(nonNil(a.KeyFindings)), enc(nonNil(a.Topics)),
		enc(a.Entities), enc(a.Metrics),
		nullString(a.ReportType), enc(nonNil(a.ContentFocus)), nullString(a.GeographicScope),
		enc(nonNil(a.TemporalNature)), nullString(a.DataCharacteristics), enc(nonNil(a.TargetAudience)),
		nullString(a.Methodology), nullString(a.Sentiment), a.Confidence, a.PageCount, enc(a.DataQuality),
	)
	if encErr != nil {
		return nil, fmt.Errorf("encode document %s: %w", d.ID, encErr)
	}
	return row, nil
}

func scanDocument(rows *entsql.Rows) (*entity.Document, error) {
	var (
		d                                          entity.Document
		uploadDate, status, tags                   string
		processedDate, source, quarter, region     sql.NullString
		description, summary, insights, findings   sql.NullString
		topics, entities, metrics, reportType      sql.NullString
		contentFocus, geo, temporal, dataChar      sql.NullString
		audience, methodology, sentiment, dataQual sql.NullString
		year, pageCount                            sql.NullInt64
		confidence                                 sql.NullFloat64
	)
	if err := rows.Scan(
		&d.ID, &d.Title, &d.FileName, &d.FilePath, &d.FileSize, &d.Category,
		&uploadDate, &processedDate, &status,
		&source, &year, &quarter, &region, &tags, &description,
		&summary, &insights, &findings, &topics, &entities, &metrics,
		&reportType, &contentFocus, &geo, &temporal, &dataChar,
		&audience, &methodology, &sentiment, &confidence, &pageCount, &dataQual,
	); err != nil {
		return nil, err
	}

	var err error
	if d.UploadDate, err = parseTime(uploadDate); err != nil {
		return nil, err
	}
	if processedDate.Valid {
		t, err := parseTime(processedDate.String)
		if err != nil {
			return nil, err
		}
		d.ProcessedDate = &t
	}
	d.ProcessingStatus = constants.ProcessingStatus(status)
	d.Metadata = entity.Metadata{
		Source:      source.String,
		Year:        int(year.Int64),
		Quarter:     quarter.String,
		Region:      region.String,
		Description: description.String,
	}
	if err := json.Unmarshal([]byte(tags), &d.Metadata.Tags); err != nil {
		return nil, fmt.Errorf("decode tags of %s: %w", d.ID, err)
	}

	if !summary.Valid {
		return &d, nil
	}
	a := entity.Analysis{
		Summary:             summary.String,
		ReportType:          reportType.String,
		GeographicScope:     geo.String,
		DataCharacteristics: dataChar.String,
		Methodology:         methodology.String,
		Sentiment:           sentiment.String,
		Confidence:          confidence.Float64,
		PageCount:           int(pageCount.Int64),
	}
	for _, f := range []struct {
		src sql.NullString
		dst any
	}{
		{insights, &a.KeyInsights},
		{findings, &a.KeyFindings},
		{topics, &a.Topics},
		{entities, &a.Entities},
		{metrics, &a.Metrics},
		{contentFocus, &a.ContentFocus},
		{temporal, &a.TemporalNature},
		{audience, &a.TargetAudience},
		{dataQual, &a.DataQuality},
	} {
		if !f.src.Valid || f.src.String == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.src.String), f.dst); err != nil {
			return nil, fmt.Errorf("decode analysis of %s: %w", d.ID, err)
		}
	}
	d.Analysis = &a
	return &d, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func jsonText(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
