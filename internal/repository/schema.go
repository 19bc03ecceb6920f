package repository

// Bootstrap DDL for local development. Column types are chosen so the same
// statements run on Postgres and SQLite; timestamps are RFC 3339 UTC text.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id                   TEXT PRIMARY KEY,
		title                TEXT NOT NULL,
		file_name            TEXT NOT NULL,
		file_path            TEXT NOT NULL,
		file_size            BIGINT NOT NULL DEFAULT 0,
		category             TEXT NOT NULL,
		upload_date          TEXT NOT NULL,
		processed_date       TEXT,
		processing_status    TEXT NOT NULL,
		source               TEXT,
		year                 INTEGER,
		quarter              TEXT,
		region               TEXT,
		tags                 TEXT NOT NULL DEFAULT '[]',
		description          TEXT,
		ai_summary           TEXT,
		ai_key_insights      TEXT,
		key_findings         TEXT,
		ai_topics            TEXT,
		ai_entities          TEXT,
		extracted_metrics    TEXT,
		report_type          TEXT,
		content_focus        TEXT,
		geographic_scope     TEXT,
		temporal_nature      TEXT,
		data_characteristics TEXT,
		target_audience      TEXT,
		methodology          TEXT,
		ai_sentiment         TEXT,
		ai_confidence        DOUBLE PRECISION,
		ai_page_count        INTEGER,
		data_quality         TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS documents_file_path_idx ON documents (file_path)`,
	`CREATE INDEX IF NOT EXISTS documents_status_idx ON documents (processing_status)`,
	`CREATE TABLE IF NOT EXISTS processing_records (
		file_path          TEXT PRIMARY KEY,
		document_id        TEXT NOT NULL,
		file_hash          TEXT NOT NULL,
		processed_at       TEXT NOT NULL,
		processing_version TEXT NOT NULL,
		status             TEXT NOT NULL,
		error              TEXT
	)`,
}

var documentColumns = []string{
	"id", "title", "file_name", "file_path", "file_size", "category",
	"upload_date", "processed_date", "processing_status",
	"source", "year", "quarter", "region", "tags", "description",
	"ai_summary", "ai_key_insights", "key_findings", "ai_topics", "ai_entities", "extracted_metrics",
	"report_type", "content_focus", "geographic_scope", "temporal_nature", "data_characteristics",
	"target_audience", "methodology", "ai_sentiment", "ai_confidence", "ai_page_count", "data_quality",
}

var recordColumns = []string{
	"file_path", "document_id", "file_hash", "processed_at", "processing_version", "status", "error",
}
