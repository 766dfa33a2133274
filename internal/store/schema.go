package store

// schemaStatements are run in order at open, each guarded so re-running
// against an already-migrated database is a no-op, following the same
// CREATE TABLE/PRAGMA sequence as sqlite_bm25.go, extended from a single
// FTS table to the full multi-table schema.
var schemaStatements = []string{
	`PRAGMA journal_mode=WAL`,
	`PRAGMA synchronous=NORMAL`,
	`PRAGMA foreign_keys=ON`,
	`PRAGMA temp_store=MEMORY`,

	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		source_type TEXT NOT NULL,
		source_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		source_path_or_handle TEXT NOT NULL DEFAULT '',
		updated_at REAL NOT NULL,
		risk TEXT NOT NULL DEFAULT 'low',
		partition_label TEXT NOT NULL DEFAULT 'hot',
		searchable INTEGER NOT NULL DEFAULT 1,
		UNIQUE(source_type, source_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_partition ON documents(partition_label)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_searchable ON documents(searchable)`,

	`CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
		chunk_id UNINDEXED,
		document_id UNINDEXED,
		source_type UNINDEXED,
		title,
		text,
		tokenize='unicode61'
	)`,

	`CREATE TABLE IF NOT EXISTS chunk_vectors (
		chunk_id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		vector_blob BLOB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chunk_vectors_document_id ON chunk_vectors(document_id)`,

	`CREATE TABLE IF NOT EXISTS graph_edges (
		id TEXT PRIMARY KEY,
		source_node TEXT NOT NULL,
		target_node TEXT NOT NULL,
		edge_type TEXT NOT NULL,
		confidence REAL NOT NULL,
		weight REAL NOT NULL,
		source_type TEXT NOT NULL,
		event_time REAL,
		updated_at REAL NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_graph_edges_source_node ON graph_edges(source_node)`,
	`CREATE INDEX IF NOT EXISTS idx_graph_edges_target_node ON graph_edges(target_node)`,

	`CREATE TABLE IF NOT EXISTS backfill_checkpoints (
		checkpoint_key TEXT PRIMARY KEY,
		payload_json TEXT NOT NULL,
		updated_at REAL NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS backfill_jobs (
		id TEXT PRIMARY KEY,
		payload_json TEXT NOT NULL,
		status TEXT NOT NULL,
		updated_at REAL NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS queue_snapshots (
		id TEXT PRIMARY KEY,
		payload_json TEXT NOT NULL,
		created_at REAL NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		payload_json TEXT NOT NULL,
		created_at REAL NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS ingestion_attempts (
		source_type TEXT NOT NULL,
		source_id TEXT NOT NULL,
		outcome TEXT NOT NULL,
		attempted_at REAL NOT NULL,
		PRIMARY KEY(source_type, source_id)
	)`,

	`CREATE TABLE IF NOT EXISTS service_state (
		state_key TEXT PRIMARY KEY,
		state_value TEXT NOT NULL,
		updated_at REAL NOT NULL
	)`,
}

// Well-known service_state keys.
const (
	StateKeyRunning                  = "running"
	StateKeyStartupBackfillCompleted = "startup_backfill_completed"
	StateKeyLastError                = "last_error"
	StateKeyEmbeddingDimension       = "embedding_dimension"
	StateKeyEmbeddingModel           = "embedding_model"
)

// Audit event kinds.
const (
	AuditIngestionSuccess   = "ingestion_success"
	AuditIngestionFailure   = "ingestion_failure"
	AuditBackfillStarted    = "backfill_started"
	AuditBackfillCompleted  = "backfill_completed"
	AuditContextPackCreated = "context_pack_created"
	AuditPolicyDemotion     = "policy_demotion"
)
