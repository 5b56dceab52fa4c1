package db

// schemaStatements creates every relational table this package owns, at
// schema version 1. Chunk content and its embedding live in the vector
// store, not here; the Chunk rows this package might reference are by
// document_id/chunk_index only.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		canonical_url TEXT UNIQUE NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		raw_content TEXT NOT NULL DEFAULT '',
		source_kind TEXT NOT NULL,
		processing_success INTEGER,
		processing_error TEXT,
		chrome_removed INTEGER NOT NULL DEFAULT 0,
		chrome_original_chars INTEGER NOT NULL DEFAULT 0,
		chrome_chars INTEGER NOT NULL DEFAULT 0,
		guidance_chars INTEGER NOT NULL DEFAULT 0,
		chrome_percentage REAL NOT NULL DEFAULT 0,
		chrome_patterns_matched TEXT NOT NULL DEFAULT '[]',
		reprocessed_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS ingestion_jobs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		method TEXT NOT NULL,
		status TEXT NOT NULL,
		source_details TEXT NOT NULL DEFAULT '{}',
		total_count INTEGER NOT NULL DEFAULT 0,
		processed_count INTEGER NOT NULL DEFAULT 0,
		failed_count INTEGER NOT NULL DEFAULT 0,
		started_at TEXT,
		finished_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS processing_jobs (
		id TEXT PRIMARY KEY,
		ingestion_job_id TEXT NOT NULL,
		document_id TEXT NOT NULL,
		worker_id TEXT,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL DEFAULT 0,
		retry_count INTEGER NOT NULL DEFAULT 0,
		reprocessing_batch_id TEXT,
		chrome_stripper_version TEXT NOT NULL DEFAULT '',
		error_message TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_processing_jobs_ingestion ON processing_jobs(ingestion_job_id)`,
	`CREATE INDEX IF NOT EXISTS idx_processing_jobs_batch ON processing_jobs(reprocessing_batch_id)`,

	`CREATE TABLE IF NOT EXISTS processing_queue (
		id TEXT PRIMARY KEY,
		ingestion_job_id TEXT NOT NULL,
		document_identifier TEXT NOT NULL,
		source_type TEXT NOT NULL,
		priority TEXT NOT NULL,
		worker_id TEXT,
		queued_at TEXT NOT NULL,
		assigned_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_processing_queue_priority ON processing_queue(priority, queued_at)`,

	`CREATE TABLE IF NOT EXISTS translation_cache_entries (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		source_hash TEXT NOT NULL,
		reading_level TEXT NOT NULL,
		prompt_hash TEXT NOT NULL,
		model_used TEXT NOT NULL,
		translated_text TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		expires_at TEXT,
		UNIQUE (document_id, source_hash, reading_level, prompt_hash, model_used)
	)`,

	`CREATE TABLE IF NOT EXISTS summary_cache_entries (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		summary_text TEXT NOT NULL,
		word_count INTEGER NOT NULL,
		model_used TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		user_id TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_summary_cache_expires ON summary_cache_entries(expires_at)`,

	`CREATE TABLE IF NOT EXISTS prompt_versions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		prompt_text TEXT NOT NULL,
		author_id TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		deleted_at TEXT,
		optimistic_lock_counter INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_prompt_versions_name ON prompt_versions(name)`,

	`CREATE TABLE IF NOT EXISTS production_prompt (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		prompt_text TEXT NOT NULL,
		promoted_at TEXT NOT NULL,
		promoter_id TEXT NOT NULL,
		previous_backup_path TEXT NOT NULL DEFAULT '',
		optimistic_lock_counter INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		event TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		outcome TEXT NOT NULL,
		context_json TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_subject ON audit_log(subject)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at)`,

	`CREATE TABLE IF NOT EXISTS schema_versions (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`,
}
