package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"guidance-rag/internal/shared/errs"
)

// TranslationCacheRepo persists TranslationCacheEntry rows. Entries are
// never updated in place: an invalidation writes a new row and leaves
// the previous one in place (see spec §3).
type TranslationCacheRepo struct {
	conn *sql.DB
}

func NewTranslationCacheRepo(conn *sql.DB) *TranslationCacheRepo {
	return &TranslationCacheRepo{conn: conn}
}

func (r *TranslationCacheRepo) Insert(ctx context.Context, e TranslationCacheEntry) error {
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO translation_cache_entries (
			id, document_id, source_hash, reading_level, prompt_hash,
			model_used, translated_text, generated_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.DocumentID, e.SourceHash, e.ReadingLevel, e.PromptHash,
		e.ModelUsed, e.TranslatedText, formatTime(e.GeneratedAt), nullableTime(e.ExpiresAt))
	if err != nil {
		return errs.Wrap(errs.KindUniqueViolation, "insert translation cache entry", err)
	}
	return nil
}

// Lookup returns the current cached translation for the given key tuple,
// or errs.KindValidation if no row matches (a cache miss).
func (r *TranslationCacheRepo) Lookup(ctx context.Context, documentID, sourceHash, readingLevel, promptHash, modelUsed string) (TranslationCacheEntry, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT
		id, document_id, source_hash, reading_level, prompt_hash,
		model_used, translated_text, generated_at, expires_at
		FROM translation_cache_entries
		WHERE document_id = ? AND source_hash = ? AND reading_level = ? AND prompt_hash = ? AND model_used = ?`,
		documentID, sourceHash, readingLevel, promptHash, modelUsed)

	var e TranslationCacheEntry
	var generatedAt string
	var expiresAt sql.NullString
	err := row.Scan(&e.ID, &e.DocumentID, &e.SourceHash, &e.ReadingLevel, &e.PromptHash,
		&e.ModelUsed, &e.TranslatedText, &generatedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return TranslationCacheEntry{}, errs.New(errs.KindValidation, "translation cache miss")
	}
	if err != nil {
		return TranslationCacheEntry{}, fmt.Errorf("scan translation cache entry: %w", err)
	}
	if e.GeneratedAt, err = time.Parse(time.RFC3339, generatedAt); err != nil {
		return TranslationCacheEntry{}, err
	}
	if e.ExpiresAt, err = parseNullableTime(expiresAt.String); err != nil {
		return TranslationCacheEntry{}, err
	}
	return e, nil
}
