package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"guidance-rag/internal/shared/errs"
)

// SummaryCacheRepo persists SummaryCacheEntry rows with a 24h TTL.
type SummaryCacheRepo struct {
	conn *sql.DB
}

func NewSummaryCacheRepo(conn *sql.DB) *SummaryCacheRepo {
	return &SummaryCacheRepo{conn: conn}
}

func (r *SummaryCacheRepo) Insert(ctx context.Context, e SummaryCacheEntry) error {
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO summary_cache_entries (
			id, document_id, summary_text, word_count, model_used,
			generated_at, expires_at, user_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.DocumentID, e.SummaryText, e.WordCount, e.ModelUsed,
		formatTime(e.GeneratedAt), formatTime(e.ExpiresAt), nullString(e.UserID))
	return err
}

// Get returns the most recent, unexpired summary for a document, or
// errs.KindValidation if none exists.
func (r *SummaryCacheRepo) Get(ctx context.Context, documentID string, now time.Time) (SummaryCacheEntry, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT
		id, document_id, summary_text, word_count, model_used, generated_at, expires_at, user_id
		FROM summary_cache_entries
		WHERE document_id = ? AND expires_at > ?
		ORDER BY generated_at DESC LIMIT 1`, documentID, formatTime(now))

	var e SummaryCacheEntry
	var generatedAt, expiresAt string
	var userID sql.NullString
	err := row.Scan(&e.ID, &e.DocumentID, &e.SummaryText, &e.WordCount, &e.ModelUsed,
		&generatedAt, &expiresAt, &userID)
	if err == sql.ErrNoRows {
		return SummaryCacheEntry{}, errs.New(errs.KindValidation, "summary cache miss")
	}
	if err != nil {
		return SummaryCacheEntry{}, fmt.Errorf("scan summary cache entry: %w", err)
	}
	e.UserID = userID.String
	if e.GeneratedAt, err = time.Parse(time.RFC3339, generatedAt); err != nil {
		return SummaryCacheEntry{}, err
	}
	if e.ExpiresAt, err = time.Parse(time.RFC3339, expiresAt); err != nil {
		return SummaryCacheEntry{}, err
	}
	return e, nil
}

// EvictExpired deletes every row whose expires_at has passed, implementing
// the cache's eviction policy as an explicit sweep rather than an
// unspecified LRU (see SPEC_FULL.md open-question resolution).
func (r *SummaryCacheRepo) EvictExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.conn.ExecContext(ctx, `DELETE FROM summary_cache_entries WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
