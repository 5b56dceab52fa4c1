package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"guidance-rag/internal/shared/errs"
)

// DocumentRepo persists Document rows. Documents are created on first
// successful fetch and mutated only by the batch control plane; nothing
// in this package deletes one.
type DocumentRepo struct {
	conn *sql.DB
}

func NewDocumentRepo(conn *sql.DB) *DocumentRepo {
	return &DocumentRepo{conn: conn}
}

func (r *DocumentRepo) Create(ctx context.Context, d Document) error {
	patterns, err := json.Marshal(d.ChromeStats.PatternsMatched)
	if err != nil {
		return fmt.Errorf("marshal chrome patterns: %w", err)
	}
	_, err = r.conn.ExecContext(ctx, `
		INSERT INTO documents (
			id, canonical_url, title, raw_content, source_kind,
			processing_success, processing_error, chrome_removed,
			chrome_original_chars, chrome_chars, guidance_chars, chrome_percentage,
			chrome_patterns_matched, reprocessed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.CanonicalURL, d.Title, d.RawContent, string(d.SourceKind),
		nullableBool(d.ProcessingSuccess), nullString(d.ProcessingError), d.ChromeRemoved,
		d.ChromeStats.OriginalChars, d.ChromeStats.ChromeChars, d.ChromeStats.GuidanceChars,
		d.ChromeStats.ChromePercentage, string(patterns), nullableTime(d.ReprocessedAt),
		formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	)
	if err != nil {
		return errs.Wrap(errs.KindUniqueViolation, "insert document", err)
	}
	return nil
}

func (r *DocumentRepo) GetByID(ctx context.Context, id string) (Document, error) {
	row := r.conn.QueryRowContext(ctx, documentSelectCols+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

func (r *DocumentRepo) GetByCanonicalURL(ctx context.Context, url string) (Document, error) {
	row := r.conn.QueryRowContext(ctx, documentSelectCols+` FROM documents WHERE canonical_url = ?`, url)
	return scanDocument(row)
}

// MarkProcessed records the outcome of a processing attempt, per the
// invariant that Document is mutated only by the batch control plane.
func (r *DocumentRepo) MarkProcessed(ctx context.Context, id string, success bool, processingErr string, chromeRemoved bool, stats ChromeRemovalStats) error {
	patterns, err := json.Marshal(stats.PatternsMatched)
	if err != nil {
		return fmt.Errorf("marshal chrome patterns: %w", err)
	}
	_, err = r.conn.ExecContext(ctx, `
		UPDATE documents SET
			processing_success = ?, processing_error = ?, chrome_removed = ?,
			chrome_original_chars = ?, chrome_chars = ?, guidance_chars = ?,
			chrome_percentage = ?, chrome_patterns_matched = ?, updated_at = ?
		WHERE id = ?`,
		success, nullString(processingErr), chromeRemoved,
		stats.OriginalChars, stats.ChromeChars, stats.GuidanceChars, stats.ChromePercentage,
		string(patterns), formatTime(time.Now().UTC()), id,
	)
	return err
}

func (r *DocumentRepo) MarkReprocessed(ctx context.Context, id string, at time.Time) error {
	_, err := r.conn.ExecContext(ctx,
		`UPDATE documents SET reprocessed_at = ?, updated_at = ? WHERE id = ?`,
		formatTime(at), formatTime(at), id)
	return err
}

// ListFailedOrUnprocessed returns every document whose processing
// outcome is unknown or failed but which has content to retry against,
// per spec §4.G's reprocess_failed_documents selection rule.
func (r *DocumentRepo) ListFailedOrUnprocessed(ctx context.Context) ([]Document, error) {
	rows, err := r.conn.QueryContext(ctx, documentSelectCols+`
		FROM documents
		WHERE (processing_success IS NULL OR processing_success = 0)
		AND raw_content IS NOT NULL AND raw_content != ''
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list failed or unprocessed documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

const documentSelectCols = `SELECT
	id, canonical_url, title, raw_content, source_kind,
	processing_success, processing_error, chrome_removed,
	chrome_original_chars, chrome_chars, guidance_chars, chrome_percentage,
	chrome_patterns_matched, reprocessed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var d Document
	var sourceKind, patterns string
	var processingSuccess sql.NullBool
	var processingError sql.NullString
	var reprocessedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&d.ID, &d.CanonicalURL, &d.Title, &d.RawContent, &sourceKind,
		&processingSuccess, &processingError, &d.ChromeRemoved,
		&d.ChromeStats.OriginalChars, &d.ChromeStats.ChromeChars, &d.ChromeStats.GuidanceChars,
		&d.ChromeStats.ChromePercentage, &patterns, &reprocessedAt, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return Document{}, errs.New(errs.KindValidation, "document not found")
	}
	if err != nil {
		return Document{}, fmt.Errorf("scan document: %w", err)
	}

	d.SourceKind = SourceKind(sourceKind)
	if processingSuccess.Valid {
		v := processingSuccess.Bool
		d.ProcessingSuccess = &v
	}
	d.ProcessingError = processingError.String
	if err := json.Unmarshal([]byte(patterns), &d.ChromeStats.PatternsMatched); err != nil {
		return Document{}, fmt.Errorf("unmarshal chrome patterns: %w", err)
	}
	if reprocessedAt.Valid {
		t, err := time.Parse(time.RFC3339, reprocessedAt.String)
		if err != nil {
			return Document{}, fmt.Errorf("parse reprocessed_at: %w", err)
		}
		d.ReprocessedAt = &t
	}
	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Document{}, fmt.Errorf("parse created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return Document{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return d, nil
}
