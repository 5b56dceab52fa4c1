package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"guidance-rag/internal/shared/errs"
)

const maxPromptChars = 10000

// PromptVersionRepo persists draft prompt versions (name unique across
// active and soft-deleted rows).
type PromptVersionRepo struct {
	conn *sql.DB
}

func NewPromptVersionRepo(conn *sql.DB) *PromptVersionRepo {
	return &PromptVersionRepo{conn: conn}
}

func (r *PromptVersionRepo) Create(ctx context.Context, v PromptVersion) error {
	if len(v.PromptText) > maxPromptChars {
		return errs.New(errs.KindValidation, "prompt text exceeds 10,000 characters")
	}
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO prompt_versions (id, name, prompt_text, author_id, notes, created_at, deleted_at, optimistic_lock_counter)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		v.ID, v.Name, v.PromptText, v.AuthorID, v.Notes, formatTime(v.CreatedAt), nullableTime(v.DeletedAt))
	if err != nil {
		return errs.Wrap(errs.KindUniqueViolation, "prompt version name must be globally unique", err)
	}
	return nil
}

func (r *PromptVersionRepo) GetByID(ctx context.Context, id string) (PromptVersion, error) {
	row := r.conn.QueryRowContext(ctx, promptVersionSelectCols+`FROM prompt_versions WHERE id = ?`, id)
	return scanPromptVersion(row)
}

// List returns versions, optionally including soft-deleted ones.
func (r *PromptVersionRepo) List(ctx context.Context, includeDeleted bool) ([]PromptVersion, error) {
	query := promptVersionSelectCols + `FROM prompt_versions`
	if !includeDeleted {
		query += ` WHERE deleted_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []PromptVersion
	for rows.Next() {
		v, err := scanPromptVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *PromptVersionRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res, err := r.conn.ExecContext(ctx,
		`UPDATE prompt_versions SET deleted_at = ?, optimistic_lock_counter = optimistic_lock_counter + 1
		 WHERE id = ? AND deleted_at IS NULL`, formatTime(at), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.New(errs.KindValidation, "prompt version not found or already deleted")
	}
	return nil
}

func (r *PromptVersionRepo) Restore(ctx context.Context, id string) error {
	res, err := r.conn.ExecContext(ctx,
		`UPDATE prompt_versions SET deleted_at = NULL, optimistic_lock_counter = optimistic_lock_counter + 1
		 WHERE id = ? AND deleted_at IS NOT NULL`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.New(errs.KindValidation, "prompt version not found or not deleted")
	}
	return nil
}

// HardDelete permanently removes a version, only when its soft-delete is
// at least 30 days old.
func (r *PromptVersionRepo) HardDelete(ctx context.Context, id string, now time.Time) error {
	v, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if v.DeletedAt == nil {
		return errs.New(errs.KindValidation, "cannot hard-delete an active prompt version")
	}
	if now.Sub(*v.DeletedAt) < 30*24*time.Hour {
		return errs.New(errs.KindValidation, "hard-delete requires soft-delete to be at least 30 days old")
	}
	_, err = r.conn.ExecContext(ctx, `DELETE FROM prompt_versions WHERE id = ?`, id)
	return err
}

const promptVersionSelectCols = `SELECT
	id, name, prompt_text, author_id, notes, created_at, deleted_at, optimistic_lock_counter `

func scanPromptVersion(row rowScanner) (PromptVersion, error) {
	var v PromptVersion
	var createdAt string
	var deletedAt sql.NullString

	err := row.Scan(&v.ID, &v.Name, &v.PromptText, &v.AuthorID, &v.Notes, &createdAt, &deletedAt, &v.OptimisticLockCounter)
	if err == sql.ErrNoRows {
		return PromptVersion{}, errs.New(errs.KindValidation, "prompt version not found")
	}
	if err != nil {
		return PromptVersion{}, fmt.Errorf("scan prompt version: %w", err)
	}
	if v.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return PromptVersion{}, err
	}
	if v.DeletedAt, err = parseNullableTime(deletedAt.String); err != nil {
		return PromptVersion{}, err
	}
	return v, nil
}
