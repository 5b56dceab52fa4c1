package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"guidance-rag/internal/shared/errs"
)

type IngestionJobRepo struct {
	conn *sql.DB
}

func NewIngestionJobRepo(conn *sql.DB) *IngestionJobRepo {
	return &IngestionJobRepo{conn: conn}
}

func (r *IngestionJobRepo) Create(ctx context.Context, j IngestionJob) error {
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO ingestion_jobs (
			id, user_id, method, status, source_details,
			total_count, processed_count, failed_count,
			started_at, finished_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.UserID, string(j.Method), string(j.Status), j.SourceDetails,
		j.TotalCount, j.ProcessedCount, j.FailedCount,
		nullableTime(j.StartedAt), nullableTime(j.FinishedAt),
		formatTime(j.CreatedAt), formatTime(j.UpdatedAt))
	return err
}

func (r *IngestionJobRepo) GetByID(ctx context.Context, id string) (IngestionJob, error) {
	row := r.conn.QueryRowContext(ctx, `SELECT
		id, user_id, method, status, source_details,
		total_count, processed_count, failed_count,
		started_at, finished_at, created_at, updated_at
		FROM ingestion_jobs WHERE id = ?`, id)
	return scanIngestionJob(row)
}

// Transition moves an IngestionJob to a new status, rejecting any
// transition not present in ingestionTransitions.
func (r *IngestionJobRepo) Transition(ctx context.Context, id string, to IngestionStatus) error {
	job, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransitionIngestion(job.Status, to) {
		return errs.New(errs.KindInvalidTransition,
			fmt.Sprintf("ingestion job %s: %s -> %s not allowed", id, job.Status, to))
	}

	now := time.Now().UTC()
	var startedAt, finishedAt any = nullableTime(job.StartedAt), nullableTime(job.FinishedAt)
	if to == IngestionInProgress && job.StartedAt == nil {
		startedAt = formatTime(now)
	}
	terminal := to == IngestionCompleted || to == IngestionFailed || to == IngestionCancelled
	if terminal {
		finishedAt = formatTime(now)
	}

	_, err = r.conn.ExecContext(ctx,
		`UPDATE ingestion_jobs SET status = ?, started_at = ?, finished_at = ?, updated_at = ? WHERE id = ?`,
		string(to), startedAt, finishedAt, formatTime(now), id)
	return err
}

func (r *IngestionJobRepo) IncrementCounts(ctx context.Context, id string, processedDelta, failedDelta int) error {
	_, err := r.conn.ExecContext(ctx,
		`UPDATE ingestion_jobs SET processed_count = processed_count + ?, failed_count = failed_count + ?, updated_at = ? WHERE id = ?`,
		processedDelta, failedDelta, formatTime(time.Now().UTC()), id)
	return err
}

func scanIngestionJob(row rowScanner) (IngestionJob, error) {
	var j IngestionJob
	var method, status string
	var startedAt, finishedAt sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&j.ID, &j.UserID, &method, &status, &j.SourceDetails,
		&j.TotalCount, &j.ProcessedCount, &j.FailedCount,
		&startedAt, &finishedAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return IngestionJob{}, errs.New(errs.KindValidation, "ingestion job not found")
	}
	if err != nil {
		return IngestionJob{}, fmt.Errorf("scan ingestion job: %w", err)
	}

	j.Method = SourceKind(method)
	j.Status = IngestionStatus(status)
	if j.StartedAt, err = parseNullableTime(startedAt.String); err != nil {
		return IngestionJob{}, err
	}
	if j.FinishedAt, err = parseNullableTime(finishedAt.String); err != nil {
		return IngestionJob{}, err
	}
	if j.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return IngestionJob{}, err
	}
	if j.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return IngestionJob{}, err
	}
	return j, nil
}
