package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"guidance-rag/internal/shared/errs"
)

type ProcessingJobRepo struct {
	conn *sql.DB
}

func NewProcessingJobRepo(conn *sql.DB) *ProcessingJobRepo {
	return &ProcessingJobRepo{conn: conn}
}

func (r *ProcessingJobRepo) Create(ctx context.Context, j ProcessingJob) error {
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO processing_jobs (
			id, ingestion_job_id, document_id, worker_id, status, progress,
			retry_count, reprocessing_batch_id, chrome_stripper_version,
			error_message, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.IngestionJobID, j.DocumentID, nullString(j.WorkerID), string(j.Status), j.Progress,
		j.RetryCount, nullString(j.ReprocessingBatchID), j.ChromeStripperVersion,
		nullString(j.ErrorMessage), formatTime(j.CreatedAt), formatTime(j.UpdatedAt))
	return err
}

func (r *ProcessingJobRepo) GetByID(ctx context.Context, id string) (ProcessingJob, error) {
	row := r.conn.QueryRowContext(ctx, processingJobSelectCols+`FROM processing_jobs WHERE id = ?`, id)
	return scanProcessingJob(row)
}

func (r *ProcessingJobRepo) ListByIngestionJob(ctx context.Context, ingestionJobID string) ([]ProcessingJob, error) {
	rows, err := r.conn.QueryContext(ctx,
		processingJobSelectCols+`FROM processing_jobs WHERE ingestion_job_id = ? ORDER BY created_at ASC`, ingestionJobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProcessingJobs(rows)
}

func (r *ProcessingJobRepo) ListByBatch(ctx context.Context, batchID string) ([]ProcessingJob, error) {
	rows, err := r.conn.QueryContext(ctx,
		processingJobSelectCols+`FROM processing_jobs WHERE reprocessing_batch_id = ? ORDER BY created_at ASC`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProcessingJobs(rows)
}

// Transition moves a ProcessingJob to a new status, enforcing the state
// machine and the "progress strictly non-decreasing while Processing"
// invariant via UpdateProgress instead.
func (r *ProcessingJobRepo) Transition(ctx context.Context, id string, to ProcessingStatus, workerID, errMsg string) error {
	job, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransitionProcessing(job.Status, to) {
		return errs.New(errs.KindInvalidTransition,
			fmt.Sprintf("processing job %s: %s -> %s not allowed", id, job.Status, to))
	}

	retryCount := job.RetryCount
	if job.Status == ProcessingFailed && to == ProcessingQueued {
		retryCount++
	}

	_, err = r.conn.ExecContext(ctx,
		`UPDATE processing_jobs SET status = ?, worker_id = ?, error_message = ?, retry_count = ?, updated_at = ? WHERE id = ?`,
		string(to), nullString(workerID), nullString(errMsg), retryCount, formatTime(time.Now().UTC()), id)
	return err
}

// UpdateProgress sets progress, rejecting any value lower than the
// current one while the job is Processing.
func (r *ProcessingJobRepo) UpdateProgress(ctx context.Context, id string, progress int) error {
	job, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job.Status == ProcessingInProgress && progress < job.Progress {
		return errs.New(errs.KindValidation, "progress must be non-decreasing while Processing")
	}
	if progress < 0 || progress > 100 {
		return errs.New(errs.KindValidation, "progress must be within [0,100]")
	}
	_, err = r.conn.ExecContext(ctx,
		`UPDATE processing_jobs SET progress = ?, updated_at = ? WHERE id = ?`,
		progress, formatTime(time.Now().UTC()), id)
	return err
}

const processingJobSelectCols = `SELECT
	id, ingestion_job_id, document_id, worker_id, status, progress,
	retry_count, reprocessing_batch_id, chrome_stripper_version,
	error_message, created_at, updated_at `

func collectProcessingJobs(rows *sql.Rows) ([]ProcessingJob, error) {
	var jobs []ProcessingJob
	for rows.Next() {
		j, err := scanProcessingJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func scanProcessingJob(row rowScanner) (ProcessingJob, error) {
	var j ProcessingJob
	var status string
	var workerID, batchID, errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&j.ID, &j.IngestionJobID, &j.DocumentID, &workerID, &status, &j.Progress,
		&j.RetryCount, &batchID, &j.ChromeStripperVersion, &errMsg, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return ProcessingJob{}, errs.New(errs.KindValidation, "processing job not found")
	}
	if err != nil {
		return ProcessingJob{}, fmt.Errorf("scan processing job: %w", err)
	}

	j.Status = ProcessingStatus(status)
	j.WorkerID = workerID.String
	j.ReprocessingBatchID = batchID.String
	j.ErrorMessage = errMsg.String
	if j.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return ProcessingJob{}, err
	}
	if j.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return ProcessingJob{}, err
	}
	return j, nil
}
