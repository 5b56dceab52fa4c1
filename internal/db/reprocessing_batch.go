package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"guidance-rag/internal/shared/errs"
)

// ReprocessingBatch is derived: the set of ProcessingJobs sharing a
// reprocessing_batch_id, plus their parent IngestionJob.
type ReprocessingBatch struct {
	BatchID        string
	IngestionJobID string
	Jobs           []ProcessingJob
}

// NewBatchID mints a batch_id in the reprocess-YYYYMMDD-HHMMSS shape.
func NewBatchID(at time.Time) string {
	return fmt.Sprintf("reprocess-%s", at.UTC().Format("20060102-150405"))
}

// ReprocessingBatchRepo enforces "only one non-terminal batch may exist
// at any instant" by checking for an in-flight batch before a new one
// is allowed to start.
type ReprocessingBatchRepo struct {
	conn *sql.DB
	jobs *ProcessingJobRepo
}

func NewReprocessingBatchRepo(conn *sql.DB, jobs *ProcessingJobRepo) *ReprocessingBatchRepo {
	return &ReprocessingBatchRepo{conn: conn, jobs: jobs}
}

// ActiveBatchID returns the batch_id of the sole in-flight batch, or ""
// if none is in flight.
func (r *ReprocessingBatchRepo) ActiveBatchID(ctx context.Context) (string, error) {
	var batchID sql.NullString
	err := r.conn.QueryRowContext(ctx, `
		SELECT reprocessing_batch_id FROM processing_jobs
		WHERE reprocessing_batch_id IS NOT NULL AND status IN ('Queued', 'Processing')
		LIMIT 1`).Scan(&batchID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("check active reprocessing batch: %w", err)
	}
	return batchID.String, nil
}

// Get reassembles a batch from its constituent ProcessingJobs.
func (r *ReprocessingBatchRepo) Get(ctx context.Context, batchID string) (ReprocessingBatch, error) {
	jobs, err := r.jobs.ListByBatch(ctx, batchID)
	if err != nil {
		return ReprocessingBatch{}, err
	}
	if len(jobs) == 0 {
		return ReprocessingBatch{}, errs.New(errs.KindValidation, "reprocessing batch not found")
	}
	return ReprocessingBatch{BatchID: batchID, IngestionJobID: jobs[0].IngestionJobID, Jobs: jobs}, nil
}
