package batch

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"

	"guidance-rag/internal/db"
)

func newTestController(t *testing.T) (*Controller, *sql.DB) {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), conn, nil))

	processingJobs := db.NewProcessingJobRepo(conn)
	c := New(
		db.NewIngestionJobRepo(conn),
		processingJobs,
		db.NewProcessingQueueRepo(conn),
		db.NewDocumentRepo(conn),
		db.NewReprocessingBatchRepo(conn, processingJobs),
		nil, "v1", nil,
	)
	return c, conn
}

func seedIngestionJob(t *testing.T, conn *sql.DB, id string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, db.NewIngestionJobRepo(conn).Create(context.Background(), db.IngestionJob{
		ID: id, UserID: "user-1", Method: db.SourceKindURL, Status: db.IngestionPending,
		CreatedAt: now, UpdatedAt: now,
	}))
}

func TestController_StartBatchRejectsOutOfRangeWorkers(t *testing.T) {
	c, conn := newTestController(t)
	seedIngestionJob(t, conn, "ing-1")

	_, err := c.StartBatch(context.Background(), StartBatchParams{
		IngestionJobID: "ing-1", DocIDs: []string{"doc-1"}, ParallelWorkers: 11, RetryAttempts: 1,
	})
	require.Error(t, err)
}

func TestController_StartBatchCreatesJobsAndQueueEntries(t *testing.T) {
	c, conn := newTestController(t)
	seedIngestionJob(t, conn, "ing-1")

	result, err := c.StartBatch(context.Background(), StartBatchParams{
		IngestionJobID: "ing-1", DocIDs: []string{"doc-1", "doc-2"}, ParallelWorkers: 2, RetryAttempts: 1,
	})
	require.NoError(t, err)
	require.Len(t, result.ProcessingJobIDs, 2)
	require.Len(t, result.QueueEntryIDs, 2)

	job, err := db.NewIngestionJobRepo(conn).GetByID(context.Background(), "ing-1")
	require.NoError(t, err)
	require.Equal(t, db.IngestionInProgress, job.Status)
}

func TestController_CancelFailsQueuedJobs(t *testing.T) {
	c, conn := newTestController(t)
	seedIngestionJob(t, conn, "ing-1")
	_, err := c.StartBatch(context.Background(), StartBatchParams{
		IngestionJobID: "ing-1", DocIDs: []string{"doc-1"}, ParallelWorkers: 1, RetryAttempts: 0,
	})
	require.NoError(t, err)

	require.NoError(t, c.Cancel(context.Background(), "ing-1"))

	jobs, err := db.NewProcessingJobRepo(conn).ListByIngestionJob(context.Background(), "ing-1")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, db.ProcessingFailed, jobs[0].Status)
	require.Equal(t, "Cancelled by user", jobs[0].ErrorMessage)

	ingestionJob, err := db.NewIngestionJobRepo(conn).GetByID(context.Background(), "ing-1")
	require.NoError(t, err)
	require.Equal(t, db.IngestionCancelled, ingestionJob.Status)
}

func TestController_HandleWorkerFailureResetsInFlightJobs(t *testing.T) {
	c, conn := newTestController(t)
	seedIngestionJob(t, conn, "ing-1")
	result, err := c.StartBatch(context.Background(), StartBatchParams{
		IngestionJobID: "ing-1", DocIDs: []string{"doc-1"}, ParallelWorkers: 1, RetryAttempts: 0,
	})
	require.NoError(t, err)

	jobRepo := db.NewProcessingJobRepo(conn)
	jobID := result.ProcessingJobIDs[0]
	require.NoError(t, jobRepo.Transition(context.Background(), jobID, db.ProcessingInProgress, "worker-1", ""))
	require.NoError(t, jobRepo.UpdateProgress(context.Background(), jobID, 40))

	reset, err := c.HandleWorkerFailure(context.Background(), "ing-1", "worker-1")
	require.NoError(t, err)
	require.Equal(t, 1, reset)

	job, err := jobRepo.GetByID(context.Background(), jobID)
	require.NoError(t, err)
	require.Equal(t, db.ProcessingQueued, job.Status)
	require.Equal(t, 0, job.Progress)
	require.Empty(t, job.WorkerID)
}

func TestController_ReprocessFailedDocumentsRejectsWhenBatchActive(t *testing.T) {
	c, conn := newTestController(t)
	now := time.Now().UTC()
	docs := db.NewDocumentRepo(conn)
	require.NoError(t, docs.Create(context.Background(), db.Document{
		ID: "doc-1", CanonicalURL: "https://example.test/a", RawContent: "content",
		SourceKind: db.SourceKindURL, CreatedAt: now, UpdatedAt: now,
	}))

	result, err := c.ReprocessFailedDocuments(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.QueuedCount)
	require.Contains(t, result.BatchID, "reprocess-")

	// A worker must actually be able to pick up the reprocessed document,
	// so start_batch-style enqueuing must have happened alongside the
	// ProcessingJob row.
	entry, err := db.NewProcessingQueueRepo(conn).Claim(context.Background(), "worker-1")
	require.NoError(t, err)
	require.Equal(t, "doc-1", entry.DocumentIdentifier)

	_, err = c.ReprocessFailedDocuments(context.Background(), "user-1")
	require.Error(t, err)
}

func TestController_BatchStatusDerivesOverallStatus(t *testing.T) {
	c, conn := newTestController(t)
	now := time.Now().UTC()
	docs := db.NewDocumentRepo(conn)
	require.NoError(t, docs.Create(context.Background(), db.Document{
		ID: "doc-1", CanonicalURL: "https://example.test/a", RawContent: "content",
		SourceKind: db.SourceKindURL, CreatedAt: now, UpdatedAt: now,
	}))

	result, err := c.ReprocessFailedDocuments(context.Background(), "user-1")
	require.NoError(t, err)

	status, err := c.BatchStatus(context.Background(), result.BatchID)
	require.NoError(t, err)
	require.Equal(t, "in_progress", status.OverallStatus)
	require.Equal(t, 1, status.Queued)
}
