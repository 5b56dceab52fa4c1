// Package batch implements the Batch Control Plane (component G): the
// operations that turn a set of document ids into running ProcessingJobs
// against the durable queue, plus status/retry/pause/cancel lifecycle
// management and the reprocess-failed-documents flow.
package batch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"guidance-rag/internal/db"
	"guidance-rag/internal/logging"
	"guidance-rag/internal/shared/errs"
)

const (
	minParallelWorkers = 1
	maxParallelWorkers = 10
	minRetryAttempts   = 0
	maxRetryAttempts   = 5

	// etaJobsPerSecond calibrates estimated-duration calculations: one
	// document every two seconds, matching spec §4.G's queued/0.5 and
	// (queued+processing)/0.5 formulas.
	etaJobsPerSecond = 0.5
)

// Controller owns the repositories the control plane operates over.
type Controller struct {
	ingestionJobs *db.IngestionJobRepo
	processingJobs *db.ProcessingJobRepo
	queue         *db.ProcessingQueueRepo
	documents     *db.DocumentRepo
	batches       *db.ReprocessingBatchRepo
	auditSink     logging.AuditSink
	chromeVersion string
	log           *zap.Logger
}

func New(ingestionJobs *db.IngestionJobRepo, processingJobs *db.ProcessingJobRepo, queue *db.ProcessingQueueRepo,
	documents *db.DocumentRepo, batches *db.ReprocessingBatchRepo, auditSink logging.AuditSink, chromeVersion string, log *zap.Logger) *Controller {
	if auditSink == nil {
		auditSink = logging.NopAuditSink{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		ingestionJobs: ingestionJobs, processingJobs: processingJobs, queue: queue,
		documents: documents, batches: batches, auditSink: auditSink, chromeVersion: chromeVersion, log: log,
	}
}

var nowFunc = time.Now

// StartBatchParams are start_batch's validated inputs per spec §4.G.
type StartBatchParams struct {
	IngestionJobID  string
	DocIDs          []string
	ChunkSizeTokens int
	ParallelWorkers int
	RetryAttempts   int
}

// StartBatchResult reports what was created.
type StartBatchResult struct {
	ProcessingJobIDs []string
	QueueEntryIDs    []string
}

// StartBatch creates one ProcessingJob (Queued) and one Normal-priority
// queue entry per document. ParallelWorkers and RetryAttempts are only
// range-checked and ChunkSizeTokens is not read; no doc_id is assigned to
// a particular worker, since workers pull entries from the shared queue.
func (c *Controller) StartBatch(ctx context.Context, p StartBatchParams) (StartBatchResult, error) {
	if p.ParallelWorkers < minParallelWorkers || p.ParallelWorkers > maxParallelWorkers {
		return StartBatchResult{}, errs.New(errs.KindValidation,
			fmt.Sprintf("parallel_workers must be within [%d, %d]", minParallelWorkers, maxParallelWorkers))
	}
	if p.RetryAttempts < minRetryAttempts || p.RetryAttempts > maxRetryAttempts {
		return StartBatchResult{}, errs.New(errs.KindValidation,
			fmt.Sprintf("retry_attempts must be within [%d, %d]", minRetryAttempts, maxRetryAttempts))
	}

	now := nowFunc().UTC()
	result := StartBatchResult{}

	for _, docID := range p.DocIDs {
		jobID := db.NewID()
		job := db.ProcessingJob{
			ID:                    jobID,
			IngestionJobID:        p.IngestionJobID,
			DocumentID:            docID,
			Status:                db.ProcessingQueued,
			ChromeStripperVersion: c.chromeVersion,
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if err := c.processingJobs.Create(ctx, job); err != nil {
			return StartBatchResult{}, fmt.Errorf("create processing job for %s: %w", docID, err)
		}
		result.ProcessingJobIDs = append(result.ProcessingJobIDs, jobID)

		entryID := db.NewID()
		entry := db.ProcessingQueueEntry{
			ID:                 entryID,
			IngestionJobID:     p.IngestionJobID,
			DocumentIdentifier: docID,
			SourceType:         db.SourceKindURL,
			Priority:           db.PriorityNormal,
			QueuedAt:           now,
		}
		if err := c.queue.Enqueue(ctx, entry); err != nil {
			return StartBatchResult{}, fmt.Errorf("enqueue %s: %w", docID, err)
		}
		result.QueueEntryIDs = append(result.QueueEntryIDs, entryID)
	}

	if err := c.ingestionJobs.Transition(ctx, p.IngestionJobID, db.IngestionInProgress); err != nil {
		return StartBatchResult{}, fmt.Errorf("mark ingestion job in progress: %w", err)
	}
	return result, nil
}

// StatusSnapshot is status(ingestion_job)'s response shape.
type StatusSnapshot struct {
	CountsByStatus map[db.ProcessingStatus]int
	ActiveWorkerIDs []string
	ProgressPercent float64
	ETASeconds      float64
}

// Status aggregates the current state of every ProcessingJob under an
// IngestionJob, per spec §4.G.
func (c *Controller) Status(ctx context.Context, ingestionJobID string) (StatusSnapshot, error) {
	jobs, err := c.processingJobs.ListByIngestionJob(ctx, ingestionJobID)
	if err != nil {
		return StatusSnapshot{}, fmt.Errorf("list processing jobs: %w", err)
	}

	snapshot := StatusSnapshot{CountsByStatus: map[db.ProcessingStatus]int{}}
	if len(jobs) == 0 {
		return snapshot, nil
	}

	workerSeen := map[string]bool{}
	var etaTotal float64
	var processingWithETA int
	now := nowFunc()

	for _, j := range jobs {
		snapshot.CountsByStatus[j.Status]++
		if j.Status == db.ProcessingInProgress {
			if j.WorkerID != "" && !workerSeen[j.WorkerID] {
				workerSeen[j.WorkerID] = true
				snapshot.ActiveWorkerIDs = append(snapshot.ActiveWorkerIDs, j.WorkerID)
			}
			if j.Progress > 0 {
				elapsed := now.Sub(j.UpdatedAt).Seconds()
				etaTotal += elapsed * float64(100-j.Progress) / float64(j.Progress)
				processingWithETA++
			}
		}
	}

	pending := snapshot.CountsByStatus[db.ProcessingQueued]
	if processingWithETA > 0 {
		avgETA := etaTotal / float64(processingWithETA)
		snapshot.ETASeconds = etaTotal + avgETA*float64(pending)
	}

	completed := snapshot.CountsByStatus[db.ProcessingCompleted]
	snapshot.ProgressPercent = float64(completed) / float64(len(jobs)) * 100
	return snapshot, nil
}

// RetryFailed flips selected (or all, if jobIDs is empty) Failed jobs
// back to Queued with High priority, incrementing retry_count.
func (c *Controller) RetryFailed(ctx context.Context, ingestionJobID string, jobIDs []string) (int, error) {
	jobs, err := c.processingJobs.ListByIngestionJob(ctx, ingestionJobID)
	if err != nil {
		return 0, fmt.Errorf("list processing jobs: %w", err)
	}

	wanted := map[string]bool{}
	for _, id := range jobIDs {
		wanted[id] = true
	}

	retried := 0
	for _, j := range jobs {
		if j.Status != db.ProcessingFailed {
			continue
		}
		if len(jobIDs) > 0 && !wanted[j.ID] {
			continue
		}
		if err := c.processingJobs.Transition(ctx, j.ID, db.ProcessingQueued, "", ""); err != nil {
			return retried, fmt.Errorf("retry job %s: %w", j.ID, err)
		}
		if err := c.requeue(ctx, j, db.PriorityHigh); err != nil {
			return retried, err
		}
		retried++
	}
	return retried, nil
}

// HandleWorkerFailure resets every Processing job owned by workerID back
// to Queued (progress 0, worker cleared) and re-enqueues it High
// priority, per spec §4.G's crash-safety contract.
func (c *Controller) HandleWorkerFailure(ctx context.Context, ingestionJobID, workerID string) (int, error) {
	jobs, err := c.processingJobs.ListByIngestionJob(ctx, ingestionJobID)
	if err != nil {
		return 0, fmt.Errorf("list processing jobs: %w", err)
	}

	reset := 0
	for _, j := range jobs {
		if j.Status != db.ProcessingInProgress || j.WorkerID != workerID {
			continue
		}
		if err := c.processingJobs.Transition(ctx, j.ID, db.ProcessingQueued, "", ""); err != nil {
			return reset, fmt.Errorf("reset job %s: %w", j.ID, err)
		}
		if err := c.processingJobs.UpdateProgress(ctx, j.ID, 0); err != nil {
			return reset, fmt.Errorf("reset progress for job %s: %w", j.ID, err)
		}
		if err := c.requeue(ctx, j, db.PriorityHigh); err != nil {
			return reset, err
		}
		reset++
	}

	_ = c.auditSink.Record(ctx, logging.Event{
		Type:      logging.EventWorkerFailure,
		Subject:   fmt.Sprintf("worker:%s", workerID),
		Outcome:   logging.OutcomeSuccess,
		Context:   map[string]any{"reset_count": reset},
		Timestamp: nowFunc(),
	})
	return reset, nil
}

func (c *Controller) requeue(ctx context.Context, j db.ProcessingJob, priority db.Priority) error {
	return c.queue.Enqueue(ctx, db.ProcessingQueueEntry{
		ID:                 db.NewID(),
		IngestionJobID:     j.IngestionJobID,
		DocumentIdentifier: j.DocumentID,
		SourceType:         db.SourceKindURL,
		Priority:           priority,
		QueuedAt:           nowFunc().UTC(),
	})
}

// Pause moves an IngestionJob to Paused. Jobs currently Processing are
// left to finish naturally; nothing new is dispatched while paused.
func (c *Controller) Pause(ctx context.Context, ingestionJobID string) error {
	return c.ingestionJobs.Transition(ctx, ingestionJobID, db.IngestionPaused)
}

// Cancel moves an IngestionJob to Cancelled and fails every still-Queued
// ProcessingJob with "Cancelled by user"; in-flight jobs finish naturally.
func (c *Controller) Cancel(ctx context.Context, ingestionJobID string) error {
	jobs, err := c.processingJobs.ListByIngestionJob(ctx, ingestionJobID)
	if err != nil {
		return fmt.Errorf("list processing jobs: %w", err)
	}
	for _, j := range jobs {
		if j.Status != db.ProcessingQueued {
			continue
		}
		if err := c.processingJobs.Transition(ctx, j.ID, db.ProcessingFailed, "", "Cancelled by user"); err != nil {
			return fmt.Errorf("cancel job %s: %w", j.ID, err)
		}
	}
	return c.ingestionJobs.Transition(ctx, ingestionJobID, db.IngestionCancelled)
}

// ReprocessResult is reprocess_failed_documents's response shape.
type ReprocessResult struct {
	BatchID                   string
	QueuedCount               int
	EstimatedDurationSeconds  float64
	StatusURL                 string
}

// ReprocessFailedDocuments mints a new reprocessing batch over every
// document whose last processing attempt failed or never ran, per spec
// §4.G. It rejects the request if a batch is already in flight.
func (c *Controller) ReprocessFailedDocuments(ctx context.Context, userID string) (ReprocessResult, error) {
	activeBatchID, err := c.batches.ActiveBatchID(ctx)
	if err != nil {
		return ReprocessResult{}, fmt.Errorf("check active batch: %w", err)
	}
	if activeBatchID != "" {
		return ReprocessResult{}, errs.New(errs.KindConflict,
			fmt.Sprintf("reprocessing batch %s is already in flight", activeBatchID))
	}

	docs, err := c.documents.ListFailedOrUnprocessed(ctx)
	if err != nil {
		return ReprocessResult{}, fmt.Errorf("list failed documents: %w", err)
	}
	if len(docs) == 0 {
		return ReprocessResult{}, errs.New(errs.KindValidation, "no failed or unprocessed documents to reprocess")
	}

	now := nowFunc().UTC()
	batchID := db.NewBatchID(now)

	ingestionJobID := db.NewID()
	if err := c.ingestionJobs.Create(ctx, db.IngestionJob{
		ID:         ingestionJobID,
		UserID:     userID,
		Method:     db.SourceKindUpload,
		Status:     db.IngestionPending,
		TotalCount: len(docs),
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		return ReprocessResult{}, fmt.Errorf("create reprocessing ingestion job: %w", err)
	}

	for _, d := range docs {
		if err := c.processingJobs.Create(ctx, db.ProcessingJob{
			ID:                    db.NewID(),
			IngestionJobID:        ingestionJobID,
			DocumentID:            d.ID,
			Status:                db.ProcessingQueued,
			ReprocessingBatchID:   batchID,
			ChromeStripperVersion: c.chromeVersion,
			CreatedAt:             now,
			UpdatedAt:             now,
		}); err != nil {
			return ReprocessResult{}, fmt.Errorf("create reprocessing job for %s: %w", d.ID, err)
		}
		if err := c.queue.Enqueue(ctx, db.ProcessingQueueEntry{
			ID:                 db.NewID(),
			IngestionJobID:     ingestionJobID,
			DocumentIdentifier: d.ID,
			SourceType:         db.SourceKindUpload,
			Priority:           db.PriorityNormal,
			QueuedAt:           now,
		}); err != nil {
			return ReprocessResult{}, fmt.Errorf("enqueue reprocessing job for %s: %w", d.ID, err)
		}
	}

	return ReprocessResult{
		BatchID:                  batchID,
		QueuedCount:              len(docs),
		EstimatedDurationSeconds: float64(len(docs)) / etaJobsPerSecond,
		StatusURL:                fmt.Sprintf("/batches/%s/status", batchID),
	}, nil
}

// BatchStatusSnapshot is batch_status(batch_id)'s response shape.
type BatchStatusSnapshot struct {
	Queued, Processing, Completed, Failed int
	SuccessRate                           float64
	OverallStatus                         string
	EstimatedTimeRemainingSeconds         float64
}

// BatchStatus aggregates per-status counts for a reprocessing batch and
// derives its overall lifecycle status per spec §4.G.
func (c *Controller) BatchStatus(ctx context.Context, batchID string) (BatchStatusSnapshot, error) {
	reprocessingBatch, err := c.batches.Get(ctx, batchID)
	if err != nil {
		return BatchStatusSnapshot{}, err
	}

	var snapshot BatchStatusSnapshot
	for _, j := range reprocessingBatch.Jobs {
		switch j.Status {
		case db.ProcessingQueued:
			snapshot.Queued++
		case db.ProcessingInProgress:
			snapshot.Processing++
		case db.ProcessingCompleted:
			snapshot.Completed++
		case db.ProcessingFailed:
			snapshot.Failed++
		}
	}

	finished := snapshot.Completed + snapshot.Failed
	if finished > 0 {
		snapshot.SuccessRate = float64(snapshot.Completed) / float64(finished) * 100
	}

	total := len(reprocessingBatch.Jobs)
	switch {
	case snapshot.Processing > 0 || snapshot.Queued > 0:
		snapshot.OverallStatus = "in_progress"
	case finished == total && snapshot.Failed == 0:
		snapshot.OverallStatus = "completed"
	case snapshot.Failed > 0 && snapshot.Completed == 0:
		snapshot.OverallStatus = "failed"
	default:
		snapshot.OverallStatus = "queued"
	}

	snapshot.EstimatedTimeRemainingSeconds = float64(snapshot.Queued+snapshot.Processing) / etaJobsPerSecond
	return snapshot, nil
}
