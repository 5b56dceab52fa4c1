package batch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"guidance-rag/internal/chrome"
	"guidance-rag/internal/chunk"
	"guidance-rag/internal/db"
	"guidance-rag/internal/embedding"
	"guidance-rag/internal/lexical"
	"guidance-rag/internal/shared/errs"
	"guidance-rag/internal/vectorstore"
)

// Worker implements the per-document processing protocol from spec §4.G:
// claim, strip chrome, chunk, embed, upsert, mark complete — with
// exponential-backoff retry on transient errors and task-level
// acks-after-work: the queue row is removed only after processing, so a
// crash mid-task leaves the row in the queue rather than silently
// dropped. The row keeps the crashed worker's claim, and Claim only hands
// out unclaimed rows.
type Worker struct {
	id             string
	documents      *db.DocumentRepo
	processingJobs *db.ProcessingJobRepo
	queue          *db.ProcessingQueueRepo
	vectors        *vectorstore.Gateway
	lexicalIdx     *lexical.Index
	embedder       embedding.EmbeddingEngine
	chunkTokens    int
	retryAttempts  int
	chromeVersion  string
	log            *zap.Logger
}

func NewWorker(id string, documents *db.DocumentRepo, processingJobs *db.ProcessingJobRepo, queue *db.ProcessingQueueRepo,
	vectors *vectorstore.Gateway, lexicalIdx *lexical.Index, embedder embedding.EmbeddingEngine,
	chunkTokens, retryAttempts int, chromeVersion string, log *zap.Logger) *Worker {
	if chunkTokens <= 0 {
		chunkTokens = chunk.DefaultTargetTokens
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		id: id, documents: documents, processingJobs: processingJobs, queue: queue,
		vectors: vectors, lexicalIdx: lexicalIdx, embedder: embedder,
		chunkTokens: chunkTokens, retryAttempts: retryAttempts, chromeVersion: chromeVersion, log: log,
	}
}

// Backoff doubles from a 2s floor up to a 10s ceiling, matching
// internal/llmprovider's retry schedule rather than inventing a second
// one for the worker loop.
const (
	retryMinDelay = 2 * time.Second
	retryMaxDelay = 10 * time.Second
)

// ClaimAndProcess pulls the next queue entry (if any) and runs it to
// completion or failure. Returns false with a nil error when the queue
// is empty.
func (w *Worker) ClaimAndProcess(ctx context.Context) (bool, error) {
	entry, err := w.queue.Claim(ctx, w.id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim queue entry: %w", err)
	}

	if err := w.processDocument(ctx, entry); err != nil {
		w.log.Error("document processing failed", zap.String("document_id", entry.DocumentIdentifier), zap.Error(err))
	}
	if err := w.queue.Remove(ctx, entry.ID); err != nil {
		return true, fmt.Errorf("remove completed queue entry: %w", err)
	}
	return true, nil
}

func (w *Worker) processDocument(ctx context.Context, entry db.ProcessingQueueEntry) error {
	job, err := w.findJobForDocument(ctx, entry)
	if err != nil {
		return err
	}

	if err := w.processingJobs.Transition(ctx, job.ID, db.ProcessingInProgress, w.id, ""); err != nil {
		return fmt.Errorf("mark job in progress: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= w.retryAttempts; attempt++ {
		lastErr = w.attemptProcess(ctx, job, entry.DocumentIdentifier)
		if lastErr == nil {
			return w.processingJobs.Transition(ctx, job.ID, db.ProcessingCompleted, w.id, "")
		}
		if !isRetryable(lastErr) || attempt == w.retryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffDelay(attempt)):
		}
	}

	message := truncateError(lastErr, 2000)
	return w.processingJobs.Transition(ctx, job.ID, db.ProcessingFailed, w.id, message)
}

func (w *Worker) findJobForDocument(ctx context.Context, entry db.ProcessingQueueEntry) (db.ProcessingJob, error) {
	jobs, err := w.processingJobs.ListByIngestionJob(ctx, entry.IngestionJobID)
	if err != nil {
		return db.ProcessingJob{}, fmt.Errorf("list processing jobs: %w", err)
	}
	for _, j := range jobs {
		if j.DocumentID == entry.DocumentIdentifier && j.Status != db.ProcessingCompleted {
			return j, nil
		}
	}
	return db.ProcessingJob{}, errs.New(errs.KindValidation, "no matching processing job for queue entry")
}

func (w *Worker) attemptProcess(ctx context.Context, job db.ProcessingJob, documentID string) error {
	document, err := w.documents.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document: %w", err)
	}

	cleaned, stats := chrome.Strip(document.RawContent, documentID)
	if err := w.processingJobs.UpdateProgress(ctx, job.ID, 25); err != nil {
		return err
	}

	chunks, err := chunk.ChunkText(cleaned, w.chunkTokens)
	if err != nil {
		return fmt.Errorf("chunk document: %w", err)
	}
	if err := w.processingJobs.UpdateProgress(ctx, job.ID, 50); err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := w.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return errs.Wrap(errs.KindProvider, "embed chunks", err)
	}
	if err := w.processingJobs.UpdateProgress(ctx, job.ID, 75); err != nil {
		return err
	}

	records := make([]vectorstore.ChunkRecord, len(chunks))
	for i, c := range chunks {
		pointID := fmt.Sprintf("%s_chunk_%d", documentID, c.Index)
		records[i] = vectorstore.ChunkRecord{
			PointID: pointID, DocumentID: documentID, ChunkIndex: c.Index,
			ChunkText: c.Text, Title: document.Title, URL: document.CanonicalURL,
			Embedding: vectors[i],
		}
	}
	if err := w.vectors.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert chunk vectors: %w", err)
	}

	if w.lexicalIdx != nil {
		for _, r := range records {
			if err := w.lexicalIdx.AddDocument(ctx, r.PointID, r.DocumentID, r.ChunkText); err != nil {
				return fmt.Errorf("index chunk %s: %w", r.PointID, err)
			}
		}
	}

	dbStats := db.ChromeRemovalStats{
		OriginalChars: stats.OriginalChars, ChromeChars: stats.ChromeChars,
		GuidanceChars: stats.GuidanceChars, ChromePercentage: stats.ChromePercentage,
		PatternsMatched: stats.PatternsMatched,
	}
	if err := w.documents.MarkProcessed(ctx, documentID, true, "", stats.ChromeChars > 0, dbStats); err != nil {
		return fmt.Errorf("mark document processed: %w", err)
	}
	if err := w.documents.MarkReprocessed(ctx, documentID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark document reprocessed: %w", err)
	}
	return w.processingJobs.UpdateProgress(ctx, job.ID, 100)
}

func isRetryable(err error) bool {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.Kind.Retryable()
	}
	return false
}

func backoffDelay(attempt int) time.Duration {
	delay := retryMinDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

func truncateError(err error, max int) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) <= max {
		return msg
	}
	return msg[:max]
}
