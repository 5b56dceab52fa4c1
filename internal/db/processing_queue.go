package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ProcessingQueueRepo is the durable work queue workers pop from, ordered
// by (priority desc, queued_at asc).
type ProcessingQueueRepo struct {
	conn *sql.DB
}

func NewProcessingQueueRepo(conn *sql.DB) *ProcessingQueueRepo {
	return &ProcessingQueueRepo{conn: conn}
}

var priorityRank = map[Priority]int{
	PriorityUrgent: 3,
	PriorityHigh:   2,
	PriorityNormal: 1,
	PriorityLow:    0,
}

func (r *ProcessingQueueRepo) Enqueue(ctx context.Context, e ProcessingQueueEntry) error {
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO processing_queue (
			id, ingestion_job_id, document_identifier, source_type,
			priority, worker_id, queued_at, assigned_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.IngestionJobID, e.DocumentIdentifier, string(e.SourceType),
		string(e.Priority), nullString(e.WorkerID), formatTime(e.QueuedAt), nullableTime(e.AssignedAt))
	return err
}

// Claim assigns the next unassigned entry to workerID, ordered by
// priority desc then queued_at asc, and returns it. Returns
// sql.ErrNoRows if the queue is empty.
func (r *ProcessingQueueRepo) Claim(ctx context.Context, workerID string) (ProcessingQueueEntry, error) {
	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return ProcessingQueueEntry{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, processingQueueSelectCols+`
		FROM processing_queue WHERE worker_id IS NULL
		ORDER BY CASE priority
			WHEN 'urgent' THEN 3 WHEN 'high' THEN 2 WHEN 'normal' THEN 1 ELSE 0 END DESC,
			queued_at ASC
		LIMIT 1`)
	entry, err := scanProcessingQueueEntry(row)
	if err != nil {
		return ProcessingQueueEntry{}, err
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE processing_queue SET worker_id = ?, assigned_at = ? WHERE id = ?`,
		workerID, formatTime(now), entry.ID); err != nil {
		return ProcessingQueueEntry{}, err
	}
	if err := tx.Commit(); err != nil {
		return ProcessingQueueEntry{}, err
	}
	entry.WorkerID = workerID
	entry.AssignedAt = &now
	return entry, nil
}

func (r *ProcessingQueueRepo) Remove(ctx context.Context, id string) error {
	_, err := r.conn.ExecContext(ctx, `DELETE FROM processing_queue WHERE id = ?`, id)
	return err
}

const processingQueueSelectCols = `SELECT
	id, ingestion_job_id, document_identifier, source_type,
	priority, worker_id, queued_at, assigned_at `

func scanProcessingQueueEntry(row rowScanner) (ProcessingQueueEntry, error) {
	var e ProcessingQueueEntry
	var sourceType, priority string
	var workerID sql.NullString
	var queuedAt string
	var assignedAt sql.NullString

	err := row.Scan(&e.ID, &e.IngestionJobID, &e.DocumentIdentifier, &sourceType,
		&priority, &workerID, &queuedAt, &assignedAt)
	if err == sql.ErrNoRows {
		return ProcessingQueueEntry{}, err
	}
	if err != nil {
		return ProcessingQueueEntry{}, fmt.Errorf("scan processing queue entry: %w", err)
	}

	e.SourceType = SourceKind(sourceType)
	e.Priority = Priority(priority)
	e.WorkerID = workerID.String
	if e.QueuedAt, err = time.Parse(time.RFC3339, queuedAt); err != nil {
		return ProcessingQueueEntry{}, err
	}
	if e.AssignedAt, err = parseNullableTime(assignedAt.String); err != nil {
		return ProcessingQueueEntry{}, err
	}
	return e, nil
}
