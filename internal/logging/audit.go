package logging

import (
	"context"
	"time"
)

// EventType enumerates the state-mutating operations that must produce
// exactly one audit entry (see DESIGN.md "cross-cutting audit logging").
type EventType string

const (
	EventIngestionJobStart    EventType = "ingestion_job_start"
	EventIngestionJobPause    EventType = "ingestion_job_pause"
	EventIngestionJobCancel   EventType = "ingestion_job_cancel"
	EventIngestionJobComplete EventType = "ingestion_job_complete"

	EventProcessingJobRetry    EventType = "processing_job_retry"
	EventProcessingJobFail     EventType = "processing_job_fail"
	EventProcessingJobComplete EventType = "processing_job_complete"

	EventWorkerFailure EventType = "worker_failure"

	EventReprocessBatchStart EventType = "reprocess_batch_start"

	EventPromptVersionCreate  EventType = "prompt_version_create"
	EventPromptVersionDelete  EventType = "prompt_version_delete"
	EventPromptVersionRestore EventType = "prompt_version_restore"
	EventPromptPromoteSuccess EventType = "prompt_promote_success"
	EventPromptPromoteFailure EventType = "prompt_promote_failure"

	EventCacheInsert EventType = "cache_insert"
	EventCacheHit    EventType = "cache_hit"
)

// Outcome is the result recorded against an audit entry.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// Event is a single audit-log entry: {event, actor, subject, outcome, context}.
// Context carries free-form structured detail (e.g. backup path, lock
// counters, retry counts) so a reviewer can reconstruct what happened
// without re-deriving it from application logs.
type Event struct {
	Type      EventType
	ActorID   string
	Subject   string // e.g. "ingestion_job:<id>", "prompt_version:<id>"
	Outcome   Outcome
	Context   map[string]any
	Timestamp time.Time
}

// AuditSink is the uniform capability every state-mutating operation
// writes through. Implementations persist entries (see internal/db) or,
// in tests, collect them in memory.
type AuditSink interface {
	Record(ctx context.Context, e Event) error
}

// NopAuditSink discards every event. Useful for components exercised in
// isolation from persistence in unit tests.
type NopAuditSink struct{}

func (NopAuditSink) Record(context.Context, Event) error { return nil }
