// Package adminsurface provides the handler-shaped building blocks an
// HTTP admin surface would call: progress snapshots, SSE event
// formatting, and the reprocess-trigger entry point. The actual
// HTTP/WebSocket routing is the excluded surface layer (see Non-goals);
// this package stops at plain Go functions a router would wire up.
package adminsurface

import (
	"context"
	"fmt"

	"guidance-rag/internal/batch"
)

// IngestionProgress is the status snapshot surfaced to an admin client
// for one ingestion job.
type IngestionProgress struct {
	IngestionJobID  string                        `json:"ingestion_job_id"`
	CountsByStatus  map[string]int                `json:"counts_by_status"`
	ActiveWorkerIDs []string                       `json:"active_worker_ids"`
	ProgressPercent float64                        `json:"progress_percent"`
	ETASeconds      float64                        `json:"eta_seconds"`
}

// Status wraps batch.Controller.Status into the admin-facing snapshot
// shape, with status keys stringified for JSON.
type Status struct {
	controller *batch.Controller
}

func NewStatus(controller *batch.Controller) *Status {
	return &Status{controller: controller}
}

func (s *Status) IngestionProgress(ctx context.Context, ingestionJobID string) (IngestionProgress, error) {
	snapshot, err := s.controller.Status(ctx, ingestionJobID)
	if err != nil {
		return IngestionProgress{}, fmt.Errorf("get ingestion status: %w", err)
	}

	counts := make(map[string]int, len(snapshot.CountsByStatus))
	for status, count := range snapshot.CountsByStatus {
		counts[string(status)] = count
	}

	return IngestionProgress{
		IngestionJobID:  ingestionJobID,
		CountsByStatus:  counts,
		ActiveWorkerIDs: snapshot.ActiveWorkerIDs,
		ProgressPercent: snapshot.ProgressPercent,
		ETASeconds:      snapshot.ETASeconds,
	}, nil
}

// ReprocessFailedDocuments triggers the control plane's reprocess flow,
// the handler a `POST .../reprocess-failed-documents` route would call.
func (s *Status) ReprocessFailedDocuments(ctx context.Context, userID string) (batch.ReprocessResult, error) {
	return s.controller.ReprocessFailedDocuments(ctx, userID)
}
