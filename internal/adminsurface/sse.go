package adminsurface

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"guidance-rag/internal/db"
)

// sseInterval is the polling cadence for progress events.
const sseInterval = 2 * time.Second

// terminalIngestionStatuses stops the stream: nothing further will
// change once an ingestion job reaches one of these.
var terminalIngestionStatuses = map[db.IngestionStatus]bool{
	db.IngestionCompleted: true,
	db.IngestionFailed:    true,
	db.IngestionCancelled: true,
}

// StreamProgress writes Server-Sent Events reporting ingestionJobID's
// progress to w every sseInterval, until the job reaches a terminal
// status or ctx is cancelled. Each event is a "progress" SSE event
// carrying a JSON-encoded IngestionProgress payload; the final event
// before closing is named "done".
func (s *Status) StreamProgress(ctx context.Context, w io.Writer, ingestionJobs *db.IngestionJobRepo, ingestionJobID string) error {
	ticker := time.NewTicker(sseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			progress, err := s.IngestionProgress(ctx, ingestionJobID)
			if err != nil {
				return err
			}
			job, err := ingestionJobs.GetByID(ctx, ingestionJobID)
			if err != nil {
				return err
			}

			eventName := "progress"
			if terminalIngestionStatuses[job.Status] {
				eventName = "done"
			}
			if err := writeSSEEvent(w, eventName, progress); err != nil {
				return err
			}
			if eventName == "done" {
				return nil
			}
		}
	}
}

func writeSSEEvent(w io.Writer, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, body)
	return err
}
