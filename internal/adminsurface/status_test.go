package adminsurface

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"

	"guidance-rag/internal/batch"
	"guidance-rag/internal/db"
)

func newTestController(t *testing.T) (*batch.Controller, *db.IngestionJobRepo, *sql.DB) {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), conn, nil))

	ingestionJobs := db.NewIngestionJobRepo(conn)
	processingJobs := db.NewProcessingJobRepo(conn)
	controller := batch.New(
		ingestionJobs, processingJobs, db.NewProcessingQueueRepo(conn),
		db.NewDocumentRepo(conn), db.NewReprocessingBatchRepo(conn, processingJobs),
		nil, "v1", nil,
	)
	return controller, ingestionJobs, conn
}

func TestStatus_IngestionProgress(t *testing.T) {
	controller, ingestionJobs, _ := newTestController(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, ingestionJobs.Create(ctx, db.IngestionJob{
		ID: "ing-1", UserID: "user-1", Method: db.SourceKindURL, Status: db.IngestionPending,
		CreatedAt: now, UpdatedAt: now,
	}))
	_, err := controller.StartBatch(ctx, batch.StartBatchParams{
		IngestionJobID: "ing-1", DocIDs: []string{"doc-1"}, ParallelWorkers: 1, RetryAttempts: 1,
	})
	require.NoError(t, err)

	status := NewStatus(controller)
	progress, err := status.IngestionProgress(ctx, "ing-1")
	require.NoError(t, err)
	require.Equal(t, "ing-1", progress.IngestionJobID)
	require.Equal(t, 1, progress.CountsByStatus["Queued"])
}

func TestStatus_StreamProgressClosesOnTerminalStatus(t *testing.T) {
	controller, ingestionJobs, _ := newTestController(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, ingestionJobs.Create(ctx, db.IngestionJob{
		ID: "ing-1", UserID: "user-1", Method: db.SourceKindURL, Status: db.IngestionPending,
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, ingestionJobs.Transition(ctx, "ing-1", db.IngestionInProgress))
	require.NoError(t, ingestionJobs.Transition(ctx, "ing-1", db.IngestionCompleted))

	status := NewStatus(controller)
	var buf bytes.Buffer
	err := status.StreamProgress(ctx, &buf, ingestionJobs, "ing-1")
	require.NoError(t, err)
	require.True(t, strings.Contains(buf.String(), "event: done"))
}
