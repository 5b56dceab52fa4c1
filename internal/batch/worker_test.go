package batch

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"

	"guidance-rag/internal/db"
	"guidance-rag/internal/lexical"
	"guidance-rag/internal/vectorstore"
)

type stubEmbedder struct{ dims int }

func (s stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return make([]float32, s.dims), nil
}
func (s stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, s.dims)
		out[i][0] = 1
	}
	return out, nil
}
func (s stubEmbedder) Dimensions() int { return s.dims }
func (s stubEmbedder) Name() string    { return "stub" }

func newWorkerFixture(t *testing.T) (*Worker, *db.DocumentRepo, *db.ProcessingJobRepo, *db.ProcessingQueueRepo, *sql.DB) {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), conn, nil))

	documents := db.NewDocumentRepo(conn)
	processingJobs := db.NewProcessingJobRepo(conn)
	queue := db.NewProcessingQueueRepo(conn)

	gw, err := vectorstore.New(context.Background(), conn, 4, false, nil)
	require.NoError(t, err)
	idx, err := lexical.New(context.Background(), conn)
	require.NoError(t, err)

	w := NewWorker("worker-1", documents, processingJobs, queue, gw, idx, stubEmbedder{dims: 4}, 0, 2, "v1", nil)
	return w, documents, processingJobs, queue, conn
}

func TestWorker_ClaimAndProcessCompletesDocument(t *testing.T) {
	w, documents, processingJobs, queue, conn := newWorkerFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, documents.Create(ctx, db.Document{
		ID: "doc-1", CanonicalURL: "https://example.test/a", Title: "Guidance",
		RawContent: "<html><body><h2>Eligibility</h2><p>Some guidance text about eligibility rules.</p></body></html>",
		SourceKind: db.SourceKindURL, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, processingJobs.Create(ctx, db.ProcessingJob{
		ID: "job-1", IngestionJobID: "ing-1", DocumentID: "doc-1", Status: db.ProcessingQueued,
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, queue.Enqueue(ctx, db.ProcessingQueueEntry{
		ID: "q-1", IngestionJobID: "ing-1", DocumentIdentifier: "doc-1",
		SourceType: db.SourceKindURL, Priority: db.PriorityNormal, QueuedAt: now,
	}))

	claimed, err := w.ClaimAndProcess(ctx)
	require.NoError(t, err)
	require.True(t, claimed)

	job, err := processingJobs.GetByID(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, db.ProcessingCompleted, job.Status)
	require.Equal(t, 100, job.Progress)

	document, err := documents.GetByID(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, document.ProcessingSuccess)
	require.True(t, *document.ProcessingSuccess)

	var remaining int
	require.NoError(t, conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM processing_queue`).Scan(&remaining))
	require.Equal(t, 0, remaining)
}

func TestWorker_ClaimAndProcessReturnsFalseOnEmptyQueue(t *testing.T) {
	w, _, _, _, _ := newWorkerFixture(t)
	claimed, err := w.ClaimAndProcess(context.Background())
	require.NoError(t, err)
	require.False(t, claimed)
}
