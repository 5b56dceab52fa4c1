package vectorstore

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, quantized bool) (*Gateway, *sql.DB) {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	gw, err := New(context.Background(), conn, 4, quantized, nil)
	require.NoError(t, err)
	return gw, conn
}

func TestGateway_UpsertAndScroll(t *testing.T) {
	gw, _ := newTestGateway(t, false)
	ctx := context.Background()

	records := []ChunkRecord{
		{PointID: "p1", DocumentID: "doc-1", ChunkIndex: 1, ChunkText: "second", Embedding: []float32{0, 1, 0, 0}},
		{PointID: "p0", DocumentID: "doc-1", ChunkIndex: 0, ChunkText: "first", Embedding: []float32{1, 0, 0, 0}},
	}
	require.NoError(t, gw.Upsert(ctx, records))

	chunks, err := gw.ScrollByDocumentID(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, 0, chunks[0].ChunkIndex)
	require.Equal(t, "first", chunks[0].ChunkText)
	require.Equal(t, 1, chunks[1].ChunkIndex)
}

func TestGateway_UpsertIsIdempotent(t *testing.T) {
	gw, _ := newTestGateway(t, false)
	ctx := context.Background()

	rec := ChunkRecord{PointID: "p0", DocumentID: "doc-1", ChunkIndex: 0, ChunkText: "v1", Embedding: []float32{1, 0, 0, 0}}
	require.NoError(t, gw.Upsert(ctx, []ChunkRecord{rec}))
	rec.ChunkText = "v2"
	require.NoError(t, gw.Upsert(ctx, []ChunkRecord{rec}))

	n, err := gw.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	chunks, err := gw.ScrollByDocumentID(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, "v2", chunks[0].ChunkText)
}

func TestGateway_Search(t *testing.T) {
	for _, quantized := range []bool{false, true} {
		gw, _ := newTestGateway(t, quantized)
		ctx := context.Background()

		records := []ChunkRecord{
			{PointID: "close", DocumentID: "doc-1", ChunkIndex: 0, Embedding: []float32{1, 0, 0, 0}},
			{PointID: "far", DocumentID: "doc-1", ChunkIndex: 1, Embedding: []float32{-1, 0, 0, 0}},
			{PointID: "mid", DocumentID: "doc-1", ChunkIndex: 2, Embedding: []float32{0.9, 0.1, 0, 0}},
		}
		require.NoError(t, gw.Upsert(ctx, records))

		results, err := gw.Search(ctx, []float32{1, 0, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		require.Equal(t, "close", results[0].PointID)
		require.Equal(t, 1, results[0].Rank)
	}
}

func TestGateway_CollectionInfo(t *testing.T) {
	gw, _ := newTestGateway(t, true)
	info, err := gw.CollectionInfo(context.Background())
	require.NoError(t, err)
	require.True(t, info.BinaryQuantized)
	require.Equal(t, 4, info.Dimensions)
	require.Equal(t, 0, info.PointsCount)
}
