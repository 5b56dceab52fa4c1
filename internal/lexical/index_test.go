package lexical

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	idx, err := New(context.Background(), conn)
	require.NoError(t, err)
	return idx
}

func TestIndex_QueryRanksMoreRelevantHigher(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.AddDocument(ctx, "p1", "doc-1", "eligibility rules for a visa application"))
	require.NoError(t, idx.AddDocument(ctx, "p2", "doc-2", "how to renew a passport photo"))
	require.NoError(t, idx.AddDocument(ctx, "p3", "doc-3", "visa eligibility rules guidance"))

	results, err := idx.Query(ctx, "visa eligibility rules", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "p3", results[0].PointID)
	require.Equal(t, 0, results[0].Rank)
	for _, r := range results {
		require.NotEqual(t, "p2", r.PointID)
	}
}

func TestIndex_ReindexReplacesPostings(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.AddDocument(ctx, "p1", "doc-1", "cats and dogs"))
	require.NoError(t, idx.AddDocument(ctx, "p1", "doc-1", "only birds now"))

	results, err := idx.Query(ctx, "cats", 10)
	require.NoError(t, err)
	require.Empty(t, results)

	results, err = idx.Query(ctx, "birds", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestIndex_EmptyQueryReturnsNoResults(t *testing.T) {
	idx := newTestIndex(t)
	results, err := idx.Query(context.Background(), "", 10)
	require.NoError(t, err)
	require.Empty(t, results)
}
