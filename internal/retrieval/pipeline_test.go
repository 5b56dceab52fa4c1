package retrieval

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"

	"guidance-rag/internal/lexical"
	"guidance-rag/internal/vectorstore"
)

// fakeEmbedder always returns the same vector regardless of input text,
// which is enough to drive Pipeline's orchestration logic in tests: the
// dense ranking behavior under test comes from the stored chunk vectors,
// not from the query embedding itself.
type fakeEmbedder struct {
	vec []float32
}

func (f fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) { return f.vec, nil }
func (f fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}
func (f fakeEmbedder) Dimensions() int { return len(f.vec) }
func (f fakeEmbedder) Name() string    { return "fake" }

func newPipelineFixture(t *testing.T) (*vectorstore.Gateway, *lexical.Index) {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	gw, err := vectorstore.New(context.Background(), conn, 4, false, nil)
	require.NoError(t, err)
	idx, err := lexical.New(context.Background(), conn)
	require.NoError(t, err)
	return gw, idx
}

func TestPipeline_DenseOnly(t *testing.T) {
	gw, idx := newPipelineFixture(t)
	ctx := context.Background()

	require.NoError(t, gw.Upsert(ctx, []vectorstore.ChunkRecord{
		{PointID: "p0", DocumentID: "doc-1", ChunkIndex: 0, ChunkText: "eligibility rules", Embedding: []float32{1, 0, 0, 0}},
		{PointID: "p1", DocumentID: "doc-1", ChunkIndex: 1, ChunkText: "unrelated", Embedding: []float32{-1, 0, 0, 0}},
	}))

	cfg := Config{ExpandAcronyms: false, HybridSearch: false}
	p := New(fakeEmbedder{vec: []float32{1, 0, 0, 0}}, gw, idx, nil, cfg, nil)

	docs, meta, err := p.Query(ctx, "eligibility", 10)
	require.NoError(t, err)
	require.False(t, meta.HybridSearchUsed)
	require.Len(t, docs, 2)
	require.Equal(t, "p0", docs[0].PointID)
}

func TestPipeline_HybridFusesBothSides(t *testing.T) {
	gw, idx := newPipelineFixture(t)
	ctx := context.Background()

	require.NoError(t, gw.Upsert(ctx, []vectorstore.ChunkRecord{
		{PointID: "p0", DocumentID: "doc-1", ChunkIndex: 0, ChunkText: "visa eligibility rules for sponsorship", Embedding: []float32{1, 0, 0, 0}},
		{PointID: "p1", DocumentID: "doc-1", ChunkIndex: 1, ChunkText: "passport renewal photo guidance", Embedding: []float32{0.9, 0.1, 0, 0}},
	}))
	require.NoError(t, idx.AddDocument(ctx, "p0", "doc-1", "visa eligibility rules for sponsorship"))
	require.NoError(t, idx.AddDocument(ctx, "p1", "doc-1", "passport renewal photo guidance"))

	cfg := DefaultConfig()
	p := New(fakeEmbedder{vec: []float32{1, 0, 0, 0}}, gw, idx, nil, cfg, nil)

	docs, meta, err := p.Query(ctx, "visa eligibility", 10)
	require.NoError(t, err)
	require.True(t, meta.HybridSearchUsed)
	require.NotEmpty(t, docs)
	require.Equal(t, "p0", docs[0].PointID)
	// Score must be the RRF score, not raw dense cosine similarity.
	require.Less(t, docs[0].Score, 1.0)
}

func TestPipeline_AcronymExpansionFlagsMetadata(t *testing.T) {
	gw, idx := newPipelineFixture(t)
	ctx := context.Background()
	require.NoError(t, gw.Upsert(ctx, []vectorstore.ChunkRecord{
		{PointID: "p0", DocumentID: "doc-1", ChunkIndex: 0, ChunkText: "ILR guidance", Embedding: []float32{1, 0, 0, 0}},
	}))

	cfg := Config{ExpandAcronyms: true, HybridSearch: false}
	p := New(fakeEmbedder{vec: []float32{1, 0, 0, 0}}, gw, idx, nil, cfg, nil)

	_, meta, err := p.Query(ctx, "ILR process", 10)
	require.NoError(t, err)
	require.True(t, meta.QueryPreprocessed)
}

func TestPipeline_RerankingOverwritesScore(t *testing.T) {
	gw, idx := newPipelineFixture(t)
	ctx := context.Background()
	require.NoError(t, gw.Upsert(ctx, []vectorstore.ChunkRecord{
		{PointID: "p0", DocumentID: "doc-1", ChunkIndex: 0, ChunkText: "a", Embedding: []float32{1, 0, 0, 0}},
		{PointID: "p1", DocumentID: "doc-1", ChunkIndex: 1, ChunkText: "b", Embedding: []float32{0.9, 0.1, 0, 0}},
	}))

	cfg := Config{ExpandAcronyms: false, HybridSearch: false, Reranking: true}
	p := New(fakeEmbedder{vec: []float32{1, 0, 0, 0}}, gw, idx, flipReranker{}, cfg, nil)

	docs, meta, err := p.Query(ctx, "query", 10)
	require.NoError(t, err)
	require.True(t, meta.RerankingUsed)
	require.Len(t, docs, 2)
	require.Equal(t, "p1", docs[0].PointID)
	require.Equal(t, 99.0, docs[0].Score)
}

// flipReranker reverses candidate order and stamps a distinctive score,
// so tests can tell the reranked order/score apart from the dense pass.
type flipReranker struct{}

func (flipReranker) Rerank(_ context.Context, _ string, candidates []RerankCandidate) ([]RerankCandidate, error) {
	out := make([]RerankCandidate, len(candidates))
	for i, c := range candidates {
		c.Score = 99.0
		out[len(candidates)-1-i] = c
	}
	return out, nil
}
