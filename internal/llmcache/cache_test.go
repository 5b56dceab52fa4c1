package llmcache

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/require"

	"guidance-rag/internal/db"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.RunMigrations(context.Background(), conn, nil))
	return conn
}

type countingGenerator struct {
	calls int
	text  string
}

func (g *countingGenerator) Translate(_ context.Context, sourceText, _ string) (string, error) {
	g.calls++
	return g.text + ":" + sourceText, nil
}

func TestTranslator_CacheHitSkipsGeneration(t *testing.T) {
	conn := newTestDB(t)
	repo := db.NewTranslationCacheRepo(conn)
	gen := &countingGenerator{text: "translated"}
	tr := NewTranslator(repo, gen, nil)
	ctx := context.Background()

	r1, err := tr.Translate(ctx, "doc-1", "short source text", "B1", "prompt-hash-1", "gemini-1.5-flash")
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)
	require.Equal(t, 0, r1.ChunksFromCache)

	r2, err := tr.Translate(ctx, "doc-1", "short source text", "B1", "prompt-hash-1", "gemini-1.5-flash")
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls, "second call should hit cache, not regenerate")
	require.Equal(t, 1, r2.ChunksFromCache)
	require.Equal(t, r1.TranslatedText, r2.TranslatedText)
}

func TestTranslator_DifferentReadingLevelIsDifferentKey(t *testing.T) {
	conn := newTestDB(t)
	repo := db.NewTranslationCacheRepo(conn)
	gen := &countingGenerator{text: "translated"}
	tr := NewTranslator(repo, gen, nil)
	ctx := context.Background()

	_, err := tr.Translate(ctx, "doc-1", "source", "B1", "prompt-hash-1", "gemini-1.5-flash")
	require.NoError(t, err)
	_, err = tr.Translate(ctx, "doc-1", "source", "B2", "prompt-hash-1", "gemini-1.5-flash")
	require.NoError(t, err)
	require.Equal(t, 2, gen.calls)
}

func TestTranslator_LargeDocumentSplitsIntoChunks(t *testing.T) {
	conn := newTestDB(t)
	repo := db.NewTranslationCacheRepo(conn)
	gen := &countingGenerator{text: "t"}
	tr := NewTranslator(repo, gen, nil)
	ctx := context.Background()

	var sb strings.Builder
	for i := 0; i < 2000; i++ {
		sb.WriteString("This is a guidance sentence about eligibility. ")
	}

	result, err := tr.Translate(ctx, "doc-big", sb.String(), "B1", "prompt-hash-1", "gpt-4o-mini")
	require.NoError(t, err)
	require.Greater(t, result.ChunksProcessed, 1)
	require.NotEmpty(t, result.TranslatedText)
}

type fixedSummaryGenerator struct {
	words int
}

func (g fixedSummaryGenerator) Summarize(_ context.Context, _ string) (string, string, error) {
	words := make([]string, g.words)
	for i := range words {
		words[i] = "word"
	}
	return strings.Join(words, " "), "gpt-4o-mini", nil
}

func TestSummaryCache_GeneratesAndCaches(t *testing.T) {
	conn := newTestDB(t)
	repo := db.NewSummaryCacheRepo(conn)
	cache := NewSummaryCache(repo, fixedSummaryGenerator{words: 200})
	ctx := context.Background()

	text, err := cache.Get(ctx, "doc-1", "source text", "user-1")
	require.NoError(t, err)
	require.Len(t, strings.Fields(text), 200)

	text2, err := cache.Get(ctx, "doc-1", "source text", "user-1")
	require.NoError(t, err)
	require.Equal(t, text, text2)
}

func TestSummaryCache_RejectsOutOfRangeWordCount(t *testing.T) {
	conn := newTestDB(t)
	repo := db.NewSummaryCacheRepo(conn)
	cache := NewSummaryCache(repo, fixedSummaryGenerator{words: 50})
	_, err := cache.Get(context.Background(), "doc-1", "source text", "user-1")
	require.Error(t, err)
}
