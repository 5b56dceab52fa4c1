// Package retrieval implements the Retrieval Pipeline (component J):
// query preprocessing, dense vector search, optional BM25 hybrid fusion,
// and an optional reranking stage, wired in the order spec §4.J.2 lays
// out. It is the one component that reaches across vectorstore and
// lexical rather than owning its own storage.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"guidance-rag/internal/embedding"
	"guidance-rag/internal/lexical"
	"guidance-rag/internal/vectorstore"
)

// Config toggles the optional pipeline stages per spec §4.J.2's
// feature-flag framing: each stage is independently switchable so a
// deployment can run dense-only, hybrid, or hybrid+rerank.
type Config struct {
	ExpandAcronyms bool
	HybridSearch   bool
	Reranking      bool

	// DenseCandidates is how many dense hits to pull before fusion
	// (defaults to TopK). LexicalCandidates is the BM25-side equivalent
	// (defaults to 5*TopK, per the hybrid stage's own over-fetch ratio).
	DenseCandidates   int
	LexicalCandidates int

	RRFK      int
	RRFWeight float64
}

// DefaultConfig enables acronym expansion and hybrid search but not
// reranking, matching the baseline deployment shape in spec §4.J.
func DefaultConfig() Config {
	return Config{
		ExpandAcronyms: true,
		HybridSearch:   true,
		Reranking:      false,
		RRFK:           defaultRRFK,
		RRFWeight:      defaultRRFWeight,
	}
}

// Document is one retrieved chunk, annotated with the score it was
// ultimately ranked by (dense cosine similarity in dense-only mode, RRF
// score in hybrid mode — never both: see FuseRRF's doc comment).
type Document struct {
	PointID      string
	DocumentID   string
	ChunkIndex   int
	ChunkText    string
	Title        string
	URL          string
	DocumentType string
	Score        float64
}

// Metadata describes how a Query call was actually executed, per spec
// §4.J.2's required response fields.
type Metadata struct {
	TookMS            int64
	TotalResults      int
	QueryPreprocessed bool
	HybridSearchUsed  bool
	RerankingUsed     bool
}

// Pipeline wires the embedding engine, dense vector gateway, lexical
// index, and an optional reranker into one retrieval entry point.
type Pipeline struct {
	embedder embedding.EmbeddingEngine
	vectors  *vectorstore.Gateway
	lexical  *lexical.Index
	reranker Reranker
	cfg      Config
	log      *zap.Logger
}

// New constructs a Pipeline. lexicalIdx and reranker may be nil: a nil
// lexicalIdx forces dense-only search regardless of cfg.HybridSearch; a
// nil reranker is replaced with NoopReranker.
func New(embedder embedding.EmbeddingEngine, vectors *vectorstore.Gateway, lexicalIdx *lexical.Index, reranker Reranker, cfg Config, log *zap.Logger) *Pipeline {
	if reranker == nil {
		reranker = NoopReranker{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		embedder: embedder,
		vectors:  vectors,
		lexical:  lexicalIdx,
		reranker: reranker,
		cfg:      cfg,
		log:      log,
	}
}

// nowFunc is overridden in tests so Query's took_ms reporting doesn't
// depend on wall-clock time.
var nowFunc = time.Now

// Query runs one retrieval: preprocess, embed, dense search, optional
// hybrid fusion, optional rerank, truncate to topK.
func (p *Pipeline) Query(ctx context.Context, query string, topK int) ([]Document, Metadata, error) {
	if topK <= 0 {
		topK = 10
	}
	start := nowFunc()
	meta := Metadata{}

	searchQuery := query
	if p.cfg.ExpandAcronyms {
		expanded, _ := ExpandAcronyms(query)
		if expanded != query {
			meta.QueryPreprocessed = true
		}
		searchQuery = expanded
	}

	denseCandidates := p.cfg.DenseCandidates
	if denseCandidates <= 0 {
		denseCandidates = topK
	}
	lexCandidates := p.cfg.LexicalCandidates
	if lexCandidates <= 0 {
		lexCandidates = topK * 5
	}

	queryVec, err := p.embedder.Embed(ctx, searchQuery)
	if err != nil {
		return nil, meta, fmt.Errorf("embed query: %w", err)
	}

	dense, err := p.vectors.Search(ctx, queryVec, denseCandidates)
	if err != nil {
		return nil, meta, fmt.Errorf("dense search: %w", err)
	}

	byPoint := make(map[string]vectorstore.ScoredChunk, len(dense))
	for _, d := range dense {
		byPoint[d.PointID] = d
	}

	var docs []Document
	useHybrid := p.cfg.HybridSearch && p.lexical != nil

	if useHybrid {
		sparse, err := p.lexical.Query(ctx, searchQuery, lexCandidates)
		if err != nil {
			return nil, meta, fmt.Errorf("lexical search: %w", err)
		}

		denseRanks := make(map[string]int, len(dense))
		for _, d := range dense {
			denseRanks[d.PointID] = d.Rank - 1 // Gateway.Search assigns 1-based ranks
		}
		bm25Ranks := make(map[string]int, len(sparse))
		for _, s := range sparse {
			bm25Ranks[s.PointID] = s.Rank
			if _, ok := byPoint[s.PointID]; !ok {
				// Lexical-only hit: backfill chunk text/metadata from the
				// vector store so fused results are uniformly shaped.
				rec, err := p.vectors.GetByPointID(ctx, s.PointID)
				if err != nil {
					p.log.Warn("dropping lexical-only hit missing from vector store",
						zap.String("point_id", s.PointID), zap.Error(err))
					continue
				}
				byPoint[s.PointID] = vectorstore.ScoredChunk{ChunkRecord: rec}
			}
		}

		fused := FuseRRF(bm25Ranks, denseRanks, p.cfg.RRFK, p.cfg.RRFWeight)
		meta.HybridSearchUsed = true

		docs = make([]Document, 0, len(fused))
		for _, f := range fused {
			rec, ok := byPoint[f.PointID]
			if !ok {
				continue
			}
			docs = append(docs, documentFromScoredChunk(rec, f.Score))
		}
	} else {
		docs = make([]Document, 0, len(dense))
		for _, d := range dense {
			docs = append(docs, documentFromScoredChunk(d, d.Score))
		}
	}

	if p.cfg.Reranking {
		candidates := make([]RerankCandidate, len(docs))
		for i, d := range docs {
			candidates[i] = RerankCandidate{PointID: d.PointID, Text: d.ChunkText, Score: d.Score}
		}
		reranked, err := p.reranker.Rerank(ctx, searchQuery, candidates)
		if err != nil {
			return nil, meta, fmt.Errorf("rerank: %w", err)
		}
		docs = applyRerank(docs, reranked)
		meta.RerankingUsed = true
	}

	if len(docs) > topK {
		docs = docs[:topK]
	}
	meta.TotalResults = len(docs)
	meta.TookMS = nowFunc().Sub(start).Milliseconds()
	return docs, meta, nil
}

func documentFromScoredChunk(c vectorstore.ScoredChunk, score float64) Document {
	return Document{
		PointID:      c.PointID,
		DocumentID:   c.DocumentID,
		ChunkIndex:   c.ChunkIndex,
		ChunkText:    c.ChunkText,
		Title:        c.Title,
		URL:          c.URL,
		DocumentType: c.DocumentType,
		Score:        score,
	}
}

// applyRerank reorders docs to match the reranked candidate order,
// overwriting each Document's Score with the reranker's score.
func applyRerank(docs []Document, reranked []RerankCandidate) []Document {
	byPoint := make(map[string]Document, len(docs))
	for _, d := range docs {
		byPoint[d.PointID] = d
	}
	out := make([]Document, 0, len(reranked))
	for _, r := range reranked {
		d, ok := byPoint[r.PointID]
		if !ok {
			continue
		}
		d.Score = r.Score
		out = append(out, d)
	}
	return out
}
