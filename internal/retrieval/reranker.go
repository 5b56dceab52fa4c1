package retrieval

import "context"

// RerankCandidate is one document passed into a Reranker, carrying
// enough context (query-relevant text plus its pre-rerank score) for a
// cross-encoder or LLM judge to reorder it.
type RerankCandidate struct {
	PointID string
	Text    string
	Score   float64
}

// Reranker reorders a candidate set after retrieval and fusion. The
// knowledge-graph-aware and cross-encoder implementations spec'd for
// component J.4 are out of scope here (see Non-goals); Reranker exists
// as the injection point so a Pipeline can be wired to one later
// without touching its orchestration logic.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankCandidate, error)
}

// NoopReranker returns candidates unchanged. It is the Pipeline's
// default when no Reranker is configured.
type NoopReranker struct{}

func (NoopReranker) Rerank(_ context.Context, _ string, candidates []RerankCandidate) ([]RerankCandidate, error) {
	return candidates, nil
}
