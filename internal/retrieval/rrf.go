package retrieval

import "sort"

const (
	// defaultRRFK is the RRF rank-smoothing constant from spec §4.J.3.
	defaultRRFK = 60
	// defaultRRFWeight is the BM25-side weight w in
	// rrf(d) = w/(k+bm25_rank) + (1-w)/(k+dense_rank).
	defaultRRFWeight = 0.3
	// absentRank stands in for a document's rank on a side where it did
	// not appear at all, per spec's bm25_rank=999 convention for a doc
	// missing from BM25 (effectively zero contribution from that side).
	// Applied symmetrically to an absent dense rank.
	absentRank = 999
)

// FusedResult is one document after Reciprocal Rank Fusion. Score is
// always the RRF score, never the original dense or sparse score: spec
// §4.J.3 is explicit that hybrid mode must overwrite score, not append
// to it, so callers never see a dense/sparse value under this field.
type FusedResult struct {
	PointID string
	Score   float64
}

// FuseRRF combines 0-based BM25 ranks and 0-based dense ranks into a
// single score per point, per spec §4.J.3:
//
//	rrf(d) = w/(k+bm25_rank(d)) + (1-w)/(k+dense_rank(d))
//
// A point absent from one side is treated as ranked at absentRank on
// that side rather than excluded, so single-side hits still surface.
// k and w fall back to defaultRRFK/defaultRRFWeight when <= 0.
func FuseRRF(bm25Ranks, denseRanks map[string]int, k int, w float64) []FusedResult {
	if k <= 0 {
		k = defaultRRFK
	}
	if w <= 0 {
		w = defaultRRFWeight
	}

	seen := make(map[string]bool, len(bm25Ranks)+len(denseRanks))
	for id := range bm25Ranks {
		seen[id] = true
	}
	for id := range denseRanks {
		seen[id] = true
	}

	results := make([]FusedResult, 0, len(seen))
	for id := range seen {
		bRank, ok := bm25Ranks[id]
		if !ok {
			bRank = absentRank
		}
		dRank, ok := denseRanks[id]
		if !ok {
			dRank = absentRank
		}
		score := w/(float64(k+bRank)) + (1-w)/(float64(k+dRank))
		results = append(results, FusedResult{PointID: id, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].PointID < results[j].PointID
	})
	return results
}
