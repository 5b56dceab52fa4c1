package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFuseRRF_TopDocumentAgreesOnBothSides(t *testing.T) {
	bm25Ranks := map[string]int{"a": 0, "b": 1, "c": 2}
	denseRanks := map[string]int{"a": 0, "b": 2, "c": 1}

	fused := FuseRRF(bm25Ranks, denseRanks, 60, 0.3)
	require.Len(t, fused, 3)
	require.Equal(t, "a", fused[0].PointID)
}

func TestFuseRRF_DefaultsApplyWhenKAndWAreZero(t *testing.T) {
	bm25Ranks := map[string]int{"a": 0}
	denseRanks := map[string]int{"a": 0}

	fused := FuseRRF(bm25Ranks, denseRanks, 0, 0)
	require.Len(t, fused, 1)
	expected := defaultRRFWeight/float64(defaultRRFK) + (1-defaultRRFWeight)/float64(defaultRRFK)
	require.InDelta(t, expected, fused[0].Score, 1e-9)
}

func TestFuseRRF_SingleSideHitStillSurfaces(t *testing.T) {
	bm25Ranks := map[string]int{"sparse-only": 0}
	denseRanks := map[string]int{"dense-only": 0}

	fused := FuseRRF(bm25Ranks, denseRanks, 60, 0.3)
	require.Len(t, fused, 2)

	scores := map[string]float64{}
	for _, f := range fused {
		scores[f.PointID] = f.Score
	}
	require.Greater(t, scores["sparse-only"], 0.0)
	require.Greater(t, scores["dense-only"], 0.0)
	// dense-only carries the larger weight (1-w = 0.7 vs w = 0.3) so it
	// should outrank a BM25-only hit sitting at the same rank.
	require.Greater(t, scores["dense-only"], scores["sparse-only"])
}

func TestFuseRRF_ScoreOverwritesAnyPriorNotion(t *testing.T) {
	// The fused score is computed purely from rank position, never from
	// an input score field — FuseRRF's signature doesn't even accept one.
	bm25Ranks := map[string]int{"a": 5}
	denseRanks := map[string]int{"a": 0}
	fused := FuseRRF(bm25Ranks, denseRanks, 60, 0.3)
	require.Len(t, fused, 1)
	require.Equal(t, 0.3/65+0.7/60, fused[0].Score)
}
