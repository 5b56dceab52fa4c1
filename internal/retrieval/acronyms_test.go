package retrieval

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandAcronyms_WholeWordCaseInsensitive(t *testing.T) {
	expanded, original := ExpandAcronyms("how do I get ILR after BNO visa")
	require.Equal(t, "how do I get ILR after BNO visa", original)
	require.Contains(t, expanded, "Indefinite Leave to Remain")
	require.Contains(t, expanded, "British National (Overseas)")
}

func TestExpandAcronyms_DoesNotMatchSubstring(t *testing.T) {
	expanded, _ := ExpandAcronyms("HOliday plans")
	require.Equal(t, "HOliday plans", expanded)
}

func TestExpandAcronyms_NoAcronymsLeavesQueryUnchanged(t *testing.T) {
	expanded, original := ExpandAcronyms("general visa guidance")
	require.Equal(t, original, expanded)
}
