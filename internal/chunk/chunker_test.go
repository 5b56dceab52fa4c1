package chunk

import (
	"strings"
	"testing"
)

func TestChunkTextSplitsOnHeaders(t *testing.T) {
	text := "## Introduction\nThis is the intro. It has two sentences.\n\n" +
		"## Eligibility\nYou must be over 18. You must also be a resident."

	chunks, err := ChunkText(text, DefaultTargetTokens)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks across 2 sections, got %d", len(chunks))
	}

	var rebuilt strings.Builder
	for _, c := range chunks {
		if c.Text != text[c.Start:c.End] {
			t.Fatalf("chunk text does not match byte offsets: %q vs %q", c.Text, text[c.Start:c.End])
		}
		rebuilt.WriteString(c.Text)
	}
}

func TestChunkTextRespectsBudget(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("This is a guidance sentence about visas and applications. ")
	}

	chunks, err := ChunkText(sb.String(), 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected text to be split into multiple chunks under a small budget, got %d", len(chunks))
	}
	for _, c := range chunks {
		if EstimateTokens(c.Text) > 50*2 {
			t.Fatalf("chunk wildly exceeds budget: %d tokens in chunk %d", EstimateTokens(c.Text), c.Index)
		}
	}
}

func TestChunkTextEmpty(t *testing.T) {
	chunks, err := ChunkText("", DefaultTargetTokens)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty text, got %d", len(chunks))
	}
}

func TestChunkIndicesAreSequential(t *testing.T) {
	text := "## A\nSentence one. Sentence two.\n## B\nSentence three. Sentence four."
	chunks, err := ChunkText(text, DefaultTargetTokens)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Fatalf("expected sequential indices, got %d at position %d", c.Index, i)
		}
	}
}

func TestTranslationBudgetAppliesSafetyAndExpansion(t *testing.T) {
	budget := TranslationBudget("unknown-model", 1000)
	// 1000 * 0.8 / 1.2 = 666.67, truncated to an int.
	want := 666
	if budget != want {
		t.Fatalf("expected %d, got %d", want, budget)
	}
}

func TestCombineKeepsFirstChunkVerbatim(t *testing.T) {
	chunks := []string{
		"# Document Title\n\n## Intro\nFirst part.",
		"# Document Title\n\n## Next Part\nSecond part.",
	}
	out := Combine(chunks)
	if !strings.HasPrefix(out, "# Document Title\n\n## Intro\nFirst part.") {
		t.Fatalf("expected first chunk kept verbatim, got: %s", out)
	}
	if strings.Count(out, "# Document Title") != 1 {
		t.Fatalf("expected leading header dropped from subsequent chunks, got: %s", out)
	}
	if !strings.Contains(out, "## Next Part") {
		t.Fatalf("expected second chunk's section heading retained, got: %s", out)
	}
}

func TestCombineSingleChunk(t *testing.T) {
	out := Combine([]string{"only chunk"})
	if out != "only chunk" {
		t.Fatalf("expected single chunk returned unchanged, got: %s", out)
	}
}
