package embedding

import "testing"

func TestSelectTaskTypeQuery(t *testing.T) {
	if got := SelectTaskType(ContentTypeQuery); got != "RETRIEVAL_QUERY" {
		t.Fatalf("SelectTaskType(query)=%q, want RETRIEVAL_QUERY", got)
	}
}

func TestSelectTaskTypeGuidanceDocument(t *testing.T) {
	if got := SelectTaskType(ContentTypeGuidanceDocument); got != "RETRIEVAL_DOCUMENT" {
		t.Fatalf("SelectTaskType(guidance_document)=%q, want RETRIEVAL_DOCUMENT", got)
	}
}

func TestSelectTaskTypeUnknownDefaultsToSemanticSimilarity(t *testing.T) {
	if got := SelectTaskType(ContentType("something_else")); got != "SEMANTIC_SIMILARITY" {
		t.Fatalf("SelectTaskType(unknown)=%q, want SEMANTIC_SIMILARITY", got)
	}
}
