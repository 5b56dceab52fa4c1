package llmcache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guidance-rag/internal/db"
	"guidance-rag/internal/shared/errs"
)

const (
	minSummaryWords = 150
	maxSummaryWords = 250
	summaryTTL      = 24 * time.Hour
)

// SummaryGenerator produces a plain-English summary of a document.
type SummaryGenerator interface {
	Summarize(ctx context.Context, sourceText string) (summaryText, model string, err error)
}

// SummaryCache wraps db.SummaryCacheRepo with the generate-on-miss flow
// and the 150-250 word-count validity rule from spec §4.F.
type SummaryCache struct {
	repo      *db.SummaryCacheRepo
	generator SummaryGenerator
}

func NewSummaryCache(repo *db.SummaryCacheRepo, generator SummaryGenerator) *SummaryCache {
	return &SummaryCache{repo: repo, generator: generator}
}

// Get returns the cached summary for documentID if one is unexpired and
// valid, generating and inserting a fresh one from sourceText otherwise.
// A generated summary whose word count falls outside [150, 250] is
// rejected rather than cached.
func (c *SummaryCache) Get(ctx context.Context, documentID, sourceText, userID string) (string, error) {
	entry, err := c.repo.Get(ctx, documentID, nowFunc())
	if err == nil {
		return entry.SummaryText, nil
	}
	if !errs.Is(err, errs.KindValidation) {
		return "", fmt.Errorf("lookup summary cache: %w", err)
	}

	summaryText, model, err := c.generator.Summarize(ctx, sourceText)
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}

	wordCount := len(strings.Fields(summaryText))
	if wordCount < minSummaryWords || wordCount > maxSummaryWords {
		return "", errs.New(errs.KindValidation,
			fmt.Sprintf("generated summary has %d words, outside [%d, %d]", wordCount, minSummaryWords, maxSummaryWords))
	}

	now := nowFunc()
	insertErr := c.repo.Insert(ctx, db.SummaryCacheEntry{
		ID:          db.NewID(),
		DocumentID:  documentID,
		SummaryText: summaryText,
		WordCount:   wordCount,
		ModelUsed:   model,
		GeneratedAt: now,
		ExpiresAt:   now.Add(summaryTTL),
		UserID:      userID,
	})
	if insertErr != nil {
		return "", fmt.Errorf("insert summary cache entry: %w", insertErr)
	}
	return summaryText, nil
}

// EvictExpired sweeps every summary cache row whose TTL has passed,
// implementing eviction as an explicit call rather than an LRU the
// cache maintains itself.
func (c *SummaryCache) EvictExpired(ctx context.Context) (int64, error) {
	return c.repo.EvictExpired(ctx, nowFunc())
}
