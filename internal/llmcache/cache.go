// Package llmcache implements the content-addressable LLM translation
// cache and the separate summary cache (component F). Translation keys
// are (document_id, source_hash, reading_level, prompt_hash,
// model_used); a unique-constraint race on insert is resolved by
// re-reading the winner rather than failing the caller.
package llmcache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"guidance-rag/internal/chunk"
	"guidance-rag/internal/db"
	"guidance-rag/internal/fingerprint"
	"guidance-rag/internal/shared/errs"
)

// Generator produces a translation for one chunk (or a whole document
// short enough to not need chunking). Swapping in internal/llmprovider's
// Client satisfies this without llmcache importing it directly.
type Generator interface {
	Translate(ctx context.Context, sourceText, readingLevel string) (translatedText string, err error)
}

// modelOutputLimits is the fixed per-model output-token table from spec
// §4.F; defaultOutputLimit covers any model not listed.
var modelOutputLimits = map[string]int{
	"gpt-4o":            16384,
	"gpt-4o-mini":       16384,
	"claude-3-5-sonnet": 8192,
	"gemini-1.5-pro":    8192,
	"gemini-1.5-flash":  8192,
}

const defaultOutputLimit = 4096

func outputLimitFor(model string) int {
	if limit, ok := modelOutputLimits[model]; ok {
		return limit
	}
	return defaultOutputLimit
}

// estimatedOutputExpansion mirrors spec §4.F's "≈ 1.2x input tokens" rule
// of thumb for deciding whether a document needs the large-document
// chunked path.
const estimatedOutputExpansion = 1.2

const largeDocumentThresholdFactor = 0.8

// Translator wraps the translation cache plus chunked-translation
// fan-out for large documents.
type Translator struct {
	repo      *db.TranslationCacheRepo
	generator Generator
	log       *zap.Logger
}

func NewTranslator(repo *db.TranslationCacheRepo, generator Generator, log *zap.Logger) *Translator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Translator{repo: repo, generator: generator, log: log}
}

// Result is the outcome of one Translate call, reporting the combined
// text plus the chunk-level accounting spec §4.F requires.
type Result struct {
	TranslatedText string
	ChunksProcessed int
	ChunksFromCache int
}

// Translate returns a translation of sourceText at readingLevel for
// model, consulting (and populating) the cache. Documents estimated to
// exceed the model's output budget are split via internal/chunk and
// translated chunk-by-chunk, each independently cache-keyed.
func (t *Translator) Translate(ctx context.Context, documentID, sourceText, readingLevel, promptHash, model string) (Result, error) {
	sourceHash := fingerprint.ContentHash(sourceText)
	estimatedOutputTokens := float64(chunk.EstimateTokens(sourceText)) * estimatedOutputExpansion
	budget := float64(outputLimitFor(model)) * largeDocumentThresholdFactor

	if estimatedOutputTokens <= budget {
		text, fromCache, err := t.translateOne(ctx, documentID, sourceHash, readingLevel, promptHash, model, sourceText)
		if err != nil {
			return Result{}, err
		}
		result := Result{TranslatedText: text, ChunksProcessed: 1}
		if fromCache {
			result.ChunksFromCache = 1
		}
		return result, nil
	}

	targetTokens := chunk.TranslationBudget(model, outputLimitFor(model))
	chunks, err := chunk.ChunkText(sourceText, targetTokens)
	if err != nil {
		return Result{}, fmt.Errorf("chunk large document for translation: %w", err)
	}

	translated := make([]string, len(chunks))
	fromCacheCount := 0
	for i, c := range chunks {
		chunkID := fmt.Sprintf("%s_chunk_%d", documentID, i)
		chunkHash := fingerprint.ContentHash(c.Text)
		text, fromCache, err := t.translateOne(ctx, chunkID, chunkHash, readingLevel, promptHash, model, c.Text)
		if err != nil {
			return Result{}, fmt.Errorf("translate chunk %d: %w", i, err)
		}
		translated[i] = text
		if fromCache {
			fromCacheCount++
		}
	}

	return Result{
		TranslatedText:  chunk.Combine(translated),
		ChunksProcessed: len(chunks),
		ChunksFromCache: fromCacheCount,
	}, nil
}

// translateOne looks up a single cache-keyed unit, generating and
// inserting on miss. It returns fromCache=true whenever the returned
// text came from a row already in the cache, whether that row existed
// before the call or was written by a concurrent winner of an insert
// race.
func (t *Translator) translateOne(ctx context.Context, keyID, sourceHash, readingLevel, promptHash, model, sourceText string) (string, bool, error) {
	entry, err := t.repo.Lookup(ctx, keyID, sourceHash, readingLevel, promptHash, model)
	if err == nil {
		return entry.TranslatedText, true, nil
	}
	if !errs.Is(err, errs.KindValidation) {
		return "", false, fmt.Errorf("lookup translation cache: %w", err)
	}

	return t.generateAndInsert(ctx, keyID, sourceHash, readingLevel, promptHash, model, sourceText, 0)
}

// generateAndInsert implements spec §4.F's race-handling contract: on a
// unique-constraint violation from Insert, re-read the row a concurrent
// writer just committed and return it; if the re-read still misses,
// recurse exactly once before surfacing an error.
func (t *Translator) generateAndInsert(ctx context.Context, keyID, sourceHash, readingLevel, promptHash, model, sourceText string, attempt int) (string, bool, error) {
	translatedText, err := t.generator.Translate(ctx, sourceText, readingLevel)
	if err != nil {
		return "", false, fmt.Errorf("generate translation: %w", err)
	}

	insertErr := t.repo.Insert(ctx, db.TranslationCacheEntry{
		ID:             db.NewID(),
		DocumentID:     keyID,
		SourceHash:     sourceHash,
		ReadingLevel:   readingLevel,
		PromptHash:     promptHash,
		ModelUsed:      model,
		TranslatedText: translatedText,
		GeneratedAt:    nowFunc(),
	})
	if insertErr == nil {
		return translatedText, false, nil
	}
	if !errs.Is(insertErr, errs.KindUniqueViolation) {
		return "", false, fmt.Errorf("insert translation cache entry: %w", insertErr)
	}

	entry, lookupErr := t.repo.Lookup(ctx, keyID, sourceHash, readingLevel, promptHash, model)
	if lookupErr == nil {
		return entry.TranslatedText, true, nil
	}
	if !errs.Is(lookupErr, errs.KindValidation) {
		return "", false, fmt.Errorf("re-read translation cache after race: %w", lookupErr)
	}
	if attempt >= 1 {
		return "", false, errs.New(errs.KindProvider, "translation cache race did not resolve after retry")
	}

	t.log.Warn("translation cache race did not yield a readable row, recursing once",
		zap.String("document_id", keyID))
	return t.generateAndInsert(ctx, keyID, sourceHash, readingLevel, promptHash, model, sourceText, attempt+1)
}
