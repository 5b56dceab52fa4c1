package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"guidance-rag/internal/llmprovider"
	"guidance-rag/internal/retrieval"
)

// defaultLLMModel is used when the configured LLM model is empty.
const defaultLLMModel = "gpt-4o-mini"

func modelOrDefault(model string) string {
	if model == "" {
		return defaultLLMModel
	}
	return model
}

// llmTranslator adapts internal/llmprovider.Client to llmcache.Generator,
// so the content-addressable translation cache never imports the
// provider package directly (it only knows the Generator interface).
type llmTranslator struct {
	client *llmprovider.Client
	model  string
}

func (t *llmTranslator) Translate(ctx context.Context, sourceText, readingLevel string) (string, error) {
	prompt := fmt.Sprintf(
		"Rewrite the following UK government guidance text for a reading level of %s, preserving every factual detail and eligibility rule:\n\n%s",
		readingLevel, sourceText)
	res, err := t.client.Complete(ctx, llmprovider.ChatRequest{
		Model:       modelOrDefault(t.model),
		Messages:    []llmprovider.Message{{Role: "user", Content: prompt}},
		MaxTokens:   4096,
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

// llmSummarizer adapts internal/llmprovider.Client to
// llmcache.SummaryGenerator.
type llmSummarizer struct {
	client *llmprovider.Client
	model  string
}

func (s *llmSummarizer) Summarize(ctx context.Context, sourceText string) (string, string, error) {
	prompt := fmt.Sprintf(
		"Summarize the following UK government guidance in plain English, between 150 and 250 words:\n\n%s",
		sourceText)
	model := modelOrDefault(s.model)
	res, err := s.client.Complete(ctx, llmprovider.ChatRequest{
		Model:       model,
		Messages:    []llmprovider.Message{{Role: "user", Content: prompt}},
		MaxTokens:   1024,
		Temperature: 0.3,
	})
	if err != nil {
		return "", "", err
	}
	return res.Content, res.Model, nil
}

// llmReranker adapts internal/llmprovider.Client to retrieval.Reranker
// by asking the model to score each candidate 0-100 against the query
// and re-sorting on the parsed score. It is the LLM-reranker half of
// spec §4.J.5's "cross-encoder or LLM reranker" choice — no cross-encoder
// model ships in this corpus, so the LLM path is the one wired.
type llmReranker struct {
	client *llmprovider.Client
	model  string
}

func (r *llmReranker) Rerank(ctx context.Context, query string, candidates []retrieval.RerankCandidate) ([]retrieval.RerankCandidate, error) {
	out := make([]retrieval.RerankCandidate, len(candidates))
	copy(out, candidates)

	for i := range out {
		prompt := fmt.Sprintf(
			"Query: %s\n\nPassage:\n%s\n\nOn a scale of 0-100, how relevant is this passage to the query? Respond with only the number.",
			query, out[i].Text)
		res, err := r.client.Complete(ctx, llmprovider.ChatRequest{
			Model:       modelOrDefault(r.model),
			Messages:    []llmprovider.Message{{Role: "user", Content: prompt}},
			MaxTokens:   8,
			Temperature: 0,
		})
		if err != nil {
			return nil, fmt.Errorf("rerank candidate %s: %w", out[i].PointID, err)
		}
		if score, ok := parseScore(res.Content); ok {
			out[i].Score = score
		}
	}

	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score > out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func parseScore(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if r != '.' && (r < '0' || r > '9') {
			text = text[:i]
			break
		}
	}
	if text == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
