// Package llmprovider is the chat-completion RPC client used by the LLM
// cache (translation/summary generation) and the retrieval pipeline's
// optional LLM reranker. Grounded on the teacher's embedding HTTP-JSON
// client style (internal/embedding/ollama.go) since the teacher has no
// chat-completion client of its own to adapt — the embedding client's
// net/http + encoding/json shape, context-scoped request, and
// SetLogger(*zap.Logger) pattern are carried over directly.
package llmprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"guidance-rag/internal/shared/errs"
)

// Message is one turn in a chat-completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest mirrors spec §6's `POST /chat/completions` contract.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type chatChoice struct {
	Message Message `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Model   string       `json:"model"`
}

// ChatResult is the caller-facing response: the generated text and the
// model that actually served the request.
type ChatResult struct {
	Content string
	Model   string
}

// Client is a minimal `/chat/completions`-shaped HTTP client with the
// retry policy from spec §5 (multiplier 1, min 2s, max 10s, 3 attempts)
// applied to the retryable status classes from spec §7 (429, 5xx).
type Client struct {
	baseURL string
	apiKey  string
	referer string
	title   string
	http    *http.Client
	log     *zap.Logger
}

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string
	Referer string
	Title   string
	Timeout time.Duration
}

// New constructs a Client. log may be nil (zap.NewNop() is used).
func New(cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("llmprovider: base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		referer: cfg.Referer,
		title:   cfg.Title,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}, nil
}

const (
	retryAttempts  = 3
	retryMinDelay  = 2 * time.Second
	retryMaxDelay  = 10 * time.Second
	retryMultiplier = 1.0
)

// Complete issues a chat-completion request, retrying transient failures
// (429/5xx) with exponential backoff up to retryAttempts before
// surfacing a fatal errs.KindProvider error.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (ChatResult, error) {
	var lastErr error
	delay := retryMinDelay

	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ChatResult{}, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(math.Min(float64(retryMaxDelay), float64(delay)*(1+retryMultiplier)))
		}

		result, retryable, err := c.attempt(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !retryable {
			return ChatResult{}, errs.Wrap(errs.KindProvider, "chat completion failed", err)
		}
		c.log.Warn("llm provider transient error, retrying",
			zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return ChatResult{}, errs.Wrap(errs.KindProvider, "chat completion exhausted retries", lastErr)
}

// attempt makes one HTTP round-trip, reporting whether a failure is of
// the retryable class (429/5xx per spec §6).
func (c *Client) attempt(ctx context.Context, req ChatRequest) (ChatResult, bool, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return ChatResult{}, false, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return ChatResult{}, false, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.referer != "" {
		httpReq.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		httpReq.Header.Set("X-Title", c.title)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return ChatResult{}, true, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return ChatResult{}, retryable, fmt.Errorf("provider returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ChatResult{}, false, fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return ChatResult{}, false, fmt.Errorf("provider returned no choices")
	}

	return ChatResult{Content: parsed.Choices[0].Message.Content, Model: parsed.Model}, false, nil
}
