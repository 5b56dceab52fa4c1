// Package config holds the process-wide Config struct every component is
// constructed from, grounded on the teacher's internal/config/config.go
// nested-struct-with-yaml-tags style: a DefaultConfig() baseline, a YAML
// file overlay, then environment-variable overrides applied last.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"guidance-rag/internal/logging"
)

// Config holds all guidance-rag configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Logging    logging.Config   `yaml:"logging"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	LLM        LLMConfig        `yaml:"llm"`
	Crawl      CrawlConfig      `yaml:"crawl"`
	Batch      BatchConfig      `yaml:"batch"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	VectorDB   VectorConfig     `yaml:"vector_store"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIAPIKey    string `yaml:"genai_api_key"`
	GenAIModel     string `yaml:"genai_model"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Timeout  string `yaml:"timeout"`
	Referer  string `yaml:"referer"`
	Title    string `yaml:"title"`
}

type CrawlConfig struct {
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	MaxDepth        int     `yaml:"max_depth"`
	UserAgent       string  `yaml:"user_agent"`
}

type BatchConfig struct {
	DefaultParallelWorkers int `yaml:"default_parallel_workers"`
	DefaultRetryAttempts   int `yaml:"default_retry_attempts"`
	DefaultChunkTokens     int `yaml:"default_chunk_tokens"`
}

type RetrievalConfig struct {
	QueryRewriteEnabled bool    `yaml:"query_rewrite_enabled"`
	HybridSearchEnabled bool    `yaml:"hybrid_search_enabled"`
	RerankingEnabled    bool    `yaml:"reranking_enabled"`
	TopK                int     `yaml:"top_k"`
	RerankTopK          int     `yaml:"rerank_top_k"`
	RRFWeight           float64 `yaml:"rrf_weight"`
	RRFK                int     `yaml:"rrf_k"`
}

type VectorConfig struct {
	Dimensions        int  `yaml:"dimensions"`
	BinaryQuantization bool `yaml:"binary_quantization"`
}

type ObjectStoreConfig struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	BackupPrefix    string `yaml:"backup_prefix"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "data/guidance-rag.db"},
		Logging:  logging.DefaultConfig(),
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
		},
		LLM: LLMConfig{
			Provider: "openrouter",
			BaseURL:  "https://openrouter.ai/api/v1",
			Timeout:  "30s",
		},
		Crawl: CrawlConfig{
			RateLimitPerSec: 1.0,
			MaxDepth:        20,
			UserAgent:       "guidance-rag-crawler/1.0",
		},
		Batch: BatchConfig{
			DefaultParallelWorkers: 4,
			DefaultRetryAttempts:   3,
			DefaultChunkTokens:     512,
		},
		Retrieval: RetrievalConfig{
			QueryRewriteEnabled: true,
			HybridSearchEnabled: true,
			RerankingEnabled:    true,
			TopK:                10,
			RerankTopK:          5,
			RRFWeight:           0.3,
			RRFK:                60,
		},
		VectorDB: VectorConfig{
			Dimensions:         768,
			BinaryQuantization: true,
		},
		ObjectStore: ObjectStoreConfig{
			BackupPrefix: "prompt-backups",
		},
	}
}

// Load reads a YAML config file at path, overlaying it on DefaultConfig,
// then applies environment-variable overrides. A missing file is not an
// error: defaults (plus env overrides) are returned as-is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides layers environment variables on top of file/default
// values, in priority order, matching the teacher's config.go idiom.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GUIDANCE_RAG_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("GENAI_API_KEY"); v != "" {
		c.Embedding.GenAIAPIKey = v
	}
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		c.LLM.APIKey = v
		c.LLM.Provider = "openrouter"
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.APIKey = v
		c.LLM.Provider = "anthropic"
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.APIKey = v
		c.LLM.Provider = "openai"
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		c.ObjectStore.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		c.ObjectStore.SecretAccessKey = v
	}
	if v := os.Getenv("GUIDANCE_RAG_S3_BUCKET"); v != "" {
		c.ObjectStore.Bucket = v
	}
}

// LLMTimeout parses LLM.Timeout, falling back to 30s on an empty or
// malformed value.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
