package main

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"guidance-rag/internal/adminsurface"
	"guidance-rag/internal/batch"
	"guidance-rag/internal/config"
	"guidance-rag/internal/crawl"
	"guidance-rag/internal/db"
	"guidance-rag/internal/embedding"
	"guidance-rag/internal/lexical"
	"guidance-rag/internal/llmcache"
	"guidance-rag/internal/llmprovider"
	"guidance-rag/internal/logging"
	"guidance-rag/internal/objectstore"
	"guidance-rag/internal/promptpromotion"
	"guidance-rag/internal/retrieval"
	"guidance-rag/internal/vectorstore"
)

// chromeStripperVersion is stamped onto every ProcessingJob this binary
// creates (spec §3's ProcessingJob.chrome_stripper_version field).
const chromeStripperVersion = "1"

// App is the process-wide set of constructed dependencies every command
// operates against, built once in PersistentPreRunE and torn down in
// PersistentPostRunE — the explicit-dependency-injection replacement for
// the teacher's global singletons (see DESIGN.md "Global singletons").
type App struct {
	cfg *config.Config
	log *zap.Logger
	db  *sql.DB

	documents      *db.DocumentRepo
	ingestionJobs  *db.IngestionJobRepo
	processingJobs *db.ProcessingJobRepo
	queue          *db.ProcessingQueueRepo
	batches        *db.ReprocessingBatchRepo
	promptVersions *db.PromptVersionRepo
	production     *db.ProductionPromptRepo
	audit          *db.AuditRepo

	vectors  *vectorstore.Gateway
	lexical  *lexical.Index
	embedder embedding.EmbeddingEngine
	llm      *llmprovider.Client

	controller *batch.Controller
	status     *adminsurface.Status
	pipeline   *retrieval.Pipeline
	prompts    *promptpromotion.Service
}

// NewApp opens the database, runs migrations, and constructs every
// component a command might need. With no LLM API key the LLM client
// (and with it the reranker) stays nil, and with no S3 bucket prompt
// backups fall back to localFileBackup, rather than failing App
// construction, so read-only commands still work without full
// configuration.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	conn, err := db.Open(ctx, cfg.Database.Path, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	a := &App{cfg: cfg, log: log, db: conn}

	a.documents = db.NewDocumentRepo(conn)
	a.ingestionJobs = db.NewIngestionJobRepo(conn)
	a.processingJobs = db.NewProcessingJobRepo(conn)
	a.queue = db.NewProcessingQueueRepo(conn)
	a.batches = db.NewReprocessingBatchRepo(conn, a.processingJobs)
	a.promptVersions = db.NewPromptVersionRepo(conn)
	a.production = db.NewProductionPromptRepo(conn)
	a.audit = db.NewAuditRepo(conn)

	a.vectors, err = vectorstore.New(ctx, conn, cfg.VectorDB.Dimensions, cfg.VectorDB.BinaryQuantization, log)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	a.lexical, err = lexical.New(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open lexical index: %w", err)
	}

	embeddingCfg := embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
		TaskType:       "RETRIEVAL_DOCUMENT",
	}
	a.embedder, err = embedding.NewEngine(embeddingCfg, log)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("build embedding engine: %w", err)
	}

	if cfg.LLM.APIKey != "" {
		a.llm, err = llmprovider.New(llmprovider.Config{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Referer: cfg.LLM.Referer,
			Title:   cfg.LLM.Title,
			Timeout: cfg.LLMTimeout(),
		}, log)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("build LLM client: %w", err)
		}
	}

	a.controller = batch.New(a.ingestionJobs, a.processingJobs, a.queue, a.documents, a.batches, a.audit, chromeStripperVersion, log)
	a.status = adminsurface.NewStatus(a.controller)

	var reranker retrieval.Reranker
	if a.llm != nil {
		reranker = &llmReranker{client: a.llm, model: cfg.LLM.Model}
	}
	retrievalCfg := retrieval.Config{
		ExpandAcronyms: cfg.Retrieval.QueryRewriteEnabled,
		HybridSearch:   cfg.Retrieval.HybridSearchEnabled,
		Reranking:      cfg.Retrieval.RerankingEnabled && a.llm != nil,
		RRFK:           cfg.Retrieval.RRFK,
		RRFWeight:      cfg.Retrieval.RRFWeight,
	}
	a.pipeline = retrieval.New(a.embedder, a.vectors, a.lexical, reranker, retrievalCfg, log)

	var backup db.BackupWriter
	if cfg.ObjectStore.Bucket != "" {
		backup, err = objectstore.New(objectstore.Config{
			Bucket:   cfg.ObjectStore.Bucket,
			Region:   cfg.ObjectStore.Region,
			Endpoint: cfg.ObjectStore.Endpoint,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("build object store backup writer: %w", err)
		}
	} else {
		backup = localFileBackup{}
	}
	a.prompts = promptpromotion.New(a.promptVersions, a.production, backup, a.audit, log)

	return a, nil
}

// translator lazily builds an llmcache.Translator over the configured
// LLM client; returns an error if no LLM provider is configured.
func (a *App) translator() (*llmcache.Translator, error) {
	if a.llm == nil {
		return nil, fmt.Errorf("no LLM provider configured (set OPENROUTER_API_KEY/ANTHROPIC_API_KEY/OPENAI_API_KEY)")
	}
	repo := db.NewTranslationCacheRepo(a.db)
	gen := &llmTranslator{client: a.llm, model: a.cfg.LLM.Model}
	return llmcache.NewTranslator(repo, gen, a.log), nil
}

// summaryCache lazily builds an llmcache.SummaryCache over the
// configured LLM client.
func (a *App) summaryCache() (*llmcache.SummaryCache, error) {
	if a.llm == nil {
		return nil, fmt.Errorf("no LLM provider configured (set OPENROUTER_API_KEY/ANTHROPIC_API_KEY/OPENAI_API_KEY)")
	}
	repo := db.NewSummaryCacheRepo(a.db)
	gen := &llmSummarizer{client: a.llm, model: a.cfg.LLM.Model}
	return llmcache.NewSummaryCache(repo, gen), nil
}

// newCrawler builds a Crawler from the configured crawl rate limit and
// user agent. The BFS depth cap is the crawl.MaxDepth constant; the
// crawl.max_depth setting is not read.
func (a *App) newCrawler() *crawl.Crawler {
	return crawl.New(crawl.Config{
		RateLimit: rate.Limit(a.cfg.Crawl.RateLimitPerSec),
		UserAgent: a.cfg.Crawl.UserAgent,
	}, a.log)
}

// Close releases the database connection and flushes the logger.
func (a *App) Close() error {
	_ = a.log.Sync()
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
