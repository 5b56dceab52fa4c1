package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"guidance-rag/internal/batch"
	"guidance-rag/internal/db"
	"guidance-rag/internal/decode"
)

var (
	ingestUserID          string
	ingestParallelWorkers int
	ingestRetryAttempts   int
	ingestChunkTokens     int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Create documents and start a processing batch over them",
}

var ingestURLCmd = &cobra.Command{
	Use:   "url [seed-urls...]",
	Short: "Crawl one or more gov.uk seed URLs and start an ingestion batch",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngestURL,
}

var ingestUploadCmd = &cobra.Command{
	Use:   "upload [files...]",
	Short: "Decode one or more uploaded files and start an ingestion batch",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngestUpload,
}

func init() {
	for _, c := range []*cobra.Command{ingestURLCmd, ingestUploadCmd} {
		c.Flags().StringVar(&ingestUserID, "user", "cli", "user id attributed to this ingestion job")
		c.Flags().IntVar(&ingestParallelWorkers, "workers", 4, "parallel workers (1-10)")
		c.Flags().IntVar(&ingestRetryAttempts, "retries", 3, "retry attempts per document (0-5)")
		c.Flags().IntVar(&ingestChunkTokens, "chunk-tokens", 0, "chunk size in tokens (not applied: workers chunk with the configured batch default)")
	}
	ingestCmd.AddCommand(ingestURLCmd, ingestUploadCmd)
}

func runIngestURL(cmd *cobra.Command, seeds []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
	defer cancel()

	crawler := app.newCrawler()
	result := crawler.Crawl(ctx, seeds)
	app.log.Info("crawl finished",
		zap.Int("discovered", len(result.DiscoveredURLs)),
		zap.Int("scraped", len(result.ScrapedDocuments)),
		zap.Int("filtered", result.FilteredCount),
		zap.Int("max_depth_reached", result.MaxDepthReached))

	if len(result.ScrapedDocuments) == 0 {
		fmt.Println("no documents scraped; nothing to ingest")
		return nil
	}

	now := time.Now().UTC()
	var docIDs []string
	for _, sd := range result.ScrapedDocuments {
		existing, err := app.documents.GetByCanonicalURL(ctx, sd.URL)
		if err == nil {
			docIDs = append(docIDs, existing.ID)
			continue
		}
		id := db.NewID()
		if err := app.documents.Create(ctx, db.Document{
			ID: id, CanonicalURL: sd.URL, Title: sd.Title, RawContent: sd.Text,
			SourceKind: db.SourceKindURL, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("create document for %s: %w", sd.URL, err)
		}
		docIDs = append(docIDs, id)
	}

	return startIngestionBatch(ctx, db.SourceKindURL, docIDs)
}

func runIngestUpload(cmd *cobra.Command, paths []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
	defer cancel()

	now := time.Now().UTC()
	var docIDs []string
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		name := filepath.Base(path)
		res, err := decode.Decode(name, content, "")
		if err != nil {
			app.log.Warn("skipping file that failed to decode", zap.String("file", path), zap.Error(err))
			continue
		}

		id := db.NewID()
		if err := app.documents.Create(ctx, db.Document{
			ID: id, CanonicalURL: "upload://" + name, Title: name, RawContent: res.Text,
			SourceKind: db.SourceKindUpload, CreatedAt: now, UpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("create document for %s: %w", path, err)
		}
		docIDs = append(docIDs, id)
	}

	if len(docIDs) == 0 {
		fmt.Println("no files decoded successfully; nothing to ingest")
		return nil
	}
	return startIngestionBatch(ctx, db.SourceKindUpload, docIDs)
}

func startIngestionBatch(ctx context.Context, method db.SourceKind, docIDs []string) error {
	now := time.Now().UTC()
	ingestionJobID := db.NewID()
	if err := app.ingestionJobs.Create(ctx, db.IngestionJob{
		ID: ingestionJobID, UserID: ingestUserID, Method: method, Status: db.IngestionPending,
		TotalCount: len(docIDs), CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		return fmt.Errorf("create ingestion job: %w", err)
	}

	chunkTokens := ingestChunkTokens
	if chunkTokens <= 0 {
		chunkTokens = app.cfg.Batch.DefaultChunkTokens
	}
	result, err := app.controller.StartBatch(ctx, batch.StartBatchParams{
		IngestionJobID: ingestionJobID, DocIDs: docIDs, ChunkSizeTokens: chunkTokens,
		ParallelWorkers: ingestParallelWorkers, RetryAttempts: ingestRetryAttempts,
	})
	if err != nil {
		return fmt.Errorf("start batch: %w", err)
	}

	fmt.Printf("ingestion job %s started: %d documents queued\n", ingestionJobID, len(result.ProcessingJobIDs))
	fmt.Println("run `guidanceadm worker run` to drain the processing queue")
	return nil
}
