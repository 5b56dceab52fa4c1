package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var searchTopK int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run a hybrid retrieval query against the ingested guidance corpus",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 10, "number of results to return")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
	defer cancel()

	query := strings.Join(args, " ")
	docs, meta, err := app.pipeline.Query(ctx, query, searchTopK)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	fmt.Printf("%d result(s) in %dms (rewritten=%v hybrid=%v reranked=%v)\n",
		meta.TotalResults, meta.TookMS, meta.QueryPreprocessed, meta.HybridSearchUsed, meta.RerankingUsed)
	for i, d := range docs {
		fmt.Printf("%d. [%.4f] %s (%s, chunk %d)\n   %s\n", i+1, d.Score, d.Title, d.DocumentID, d.ChunkIndex, truncate(d.ChunkText, 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
