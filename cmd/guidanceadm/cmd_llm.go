package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"guidance-rag/internal/fingerprint"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Run the content-addressable LLM cache against a document",
}

var (
	translateReadingLevel string
	summarizeUserID       string
)

var llmTranslateCmd = &cobra.Command{
	Use:   "translate [document-id]",
	Short: "Translate a document to a target reading level, using the cache on repeat calls",
	Args:  cobra.ExactArgs(1),
	RunE:  runLLMTranslate,
}

var llmSummarizeCmd = &cobra.Command{
	Use:   "summarize [document-id]",
	Short: "Summarize a document in plain English, using the cache on repeat calls",
	Args:  cobra.ExactArgs(1),
	RunE:  runLLMSummarize,
}

func init() {
	llmTranslateCmd.Flags().StringVar(&translateReadingLevel, "reading-level", "plain-english", "target reading level")
	llmSummarizeCmd.Flags().StringVar(&summarizeUserID, "user", "cli", "user id attributed to the generated summary")
	llmCmd.AddCommand(llmTranslateCmd, llmSummarizeCmd)
}

func runLLMTranslate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
	defer cancel()

	t, err := app.translator()
	if err != nil {
		return err
	}
	doc, err := app.documents.GetByID(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	prod, err := app.production.Get(ctx)
	if err != nil {
		return fmt.Errorf("load production prompt: %w", err)
	}
	promptHash := fingerprint.PromptHash(prod.PromptText)

	res, err := t.Translate(ctx, doc.ID, doc.RawContent, translateReadingLevel, promptHash, app.cfg.LLM.Model)
	if err != nil {
		return err
	}
	fmt.Printf("translated %d chunk(s), %d served from cache\n\n%s\n", res.ChunksProcessed, res.ChunksFromCache, res.TranslatedText)
	return nil
}

func runLLMSummarize(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
	defer cancel()

	sc, err := app.summaryCache()
	if err != nil {
		return err
	}
	doc, err := app.documents.GetByID(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	summary, err := sc.Get(ctx, doc.ID, doc.RawContent, summarizeUserID)
	if err != nil {
		return err
	}
	fmt.Println(summary)
	return nil
}
