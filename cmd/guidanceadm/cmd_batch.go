package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var batchWatch bool

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Inspect and control ingestion batches",
}

var batchStatusCmd = &cobra.Command{
	Use:   "status [ingestion-job-id]",
	Short: "Show a status snapshot for an ingestion job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if batchWatch {
			return app.status.StreamProgress(cmd.Context(), os.Stdout, app.ingestionJobs, args[0])
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
		defer cancel()
		snap, err := app.status.IngestionProgress(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("progress: %.1f%%  eta: %.0fs  active workers: %v\n", snap.ProgressPercent, snap.ETASeconds, snap.ActiveWorkerIDs)
		for status, count := range snap.CountsByStatus {
			fmt.Printf("  %-12s %d\n", status, count)
		}
		return nil
	},
}

var batchRetryCmd = &cobra.Command{
	Use:   "retry-failed [ingestion-job-id] [job-ids...]",
	Short: "Requeue Failed processing jobs with High priority",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
		defer cancel()
		n, err := app.controller.RetryFailed(ctx, args[0], args[1:])
		if err != nil {
			return err
		}
		fmt.Printf("%d job(s) requeued\n", n)
		return nil
	},
}

var batchPauseCmd = &cobra.Command{
	Use:   "pause [ingestion-job-id]",
	Short: "Pause an ingestion job; in-flight jobs finish naturally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
		defer cancel()
		return app.controller.Pause(ctx, args[0])
	},
}

var batchCancelCmd = &cobra.Command{
	Use:   "cancel [ingestion-job-id]",
	Short: "Cancel an ingestion job; queued work fails immediately",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
		defer cancel()
		return app.controller.Cancel(ctx, args[0])
	},
}

var reprocessUserID string

var batchReprocessCmd = &cobra.Command{
	Use:   "reprocess-failed",
	Short: "Start a new batch over every failed or never-processed document",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
		defer cancel()
		res, err := app.status.ReprocessFailedDocuments(ctx, reprocessUserID)
		if err != nil {
			return err
		}
		fmt.Printf("batch %s started: %d document(s) queued, estimated %.0fs, status at %s\n",
			res.BatchID, res.QueuedCount, res.EstimatedDurationSeconds, res.StatusURL)
		return nil
	},
}

var batchStatusOfCmd = &cobra.Command{
	Use:   "reprocess-status [batch-id]",
	Short: "Show a reprocessing batch's aggregate status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), cmdTimeout)
		defer cancel()
		snap, err := app.controller.BatchStatus(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("status: %s  success_rate: %.1f%%  eta: %.0fs\n", snap.OverallStatus, snap.SuccessRate, snap.EstimatedTimeRemainingSeconds)
		fmt.Printf("  queued: %d  processing: %d  completed: %d  failed: %d\n",
			snap.Queued, snap.Processing, snap.Completed, snap.Failed)
		return nil
	},
}

func init() {
	batchStatusCmd.Flags().BoolVar(&batchWatch, "watch", false, "stream progress as Server-Sent Events until the job finishes")
	batchReprocessCmd.Flags().StringVar(&reprocessUserID, "user", "cli", "user id attributed to the reprocessing ingestion job")
	batchCmd.AddCommand(batchStatusCmd, batchRetryCmd, batchPauseCmd, batchCancelCmd, batchReprocessCmd, batchStatusOfCmd)
}
