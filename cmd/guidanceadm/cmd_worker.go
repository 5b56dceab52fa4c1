package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"github.com/google/uuid"

	"guidance-rag/internal/batch"
)

var (
	workerCount int
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run worker processes against the durable queue",
}

var workerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Drain the processing queue to completion using N parallel workers",
	RunE:  runWorkerRun,
}

func init() {
	workerRunCmd.Flags().IntVar(&workerCount, "count", 4, "number of parallel worker loops")
	workerCmd.AddCommand(workerRunCmd)
}

// runWorkerRun spins up workerCount goroutines, each claiming and
// processing queue entries until the queue is empty, matching spec
// §4.G's "parallel workers pulling from a broker-backed queue" scheduling
// model with a prefetch limit of 1 per worker.
func runWorkerRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var wg sync.WaitGroup
	errs := make(chan error, workerCount)

	for i := 0; i < workerCount; i++ {
		w := batch.NewWorker(uuid.NewString(), app.documents, app.processingJobs, app.queue,
			app.vectors, app.lexical, app.embedder, app.cfg.Batch.DefaultChunkTokens, app.cfg.Batch.DefaultRetryAttempts,
			chromeStripperVersion, app.log)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				didWork, err := w.ClaimAndProcess(ctx)
				if err != nil {
					errs <- err
					return
				}
				if !didWork {
					return
				}
			}
		}()
	}

	wg.Wait()
	close(errs)

	var firstErr error
	for err := range errs {
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil && !errors.Is(firstErr, context.Canceled) {
		return fmt.Errorf("worker run failed: %w", firstErr)
	}
	fmt.Println("queue drained")
	return nil
}
