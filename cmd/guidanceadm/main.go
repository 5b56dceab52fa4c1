// Command guidanceadm is the administrator-facing CLI for the guidance
// ingestion/retrieval pipeline: it drives ingestion jobs, runs worker
// loops, queries the retrieval pipeline, and manages prompt versions and
// promotion, wired the way the teacher's cmd/nerd entry point registers
// cobra commands against a process-wide set of constructed dependencies.
//
// # File Index
//
//   - main.go        - entry point, rootCmd, global flags, App wiring
//   - app.go          - App: shared dependencies built once at startup
//   - llm_adapter.go  - llmprovider.Client adapters for llmcache/retrieval
//   - cmd_ingest.go   - ingest url / ingest upload
//   - cmd_worker.go   - worker run
//   - cmd_batch.go    - batch status/retry/pause/cancel/reprocess
//   - cmd_search.go   - search (retrieval pipeline query)
//   - cmd_prompt.go   - prompt list/create/delete/restore/preview/promote
//   - cmd_llm.go      - llm translate / llm summarize (content-addressable cache)
//   - local_backup.go - localFileBackup, the CLI-only db.BackupWriter fallback
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"guidance-rag/internal/config"
)

var (
	configPath string
	dbPath     string
	verbose    bool
	cmdTimeout time.Duration

	app *App
)

var rootCmd = &cobra.Command{
	Use:   "guidanceadm",
	Short: "Administer the guidance ingestion and retrieval pipeline",
	Long: `guidanceadm drives the ingestion batch control plane, the hybrid
retrieval pipeline, and system-prompt version promotion for the
UK government guidance ingestion/retrieval service.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		a, err := NewApp(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("initialize app: %w", err)
		}
		app = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app != nil {
			return app.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "guidanceadm.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "override the configured sqlite database path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.PersistentFlags().DurationVar(&cmdTimeout, "timeout", 5*time.Minute, "operation timeout")

	rootCmd.AddCommand(
		ingestCmd,
		workerCmd,
		batchCmd,
		searchCmd,
		promptCmd,
		llmCmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
