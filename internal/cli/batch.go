package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	batchToken   string
	batchWorkers int
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Evaluate every pending signal in parallel",
	Long: `Batch evaluates all pending signals through the worker pool:
- NEW signals plus silenced signals whose cooldown has lapsed
- One failing signal never aborts its siblings
- Per-signal idempotency tokens derive from the run token, so rerunning
  an interrupted batch with the same --token replays completed items

Example:
  masthead batch --sources corpus.json --store masthead.db
  masthead batch --token nightly-2026-08-28 --workers 8`,
	Args: cobra.NoArgs,
	RunE: runBatchEvaluate,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchToken, "token", "", "run token for per-signal idempotency (default: a fresh UUID)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "number of concurrent workers (default: from config)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for the batch run")
}

func runBatchEvaluate(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if batchWorkers > 0 {
		cfg.Pipeline.BatchWorkers = batchWorkers
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	token := batchToken
	if token == "" {
		token = uuid.NewString()
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Batch run %s with %d workers\n", token, cfg.Pipeline.BatchWorkers)
	}

	report, err := a.pipeline.EvaluateBatch(ctx, token)
	if err != nil {
		return fmt.Errorf("batch evaluation: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Evaluated %d signals in %v\n", report.Evaluated, report.Elapsed)
		for _, e := range report.Errors {
			fmt.Fprintf(os.Stderr, "  failed: %s\n", e)
		}
	}

	return renderJSON(report)
}
