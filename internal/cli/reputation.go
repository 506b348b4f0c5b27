package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	repLookback   int
	repMinUsages  int
	repCmdTimeout time.Duration
)

// reputationCmd represents the reputation command
var reputationCmd = &cobra.Command{
	Use:   "reputation",
	Short: "Recompute source reputation from audit outcomes",
	Long: `Reputation folds audited prediction outcomes back into per-source
ranking multipliers:
- Sources cited mostly in confirmed predictions are boosted
- Sources cited mostly in falsified predictions decay
- Multipliers stay inside the configured bounds, so the feedback loop
  cannot run away
- Sources below the minimum usage count are left untouched

Example:
  masthead reputation --store masthead.db
  masthead reputation --lookback 90 --min-usages 5`,
	Args: cobra.NoArgs,
	RunE: runReputation,
}

func init() {
	rootCmd.AddCommand(reputationCmd)

	reputationCmd.Flags().IntVar(&repLookback, "lookback", 0, "lookback window in days (default: from config)")
	reputationCmd.Flags().IntVar(&repMinUsages, "min-usages", 0, "minimum audited usages per source (default: from config)")
	reputationCmd.Flags().DurationVar(&repCmdTimeout, "timeout", 5*time.Minute, "overall command timeout")
}

func runReputation(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), repCmdTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lookback := repLookback
	if lookback <= 0 {
		lookback = cfg.Improve.LookbackDays
	}
	minUsages := repMinUsages
	if minUsages <= 0 {
		minUsages = cfg.Improve.MinUsages
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	report, err := a.pipeline.UpdateSourceReputations(ctx, lookback, minUsages)
	if err != nil {
		return fmt.Errorf("reputation update: %w", err)
	}

	return renderJSON(report)
}
