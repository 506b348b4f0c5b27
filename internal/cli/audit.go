package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	auditLookback   int
	auditMinProb    float64
	auditCmdTimeout time.Duration
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit past predictions against newer evidence",
	Long: `Audit revisits predictive claims from published drafts:
- Predictions older than the lookback window are re-ranked against the
  current source corpus
- Evidence polarity decides the outcome: mostly supporting confirms the
  prediction, mostly contradicting falsifies it
- Predictions with no usable new evidence stay pending

Example:
  masthead audit --sources corpus.json --store masthead.db
  masthead audit --lookback 60 --min-probability 0.7`,
	Args: cobra.NoArgs,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().IntVar(&auditLookback, "lookback", 0, "lookback window in days (default: from config)")
	auditCmd.Flags().Float64Var(&auditMinProb, "min-probability", 0, "only audit predictions at or above this probability (default: from config)")
	auditCmd.Flags().DurationVar(&auditCmdTimeout, "timeout", 10*time.Minute, "overall command timeout")
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), auditCmdTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lookback := auditLookback
	if lookback <= 0 {
		lookback = cfg.Improve.LookbackDays
	}
	minProb := auditMinProb
	if minProb <= 0 {
		minProb = cfg.Improve.MinProbability
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	report, err := a.pipeline.RunPredictionAudit(ctx, lookback, minProb)
	if err != nil {
		return fmt.Errorf("prediction audit: %w", err)
	}

	return renderJSON(report)
}
