package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"masthead/internal/model"
	"masthead/internal/pipeline"
)

var (
	evalToken    string
	evalActor    string
	evalTopic    string
	evalVertical string
	evalTimeout  time.Duration
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <id>",
	Short: "Evaluate a signal or draft and print the editorial decision",
	Long: `Evaluate runs the full decision flow for one signal or draft:
- Rank candidate sources and run the gap-detection check
- Synthesize a claim-bearing draft for commissioned signals
- Validate every claim against cited evidence
- Score trust and quality, run the adversarial critical review
- Apply the editorial gate and the weekly cadence limit

With --topic the signal is registered first, so a fresh topic can be
evaluated in one call. Repeating a call with the same --token returns the
recorded decision without deciding again.

Example:
  masthead evaluate sig-042 --sources corpus.json
  masthead evaluate sig-042 --topic "grid storage costs" --vertical energy
  masthead evaluate sig-042 --token run-7/sig-042 --store masthead.db`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalToken, "token", "", "idempotency token (default: a fresh UUID)")
	evaluateCmd.Flags().StringVar(&evalActor, "actor", "", "rate-limit actor identity")
	evaluateCmd.Flags().StringVar(&evalTopic, "topic", "", "register the ID as a new signal with this topic")
	evaluateCmd.Flags().StringVar(&evalVertical, "vertical", "general", "vertical for a newly registered signal")
	evaluateCmd.Flags().DurationVar(&evalTimeout, "timeout", 5*time.Minute, "overall command timeout")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	id := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if evalTopic != "" {
		signal := &model.Signal{
			ID:        id,
			Topic:     evalTopic,
			Vertical:  evalVertical,
			Status:    model.SignalNew,
			CreatedAt: time.Now().UTC(),
		}
		if err := a.store.SaveSignal(ctx, signal); err != nil {
			return fmt.Errorf("register signal %s: %w", id, err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Registered signal %s (%s / %s)\n", id, evalTopic, evalVertical)
		}
	}

	token := evalToken
	if token == "" {
		token = uuid.NewString()
	}

	decision, err := a.pipeline.Evaluate(ctx, pipeline.Request{
		Token: token,
		ID:    id,
		Actor: evalActor,
	})
	if err != nil {
		return fmt.Errorf("evaluate %s: %w", id, err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Decision: %s (token %s)\n", decision.Decision, token)
		for _, reason := range decision.Reasons {
			fmt.Fprintf(os.Stderr, "  - %s\n", reason)
		}
	}

	return renderJSON(decision)
}
