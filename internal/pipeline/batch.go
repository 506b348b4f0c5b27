package pipeline

import (
	"context"
	"fmt"
	"time"

	"masthead/internal/model"
	"masthead/internal/worker"
)

// BatchReport summarizes one batch evaluation run
type BatchReport struct {
	Evaluated int           `json:"evaluated"`
	Published int           `json:"published"`
	Held      int           `json:"held"`
	Rejected  int           `json:"rejected"`
	Silenced  int           `json:"silenced"`
	Errors    []string      `json:"errors,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// evalJob evaluates one pending signal inside the pool
type evalJob struct {
	pipeline *Pipeline
	token    string
	signalID string
}

// evalResult carries one signal's outcome back out of the pool
type evalResult struct {
	signalID string
	decision *model.EditorialDecision
	err      error
}

func (r *evalResult) GetError() error { return r.err }

func (j *evalJob) Execute(ctx context.Context) worker.Result {
	decision, err := j.pipeline.evaluateItem(ctx, j.token, j.signalID)
	return &evalResult{signalID: j.signalID, decision: decision, err: err}
}

// EvaluateBatch evaluates every pending signal through the worker pool.
// Per-item idempotency tokens are derived from the run token, so rerunning
// an interrupted batch with the same token replays completed items instead
// of re-deciding them. One failing signal never aborts its siblings.
func (p *Pipeline) EvaluateBatch(ctx context.Context, token string) (*BatchReport, error) {
	start := time.Now()

	signals, err := p.store.PendingSignals(ctx, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("load pending signals: %w", err)
	}

	report := &BatchReport{}
	if len(signals) == 0 {
		report.Elapsed = time.Since(start)
		return report, nil
	}

	pool := worker.NewPool(ctx, p.config.Pipeline.BatchWorkers)
	pool.Start()
	defer pool.Shutdown()

	for _, signal := range signals {
		itemToken := ""
		if token != "" {
			itemToken = token + "/" + signal.ID
		}
		pool.Submit(&evalJob{pipeline: p, token: itemToken, signalID: signal.ID})
	}

	for _, res := range pool.Wait() {
		r := res.(*evalResult)
		if r.err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", r.signalID, r.err))
			continue
		}
		report.Evaluated++
		if r.decision == nil {
			continue
		}
		switch r.decision.Decision {
		case model.DecisionPublished:
			report.Published++
		case model.DecisionHeld:
			report.Held++
		case model.DecisionRejected:
			report.Rejected++
		case model.DecisionSilenced:
			report.Silenced++
		}
	}

	report.Elapsed = time.Since(start)
	return report, nil
}
