// Package pipeline orchestrates the editorial decision flow: ranking,
// synthesis, citation validation, scoring, adversarial review and the gate,
// under one wall-clock budget per invocation. Nothing is persisted before
// the gate runs, so a timed-out invocation leaves no partial state behind.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"masthead/internal/analyst"
	"masthead/internal/critic"
	"masthead/internal/gate"
	"masthead/internal/improve"
	"masthead/internal/model"
	"masthead/internal/rank"
	"masthead/internal/score"
	"masthead/internal/store"
	"masthead/internal/worker"
)

// predictionProbability is the default tracked probability for predictive
// claims reaching publication.
const predictionProbability = 0.7

// signalConfidenceSample is how many top-ranked sources feed the
// gap-detection confidence for a signal.
const signalConfidenceSample = 5

// tokenPollInterval paces a caller waiting on a token another invocation
// currently holds.
const tokenPollInterval = 25 * time.Millisecond

// Event is a downstream notification. Consumers are outside the core.
type Event struct {
	Type     string                   `json:"type"` // "decision"
	Decision *model.EditorialDecision `json:"decision,omitempty"`
}

// Notifier is the fire-and-forget hook for downstream consumers.
// Failures are logged and swallowed, never failing the pipeline.
type Notifier interface {
	Notify(event Event) error
}

// LogNotifier is the default notifier: it just logs
type LogNotifier struct{}

// Notify logs the event
func (LogNotifier) Notify(event Event) error {
	if event.Decision != nil {
		log.Printf("event %s: decision=%s draft=%s signal=%s",
			event.Type, event.Decision.Decision, event.Decision.DraftID, event.Decision.SignalID)
	}
	return nil
}

// Request identifies one evaluation
type Request struct {
	Token string // Idempotency/correlation token; empty disables replay
	ID    string // Signal or draft identifier
	Actor string // Rate-limit identity; empty means "default"
}

// Pipeline wires the components into the full decision flow
type Pipeline struct {
	store    store.Store
	ranker   *rank.Ranker
	analyst  *analyst.Analyst
	guard    *analyst.Guard
	scorer   *score.Scorer
	critic   *critic.Critic
	gate     *gate.Gate
	auditor  *improve.Auditor
	repAgent *improve.ReputationAgent
	limiter  *worker.Limiter
	notifier Notifier
	config   *model.Config
}

// New assembles a pipeline from its components
func New(st store.Store, ranker *rank.Ranker, an *analyst.Analyst, guard *analyst.Guard,
	scorer *score.Scorer, cr *critic.Critic, g *gate.Gate,
	auditor *improve.Auditor, repAgent *improve.ReputationAgent,
	limiter *worker.Limiter, notifier Notifier, cfg *model.Config) *Pipeline {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &Pipeline{
		store:    st,
		ranker:   ranker,
		analyst:  an,
		guard:    guard,
		scorer:   scorer,
		critic:   cr,
		gate:     g,
		auditor:  auditor,
		repAgent: repAgent,
		limiter:  limiter,
		notifier: notifier,
		config:   cfg,
	}
}

// Evaluate runs a single evaluation for a signal or draft ID. Repeating a
// call with the same token returns the recorded decision without touching
// cadence or state again.
func (p *Pipeline) Evaluate(ctx context.Context, req Request) (*model.EditorialDecision, error) {
	actor := req.Actor
	if actor == "" {
		actor = "default"
	}
	if p.limiter != nil {
		if err := p.limiter.Acquire(actor); err != nil {
			return nil, err
		}
	}
	return p.evaluateItem(ctx, req.Token, req.ID)
}

// evaluateItem is Evaluate without the entry rate limit; batch evaluation
// reuses it per item, its volume already bounded by the worker pool.
//
// The token claim is atomic: exactly one concurrent invocation per token
// evaluates, the rest wait for its recorded decision. A decided token is
// replayed; a claim abandoned by a failed evaluation is released, so the
// next retry evaluates instead of waiting forever.
func (p *Pipeline) evaluateItem(ctx context.Context, token, id string) (*model.EditorialDecision, error) {
	if token == "" {
		return p.runEvaluation(ctx, token, id)
	}

	for {
		if prior, err := p.store.DecisionByToken(ctx, token); err == nil {
			return prior, nil
		} else if !model.IsNotFound(err) {
			return nil, err
		}

		claimed, err := p.store.ReserveToken(ctx, token)
		if err != nil {
			return nil, err
		}
		if claimed {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(tokenPollInterval):
		}
	}

	decision, err := p.runEvaluation(ctx, token, id)
	if err != nil {
		// The release must survive a canceled caller context
		if rerr := p.store.ReleaseToken(context.Background(), token); rerr != nil {
			log.Printf("pipeline: release token %s: %v", token, rerr)
		}
	}
	return decision, err
}

// runEvaluation is one evaluation under the wall-clock budget
func (p *Pipeline) runEvaluation(ctx context.Context, token, id string) (*model.EditorialDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Pipeline.Timeout)
	defer cancel()

	decision, err := p.evaluate(ctx, token, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: evaluation of %s exceeded %s", model.ErrTimeout, id, p.config.Pipeline.Timeout)
		}
		return nil, err
	}

	if decision != nil {
		if nerr := p.notifier.Notify(Event{Type: "decision", Decision: decision}); nerr != nil {
			log.Printf("notify failed (ignored): %v", nerr)
		}
	}
	return decision, nil
}

// evaluate dispatches on what the ID names
func (p *Pipeline) evaluate(ctx context.Context, token, id string) (*model.EditorialDecision, error) {
	if signal, err := p.store.Signal(ctx, id); err == nil {
		return p.evaluateSignal(ctx, token, signal)
	} else if !model.IsNotFound(err) {
		return nil, err
	}

	draft, err := p.store.Draft(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.evaluateDraft(ctx, token, draft)
}

// evaluateSignal runs the gap check and, when commissioned, carries the
// signal through synthesis into a full draft evaluation.
func (p *Pipeline) evaluateSignal(ctx context.Context, token string, signal *model.Signal) (*model.EditorialDecision, error) {
	ranked, confidence := p.signalEvidence(ctx, signal)

	decision, err := p.gate.EvaluateSignal(ctx, token, signal, confidence)
	if err != nil {
		return nil, err
	}
	if decision != nil {
		return decision, nil // Silenced or held at the gap check
	}

	// Commissioned: synthesize and evaluate the draft
	if ranked == nil || len(ranked.Sources) == 0 {
		return nil, fmt.Errorf("%w for commissioned signal %s", model.ErrRetrieval, signal.ID)
	}

	draft, err := p.analyst.Synthesize(ctx, signal, ranked)
	if err != nil {
		return nil, err
	}

	return p.runDraftFlow(ctx, token, draft, ranked)
}

// evaluateDraft re-evaluates an existing draft: the originating ranked set
// is ephemeral, so the draft's own sources are re-ranked by its title.
func (p *Pipeline) evaluateDraft(ctx context.Context, token string, draft *model.Draft) (*model.EditorialDecision, error) {
	ranked, err := p.ranker.Rank(ctx, draft.Title, rank.Filters{}, 0)
	if err != nil {
		if !model.IsRetrieval(err) {
			return nil, err
		}
		// Without fresh retrieval, validate against the recorded set
		ranked = &model.RankedResult{Query: draft.Title}
		for _, id := range draft.SourceIDs {
			ranked.Sources = append(ranked.Sources, model.RankedSource{Source: model.Source{ID: id}})
		}
	}

	return p.runDraftFlow(ctx, token, draft, ranked)
}

// runDraftFlow is the shared guard -> score -> critic -> gate sequence.
// The guard always completes before the critical loop starts; a draft
// failing it skips the loop entirely and goes to the gate for rejection.
func (p *Pipeline) runDraftFlow(ctx context.Context, token string, draft *model.Draft, ranked *model.RankedResult) (*model.EditorialDecision, error) {
	guardErr := p.guard.Validate(draft, ranked)

	multipliers, err := p.store.ReputationMultipliers(ctx)
	if err != nil {
		log.Printf("pipeline: reputation read failed, using neutral multipliers: %v", err)
		multipliers = map[string]float64{}
	}

	draft.Trust = p.scorer.Trust(draft, ranked, multipliers)
	draft.Quality = p.scorer.Quality(draft, ranked)

	var review *critic.Review
	if guardErr == nil {
		review, err = p.critic.Review(ctx, draft, ranked, draft.Trust, draft.Quality)
		if err != nil {
			return nil, err
		}
		draft.Trust = p.scorer.ApplyContradictions(draft.Trust, len(review.Contradictions), p.config.Editorial.ContradictionPenalty)
	}

	decision, err := p.gate.EvaluateDraft(ctx, token, draft, review, guardErr)
	if err != nil {
		return nil, err
	}

	if decision.Decision == model.DecisionPublished {
		p.trackPredictions(ctx, draft)
	}
	return decision, nil
}

// trackPredictions records every predictive claim of a published draft for
// the auditor. A failed write is logged; publication already committed.
func (p *Pipeline) trackPredictions(ctx context.Context, draft *model.Draft) {
	for _, claim := range draft.PredictiveClaims() {
		var sourceIDs []string
		seen := map[string]bool{}
		for _, span := range claim.Spans {
			if !seen[span.SourceID] {
				seen[span.SourceID] = true
				sourceIDs = append(sourceIDs, span.SourceID)
			}
		}

		pred := &model.Prediction{
			ID:          uuid.NewString(),
			DraftID:     draft.ID,
			ClaimText:   claim.Text,
			SourceIDs:   sourceIDs,
			Probability: predictionProbability,
			Outcome:     model.OutcomePending,
			CreatedAt:   time.Now().UTC(),
		}
		if err := p.store.SavePrediction(ctx, pred); err != nil {
			log.Printf("pipeline: track prediction for draft %s: %v", draft.ID, err)
		}
	}
}

// signalEvidence ranks evidence for the signal topic and derives the
// gap-detection confidence from the leading relevance scores.
func (p *Pipeline) signalEvidence(ctx context.Context, signal *model.Signal) (*model.RankedResult, float64) {
	ranked, err := p.ranker.Rank(ctx, signal.Topic, rank.Filters{}, 0)
	if err != nil {
		return nil, 0
	}

	n := len(ranked.Sources)
	if n > signalConfidenceSample {
		n = signalConfidenceSample
	}
	if n == 0 {
		return ranked, 0
	}

	var sum float64
	for _, s := range ranked.Sources[:n] {
		sum += s.Relevance
	}
	confidence := sum / float64(n)
	if confidence > 1 {
		confidence = 1
	}
	return ranked, confidence
}

// RunPredictionAudit exposes the prediction auditor entrypoint
func (p *Pipeline) RunPredictionAudit(ctx context.Context, lookbackDays int, minProbability float64) (*improve.AuditReport, error) {
	return p.auditor.Run(ctx, lookbackDays, minProbability)
}

// UpdateSourceReputations exposes the reputation agent entrypoint
func (p *Pipeline) UpdateSourceReputations(ctx context.Context, lookbackDays, minUsages int) (*improve.ReputationReport, error) {
	return p.repAgent.Run(ctx, lookbackDays, minUsages)
}
