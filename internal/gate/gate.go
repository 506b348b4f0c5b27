// Package gate is the editorial decision state machine. It folds trust and
// quality scores, the critical-loop review and cadence state into one of
// four dispositions, records an immutable decision for every evaluation,
// and owns the only code path that publishes a draft.
package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"masthead/internal/cadence"
	"masthead/internal/critic"
	"masthead/internal/model"
	"masthead/internal/store"
)

// Gate evaluates drafts and signals
type Gate struct {
	store   store.Store
	counter *cadence.Counter
	config  model.EditorialConfig
	now     func() time.Time
}

// NewGate creates a gate over the given store and cadence counter
func NewGate(st store.Store, counter *cadence.Counter, cfg model.EditorialConfig) *Gate {
	return &Gate{
		store:   st,
		counter: counter,
		config:  cfg,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the gate's notion of now. Tests only.
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

// EvaluateDraft runs the transition rule for a submitted draft. guardErr is
// the citation-guard outcome for the draft (nil when valid); review is nil
// exactly when the guard failed, since such drafts skip the critical loop.
// The draft's trust score must already carry the contradiction penalty.
//
// Ordered rule:
//  1. Guard failure or trust below threshold: REJECTED.
//  2. Critical loop recommends rejection: REJECTED.
//  3. Revision requested or cadence exhausted: HELD, human review required.
//  4. Otherwise APPROVED; an atomic cadence reservation commits PUBLISHED.
func (g *Gate) EvaluateDraft(ctx context.Context, token string, draft *model.Draft, review *critic.Review, guardErr error) (*model.EditorialDecision, error) {
	if draft.Status.Terminal() {
		return nil, fmt.Errorf("%w: draft %s is %s", model.ErrTerminal, draft.ID, draft.Status)
	}

	now := g.now()
	draft.Status = model.StatusSubmitted

	remaining, err := g.counter.Remaining(ctx, draft.Vertical, now)
	if err != nil {
		return nil, err
	}

	checks := model.Checks{
		TrustScore:       draft.Trust,
		QualityScore:     draft.Quality,
		CadenceRemaining: remaining,
	}
	if review != nil {
		checks.Confidence = review.Confidence
	}

	var reasons []string
	var decision model.DecisionKind
	humanReview := false

	switch {
	case guardErr != nil:
		decision = model.DecisionRejected
		reasons = append(reasons, fmt.Sprintf("citation guard failed: %v", guardErr))
		draft.Status = model.StatusRejected

	case draft.Trust < g.config.MinTrustScore:
		decision = model.DecisionRejected
		reasons = append(reasons, fmt.Sprintf("trust score %.2f below minimum %.2f", draft.Trust, g.config.MinTrustScore))
		draft.Status = model.StatusRejected

	case review != nil && review.Recommendation == critic.RecommendReject:
		decision = model.DecisionRejected
		reasons = append(reasons, fmt.Sprintf("critical review recommends rejection (confidence %.2f)", review.Confidence))
		draft.Status = model.StatusRejected

	case review != nil && review.Recommendation == critic.RecommendRevision:
		decision = model.DecisionHeld
		humanReview = true
		reasons = append(reasons, "critical review requests revision")
		for _, con := range review.Contradictions {
			reasons = append(reasons, fmt.Sprintf("contradiction between claims %d and %d", con.ClaimA, con.ClaimB))
		}
		draft.Status = model.StatusHeld

	case remaining == 0:
		decision = model.DecisionHeld
		humanReview = true
		reasons = append(reasons, fmt.Sprintf("cadence exhausted for vertical %q this window", draft.Vertical))
		draft.Status = model.StatusHeld

	default:
		draft.Status = model.StatusApproved
		reasons = append(reasons, fmt.Sprintf("trust %.2f and quality %.2f pass all checks", draft.Trust, draft.Quality))

		// Atomic commit: the reservation and the PUBLISHED transition
		// succeed together or not at all.
		reserved, err := g.counter.TryReserve(ctx, draft.Vertical, now)
		if err != nil {
			return nil, err
		}
		if !reserved {
			// Lost the window to a concurrent publication
			decision = model.DecisionHeld
			humanReview = true
			reasons = append(reasons, fmt.Sprintf("cadence exhausted for vertical %q this window", draft.Vertical))
			draft.Status = model.StatusHeld
		} else {
			decision = model.DecisionPublished
			reasons = append(reasons, "published within cadence capacity")
			draft.Status = model.StatusPublished
		}
	}

	record := &model.EditorialDecision{
		ID:                  uuid.NewString(),
		Token:               token,
		SignalID:            draft.SignalID,
		DraftID:             draft.ID,
		Decision:            decision,
		Reasons:             reasons,
		Checks:              checks,
		HumanReviewRequired: humanReview,
		DecidedAt:           now,
	}

	if err := g.store.SaveDraft(ctx, draft); err != nil {
		return nil, err
	}
	if err := g.store.SaveDecision(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// EvaluateSignal runs the gap-detection check on a NEW signal. When the
// signal clears the check it is commissioned and the returned decision is
// nil: the caller continues into synthesis and the final decision comes
// from EvaluateDraft. Silenced signals stay silenced until cooldown expiry,
// regardless of concurrent evaluation attempts.
func (g *Gate) EvaluateSignal(ctx context.Context, token string, signal *model.Signal, confidence float64) (*model.EditorialDecision, error) {
	now := g.now()

	checks := model.Checks{Confidence: confidence}

	if signal.Silenced(now) {
		record := g.signalDecision(token, signal, model.DecisionSilenced, checks, []string{
			fmt.Sprintf("signal silenced until %s", signal.SilencedUntil.Format(time.RFC3339)),
		}, now)
		if err := g.store.SaveDecision(ctx, record); err != nil {
			return nil, err
		}
		return record, nil
	}

	if confidence < g.config.MinSignalConfidence {
		signal.GapFailures++
		signal.Status = model.SignalEvaluated

		var record *model.EditorialDecision
		if signal.GapFailures >= g.config.MaxGapFailures {
			signal.Status = model.SignalSilenced
			signal.SilencedUntil = now.Add(g.config.SilenceCooldown())
			record = g.signalDecision(token, signal, model.DecisionSilenced, checks, []string{
				fmt.Sprintf("confidence %.2f below %.2f for the %d consecutive time, silencing until %s",
					confidence, g.config.MinSignalConfidence, signal.GapFailures,
					signal.SilencedUntil.Format(time.RFC3339)),
			}, now)
		} else {
			record = g.signalDecision(token, signal, model.DecisionHeld, checks, []string{
				fmt.Sprintf("confidence %.2f below %.2f (failure %d of %d)",
					confidence, g.config.MinSignalConfidence, signal.GapFailures, g.config.MaxGapFailures),
			}, now)
			record.HumanReviewRequired = true
		}

		if err := g.store.SaveSignal(ctx, signal); err != nil {
			return nil, err
		}
		if err := g.store.SaveDecision(ctx, record); err != nil {
			return nil, err
		}
		return record, nil
	}

	// Check passed: commission the signal and reset the failure streak
	signal.Status = model.SignalCommissioned
	signal.GapFailures = 0
	if err := g.store.SaveSignal(ctx, signal); err != nil {
		return nil, err
	}
	return nil, nil
}

func (g *Gate) signalDecision(token string, signal *model.Signal, kind model.DecisionKind, checks model.Checks, reasons []string, now time.Time) *model.EditorialDecision {
	return &model.EditorialDecision{
		ID:        uuid.NewString(),
		Token:     token,
		SignalID:  signal.ID,
		Decision:  kind,
		Reasons:   reasons,
		Checks:    checks,
		DecidedAt: now,
	}
}
