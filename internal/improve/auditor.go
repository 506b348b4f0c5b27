// Package improve holds the offline self-correction jobs: the prediction
// auditor revisits old predictive claims against newer evidence, and the
// reputation agent recomputes per-source multipliers from audit outcomes.
// Both run independently, idempotently, and tolerate partial failure.
package improve

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/montanaflynn/stats"

	"masthead/internal/critic"
	"masthead/internal/llm"
	"masthead/internal/model"
	"masthead/internal/rank"
)

// auditRankLimit bounds how much fresh evidence one audit considers
const auditRankLimit = 10

// minEvidenceOverlap is the token overlap below which a retrieved source
// says nothing about the audited claim.
const minEvidenceOverlap = 0.2

// AuditReport summarizes one auditor run
type AuditReport struct {
	Audited     int     `json:"audited"`
	Confirmed   int     `json:"confirmed"`
	Falsified   int     `json:"falsified"`
	AvgAccuracy float64 `json:"avg_accuracy"`
}

// Auditor re-evaluates pending predictions against newer evidence
type Auditor struct {
	store  PredictionStore
	ranker *rank.Ranker
	now    func() time.Time
}

// PredictionStore is the slice of the durable store the auditor needs
type PredictionStore interface {
	PendingPredictions(ctx context.Context, cutoff time.Time) ([]*model.Prediction, error)
	SavePrediction(ctx context.Context, p *model.Prediction) error
}

// NewAuditor creates a prediction auditor
func NewAuditor(st PredictionStore, ranker *rank.Ranker) *Auditor {
	return &Auditor{
		store:  st,
		ranker: ranker,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the auditor's notion of now. Tests only.
func (a *Auditor) SetClock(now func() time.Time) {
	a.now = now
}

// Run audits every pending prediction older than the lookback window with
// probability at or above minProbability. One prediction failing never
// aborts the run; its error is logged and the prediction stays pending.
func (a *Auditor) Run(ctx context.Context, lookbackDays int, minProbability float64) (*AuditReport, error) {
	cutoff := a.now().AddDate(0, 0, -lookbackDays)

	pending, err := a.store.PendingPredictions(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("load pending predictions: %w", err)
	}

	report := &AuditReport{}
	var accuracies []float64

	for _, p := range pending {
		if p.Probability < minProbability {
			continue
		}

		outcome, accuracy, err := a.audit(ctx, p)
		if err != nil {
			log.Printf("auditor: prediction %s: %v", p.ID, err)
			continue
		}
		if outcome == model.OutcomePending {
			continue // No usable new evidence yet
		}

		p.Outcome = outcome
		p.Accuracy = accuracy
		p.AuditedAt = a.now()
		if err := a.store.SavePrediction(ctx, p); err != nil {
			log.Printf("auditor: save prediction %s: %v", p.ID, err)
			continue
		}

		report.Audited++
		accuracies = append(accuracies, accuracy)
		if outcome == model.OutcomeConfirmed {
			report.Confirmed++
		} else {
			report.Falsified++
		}
	}

	if len(accuracies) > 0 {
		if mean, err := stats.Mean(accuracies); err == nil {
			report.AvgAccuracy = mean
		}
	}
	return report, nil
}

// audit ranks fresh evidence for the claim and reads its polarity. The
// accuracy is the supporting fraction of relevant evidence; above 0.5 the
// prediction is confirmed, at or below it is falsified.
func (a *Auditor) audit(ctx context.Context, p *model.Prediction) (model.PredictionOutcome, float64, error) {
	ranked, err := a.ranker.Rank(ctx, p.ClaimText, rank.Filters{}, auditRankLimit)
	if err != nil {
		if model.IsRetrieval(err) {
			return model.OutcomePending, 0, nil
		}
		return model.OutcomePending, 0, err
	}

	supporting, contradicting := 0, 0
	for _, src := range ranked.Sources {
		text := src.Title + " " + src.Abstract
		if overlap(p.ClaimText, text) < minEvidenceOverlap {
			continue
		}
		if _, opposed := critic.Opposed(p.ClaimText, text); opposed {
			contradicting++
		} else {
			supporting++
		}
	}

	total := supporting + contradicting
	if total == 0 {
		return model.OutcomePending, 0, nil
	}

	accuracy := float64(supporting) / float64(total)
	if accuracy > 0.5 {
		return model.OutcomeConfirmed, accuracy, nil
	}
	return model.OutcomeFalsified, accuracy, nil
}

// overlap is the fraction of claim tokens found in the evidence text
func overlap(claim, text string) float64 {
	claimTokens := llm.Tokenize(claim)
	if len(claimTokens) == 0 {
		return 0
	}

	textSet := make(map[string]bool)
	for _, t := range llm.Tokenize(text) {
		textSet[t] = true
	}

	hits := 0
	for _, t := range claimTokens {
		if textSet[t] {
			hits++
		}
	}
	return float64(hits) / float64(len(claimTokens))
}
