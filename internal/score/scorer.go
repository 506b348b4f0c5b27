// Package score derives the two [0,1] metrics attached to every draft:
// trust (citation validity and evidence strength) and quality (narrative
// completeness). Every number is reconstructible from the recorded inputs.
package score

import (
	"math"

	"masthead/internal/analyst"
	"masthead/internal/model"
)

// Weights inside the trust composite. Citation validity dominates;
// reputation-weighted strength refines within the valid fraction.
const (
	trustValidityWeight = 0.6
	trustStrengthWeight = 0.4

	qualityCompletenessWeight = 0.6
	qualityBreadthWeight      = 0.4

	// targetClaims is the narrative length considered complete
	targetClaims = 5
)

// Scorer computes trust and quality for drafts
type Scorer struct {
	guard *analyst.Guard
}

// NewScorer creates a scorer that shares the guard's span accounting
func NewScorer(guard *analyst.Guard) *Scorer {
	return &Scorer{guard: guard}
}

// Trust is a monotone function of the fraction of sufficiently cited
// claims and the reputation-weighted strength of their evidence. The
// contradiction penalty from the critical loop is applied separately via
// ApplyContradictions, after adversarial review runs.
func (s *Scorer) Trust(draft *model.Draft, ranked *model.RankedResult, multipliers map[string]float64) float64 {
	if len(draft.Claims) == 0 {
		return 0
	}

	validCount := 0
	var strengthSum float64

	for _, claim := range draft.Claims {
		valid := s.guard.ValidSpans(claim, ranked)
		if valid >= s.guard.Required {
			validCount++
		}

		// Strength saturates one span above the requirement
		strength := math.Min(float64(valid)/float64(s.guard.Required+1), 1)
		strengthSum += strength * avgMultiplier(claim, multipliers)
	}

	fracValid := float64(validCount) / float64(len(draft.Claims))
	strength := strengthSum / float64(len(draft.Claims))

	return clamp01(trustValidityWeight*fracValid + trustStrengthWeight*strength)
}

// ApplyContradictions deducts the configured penalty per contradiction
// surfaced by adversarial review, clamped to [0,1].
func (s *Scorer) ApplyContradictions(trust float64, contradictions int, penalty float64) float64 {
	return clamp01(trust - float64(contradictions)*penalty)
}

// Quality captures narrative completeness independent of citation
// validity: how much was written and how broadly the ranked set is used.
func (s *Scorer) Quality(draft *model.Draft, ranked *model.RankedResult) float64 {
	completeness := math.Min(float64(len(draft.Claims))/targetClaims, 1)

	breadth := 0.0
	if len(ranked.Sources) > 0 {
		cited := make(map[string]bool)
		for _, claim := range draft.Claims {
			for _, span := range claim.Spans {
				if ranked.Contains(span.SourceID) {
					cited[span.SourceID] = true
				}
			}
		}
		breadth = float64(len(cited)) / float64(len(ranked.Sources))
	}

	return clamp01(qualityCompletenessWeight*completeness + qualityBreadthWeight*breadth)
}

// avgMultiplier averages the reputation multipliers of a claim's cited
// sources; unknown sources count neutral.
func avgMultiplier(claim model.Claim, multipliers map[string]float64) float64 {
	if len(claim.Spans) == 0 {
		return 0
	}
	var sum float64
	for _, span := range claim.Spans {
		if m, ok := multipliers[span.SourceID]; ok && m > 0 {
			sum += math.Min(m, 1) // Reputation can decay trust, never inflate past full
		} else {
			sum += 1
		}
	}
	return sum / float64(len(claim.Spans))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
