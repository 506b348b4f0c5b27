package analyst

import (
	"masthead/internal/model"
)

// Guard is the citation guard: a pure validation pass over a freshly
// synthesized draft. It recomputes, per claim, the number of valid distinct
// spans and rejects the whole draft when any claim falls short. Fabricated
// or out-of-set citations are a hard failure, not a warning.
type Guard struct {
	// Required is the minimum count of valid spans per claim, each from a
	// distinct source inside the originating ranked set.
	Required int
}

// NewGuard creates a guard requiring the given span count
func NewGuard(required int) *Guard {
	return &Guard{Required: required}
}

// Validate returns nil when every claim is sufficiently grounded, or a
// *model.GuardFailure naming the offending claim indices. The draft itself
// is not mutated.
func (g *Guard) Validate(draft *model.Draft, ranked *model.RankedResult) error {
	var offending []int

	for i, claim := range draft.Claims {
		if g.ValidSpans(claim, ranked) < g.Required {
			offending = append(offending, i)
		}
	}

	if len(draft.Claims) == 0 {
		offending = append(offending, 0) // An empty narrative grounds nothing
	}

	if len(offending) > 0 {
		return &model.GuardFailure{
			Required:     g.Required,
			ClaimIndices: offending,
		}
	}
	return nil
}

// ValidSpans counts the claim's spans that point inside the ranked set,
// deduplicated by source: several excerpts of one source count once.
func (g *Guard) ValidSpans(claim model.Claim, ranked *model.RankedResult) int {
	seen := make(map[string]bool, len(claim.Spans))
	for _, span := range claim.Spans {
		if span.SourceID == "" || seen[span.SourceID] {
			continue
		}
		if ranked.Contains(span.SourceID) {
			seen[span.SourceID] = true
		}
	}
	return len(seen)
}
