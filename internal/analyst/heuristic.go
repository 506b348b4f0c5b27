package analyst

import (
	"context"
	"fmt"
	"strings"

	"masthead/internal/model"
)

// maxHeuristicClaims bounds the narrative length of offline synthesis
const maxHeuristicClaims = 5

// HeuristicGenerator synthesizes deterministically from the ranked set,
// without a language model: one claim per leading source, each grounded in
// its own abstract plus the next-ranked corroborating source. Output is
// stable across runs for identical input.
type HeuristicGenerator struct{}

// NewHeuristicGenerator creates a deterministic generator
func NewHeuristicGenerator() *HeuristicGenerator {
	return &HeuristicGenerator{}
}

// Name returns the generator name
func (g *HeuristicGenerator) Name() string {
	return "heuristic"
}

// Generate builds claims from the top-ranked sources
func (g *HeuristicGenerator) Generate(ctx context.Context, topic string, ranked *model.RankedResult) (*Synthesis, error) {
	n := len(ranked.Sources)
	limit := maxHeuristicClaims
	if n < limit {
		limit = n
	}

	var claims []model.Claim
	var narrative strings.Builder

	for i := 0; i < limit; i++ {
		src := ranked.Sources[i]
		excerpt := firstSentence(src.Abstract)
		if excerpt == "" {
			excerpt = src.Title
		}

		claim := model.Claim{
			Text: fmt.Sprintf("%s (per %s)", excerpt, src.Title),
			Type: classifyClaim(excerpt),
			Spans: []model.EvidenceSpan{
				{SourceID: src.ID, Excerpt: excerpt},
			},
		}

		// Corroborate with the next-ranked source; the last claim reaches
		// backwards so every claim cites two distinct sources when possible.
		if n > 1 {
			corrIdx := i + 1
			if corrIdx >= n {
				corrIdx = i - 1
			}
			corr := ranked.Sources[corrIdx]
			corrExcerpt := firstSentence(corr.Abstract)
			if corrExcerpt == "" {
				corrExcerpt = corr.Title
			}
			claim.Spans = append(claim.Spans, model.EvidenceSpan{
				SourceID: corr.ID,
				Excerpt:  corrExcerpt,
			})
		}

		claims = append(claims, claim)
		narrative.WriteString(claim.Text)
		narrative.WriteString(" ")
	}

	return &Synthesis{
		Title:     fmt.Sprintf("Briefing: %s", topic),
		Narrative: strings.TrimSpace(narrative.String()),
		Claims:    claims,
	}, nil
}

// classifyClaim tags forward-looking statements as predictive
func classifyClaim(text string) model.ClaimType {
	lower := strings.ToLower(text)
	for _, marker := range []string{"will ", "expected to", "forecast", "projected", "by 20"} {
		if strings.Contains(lower, marker) {
			return model.ClaimPredictive
		}
	}
	return model.ClaimFactual
}

// firstSentence returns the text up to the first sentence boundary
func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			return strings.TrimSpace(text[:i+1])
		}
	}
	return text
}
