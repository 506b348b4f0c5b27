// Package critic runs the adversarial review of a citation-valid draft:
// a methodology judgment, an adversarial search for contradictions within
// the same source set, and a final decision calibration. Drafts that failed
// the citation guard never reach this loop.
package critic

import (
	"context"
	"fmt"
	"strings"

	"masthead/internal/llm"
	"masthead/internal/model"
)

// Stage identifies one assessment pass
type Stage string

const (
	StageMethodology Stage = "methodology"
	StageAdversarial Stage = "adversarial"
	StageCalibration Stage = "calibration"
)

// Recommendation is the calibrated action
type Recommendation string

const (
	RecommendApprove  Recommendation = "approve"
	RecommendRevision Recommendation = "request-revision"
	RecommendReject   Recommendation = "reject"
)

// Assessment is the structured output of one stage
type Assessment struct {
	Stage    Stage    `json:"stage"`
	Score    float64  `json:"score"` // [0,1], higher is cleaner
	Findings []string `json:"findings,omitempty"`
}

// Contradiction names two claims asserting opposing things
type Contradiction struct {
	ClaimA int    `json:"claim_a"`
	ClaimB int    `json:"claim_b"`
	Reason string `json:"reason"`
}

// Review is the complete critical-loop output
type Review struct {
	Assessments    []Assessment    `json:"assessments"`
	Contradictions []Contradiction `json:"contradictions,omitempty"`
	Confidence     float64         `json:"confidence"`
	Recommendation Recommendation  `json:"recommendation"`
}

// Critic runs the loop. The provider is optional; when present it only
// enriches findings with a generated critique, never the numbers.
type Critic struct {
	provider llm.Provider
}

// NewCritic creates a critic; provider may be nil
func NewCritic(provider llm.Provider) *Critic {
	return &Critic{provider: provider}
}

// Review runs the three stages in order. Trust here is the base trust
// score; the caller applies the contradiction penalty from the returned
// review before gate evaluation.
func (c *Critic) Review(ctx context.Context, draft *model.Draft, ranked *model.RankedResult, trust, quality float64) (*Review, error) {
	methodology := c.judgeMethodology(draft)
	adversarial, contradictions := c.adversarialReview(ctx, draft, ranked)
	calibration, confidence, recommendation := c.calibrate(methodology, adversarial, len(contradictions), trust, quality)

	return &Review{
		Assessments:    []Assessment{methodology, adversarial, calibration},
		Contradictions: contradictions,
		Confidence:     confidence,
		Recommendation: recommendation,
	}, nil
}

// hedges are weak-reasoning markers the methodology judgment penalizes
var hedges = []string{"might", "could", "possibly", "perhaps", "arguably", "some say"}

// judgeMethodology checks internal consistency of the draft's reasoning
func (c *Critic) judgeMethodology(draft *model.Draft) Assessment {
	a := Assessment{Stage: StageMethodology, Score: 1.0}

	if len(draft.Claims) < 2 {
		a.Score -= 0.2
		a.Findings = append(a.Findings, "narrative rests on a single claim")
	}

	normative := 0
	hedged := 0
	citedSources := make(map[string]bool)
	for _, claim := range draft.Claims {
		if claim.Type == model.ClaimNormative {
			normative++
		}
		lower := strings.ToLower(claim.Text)
		for _, h := range hedges {
			if strings.Contains(lower, h) {
				hedged++
				break
			}
		}
		for _, span := range claim.Spans {
			citedSources[span.SourceID] = true
		}
	}

	if len(draft.Claims) > 0 && normative == len(draft.Claims) {
		a.Score -= 0.3
		a.Findings = append(a.Findings, "every claim is normative, no factual grounding")
	}

	if hedged*2 > len(draft.Claims) {
		a.Score -= 0.2
		a.Findings = append(a.Findings, fmt.Sprintf("%d of %d claims hedge their assertion", hedged, len(draft.Claims)))
	}

	if len(citedSources) == 1 && len(draft.Claims) > 1 {
		a.Score -= 0.3
		a.Findings = append(a.Findings, "all claims trace to a single source")
	}

	if a.Score < 0 {
		a.Score = 0
	}
	return a
}

// Polarity markers for contradiction detection. Two claims on the same
// subject carrying opposite polarity are flagged.
var (
	positiveMarkers = []string{"increase", "rises", "rise", "grows", "growth", "confirmed", "succeeded", "approved", "gains", "will "}
	negativeMarkers = []string{"decrease", "falls", "fall", "declines", "decline", "denied", "failed", "rejected", "loses", "not ", "never ", "no longer"}
)

// adversarialReview searches the draft for claims that contradict each
// other, and for claims whose cited source carries opposing language.
func (c *Critic) adversarialReview(ctx context.Context, draft *model.Draft, ranked *model.RankedResult) (Assessment, []Contradiction) {
	a := Assessment{Stage: StageAdversarial, Score: 1.0}
	var contradictions []Contradiction

	claims := draft.Claims
	for i := 0; i < len(claims); i++ {
		for j := i + 1; j < len(claims); j++ {
			if reason, ok := Opposed(claims[i].Text, claims[j].Text); ok {
				contradictions = append(contradictions, Contradiction{
					ClaimA: i,
					ClaimB: j,
					Reason: reason,
				})
			}
		}
	}

	for _, con := range contradictions {
		a.Findings = append(a.Findings, fmt.Sprintf("claims %d and %d: %s", con.ClaimA, con.ClaimB, con.Reason))
	}
	a.Score = 1.0 - 0.25*float64(len(contradictions))
	if a.Score < 0 {
		a.Score = 0
	}

	// Optional generated critique; findings only, never numbers
	if c.provider != nil && len(claims) > 0 {
		if critique := c.generateCritique(ctx, draft); critique != "" {
			a.Findings = append(a.Findings, critique)
		}
	}

	return a, contradictions
}

// Opposed reports whether two texts assert opposing things: enough shared
// subject vocabulary, opposite polarity markers. The prediction auditor
// reuses it to read new evidence for or against an old claim.
func Opposed(a, b string) (string, bool) {
	la, lb := strings.ToLower(a), strings.ToLower(b)

	shared := tokenOverlap(la, lb)
	if shared < 0.4 {
		return "", false
	}

	if (hasAny(la, positiveMarkers) && hasAny(lb, negativeMarkers)) ||
		(hasAny(la, negativeMarkers) && hasAny(lb, positiveMarkers)) {
		return "same subject, opposite direction", true
	}
	return "", false
}

func hasAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// tokenOverlap is the Jaccard index of the two token sets
func tokenOverlap(a, b string) float64 {
	sa := make(map[string]bool)
	for _, t := range llm.Tokenize(a) {
		sa[t] = true
	}
	sb := make(map[string]bool)
	for _, t := range llm.Tokenize(b) {
		sb[t] = true
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}

	inter := 0
	for t := range sa {
		if sb[t] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	return float64(inter) / float64(union)
}

// generateCritique asks the model for one short counter-reading
func (c *Critic) generateCritique(ctx context.Context, draft *model.Draft) string {
	resp, err := c.provider.GenerateText(ctx, llm.GenerateRequest{
		System:      "You are an adversarial reviewer. Find the weakest point in the narrative. One sentence.",
		Prompt:      draft.Narrative,
		MaxTokens:   120,
		Temperature: 0.5,
	})
	if err != nil || resp == nil {
		return ""
	}
	return strings.TrimSpace(resp.Text)
}

// Calibration weights: the prior stages plus the draft's own scores
const (
	calTrustWeight       = 0.45
	calMethodologyWeight = 0.25
	calAdversarialWeight = 0.15
	calQualityWeight     = 0.15

	rejectBelow = 0.30
	reviseBelow = 0.55
)

// calibrate folds the prior assessments into a confidence and an action
func (c *Critic) calibrate(methodology, adversarial Assessment, contradictions int, trust, quality float64) (Assessment, float64, Recommendation) {
	confidence := calTrustWeight*trust +
		calMethodologyWeight*methodology.Score +
		calAdversarialWeight*adversarial.Score +
		calQualityWeight*quality
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	var rec Recommendation
	switch {
	case confidence < rejectBelow:
		rec = RecommendReject
	case confidence < reviseBelow || contradictions > 0:
		rec = RecommendRevision
	default:
		rec = RecommendApprove
	}

	a := Assessment{
		Stage: StageCalibration,
		Score: confidence,
		Findings: []string{
			fmt.Sprintf("confidence %.2f from trust %.2f, methodology %.2f, adversarial %.2f, quality %.2f",
				confidence, trust, methodology.Score, adversarial.Score, quality),
		},
	}
	return a, confidence, rec
}
