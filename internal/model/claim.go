package model

// Claim is an atomic assertion extracted during synthesis
type Claim struct {
	Text  string         `json:"text"`
	Type  ClaimType      `json:"type"`
	Spans []EvidenceSpan `json:"spans"` // Grounding citations, never empty for a valid claim
}

// ClaimType categorizes the nature of the claim
type ClaimType string

const (
	ClaimFactual    ClaimType = "factual"    // Asserts a present or past fact
	ClaimPredictive ClaimType = "predictive" // Asserts a future outcome, tracked for audit
	ClaimNormative  ClaimType = "normative"  // Asserts what should be done
)

// EvidenceSpan binds a Claim to a specific passage of a specific Source.
// Never exists without an owning Claim.
type EvidenceSpan struct {
	SourceID string `json:"source_id"`
	Excerpt  string `json:"excerpt,omitempty"`
	Offset   int    `json:"offset,omitempty"` // Character offset into the source abstract
}

// DistinctSources returns the number of distinct source identities cited
// by the claim's spans.
func (c *Claim) DistinctSources() int {
	seen := make(map[string]bool, len(c.Spans))
	for _, sp := range c.Spans {
		seen[sp.SourceID] = true
	}
	return len(seen)
}
