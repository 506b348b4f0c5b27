package model

import "time"

// DecisionKind is the four-way editorial disposition
type DecisionKind string

const (
	DecisionPublished DecisionKind = "published"
	DecisionHeld      DecisionKind = "held"
	DecisionRejected  DecisionKind = "rejected"
	DecisionSilenced  DecisionKind = "silenced"
)

// Checks carries the raw numeric inputs behind a decision, so every
// disposition is explainable from recorded data alone.
type Checks struct {
	TrustScore       float64 `json:"trust_score"`
	QualityScore     float64 `json:"quality_score"`
	Confidence       float64 `json:"confidence"`        // Calibrated confidence from the critical loop
	CadenceRemaining int     `json:"cadence_remaining"` // Capacity left in the window before this decision
}

// EditorialDecision is an immutable audit record of one gate evaluation
type EditorialDecision struct {
	ID                  string       `json:"id"`
	Token               string       `json:"token"` // Correlation token, idempotency key
	SignalID            string       `json:"signal_id,omitempty"`
	DraftID             string       `json:"draft_id,omitempty"`
	Decision            DecisionKind `json:"decision"`
	Reasons             []string     `json:"reasons"` // Ordered, human-readable
	Checks              Checks       `json:"checks"`
	HumanReviewRequired bool         `json:"human_review_required"`
	DecidedAt           time.Time    `json:"decided_at"`
}
