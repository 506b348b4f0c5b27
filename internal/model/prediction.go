package model

import "time"

// PredictionOutcome is the audited status of a predictive claim
type PredictionOutcome string

const (
	OutcomePending   PredictionOutcome = "pending"
	OutcomeConfirmed PredictionOutcome = "confirmed"
	OutcomeFalsified PredictionOutcome = "falsified"
)

// Prediction is a predictive claim tracked after publication for later audit
type Prediction struct {
	ID          string            `json:"id"`
	DraftID     string            `json:"draft_id"`
	ClaimText   string            `json:"claim_text"`
	SourceIDs   []string          `json:"source_ids"` // Sources cited by the original claim
	Probability float64           `json:"probability"`
	Outcome     PredictionOutcome `json:"outcome"`
	Accuracy    float64           `json:"accuracy,omitempty"` // Set once audited
	CreatedAt   time.Time         `json:"created_at"`
	AuditedAt   time.Time         `json:"audited_at,omitempty"`
}
