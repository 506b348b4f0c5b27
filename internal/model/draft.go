package model

import "time"

// DraftStatus tracks a draft through the editorial state machine
type DraftStatus string

const (
	StatusDraft     DraftStatus = "DRAFT"
	StatusSubmitted DraftStatus = "SUBMITTED"
	StatusApproved  DraftStatus = "APPROVED"
	StatusRejected  DraftStatus = "REJECTED" // Terminal
	StatusHeld      DraftStatus = "HELD"
	StatusPublished DraftStatus = "PUBLISHED" // Terminal
)

// Terminal reports whether the status permits no further transitions.
func (s DraftStatus) Terminal() bool {
	return s == StatusPublished || s == StatusRejected
}

// Draft is a synthesized narrative awaiting or undergoing editorial evaluation.
// Created by the analyst, mutated only by the gate and the critical loop.
type Draft struct {
	ID        string      `json:"id"`
	SignalID  string      `json:"signal_id,omitempty"`
	Vertical  string      `json:"vertical"` // Topic grouping for cadence accounting
	Title     string      `json:"title"`
	Narrative string      `json:"narrative"`
	Claims    []Claim     `json:"claims"`
	SourceIDs []string    `json:"source_ids"` // Identities of the originating ranked set
	Trust     float64     `json:"trust_score"`
	Quality   float64     `json:"quality_score"`
	Status    DraftStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// PredictiveClaims returns the claims tracked post-publication for audit.
func (d *Draft) PredictiveClaims() []Claim {
	var out []Claim
	for _, c := range d.Claims {
		if c.Type == ClaimPredictive {
			out = append(out, c)
		}
	}
	return out
}
