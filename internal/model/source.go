package model

import "time"

// Source is an externally retrieved document reference. Sources are owned by
// the ingestion side; the core only reads them, except for reputation updates
// written by the reputation agent.
type Source struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Abstract      string  `json:"abstract,omitempty"`
	Provider      string  `json:"provider"`        // Which provider returned it
	Year          int     `json:"year,omitempty"`  // Publication year
	OpenAccess    bool    `json:"open_access"`
	CitationCount int     `json:"citation_count"`
	QualityScore  float64 `json:"quality_score"` // Reputation-weighted quality
}

// RankedSource is a Source scored for one query, with the transparent
// per-component breakdown that produced the composite relevance.
type RankedSource struct {
	Source
	Relevance float64 `json:"relevance"` // Composite score used for ordering
	Lexical   float64 `json:"lexical"`
	Semantic  float64 `json:"semantic"`
	Recency   float64 `json:"recency"`
}

// RankedResult is the ordered, size-bounded outcome of one ranking call.
// Ephemeral: created per call, never persisted.
type RankedResult struct {
	Query   string         `json:"query"`
	Sources []RankedSource `json:"sources"`
}

// Contains reports whether the given source identity is part of the result.
func (r *RankedResult) Contains(sourceID string) bool {
	for _, s := range r.Sources {
		if s.ID == sourceID {
			return true
		}
	}
	return false
}

// SourceIDs returns the identities in rank order.
func (r *RankedResult) SourceIDs() []string {
	ids := make([]string, len(r.Sources))
	for i, s := range r.Sources {
		ids[i] = s.ID
	}
	return ids
}

// SourceReputation is a per-source multiplier derived from audit outcomes.
// Written only by the reputation agent, read by the ranker.
type SourceReputation struct {
	SourceID   string    `json:"source_id"`
	Multiplier float64   `json:"multiplier"` // Bounded, see ImproveConfig
	Confirmed  int       `json:"confirmed"`
	Falsified  int       `json:"falsified"`
	UpdatedAt  time.Time `json:"updated_at"`
}
