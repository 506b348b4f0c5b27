// Package analyst turns a ranked source set into a claim-bearing draft and
// validates that every claim is sufficiently grounded before it may proceed.
package analyst

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"masthead/internal/model"
)

// Analyst produces drafts from ranked source sets
type Analyst struct {
	generator ClaimGenerator
}

// NewAnalyst creates an analyst over the given generator
func NewAnalyst(generator ClaimGenerator) *Analyst {
	return &Analyst{generator: generator}
}

// Synthesize produces a new draft for the signal topic. The returned draft
// has not passed the citation guard yet; run Guard.Validate before scoring.
func (a *Analyst) Synthesize(ctx context.Context, signal *model.Signal, ranked *model.RankedResult) (*model.Draft, error) {
	syn, err := a.generator.Generate(ctx, signal.Topic, ranked)
	if err != nil {
		return nil, fmt.Errorf("synthesize %q: %w", signal.Topic, err)
	}

	return &model.Draft{
		ID:        uuid.NewString(),
		SignalID:  signal.ID,
		Vertical:  signal.Vertical,
		Title:     syn.Title,
		Narrative: syn.Narrative,
		Claims:    syn.Claims,
		SourceIDs: ranked.SourceIDs(),
		Status:    model.StatusDraft,
		CreatedAt: time.Now().UTC(),
	}, nil
}
