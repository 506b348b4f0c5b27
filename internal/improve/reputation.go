package improve

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"masthead/internal/model"
)

// reputationWriters bounds concurrent store writes during a run
const reputationWriters = 4

// ReputationReport summarizes one reputation agent run
type ReputationReport struct {
	Updated int `json:"updated"`
	Boosted int `json:"boosted"` // Multiplier above neutral
	Decayed int `json:"decayed"` // Multiplier below neutral
}

// ReputationStore is the slice of the durable store the agent needs
type ReputationStore interface {
	AuditedPredictions(ctx context.Context, since time.Time) ([]*model.Prediction, error)
	SaveReputation(ctx context.Context, r *model.SourceReputation) error
}

// ReputationAgent recomputes per-source multipliers from audit outcomes.
// Sources whose cited predictions were predominantly confirmed are boosted,
// predominantly falsified ones decay, always inside the configured bounds
// so the feedback loop cannot run away.
type ReputationAgent struct {
	store  ReputationStore
	config model.ImproveConfig
	now    func() time.Time
}

// NewReputationAgent creates a reputation agent
func NewReputationAgent(st ReputationStore, cfg model.ImproveConfig) *ReputationAgent {
	return &ReputationAgent{
		store:  st,
		config: cfg,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the agent's notion of now. Tests only.
func (r *ReputationAgent) SetClock(now func() time.Time) {
	r.now = now
}

// usage accumulates audit outcomes for one source
type usage struct {
	confirmed int
	falsified int
}

// Run recomputes reputation for every source cited in at least minUsages
// audited predictions inside the lookback window. A failing write is
// logged into the report shortfall, never blocking sibling updates.
func (r *ReputationAgent) Run(ctx context.Context, lookbackDays, minUsages int) (*ReputationReport, error) {
	since := r.now().AddDate(0, 0, -lookbackDays)

	audited, err := r.store.AuditedPredictions(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load audited predictions: %w", err)
	}

	bySource := make(map[string]*usage)
	for _, p := range audited {
		for _, id := range p.SourceIDs {
			u := bySource[id]
			if u == nil {
				u = &usage{}
				bySource[id] = u
			}
			if p.Outcome == model.OutcomeConfirmed {
				u.confirmed++
			} else {
				u.falsified++
			}
		}
	}

	// Deterministic processing order
	ids := make([]string, 0, len(bySource))
	for id := range bySource {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	report := &ReputationReport{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reputationWriters)

	for _, id := range ids {
		u := bySource[id]
		total := u.confirmed + u.falsified
		if total < minUsages {
			continue
		}

		ratio := float64(u.confirmed) / float64(total)
		multiplier := r.config.MinMultiplier + ratio*(r.config.MaxMultiplier-r.config.MinMultiplier)

		rep := &model.SourceReputation{
			SourceID:   id,
			Multiplier: multiplier,
			Confirmed:  u.confirmed,
			Falsified:  u.falsified,
			UpdatedAt:  r.now(),
		}

		g.Go(func() error {
			if err := r.store.SaveReputation(gctx, rep); err != nil {
				// Isolated: siblings keep going
				log.Printf("reputation: save %s failed: %v", rep.SourceID, err)
				return nil
			}
			mu.Lock()
			report.Updated++
			if rep.Multiplier > 1.0 {
				report.Boosted++
			} else if rep.Multiplier < 1.0 {
				report.Decayed++
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return report, nil
}
