package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"masthead/internal/model"
)

// MemoryStore is a mutex-guarded in-process store. Used by tests and as the
// default when no database path is configured.
type MemoryStore struct {
	mu          sync.RWMutex
	drafts      map[string]model.Draft
	signals     map[string]model.Signal
	decisions   map[string]model.EditorialDecision // By ID
	byToken     map[string]string                  // Token -> decision ID
	claimed     map[string]bool                    // Tokens with an evaluation in flight
	predictions map[string]model.Prediction
	reputations map[string]model.SourceReputation
	cadence     map[string]int // vertical|windowStart -> count
}

// NewMemoryStore creates an empty memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drafts:      make(map[string]model.Draft),
		signals:     make(map[string]model.Signal),
		decisions:   make(map[string]model.EditorialDecision),
		byToken:     make(map[string]string),
		claimed:     make(map[string]bool),
		predictions: make(map[string]model.Prediction),
		reputations: make(map[string]model.SourceReputation),
		cadence:     make(map[string]int),
	}
}

func cadenceKey(vertical string, windowStart time.Time) string {
	return fmt.Sprintf("%s|%s", vertical, windowStart.UTC().Format(time.RFC3339))
}

func (m *MemoryStore) SaveDraft(ctx context.Context, d *model.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[d.ID] = *d
	return nil
}

func (m *MemoryStore) Draft(ctx context.Context, id string) (*model.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drafts[id]
	if !ok {
		return nil, model.NewNotFoundError("draft", id)
	}
	cp := d
	return &cp, nil
}

func (m *MemoryStore) SaveSignal(ctx context.Context, s *model.Signal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals[s.ID] = *s
	return nil
}

func (m *MemoryStore) Signal(ctx context.Context, id string) (*model.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.signals[id]
	if !ok {
		return nil, model.NewNotFoundError("signal", id)
	}
	cp := s
	return &cp, nil
}

func (m *MemoryStore) PendingSignals(ctx context.Context, now time.Time) ([]*model.Signal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Signal
	for _, s := range m.signals {
		if s.Status == model.SignalNew ||
			(s.Status == model.SignalSilenced && !now.Before(s.SilencedUntil)) {
			cp := s
			out = append(out, &cp)
		}
	}
	// Deterministic order for batch runs
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SaveDecision(ctx context.Context, d *model.EditorialDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions[d.ID] = *d
	if d.Token != "" {
		m.byToken[d.Token] = d.ID
		delete(m.claimed, d.Token)
	}
	return nil
}

// ReserveToken performs the claim check-and-set under one lock acquisition,
// so one token admits one evaluation at a time.
func (m *MemoryStore) ReserveToken(ctx context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, decided := m.byToken[token]; decided {
		return false, nil
	}
	if m.claimed[token] {
		return false, nil
	}
	m.claimed[token] = true
	return true, nil
}

func (m *MemoryStore) ReleaseToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claimed, token)
	return nil
}

func (m *MemoryStore) DecisionByToken(ctx context.Context, token string) (*model.EditorialDecision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byToken[token]
	if !ok {
		return nil, model.NewNotFoundError("decision for token", token)
	}
	d := m.decisions[id]
	return &d, nil
}

func (m *MemoryStore) SavePrediction(ctx context.Context, p *model.Prediction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions[p.ID] = *p
	return nil
}

func (m *MemoryStore) PendingPredictions(ctx context.Context, cutoff time.Time) ([]*model.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Prediction
	for _, p := range m.predictions {
		if p.Outcome == model.OutcomePending && p.CreatedAt.Before(cutoff) {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) AuditedPredictions(ctx context.Context, since time.Time) ([]*model.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*model.Prediction
	for _, p := range m.predictions {
		if p.Outcome != model.OutcomePending && !p.AuditedAt.Before(since) {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) SaveReputation(ctx context.Context, r *model.SourceReputation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reputations[r.SourceID] = *r
	return nil
}

func (m *MemoryStore) Reputation(ctx context.Context, sourceID string) (*model.SourceReputation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reputations[sourceID]
	if !ok {
		return nil, model.NewNotFoundError("reputation", sourceID)
	}
	cp := r
	return &cp, nil
}

func (m *MemoryStore) ReputationMultipliers(ctx context.Context) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]float64, len(m.reputations))
	for id, r := range m.reputations {
		out[id] = r.Multiplier
	}
	return out, nil
}

// TryReserveCadence performs the check-and-increment under one lock
// acquisition, so capacity can never be exceeded by concurrent callers.
func (m *MemoryStore) TryReserveCadence(ctx context.Context, vertical string, windowStart time.Time, max int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := cadenceKey(vertical, windowStart)
	if m.cadence[key] >= max {
		return false, nil
	}
	m.cadence[key]++
	return true, nil
}

func (m *MemoryStore) CadenceUsed(ctx context.Context, vertical string, windowStart time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cadence[cadenceKey(vertical, windowStart)], nil
}

func (m *MemoryStore) Close() error {
	return nil
}
