package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"masthead/internal/model"
)

func TestMemoryStore_DraftRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	draft := &model.Draft{
		ID:       "d1",
		SignalID: "s1",
		Vertical: "energy",
		Title:    "Grid storage",
		Claims: []model.Claim{
			{Text: "storage costs fell", Type: model.ClaimFactual,
				Spans: []model.EvidenceSpan{{SourceID: "src-1"}}},
		},
		SourceIDs: []string{"src-1"},
		Trust:     0.8,
		Status:    model.StatusDraft,
		CreatedAt: time.Now().UTC(),
	}

	if err := st.SaveDraft(ctx, draft); err != nil {
		t.Fatalf("SaveDraft failed: %v", err)
	}

	loaded, err := st.Draft(ctx, "d1")
	if err != nil {
		t.Fatalf("Draft failed: %v", err)
	}
	if loaded.Title != draft.Title || loaded.Trust != draft.Trust {
		t.Errorf("Loaded draft differs: got %+v", loaded)
	}
	if len(loaded.Claims) != 1 {
		t.Errorf("Expected 1 claim, got %d", len(loaded.Claims))
	}

	// Stored copy must not alias the caller's struct
	draft.Title = "mutated"
	loaded, _ = st.Draft(ctx, "d1")
	if loaded.Title == "mutated" {
		t.Error("Store aliases caller memory")
	}
}

func TestMemoryStore_NotFound(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	if _, err := st.Draft(ctx, "missing"); !model.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
	if _, err := st.Signal(ctx, "missing"); !model.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
	if _, err := st.DecisionByToken(ctx, "missing"); !model.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
	if _, err := st.Reputation(ctx, "missing"); !model.IsNotFound(err) {
		t.Errorf("Expected not-found error, got %v", err)
	}
}

func TestMemoryStore_DecisionByToken(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	decision := &model.EditorialDecision{
		ID:       "dec-1",
		Token:    "tok-1",
		DraftID:  "d1",
		Decision: model.DecisionPublished,
		Reasons:  []string{"published within cadence capacity"},
	}
	if err := st.SaveDecision(ctx, decision); err != nil {
		t.Fatalf("SaveDecision failed: %v", err)
	}

	loaded, err := st.DecisionByToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("DecisionByToken failed: %v", err)
	}
	if loaded.ID != "dec-1" || loaded.Decision != model.DecisionPublished {
		t.Errorf("Loaded decision differs: %+v", loaded)
	}

	// Empty tokens never index
	_ = st.SaveDecision(ctx, &model.EditorialDecision{ID: "dec-2", Decision: model.DecisionHeld})
	if _, err := st.DecisionByToken(ctx, ""); !model.IsNotFound(err) {
		t.Errorf("Expected not-found for empty token, got %v", err)
	}
}

func TestMemoryStore_PendingSignals(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	_ = st.SaveSignal(ctx, &model.Signal{ID: "s-new", Status: model.SignalNew})
	_ = st.SaveSignal(ctx, &model.Signal{ID: "s-done", Status: model.SignalCommissioned})
	_ = st.SaveSignal(ctx, &model.Signal{
		ID: "s-muted", Status: model.SignalSilenced,
		SilencedUntil: now.Add(24 * time.Hour),
	})
	_ = st.SaveSignal(ctx, &model.Signal{
		ID: "s-lapsed", Status: model.SignalSilenced,
		SilencedUntil: now.Add(-time.Minute),
	})

	pending, err := st.PendingSignals(ctx, now)
	if err != nil {
		t.Fatalf("PendingSignals failed: %v", err)
	}

	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending signals, got %d", len(pending))
	}
	// Sorted by ID: s-lapsed before s-new
	if pending[0].ID != "s-lapsed" || pending[1].ID != "s-new" {
		t.Errorf("Unexpected pending order: %s, %s", pending[0].ID, pending[1].ID)
	}
}

func TestMemoryStore_PendingSignals_CooldownBoundary(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	boundary := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	_ = st.SaveSignal(ctx, &model.Signal{
		ID: "s1", Status: model.SignalSilenced, SilencedUntil: boundary,
	})

	// One instant before expiry: still silenced
	pending, _ := st.PendingSignals(ctx, boundary.Add(-time.Nanosecond))
	if len(pending) != 0 {
		t.Errorf("Expected no pending signals before cooldown expiry, got %d", len(pending))
	}

	// Exactly at expiry: eligible again
	pending, _ = st.PendingSignals(ctx, boundary)
	if len(pending) != 1 {
		t.Errorf("Expected signal eligible exactly at cooldown expiry, got %d", len(pending))
	}
}

func TestMemoryStore_Predictions(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	_ = st.SavePrediction(ctx, &model.Prediction{
		ID: "p-old", Outcome: model.OutcomePending, CreatedAt: now.AddDate(0, 0, -40),
	})
	_ = st.SavePrediction(ctx, &model.Prediction{
		ID: "p-fresh", Outcome: model.OutcomePending, CreatedAt: now,
	})
	_ = st.SavePrediction(ctx, &model.Prediction{
		ID: "p-done", Outcome: model.OutcomeConfirmed,
		CreatedAt: now.AddDate(0, 0, -40), AuditedAt: now,
	})

	cutoff := now.AddDate(0, 0, -30)
	pending, err := st.PendingPredictions(ctx, cutoff)
	if err != nil {
		t.Fatalf("PendingPredictions failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "p-old" {
		t.Errorf("Expected only p-old pending, got %+v", pending)
	}

	audited, err := st.AuditedPredictions(ctx, now.AddDate(0, 0, -1))
	if err != nil {
		t.Fatalf("AuditedPredictions failed: %v", err)
	}
	if len(audited) != 1 || audited[0].ID != "p-done" {
		t.Errorf("Expected only p-done audited, got %+v", audited)
	}
}

func TestMemoryStore_ReputationMultipliers(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	_ = st.SaveReputation(ctx, &model.SourceReputation{SourceID: "src-1", Multiplier: 1.5})
	_ = st.SaveReputation(ctx, &model.SourceReputation{SourceID: "src-2", Multiplier: 0.5})

	multipliers, err := st.ReputationMultipliers(ctx)
	if err != nil {
		t.Fatalf("ReputationMultipliers failed: %v", err)
	}
	if multipliers["src-1"] != 1.5 || multipliers["src-2"] != 0.5 {
		t.Errorf("Unexpected multipliers: %+v", multipliers)
	}
}

func TestMemoryStore_TryReserveCadence_Concurrent(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	window := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	max := 3

	const callers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.TryReserveCadence(ctx, "energy", window, max)
			if err != nil {
				t.Errorf("TryReserveCadence failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != max {
		t.Errorf("Expected exactly %d successes, got %d", max, successes)
	}

	used, err := st.CadenceUsed(ctx, "energy", window)
	if err != nil {
		t.Fatalf("CadenceUsed failed: %v", err)
	}
	if used != max {
		t.Errorf("Expected count %d, got %d", max, used)
	}
}

func TestMemoryStore_ReserveToken(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	claimed, err := st.ReserveToken(ctx, "tok")
	if err != nil {
		t.Fatalf("ReserveToken failed: %v", err)
	}
	if !claimed {
		t.Fatal("Expected the first claim to win")
	}

	claimed, _ = st.ReserveToken(ctx, "tok")
	if claimed {
		t.Error("Expected a second claim to lose while the first is in flight")
	}

	if err := st.ReleaseToken(ctx, "tok"); err != nil {
		t.Fatalf("ReleaseToken failed: %v", err)
	}
	claimed, _ = st.ReserveToken(ctx, "tok")
	if !claimed {
		t.Error("Expected a released token to be claimable again")
	}

	// A recorded decision resolves the token for good
	err = st.SaveDecision(ctx, &model.EditorialDecision{
		ID: "dec-1", Token: "tok", Decision: model.DecisionPublished,
	})
	if err != nil {
		t.Fatalf("SaveDecision failed: %v", err)
	}
	claimed, _ = st.ReserveToken(ctx, "tok")
	if claimed {
		t.Error("Expected a decided token to stay resolved")
	}
}

func TestMemoryStore_ReserveToken_Concurrent(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	const callers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.ReserveToken(ctx, "tok")
			if err != nil {
				t.Errorf("ReserveToken failed: %v", err)
				return
			}
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Errorf("Expected exactly one winner for one token, got %d", winners)
	}
}
