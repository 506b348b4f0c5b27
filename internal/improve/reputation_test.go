package improve

import (
	"context"
	"fmt"
	"testing"
	"time"

	"masthead/internal/model"
	"masthead/internal/store"
)

func improveConfig() model.ImproveConfig {
	return model.ImproveConfig{
		LookbackDays:   30,
		MinProbability: 0.6,
		MinUsages:      3,
		MinMultiplier:  0.5,
		MaxMultiplier:  1.5,
	}
}

func auditedPrediction(id string, sources []string, outcome model.PredictionOutcome, auditedAt time.Time) *model.Prediction {
	return &model.Prediction{
		ID:        id,
		DraftID:   "d1",
		ClaimText: "audited claim",
		SourceIDs: sources,
		Outcome:   outcome,
		CreatedAt: auditedAt.AddDate(0, 0, -30),
		AuditedAt: auditedAt,
	}
}

func TestReputationAgent_BoundedMultipliers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	st := store.NewMemoryStore()

	agent := NewReputationAgent(st, improveConfig())
	agent.SetClock(func() time.Time { return now })

	// src-good: all confirmed. src-bad: all falsified.
	for i := 0; i < 3; i++ {
		_ = st.SavePrediction(ctx, auditedPrediction(
			fmt.Sprintf("p-good-%d", i), []string{"src-good"}, model.OutcomeConfirmed, now.AddDate(0, 0, -1)))
		_ = st.SavePrediction(ctx, auditedPrediction(
			fmt.Sprintf("p-bad-%d", i), []string{"src-bad"}, model.OutcomeFalsified, now.AddDate(0, 0, -1)))
	}

	report, err := agent.Run(ctx, 30, 3)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Updated != 2 || report.Boosted != 1 || report.Decayed != 1 {
		t.Errorf("Unexpected report: %+v", report)
	}

	good, err := st.Reputation(ctx, "src-good")
	if err != nil {
		t.Fatalf("Reputation src-good failed: %v", err)
	}
	if good.Multiplier != 1.5 {
		t.Errorf("Expected ceiling multiplier 1.5, got %f", good.Multiplier)
	}
	if good.Confirmed != 3 || good.Falsified != 0 {
		t.Errorf("Unexpected counts: %+v", good)
	}

	bad, err := st.Reputation(ctx, "src-bad")
	if err != nil {
		t.Fatalf("Reputation src-bad failed: %v", err)
	}
	if bad.Multiplier != 0.5 {
		t.Errorf("Expected floor multiplier 0.5, got %f", bad.Multiplier)
	}
}

func TestReputationAgent_MixedOutcomesStayNeutral(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	st := store.NewMemoryStore()

	agent := NewReputationAgent(st, improveConfig())
	agent.SetClock(func() time.Time { return now })

	for i := 0; i < 2; i++ {
		_ = st.SavePrediction(ctx, auditedPrediction(
			fmt.Sprintf("p-c-%d", i), []string{"src-mixed"}, model.OutcomeConfirmed, now.AddDate(0, 0, -1)))
		_ = st.SavePrediction(ctx, auditedPrediction(
			fmt.Sprintf("p-f-%d", i), []string{"src-mixed"}, model.OutcomeFalsified, now.AddDate(0, 0, -1)))
	}

	report, err := agent.Run(ctx, 30, 3)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Updated != 1 || report.Boosted != 0 || report.Decayed != 0 {
		t.Errorf("Expected one neutral update, got %+v", report)
	}

	rep, _ := st.Reputation(ctx, "src-mixed")
	if rep.Multiplier != 1.0 {
		t.Errorf("Expected neutral multiplier 1.0, got %f", rep.Multiplier)
	}
}

func TestReputationAgent_MinUsagesSkipsThinSources(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	st := store.NewMemoryStore()

	agent := NewReputationAgent(st, improveConfig())
	agent.SetClock(func() time.Time { return now })

	_ = st.SavePrediction(ctx, auditedPrediction(
		"p-1", []string{"src-thin"}, model.OutcomeConfirmed, now.AddDate(0, 0, -1)))
	_ = st.SavePrediction(ctx, auditedPrediction(
		"p-2", []string{"src-thin"}, model.OutcomeConfirmed, now.AddDate(0, 0, -1)))

	report, err := agent.Run(ctx, 30, 3)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Updated != 0 {
		t.Errorf("Expected no updates below min usages, got %+v", report)
	}

	if _, err := st.Reputation(ctx, "src-thin"); !model.IsNotFound(err) {
		t.Errorf("Expected src-thin untouched, got %v", err)
	}
}

func TestReputationAgent_LookbackWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	st := store.NewMemoryStore()

	agent := NewReputationAgent(st, improveConfig())
	agent.SetClock(func() time.Time { return now })

	// Audited long before the window
	for i := 0; i < 3; i++ {
		_ = st.SavePrediction(ctx, auditedPrediction(
			fmt.Sprintf("p-%d", i), []string{"src-old"}, model.OutcomeConfirmed, now.AddDate(0, 0, -90)))
	}

	report, err := agent.Run(ctx, 30, 3)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Updated != 0 {
		t.Errorf("Expected stale audits outside the window ignored, got %+v", report)
	}
}
