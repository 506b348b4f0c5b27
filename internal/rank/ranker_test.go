package rank

import (
	"context"
	"errors"
	"testing"
	"time"

	"masthead/internal/cache"
	"masthead/internal/llm"
	"masthead/internal/model"
)

func rankerConfig() model.RankerConfig {
	return model.RankerConfig{
		LexicalWeight:  0.35,
		SemanticWeight: 0.35,
		RecencyWeight:  0.30,
		MaxResults:     20,
	}
}

func testCorpus() []model.Source {
	return []model.Source{
		{ID: "src-1", Title: "Grid battery storage costs", Abstract: "Battery storage costs fell sharply across utility markets.", Provider: "corpus", Year: 2026, CitationCount: 40},
		{ID: "src-2", Title: "Storage deployment outlook", Abstract: "Grid storage deployment grows with falling battery costs.", Provider: "corpus", Year: 2025, CitationCount: 25},
		{ID: "src-3", Title: "Opera festival program", Abstract: "The festival features orchestral premieres and recitals.", Provider: "corpus", Year: 2026, CitationCount: 5},
	}
}

// failingProvider always errors
type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }
func (failingProvider) Retrieve(ctx context.Context, query string, f Filters) ([]model.Source, error) {
	return nil, errors.New("backend down")
}

func TestRanker_RankOrdersByRelevance(t *testing.T) {
	ctx := context.Background()
	r := NewRanker(
		[]SourceProvider{NewStaticProvider("corpus", testCorpus())},
		llm.NewHeuristicProvider(), nil, nil, rankerConfig())

	result, err := r.Rank(ctx, "battery storage costs", Filters{}, 0)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(result.Sources) == 0 {
		t.Fatal("Expected ranked sources")
	}

	if result.Sources[0].ID != "src-1" {
		t.Errorf("Expected src-1 to rank first, got %s", result.Sources[0].ID)
	}

	for i := 1; i < len(result.Sources); i++ {
		if result.Sources[i].Relevance > result.Sources[i-1].Relevance {
			t.Errorf("Relevance not descending at %d", i)
		}
	}

	// Transparent breakdown accompanies the composite
	top := result.Sources[0]
	if top.Lexical <= 0 {
		t.Error("Expected positive lexical component for a matching source")
	}
	if top.Recency <= 0 {
		t.Error("Expected positive recency component for a dated source")
	}
}

func TestRanker_Deterministic(t *testing.T) {
	ctx := context.Background()
	r := NewRanker(
		[]SourceProvider{NewStaticProvider("corpus", testCorpus())},
		llm.NewHeuristicProvider(), nil, nil, rankerConfig())

	first, err := r.Rank(ctx, "battery storage costs", Filters{}, 0)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	second, err := r.Rank(ctx, "battery storage costs", Filters{}, 0)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	if len(first.Sources) != len(second.Sources) {
		t.Fatalf("Result sizes differ: %d vs %d", len(first.Sources), len(second.Sources))
	}
	for i := range first.Sources {
		if first.Sources[i].ID != second.Sources[i].ID {
			t.Errorf("Order differs at %d: %s vs %s", i, first.Sources[i].ID, second.Sources[i].ID)
		}
		if first.Sources[i].Relevance != second.Sources[i].Relevance {
			t.Errorf("Score differs at %d", i)
		}
	}
}

func TestRanker_TieBreakByID(t *testing.T) {
	ctx := context.Background()
	// Two identical sources under different IDs score identically
	corpus := []model.Source{
		{ID: "src-b", Title: "storage report", Abstract: "storage findings", Year: 2026, CitationCount: 10},
		{ID: "src-a", Title: "storage report", Abstract: "storage findings", Year: 2026, CitationCount: 10},
	}
	r := NewRanker(
		[]SourceProvider{NewStaticProvider("corpus", corpus)},
		llm.NewHeuristicProvider(), nil, nil, rankerConfig())

	result, err := r.Rank(ctx, "storage report", Filters{}, 0)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(result.Sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(result.Sources))
	}
	if result.Sources[0].ID != "src-a" {
		t.Errorf("Expected lexicographic tie-break, got %s first", result.Sources[0].ID)
	}
}

func TestRanker_DedupeKeepsRicherRecord(t *testing.T) {
	ctx := context.Background()
	shared := model.Source{ID: "src-1", Title: "storage report", Abstract: "storage findings", Year: 2026}

	thin := shared
	thin.CitationCount = 2
	rich := shared
	rich.CitationCount = 50

	r := NewRanker(
		[]SourceProvider{
			NewStaticProvider("alpha", []model.Source{thin}),
			NewStaticProvider("beta", []model.Source{rich}),
		},
		llm.NewHeuristicProvider(), nil, nil, rankerConfig())

	result, err := r.Rank(ctx, "storage report", Filters{}, 0)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(result.Sources) != 1 {
		t.Fatalf("Expected 1 deduplicated source, got %d", len(result.Sources))
	}
	if result.Sources[0].CitationCount != 50 {
		t.Errorf("Expected the richer record kept, got citation count %d", result.Sources[0].CitationCount)
	}
}

func TestRanker_Limit(t *testing.T) {
	ctx := context.Background()
	r := NewRanker(
		[]SourceProvider{NewStaticProvider("corpus", testCorpus())},
		llm.NewHeuristicProvider(), nil, nil, rankerConfig())

	result, err := r.Rank(ctx, "storage costs", Filters{}, 1)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(result.Sources) != 1 {
		t.Errorf("Expected exactly 1 source, got %d", len(result.Sources))
	}
}

func TestRanker_MinYearFilter(t *testing.T) {
	ctx := context.Background()
	r := NewRanker(
		[]SourceProvider{NewStaticProvider("corpus", testCorpus())},
		llm.NewHeuristicProvider(), nil, nil, rankerConfig())

	result, err := r.Rank(ctx, "battery storage costs", Filters{MinYear: 2026}, 0)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	for _, s := range result.Sources {
		if s.Year < 2026 {
			t.Errorf("Source %s predates the year filter: %d", s.ID, s.Year)
		}
	}
}

func TestRanker_CachedFallback(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache(time.Minute, time.Minute)

	healthy := NewRanker(
		[]SourceProvider{NewStaticProvider("corpus", testCorpus())},
		llm.NewHeuristicProvider(), nil, c, rankerConfig())

	want, err := healthy.Rank(ctx, "battery storage costs", Filters{}, 0)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}

	// Same cache, dead backend: the cached ranking still answers
	broken := NewRanker(
		[]SourceProvider{failingProvider{}},
		llm.NewHeuristicProvider(), nil, c, rankerConfig())

	got, err := broken.Rank(ctx, "battery storage costs", Filters{}, 0)
	if err != nil {
		t.Fatalf("Expected cached fallback, got error: %v", err)
	}
	if len(got.Sources) != len(want.Sources) {
		t.Errorf("Fallback size differs: %d vs %d", len(got.Sources), len(want.Sources))
	}
}

func TestRanker_RetrievalError(t *testing.T) {
	ctx := context.Background()
	r := NewRanker(
		[]SourceProvider{failingProvider{}},
		llm.NewHeuristicProvider(), nil, nil, rankerConfig())

	_, err := r.Rank(ctx, "anything", Filters{}, 0)
	if err == nil {
		t.Fatal("Expected an error with no providers and no cache")
	}
	if !model.IsRetrieval(err) {
		t.Errorf("Expected error kind retrieval, got %v", err)
	}
}

func TestRanker_ProviderFailureIsolation(t *testing.T) {
	ctx := context.Background()
	r := NewRanker(
		[]SourceProvider{
			failingProvider{},
			NewStaticProvider("corpus", testCorpus()),
		},
		llm.NewHeuristicProvider(), nil, nil, rankerConfig())

	result, err := r.Rank(ctx, "battery storage costs", Filters{}, 0)
	if err != nil {
		t.Fatalf("Expected healthy provider to carry the query, got %v", err)
	}
	if len(result.Sources) == 0 {
		t.Error("Expected sources from the healthy provider")
	}
}

// reputationMap is a fixed ReputationReader
type reputationMap map[string]float64

func (m reputationMap) ReputationMultipliers(ctx context.Context) (map[string]float64, error) {
	return m, nil
}

func TestRanker_ReputationMultiplier(t *testing.T) {
	ctx := context.Background()
	corpus := []model.Source{
		{ID: "src-up", Title: "storage report", Abstract: "storage findings", Year: 2026},
		{ID: "src-down", Title: "storage report", Abstract: "storage findings", Year: 2026},
	}
	reps := reputationMap{"src-up": 1.5, "src-down": 0.5}

	r := NewRanker(
		[]SourceProvider{NewStaticProvider("corpus", corpus)},
		llm.NewHeuristicProvider(), reps, nil, rankerConfig())

	result, err := r.Rank(ctx, "storage report", Filters{}, 0)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if result.Sources[0].ID != "src-up" {
		t.Errorf("Expected boosted source first, got %s", result.Sources[0].ID)
	}
	if result.Sources[0].Relevance <= result.Sources[1].Relevance {
		t.Error("Expected multiplier to separate identical sources")
	}
}
