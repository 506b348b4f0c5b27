package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"masthead/internal/analyst"
	"masthead/internal/cache"
	"masthead/internal/cadence"
	"masthead/internal/critic"
	"masthead/internal/gate"
	"masthead/internal/improve"
	"masthead/internal/llm"
	"masthead/internal/model"
	"masthead/internal/pipeline"
	"masthead/internal/rank"
	"masthead/internal/score"
	"masthead/internal/store"
	"masthead/internal/worker"
)

// app holds one assembled pipeline plus the store it owns
type app struct {
	pipeline *pipeline.Pipeline
	store    store.Store
}

// buildApp assembles every component from the effective configuration.
// The caller must Close the returned app.
func buildApp(cfg *model.Config) (*app, error) {
	var st store.Store
	if cfg.Store.Path != "" {
		s, err := store.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
		}
		st = s
	} else {
		st = store.NewMemoryStore()
	}

	var responseCache cache.Cache
	if cfg.Cache.Enabled {
		if cfg.Cache.DiskDir != "" {
			responseCache = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.CleanupPeriod, cfg.Cache.DiskDir, cfg.Cache.DiskTTL)
		} else {
			responseCache = cache.NewMemoryCache(cfg.Cache.MemoryTTL, cfg.Cache.CleanupPeriod)
		}
	}

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if responseCache != nil {
		provider = llm.NewCachedProvider(provider, responseCache, cfg.Cache.DiskTTL)
	}

	sources, err := loadSources(sourcesFile)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	providers := []rank.SourceProvider{rank.NewStaticProvider("corpus", sources)}
	ranker := rank.NewRanker(providers, provider, st, responseCache, cfg.Ranker)

	var generator analyst.ClaimGenerator
	if provider.Name() == "heuristic" {
		generator = analyst.NewHeuristicGenerator()
	} else {
		generator = analyst.NewLLMGenerator(provider, cfg.Editorial.MinEvidenceSpans, cfg.LLM.MaxTokens)
	}

	an := analyst.NewAnalyst(generator)
	guard := analyst.NewGuard(cfg.Editorial.MinEvidenceSpans)
	scorer := score.NewScorer(guard)
	cr := critic.NewCritic(provider)

	counter := cadence.NewCounter(st, cfg.Cadence.MaxPerWeek)
	g := gate.NewGate(st, counter, cfg.Editorial)

	auditor := improve.NewAuditor(st, ranker)
	repAgent := improve.NewReputationAgent(st, cfg.Improve)

	limiter := worker.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	p := pipeline.New(st, ranker, an, guard, scorer, cr, g,
		auditor, repAgent, limiter, pipeline.LogNotifier{}, cfg)

	return &app{pipeline: p, store: st}, nil
}

// Close releases the app's store
func (a *app) Close() error {
	return a.store.Close()
}

// loadSources reads the source corpus from a JSON file. An empty path is
// allowed: the ranker then serves only cached fallbacks.
func loadSources(path string) ([]model.Source, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources %s: %w", path, err)
	}

	var sources []model.Source
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("parse sources %s: %w", path, err)
	}
	return sources, nil
}

// renderJSON pretty-prints a result to stdout
func renderJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
