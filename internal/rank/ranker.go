// Package rank retrieves candidate sources from pluggable providers and
// orders them by a hybrid composite of lexical match, semantic similarity,
// recency and source reputation.
package rank

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"masthead/internal/cache"
	"masthead/internal/llm"
	"masthead/internal/model"
)

// Filters narrows candidate retrieval
type Filters struct {
	Providers []string `json:"providers,omitempty"` // Provider allow-list, empty means all
	MinYear   int      `json:"min_year,omitempty"`
	Tags      []string `json:"tags,omitempty"` // Must appear in title or abstract
}

// SourceProvider is one pluggable retrieval backend
type SourceProvider interface {
	Name() string
	Retrieve(ctx context.Context, query string, f Filters) ([]model.Source, error)
}

// ReputationReader supplies per-source multipliers written by the
// reputation agent. The ranker reads them fresh on every invocation.
type ReputationReader interface {
	ReputationMultipliers(ctx context.Context) (map[string]float64, error)
}

// Ranker merges provider results into one deduplicated, scored, bounded list
type Ranker struct {
	providers []SourceProvider
	embedder  llm.Provider
	reps      ReputationReader
	cache     cache.Cache
	config    model.RankerConfig
}

// NewRanker creates a ranker over the given providers
func NewRanker(providers []SourceProvider, embedder llm.Provider, reps ReputationReader, c cache.Cache, cfg model.RankerConfig) *Ranker {
	return &Ranker{
		providers: providers,
		embedder:  embedder,
		reps:      reps,
		cache:     c,
		config:    cfg,
	}
}

// Rank retrieves and scores candidates for the query. When every provider
// fails or returns nothing, a previously cached result for the same query
// is served; with no fallback either, the call fails with ErrRetrieval.
func (r *Ranker) Rank(ctx context.Context, query string, f Filters, limit int) (*model.RankedResult, error) {
	if limit <= 0 || limit > r.config.MaxResults {
		limit = r.config.MaxResults
	}

	candidates := r.retrieve(ctx, query, f)
	candidates = applyFilters(candidates, f)

	cacheKey := cache.Fingerprint("rank", query, marshalFilters(f))

	if len(candidates) == 0 {
		if r.cache != nil {
			if data, found := r.cache.Get(cacheKey); found {
				var cached model.RankedResult
				if err := json.Unmarshal(data, &cached); err == nil {
					log.Printf("ranker: serving cached fallback for %q", query)
					return &cached, nil
				}
			}
		}
		return nil, fmt.Errorf("%w for query %q", model.ErrRetrieval, query)
	}

	candidates = dedupe(candidates)

	multipliers := map[string]float64{}
	if r.reps != nil {
		m, err := r.reps.ReputationMultipliers(ctx)
		if err != nil {
			log.Printf("ranker: reputation read failed, using neutral multipliers: %v", err)
		} else {
			multipliers = m
		}
	}

	scored := r.score(ctx, query, candidates, multipliers)

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Relevance != scored[j].Relevance {
			return scored[i].Relevance > scored[j].Relevance
		}
		if scored[i].CitationCount != scored[j].CitationCount {
			return scored[i].CitationCount > scored[j].CitationCount
		}
		return scored[i].ID < scored[j].ID
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	result := &model.RankedResult{Query: query, Sources: scored}

	if r.cache != nil {
		if data, err := json.Marshal(result); err == nil {
			_ = r.cache.Set(cacheKey, data, 0)
		}
	}

	return result, nil
}

// retrieve fans out to all providers concurrently. A failing provider is
// logged and skipped; it never sinks results from the others.
func (r *Ranker) retrieve(ctx context.Context, query string, f Filters) []model.Source {
	var mu sync.Mutex
	var candidates []model.Source

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range r.providers {
		if len(f.Providers) > 0 && !contains(f.Providers, p.Name()) {
			continue
		}

		p := p
		g.Go(func() error {
			sources, err := p.Retrieve(gctx, query, f)
			if err != nil {
				log.Printf("ranker: provider %s failed: %v", p.Name(), err)
				return nil // Isolated: other providers keep going
			}
			mu.Lock()
			candidates = append(candidates, sources...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return candidates
}

// score computes the composite relevance for each candidate
func (r *Ranker) score(ctx context.Context, query string, candidates []model.Source, multipliers map[string]float64) []model.RankedSource {
	queryTokens := tokenSet(query)

	var queryVec []float64
	if r.embedder != nil {
		vec, err := r.embedder.EmbedText(ctx, query)
		if err != nil {
			log.Printf("ranker: query embedding failed, lexical-only semantics: %v", err)
		} else {
			queryVec = vec
		}
	}

	currentYear := time.Now().UTC().Year()
	out := make([]model.RankedSource, 0, len(candidates))

	for _, src := range candidates {
		text := src.Title + " " + src.Abstract

		lexical := overlap(queryTokens, tokenSet(text))

		semantic := 0.0
		if queryVec != nil {
			if vec, err := r.embedder.EmbedText(ctx, text); err == nil {
				semantic = clamp01((cosine(queryVec, vec) + 1) / 2)
			}
		}

		recency := 0.5 // Unknown year scores neutral
		if src.Year > 0 {
			age := float64(currentYear - src.Year)
			if age < 0 {
				age = 0
			}
			recency = math.Exp(-age / 10)
		}

		multiplier := 1.0
		if m, ok := multipliers[src.ID]; ok && m > 0 {
			multiplier = m
		}

		composite := (r.config.LexicalWeight*lexical +
			r.config.SemanticWeight*semantic +
			r.config.RecencyWeight*recency) * multiplier

		out = append(out, model.RankedSource{
			Source:    src,
			Relevance: composite,
			Lexical:   lexical,
			Semantic:  semantic,
			Recency:   recency,
		})
	}

	return out
}

// dedupe keeps one entry per source identity, preferring the candidate
// with the richer citation count.
func dedupe(sources []model.Source) []model.Source {
	best := make(map[string]model.Source, len(sources))
	var order []string

	for _, s := range sources {
		existing, seen := best[s.ID]
		if !seen {
			best[s.ID] = s
			order = append(order, s.ID)
			continue
		}
		if s.CitationCount > existing.CitationCount {
			best[s.ID] = s
		}
	}

	out := make([]model.Source, 0, len(best))
	for _, id := range order {
		out = append(out, best[id])
	}
	return out
}

func applyFilters(sources []model.Source, f Filters) []model.Source {
	if f.MinYear == 0 && len(f.Tags) == 0 {
		return sources
	}

	var out []model.Source
	for _, s := range sources {
		if f.MinYear > 0 && s.Year > 0 && s.Year < f.MinYear {
			continue
		}
		if len(f.Tags) > 0 && !matchesTags(s, f.Tags) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func matchesTags(s model.Source, tags []string) bool {
	text := strings.ToLower(s.Title + " " + s.Abstract)
	for _, tag := range tags {
		if strings.Contains(text, strings.ToLower(tag)) {
			return true
		}
	}
	return false
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range llm.Tokenize(text) {
		set[tok] = true
	}
	return set
}

// overlap is the fraction of query tokens present in the candidate text
func overlap(query, text map[string]bool) float64 {
	if len(query) == 0 {
		return 0
	}
	hits := 0
	for tok := range query {
		if text[tok] {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func marshalFilters(f Filters) string {
	data, _ := json.Marshal(f)
	return string(data)
}
