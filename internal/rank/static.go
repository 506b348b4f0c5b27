package rank

import (
	"context"

	"masthead/internal/model"
)

// StaticProvider serves a fixed corpus of sources, filtered by lexical
// overlap with the query. Used for offline runs and as the test backend.
type StaticProvider struct {
	name    string
	sources []model.Source
}

// NewStaticProvider creates a provider over a fixed corpus
func NewStaticProvider(name string, sources []model.Source) *StaticProvider {
	return &StaticProvider{name: name, sources: sources}
}

// Name returns the provider name
func (p *StaticProvider) Name() string {
	return p.name
}

// Retrieve returns corpus entries sharing at least one token with the query
func (p *StaticProvider) Retrieve(ctx context.Context, query string, f Filters) ([]model.Source, error) {
	queryTokens := tokenSet(query)

	var out []model.Source
	for _, s := range p.sources {
		if overlap(queryTokens, tokenSet(s.Title+" "+s.Abstract)) > 0 {
			out = append(out, s)
		}
	}
	return out, nil
}
