package llm

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"masthead/internal/cache"
)

// CachedProvider wraps a Provider with a content-addressed response cache.
// The key is a fingerprint of the full request, so repeated identical calls
// never reach the underlying model twice within the TTL.
type CachedProvider struct {
	inner Provider
	store cache.Cache
	ttl   time.Duration
}

// NewCachedProvider creates a caching wrapper around a provider
func NewCachedProvider(inner Provider, store cache.Cache, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		store: store,
		ttl:   ttl,
	}
}

// Name returns the underlying provider name
func (p *CachedProvider) Name() string {
	return p.inner.Name()
}

// IsAvailable delegates to the underlying provider
func (p *CachedProvider) IsAvailable(ctx context.Context) bool {
	return p.inner.IsAvailable(ctx)
}

// GenerateText answers from cache when possible
func (p *CachedProvider) GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	key := cache.Fingerprint(
		"generate",
		p.inner.Name(),
		req.Model,
		req.System,
		req.Prompt,
		strconv.Itoa(req.MaxTokens),
		strconv.FormatFloat(float64(req.Temperature), 'f', -1, 32),
		strconv.FormatBool(req.JSONMode),
	)

	if data, found := p.store.Get(key); found {
		var resp GenerateResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			return &resp, nil
		}
	}

	resp, err := p.inner.GenerateText(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(resp); err == nil {
		_ = p.store.Set(key, data, p.ttl)
	}

	return resp, nil
}

// EmbedText answers from cache when possible
func (p *CachedProvider) EmbedText(ctx context.Context, text string) ([]float64, error) {
	key := cache.Fingerprint("embed", p.inner.Name(), text)

	if data, found := p.store.Get(key); found {
		var vec []float64
		if err := json.Unmarshal(data, &vec); err == nil {
			return vec, nil
		}
	}

	vec, err := p.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vec); err == nil {
		_ = p.store.Set(key, data, p.ttl)
	}

	return vec, nil
}
