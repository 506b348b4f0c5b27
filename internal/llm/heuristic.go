package llm

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
)

// embeddingDim is the dimensionality of heuristic embeddings. Small enough
// to be cheap, large enough that unrelated token sets rarely collide.
const embeddingDim = 64

// HeuristicProvider is a deterministic, offline stand-in for a language
// model. Generation returns a compact digest of the prompt; embeddings are
// hashed bag-of-words vectors, so texts sharing vocabulary score high
// cosine similarity. No network, no API key, stable across runs.
type HeuristicProvider struct{}

// NewHeuristicProvider creates a new heuristic provider
func NewHeuristicProvider() *HeuristicProvider {
	return &HeuristicProvider{}
}

// Name returns the provider name
func (p *HeuristicProvider) Name() string {
	return "heuristic"
}

// IsAvailable always succeeds: there is nothing to reach
func (p *HeuristicProvider) IsAvailable(ctx context.Context) bool {
	return true
}

// GenerateText returns a deterministic digest of the prompt
func (p *HeuristicProvider) GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	words := strings.Fields(req.Prompt)
	limit := 40
	if len(words) < limit {
		limit = len(words)
	}

	return &GenerateResponse{
		Text:  strings.Join(words[:limit], " "),
		Model: "heuristic",
	}, nil
}

// EmbedText hashes tokens into a fixed-dimension unit vector
func (p *HeuristicProvider) EmbedText(ctx context.Context, text string) ([]float64, error) {
	vec := make([]float64, embeddingDim)

	for _, token := range Tokenize(text) {
		hash := sha256.Sum256([]byte(token))
		idx := binary.BigEndian.Uint32(hash[:4]) % embeddingDim
		// Sign from a second hash byte spreads tokens across both directions
		sign := 1.0
		if hash[4]%2 == 1 {
			sign = -1.0
		}
		vec[idx] += sign
	}

	// Normalize to unit length so cosine similarity is a plain dot product
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}

	return vec, nil
}

// Tokenize lowercases and splits text into alphanumeric tokens, dropping
// short stopword-like fragments.
func Tokenize(text string) []string {
	var tokens []string
	var b strings.Builder

	flush := func() {
		if b.Len() >= 3 {
			tokens = append(tokens, b.String())
		}
		b.Reset()
	}

	for _, r := range strings.ToLower(text) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}
