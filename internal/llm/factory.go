package llm

import (
	"fmt"
	"strings"

	"masthead/internal/model"
)

// NewProvider creates a provider from configuration. An empty provider name
// selects the deterministic heuristic provider, so the pipeline works
// without any API key.
func NewProvider(cfg model.LLMConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(cfg)

	case "heuristic", "":
		return NewHeuristicProvider(), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, heuristic)", cfg.Provider)
	}
}
