package llm

import "context"

// Provider defines the language-model capability the core consumes.
// The core never chooses the underlying model; callers configure one
// provider and every component goes through this interface.
type Provider interface {
	// Name returns the provider name
	Name() string

	// GenerateText produces a completion for the given request
	GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// EmbedText produces an embedding vector for semantic similarity
	EmbedText(ctx context.Context, text string) ([]float64, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest contains the input for text generation
type GenerateRequest struct {
	// System is the system message framing the task
	System string

	// Prompt is the user-visible instruction
	Prompt string

	// Model overrides the configured model (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int

	// Temperature controls sampling; low values for factual output
	Temperature float32

	// JSONMode forces structured JSON output where the provider supports it
	JSONMode bool
}

// GenerateResponse contains the generation output
type GenerateResponse struct {
	Text       string
	Model      string
	TokensUsed int
}
