package analyst

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"masthead/internal/llm"
	"masthead/internal/model"
)

// Synthesis is the structured narrative produced by a generator before
// guard validation.
type Synthesis struct {
	Title     string        `json:"title"`
	Narrative string        `json:"narrative"`
	Claims    []model.Claim `json:"claims"`
}

// ClaimGenerator produces a claim-bearing narrative for a ranked source set
type ClaimGenerator interface {
	Name() string
	Generate(ctx context.Context, topic string, ranked *model.RankedResult) (*Synthesis, error)
}

// LLMGenerator synthesizes via a language model with a strict source-ID
// allowlist: the model may only cite identifiers from the supplied ranked
// set. Out-of-set citations are caught by the guard afterwards regardless.
type LLMGenerator struct {
	provider  llm.Provider
	minSpans  int
	maxTokens int
}

// NewLLMGenerator creates an LLM-backed generator
func NewLLMGenerator(provider llm.Provider, minSpans, maxTokens int) *LLMGenerator {
	return &LLMGenerator{
		provider:  provider,
		minSpans:  minSpans,
		maxTokens: maxTokens,
	}
}

// Name returns the generator name
func (g *LLMGenerator) Name() string {
	return "llm:" + g.provider.Name()
}

// Generate prompts the model for structured claims and parses the JSON reply
func (g *LLMGenerator) Generate(ctx context.Context, topic string, ranked *model.RankedResult) (*Synthesis, error) {
	resp, err := g.provider.GenerateText(ctx, llm.GenerateRequest{
		System:      synthesisSystem,
		Prompt:      buildSynthesisPrompt(topic, ranked, g.minSpans),
		MaxTokens:   g.maxTokens,
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis call: %w", err)
	}

	var syn Synthesis
	if err := json.Unmarshal([]byte(resp.Text), &syn); err != nil {
		return nil, fmt.Errorf("parse synthesis JSON: %w", err)
	}

	for i := range syn.Claims {
		switch syn.Claims[i].Type {
		case model.ClaimFactual, model.ClaimPredictive, model.ClaimNormative:
		default:
			syn.Claims[i].Type = model.ClaimFactual
		}
	}

	return &syn, nil
}

const synthesisSystem = `You are a research analyst. You write short evidence-bound narratives.
Every claim you make must cite passages from the allowed sources only.
Never cite a source identifier outside the allowed list. Respond with valid JSON.`

func buildSynthesisPrompt(topic string, ranked *model.RankedResult, minSpans int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Topic: %s\n\nAllowed sources (cite by id only):\n", topic)
	for _, s := range ranked.Sources {
		fmt.Fprintf(&b, "- id=%s year=%d title=%q abstract=%q\n", s.ID, s.Year, s.Title, s.Abstract)
	}

	fmt.Fprintf(&b, `
Write a narrative on the topic as JSON:
{"title": "...", "narrative": "...", "claims": [
  {"text": "...", "type": "factual|predictive|normative",
   "spans": [{"source_id": "...", "excerpt": "..."}]}
]}

CRITICAL RULES:
1. Every claim needs at least %d spans, each from a DIFFERENT allowed source id.
2. Excerpts must be verbatim fragments of the listed abstracts.
3. If the sources cannot support a claim, leave it out. Do not invent citations.
`, minSpans)

	return b.String()
}
