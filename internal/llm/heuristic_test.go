package llm

import (
	"context"
	"math"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "lowercases and splits on punctuation",
			in:   "Grid-Storage costs FELL, sharply.",
			want: []string{"grid", "storage", "costs", "fell", "sharply"},
		},
		{
			name: "drops short fragments",
			in:   "a to of the big cat",
			want: []string{"the", "big", "cat"},
		},
		{
			name: "keeps digits",
			in:   "by 2030 capacity doubles",
			want: []string{"2030", "capacity", "doubles"},
		},
		{
			name: "empty input",
			in:   "",
			want: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Tokenize(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestHeuristicProvider_GenerateText(t *testing.T) {
	ctx := context.Background()
	p := NewHeuristicProvider()

	resp, err := p.GenerateText(ctx, GenerateRequest{Prompt: "solar capacity grew fast this year"})
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if resp.Text == "" {
		t.Error("Expected non-empty digest")
	}

	again, _ := p.GenerateText(ctx, GenerateRequest{Prompt: "solar capacity grew fast this year"})
	if resp.Text != again.Text {
		t.Error("Expected deterministic generation for identical prompts")
	}
}

func TestHeuristicProvider_EmbedText(t *testing.T) {
	ctx := context.Background()
	p := NewHeuristicProvider()

	vec, err := p.EmbedText(ctx, "battery storage costs decline")
	if err != nil {
		t.Fatalf("EmbedText failed: %v", err)
	}
	if len(vec) != embeddingDim {
		t.Fatalf("Expected %d dimensions, got %d", embeddingDim, len(vec))
	}

	// Unit length
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if math.Abs(norm-1) > 1e-9 {
		t.Errorf("Expected unit vector, got squared norm %f", norm)
	}

	// Deterministic
	again, _ := p.EmbedText(ctx, "battery storage costs decline")
	if !reflect.DeepEqual(vec, again) {
		t.Error("Expected identical embedding for identical text")
	}
}

func TestHeuristicProvider_EmbeddingSimilarity(t *testing.T) {
	ctx := context.Background()
	p := NewHeuristicProvider()

	base, _ := p.EmbedText(ctx, "battery storage costs decline rapidly")
	near, _ := p.EmbedText(ctx, "storage battery costs are declining")
	far, _ := p.EmbedText(ctx, "orchestral premieres delighted vienna audiences")

	if dot(base, near) <= dot(base, far) {
		t.Errorf("Expected shared vocabulary to score higher: near=%f far=%f",
			dot(base, near), dot(base, far))
	}
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func TestHeuristicProvider_IsAvailable(t *testing.T) {
	if !NewHeuristicProvider().IsAvailable(context.Background()) {
		t.Error("Heuristic provider must always be available")
	}
}
