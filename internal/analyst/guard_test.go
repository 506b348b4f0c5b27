package analyst

import (
	"errors"
	"reflect"
	"testing"

	"masthead/internal/model"
)

func rankedSet(ids ...string) *model.RankedResult {
	r := &model.RankedResult{Query: "test"}
	for _, id := range ids {
		r.Sources = append(r.Sources, model.RankedSource{Source: model.Source{ID: id}})
	}
	return r
}

func TestGuard_ValidDraftPasses(t *testing.T) {
	guard := NewGuard(2)
	ranked := rankedSet("src-1", "src-2", "src-3")

	draft := &model.Draft{
		Claims: []model.Claim{
			{Text: "claim one", Spans: []model.EvidenceSpan{
				{SourceID: "src-1"}, {SourceID: "src-2"},
			}},
			{Text: "claim two", Spans: []model.EvidenceSpan{
				{SourceID: "src-2"}, {SourceID: "src-3"},
			}},
		},
	}

	if err := guard.Validate(draft, ranked); err != nil {
		t.Errorf("Expected valid draft to pass, got %v", err)
	}
}

func TestGuard_RejectsWholeDraftWithIndices(t *testing.T) {
	guard := NewGuard(2)
	ranked := rankedSet("src-1", "src-2")

	draft := &model.Draft{
		Claims: []model.Claim{
			{Text: "grounded", Spans: []model.EvidenceSpan{
				{SourceID: "src-1"}, {SourceID: "src-2"},
			}},
			{Text: "single span", Spans: []model.EvidenceSpan{
				{SourceID: "src-1"},
			}},
			{Text: "fabricated", Spans: []model.EvidenceSpan{
				{SourceID: "src-404"}, {SourceID: "src-405"},
			}},
		},
	}

	err := guard.Validate(draft, ranked)
	if err == nil {
		t.Fatal("Expected guard failure")
	}
	if !model.IsGuard(err) {
		t.Errorf("Expected error kind guard, got %v", err)
	}

	var failure *model.GuardFailure
	if !errors.As(err, &failure) {
		t.Fatalf("Expected *model.GuardFailure, got %T", err)
	}
	if !reflect.DeepEqual(failure.ClaimIndices, []int{1, 2}) {
		t.Errorf("Expected offending indices [1 2], got %v", failure.ClaimIndices)
	}
	if failure.Required != 2 {
		t.Errorf("Expected required 2, got %d", failure.Required)
	}
}

func TestGuard_DuplicateSourceCountsOnce(t *testing.T) {
	guard := NewGuard(2)
	ranked := rankedSet("src-1", "src-2")

	// Two excerpts of the same source are one distinct citation
	draft := &model.Draft{
		Claims: []model.Claim{
			{Text: "padded", Spans: []model.EvidenceSpan{
				{SourceID: "src-1", Excerpt: "first passage"},
				{SourceID: "src-1", Excerpt: "second passage"},
			}},
		},
	}

	if err := guard.Validate(draft, ranked); err == nil {
		t.Error("Expected duplicate-source spans to fall short of the requirement")
	}
}

func TestGuard_EmptyDraftFails(t *testing.T) {
	guard := NewGuard(2)

	err := guard.Validate(&model.Draft{}, rankedSet("src-1"))
	if err == nil {
		t.Fatal("Expected empty draft to fail the guard")
	}
	if !model.IsGuard(err) {
		t.Errorf("Expected error kind guard, got %v", err)
	}
}

func TestGuard_ValidSpans(t *testing.T) {
	guard := NewGuard(2)
	ranked := rankedSet("src-1", "src-2")

	claim := model.Claim{Spans: []model.EvidenceSpan{
		{SourceID: "src-1"},
		{SourceID: "src-1"}, // Duplicate
		{SourceID: "src-2"},
		{SourceID: "src-404"}, // Outside the set
		{SourceID: ""},        // Empty identity
	}}

	if got := guard.ValidSpans(claim, ranked); got != 2 {
		t.Errorf("Expected 2 valid spans, got %d", got)
	}
}
