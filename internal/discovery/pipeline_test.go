package discovery

import (
	"testing"

	"legacywebanalyzer/internal/model"
)

func TestApplyFilters_ExcludeMode(t *testing.T) {
	entries := []model.DiscoveredURL{
		{Normalized: model.NormalizedURL{Path: "/admin/users"}},
		{Normalized: model.NormalizedURL{Path: "/pricing"}},
		{Normalized: model.NormalizedURL{Path: "/report.pdf"}},
	}

	out := applyFilters(entries, nil, []string{"/admin/*", "*.pdf"}, FilterModeExclude)
	if len(out) != 1 {
		t.Fatalf("expected 1 entry to survive exclude filter, got %d", len(out))
	}
	if out[0].Normalized.Path != "/pricing" {
		t.Fatalf("expected /pricing to survive, got %q", out[0].Normalized.Path)
	}
}

func TestApplyFilters_IncludeMode(t *testing.T) {
	entries := []model.DiscoveredURL{
		{Normalized: model.NormalizedURL{Path: "/blog/post-1"}},
		{Normalized: model.NormalizedURL{Path: "/pricing"}},
	}

	out := applyFilters(entries, []string{"/blog/*"}, nil, FilterModeInclude)
	if len(out) != 1 {
		t.Fatalf("expected 1 entry to survive include filter, got %d", len(out))
	}
	if out[0].Normalized.Path != "/blog/post-1" {
		t.Fatalf("expected /blog/post-1 to survive, got %q", out[0].Normalized.Path)
	}
}

func TestApplyFilters_NoPatternsIsNoOp(t *testing.T) {
	entries := []model.DiscoveredURL{
		{Normalized: model.NormalizedURL{Path: "/a"}},
		{Normalized: model.NormalizedURL{Path: "/b"}},
	}
	out := applyFilters(entries, nil, nil, "")
	if len(out) != len(entries) {
		t.Fatalf("expected no-op when no patterns given, got %d entries", len(out))
	}
}

func TestComplexityEstimate_BoundedAndMonotonicInDepth(t *testing.T) {
	shallow := model.NormalizedURL{URL: "https://example.com/a", Path: "/a"}
	deep := model.NormalizedURL{URL: "https://example.com/a/b/c/d", Path: "/a/b/c/d"}

	shallowScore := complexityEstimate(shallow)
	deepScore := complexityEstimate(deep)

	if shallowScore < 1 || shallowScore > 10 {
		t.Fatalf("expected bounded score, got %d", shallowScore)
	}
	if deepScore < 1 || deepScore > 10 {
		t.Fatalf("expected bounded score, got %d", deepScore)
	}
	if deepScore <= shallowScore {
		t.Fatalf("expected deeper path to score higher: shallow=%d deep=%d", shallowScore, deepScore)
	}
}
