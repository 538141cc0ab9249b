package orchestrator

import (
	"testing"

	"legacywebanalyzer/internal/model"
)

func entry(path string, depth int, complexity int) model.DiscoveredURL {
	return model.DiscoveredURL{
		Normalized:         model.NormalizedURL{URL: "https://example.com" + path, Path: path},
		Internal:           true,
		Depth:              depth,
		ComplexityEstimate: complexity,
	}
}

func TestModePreset_QuickHonorsCallerStep2(t *testing.T) {
	maxPages, step2 := modePreset(ModeQuick, 0, false)
	if maxPages != 10 {
		t.Fatalf("expected quick mode to cap at 10 pages, got %d", maxPages)
	}
	if step2 {
		t.Fatal("expected quick mode to defer to caller's includeStep2 when false")
	}
}

func TestModePreset_ComprehensiveAlwaysIncludesStep2(t *testing.T) {
	maxPages, step2 := modePreset(ModeComprehensive, 0, false)
	if maxPages != 50 {
		t.Fatalf("expected comprehensive mode to cap at 50 pages, got %d", maxPages)
	}
	if !step2 {
		t.Fatal("expected comprehensive mode to force step2 on")
	}
}

func TestModePreset_TargetedUsesCallerMaxPages(t *testing.T) {
	maxPages, step2 := modePreset(ModeTargeted, 7, false)
	if maxPages != 7 {
		t.Fatalf("expected targeted mode to use caller max pages, got %d", maxPages)
	}
	if !step2 {
		t.Fatal("expected targeted mode to force step2 on")
	}
}

func TestModePreset_DefaultsToRecommended(t *testing.T) {
	maxPages, step2 := modePreset("", 0, false)
	if maxPages != 20 || !step2 {
		t.Fatalf("expected recommended defaults (20, true), got (%d, %v)", maxPages, step2)
	}
}

func TestSelectPages_ExcludesAssetsAndExternalURLs(t *testing.T) {
	inventory := &model.URLInventory{Entries: []model.DiscoveredURL{
		entry("/a", 1, 5),
		{Normalized: model.NormalizedURL{URL: "https://cdn.example.com/logo.png"}, Internal: true, IsAsset: true},
		{Normalized: model.NormalizedURL{URL: "https://other.com/b"}, Internal: false},
	}}

	selected, _ := selectPages(inventory, Options{Mode: ModeRecommended})
	if len(selected) != 1 {
		t.Fatalf("expected 1 selected page after filtering, got %d", len(selected))
	}
	if selected[0].Normalized.Path != "/a" {
		t.Fatalf("unexpected selected page: %+v", selected[0])
	}
}

func TestSelectPages_OrdersByScoreThenDiscoveryIndex(t *testing.T) {
	inventory := &model.URLInventory{Entries: []model.DiscoveredURL{
		entry("/low", 5, 1),
		entry("/high", 0, 10),
	}}

	selected, _ := selectPages(inventory, Options{Mode: ModeRecommended})
	if len(selected) != 2 {
		t.Fatalf("expected 2 selected pages, got %d", len(selected))
	}
	if selected[0].Normalized.Path != "/high" {
		t.Fatalf("expected /high to rank first, got %+v", selected)
	}
}

func TestSelectPages_TruncatesToMaxPages(t *testing.T) {
	entries := make([]model.DiscoveredURL, 0, 15)
	for i := 0; i < 15; i++ {
		entries = append(entries, entry("/p", 1, i))
	}
	inventory := &model.URLInventory{Entries: entries}

	selected, _ := selectPages(inventory, Options{Mode: ModeQuick})
	if len(selected) != 10 {
		t.Fatalf("expected quick mode to truncate to 10 pages, got %d", len(selected))
	}
}

func TestPageSelectionScore_RewardsFocusAreaKeywordMatch(t *testing.T) {
	withMatch := entry("/checkout", 1, 5)
	withMatch.Title = "Checkout"
	withoutMatch := entry("/about", 1, 5)
	withoutMatch.Title = "About Us"

	scoreWith := pageSelectionScore(withMatch, []string{"checkout"})
	scoreWithout := pageSelectionScore(withoutMatch, []string{"checkout"})
	if scoreWith <= scoreWithout {
		t.Fatalf("expected focus-area match to score higher: with=%.3f without=%.3f", scoreWith, scoreWithout)
	}
}

func TestPageSelectionScore_RewardsShallowerDepth(t *testing.T) {
	shallow := pageSelectionScore(entry("/a", 0, 0), nil)
	deep := pageSelectionScore(entry("/a", 10, 0), nil)
	if shallow <= deep {
		t.Fatalf("expected shallower page to score higher: shallow=%.3f deep=%.3f", shallow, deep)
	}
}

func TestBuildProjectMetadata_AggregatesCountsAndQuality(t *testing.T) {
	results := map[string]model.PageResult{
		"a": {
			State: model.PageCompleted,
			Step1: &model.ContentSummary{Quality: model.QualityBreakdown{Overall: 0.8}},
			Step2: &model.FeatureAnalysis{QualityScore: 0.6},
		},
		"b": {State: model.PageStep1Failed},
	}

	meta := buildProjectMetadata("proj-1", "https://example.com", results)
	if meta.Counts.Total != 2 || meta.Counts.Completed != 1 || meta.Counts.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", meta.Counts)
	}
	if meta.QualitySummary.AverageStep1Quality != 0.8 {
		t.Fatalf("expected average step1 quality 0.8, got %.2f", meta.QualitySummary.AverageStep1Quality)
	}
	if meta.QualitySummary.AverageStep2Quality != 0.6 {
		t.Fatalf("expected average step2 quality 0.6, got %.2f", meta.QualitySummary.AverageStep2Quality)
	}
}

func TestTruncateHTML_LeavesShortInputUnchanged(t *testing.T) {
	if got := truncateHTML("<p>hi</p>", 100); got != "<p>hi</p>" {
		t.Fatalf("expected unchanged input, got %q", got)
	}
}

func TestTruncateHTML_CutsAtMaxLen(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'a'
	}
	got := truncateHTML(string(long), maxHTMLExcerptChars)
	if len(got) != maxHTMLExcerptChars {
		t.Fatalf("expected truncated length %d, got %d", maxHTMLExcerptChars, len(got))
	}
}

func TestAutoConfirm_AlwaysApproves(t *testing.T) {
	if !(AutoConfirm{}).Confirm(nil, "any", nil) {
		t.Fatal("expected AutoConfirm to always approve")
	}
}
