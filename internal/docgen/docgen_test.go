package docgen

import (
	"strings"
	"testing"
	"time"

	"legacywebanalyzer/internal/model"
)

func TestRenderPage_IncludesContentSummaryAndFeatureAnalysis(t *testing.T) {
	result := model.PageResult{
		PageID: "abc123",
		URL:    "https://example.com/checkout",
		State:  model.PageCompleted,
		Step1: &model.ContentSummary{
			Purpose:            "Complete a purchase",
			BusinessImportance: 0.9,
			JourneyStage:       model.JourneyConversion,
			Quality:            model.QualityBreakdown{Overall: 0.8},
		},
		Step2: &model.FeatureAnalysis{
			InteractiveElements: []model.InteractiveElement{{Type: "button", Selector: "#submit", Purpose: "place order"}},
			APIIntegrations:     []model.APIIntegration{{Method: "POST", Endpoint: "/api/orders", Auth: model.AuthRequired}},
			RebuildSpecs:        []model.RebuildSpec{{Title: "Order submission", Priority: model.PriorityHigh, Score: 0.7}},
			QualityScore:        0.75,
		},
	}

	md := RenderPage("abc123", result)

	for _, want := range []string{
		"page_id: abc123",
		"https://example.com/checkout",
		"Complete a purchase",
		"conversion",
		"#submit",
		"/api/orders",
		"Order submission",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected rendered page to contain %q", want)
		}
	}
}

func TestRenderPage_ReportsErrorsWhenPresent(t *testing.T) {
	result := model.PageResult{
		PageID: "x",
		URL:    "https://example.com/broken",
		State:  model.PageStep1Failed,
		Errors: []model.AnalysisError{{Kind: "navigation", Message: "timed out"}},
	}

	md := RenderPage("x", result)
	if !strings.Contains(md, "timed out") {
		t.Error("expected error message to appear in rendered page")
	}
}

func TestRenderMasterReport_SummarizesAcrossPages(t *testing.T) {
	meta := model.ProjectMetadata{
		SeedURL:   "https://example.com",
		Domain:    "example.com",
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Counts:    model.ProjectCounts{Total: 2, Completed: 2},
	}
	results := map[string]model.PageResult{
		"p1": {
			URL:   "https://example.com/a",
			State: model.PageCompleted,
			Step1: &model.ContentSummary{Workflows: []string{"checkout"}},
			Step2: &model.FeatureAnalysis{
				APIIntegrations: []model.APIIntegration{{Method: "GET", Endpoint: "/api/a", Purpose: "fetch a"}},
				RebuildSpecs:    []model.RebuildSpec{{Title: "Spec A", Priority: model.PriorityMedium, Score: 0.5}},
			},
		},
		"p2": {
			URL:   "https://example.com/b",
			State: model.PageCompleted,
			Step1: &model.ContentSummary{Workflows: []string{"checkout"}},
			Step2: &model.FeatureAnalysis{
				APIIntegrations: []model.APIIntegration{{Method: "POST", Endpoint: "/api/b", Purpose: "submit b"}},
				RebuildSpecs:    []model.RebuildSpec{{Title: "Spec B", Priority: model.PriorityHigh, Score: 0.9}},
			},
		},
	}

	md := RenderMasterReport(meta, results)

	for _, want := range []string{
		"Executive Summary",
		"https://example.com/a",
		"https://example.com/b",
		"GET",
		"POST",
		"checkout",
		"Spec A",
		"Spec B",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected master report to contain %q", want)
		}
	}

	// Workflows deduplicate across pages: "checkout" should appear exactly once
	// in the business logic section, not once per page.
	if strings.Count(md, "- checkout\n") != 1 {
		t.Errorf("expected deduplicated workflow to appear exactly once, report:\n%s", md)
	}

	// Rebuild specs are ranked by score descending: Spec B (0.9) before Spec A (0.5).
	if strings.Index(md, "Spec B") > strings.Index(md, "Spec A") {
		t.Error("expected higher-scored rebuild spec to appear first")
	}
}
