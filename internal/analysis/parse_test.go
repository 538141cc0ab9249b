package analysis

import (
	"strings"
	"testing"

	"legacywebanalyzer/internal/model"
)

func TestExtractJSON_FencedBlock(t *testing.T) {
	raw := "Here you go:\n```json\n{\"purpose\":\"x\"}\n```\nThanks."
	got, err := extractJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"purpose":"x"}` {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestExtractJSON_BareObject(t *testing.T) {
	raw := `{"purpose":"x"}`
	got, err := extractJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != raw {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestExtractJSON_EmbeddedInProse(t *testing.T) {
	raw := `Sure, the result is {"purpose":"x"} as requested.`
	got, err := extractJSON(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"purpose":"x"}` {
		t.Fatalf("unexpected extraction: %q", got)
	}
}

func TestExtractJSON_NoObjectFails(t *testing.T) {
	_, err := extractJSON("no json here")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestParseContentSummary_RejectsMissingPurpose(t *testing.T) {
	_, err := ParseContentSummary(`{"user_context":"x"}`, "id-1")
	if err == nil {
		t.Fatal("expected schema error for missing purpose")
	}
}

func TestParseContentSummary_RejectsInvalidJourneyStage(t *testing.T) {
	_, err := ParseContentSummary(`{"purpose":"does things","journey_stage":"not-a-stage"}`, "id-1")
	if err == nil {
		t.Fatal("expected schema error for invalid journey_stage")
	}
}

func TestParseFeatureAnalysis_ContextRefMismatchFails(t *testing.T) {
	raw := `{"context_ref":"other-id","overall_confidence":0.8}`
	_, err := ParseFeatureAnalysis(raw, "expected-id")
	if err == nil {
		t.Fatal("expected error for context_ref mismatch")
	}
}

func TestParseFeatureAnalysis_FillsContextRefWhenAbsent(t *testing.T) {
	raw := `{"overall_confidence":0.8}`
	f, err := ParseFeatureAnalysis(raw, "expected-id")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ContextRef != "expected-id" {
		t.Fatalf("expected context_ref filled in, got %q", f.ContextRef)
	}
}

func TestParseFeatureAnalysis_RejectsInvalidAuth(t *testing.T) {
	raw := `{"context_ref":"id-1","api_integrations":[{"method":"GET","endpoint":"/x","auth":"bogus"}]}`
	_, err := ParseFeatureAnalysis(raw, "id-1")
	if err == nil {
		t.Fatal("expected schema error for invalid auth value")
	}
	if !strings.Contains(err.Error(), "auth") {
		t.Fatalf("expected error to mention auth, got %v", err)
	}
}

func TestPrioritizeRebuildSpecs_OrdersByScoreDescending(t *testing.T) {
	specs := []model.RebuildSpec{
		{Title: "small", Description: "short"},
		{Title: "big", Description: strings.Repeat("x", 50)},
	}
	out := PrioritizeRebuildSpecs(specs, 0.9, 0.9)
	if len(out) != 2 {
		t.Fatalf("expected 2 specs, got %d", len(out))
	}
	if out[0].Score < out[1].Score {
		t.Fatalf("expected descending score order, got %.2f then %.2f", out[0].Score, out[1].Score)
	}
}

func TestPrioritizeRebuildSpecs_TieBreaksTowardInteractionReference(t *testing.T) {
	specs := []model.RebuildSpec{
		{Title: "informational", Description: "info", ReferencesInteraction: false},
		{Title: "interactive", Description: "info", ReferencesInteraction: true},
	}
	out := PrioritizeRebuildSpecs(specs, 0.5, 0.5)
	if !out[0].ReferencesInteraction {
		t.Fatalf("expected interactive spec to sort first on tie, got %+v", out[0])
	}
}
