package analysis

import (
	"testing"

	"legacywebanalyzer/internal/model"
)

func TestScoreContentSummary_RichSummaryScoresHigh(t *testing.T) {
	s := model.ContentSummary{
		Purpose:        "Lets returning customers review and reorder past purchases via the account API.",
		UserContext:    "Logged-in retail customers revisiting their order history page.",
		BusinessLogic:  "Fetches the last 12 months of orders from the orders endpoint and renders a reorder button per line item.",
		NavigationRole: "Account section hub linking to order detail and support pages.",
		Workflows:      []string{"reorder", "view-invoice"},
		Keywords:       []string{"orders", "reorder", "account"},
	}
	got := ScoreContentSummary(s)
	if got.Overall < 0.5 {
		t.Fatalf("expected a high-quality summary to score >= 0.5, got %.2f", got.Overall)
	}
}

func TestScoreContentSummary_EmptySummaryScoresLow(t *testing.T) {
	got := ScoreContentSummary(model.ContentSummary{})
	if got.Overall > 0.2 {
		t.Fatalf("expected an empty summary to score low, got %.2f", got.Overall)
	}
}

func TestScoreContentSummary_BoilerplatePenalized(t *testing.T) {
	rich := model.ContentSummary{
		Purpose:        "Lets returning customers review and reorder past purchases via the account API.",
		UserContext:    "Logged-in retail customers revisiting their order history page.",
		BusinessLogic:  "Fetches the last 12 months of orders from the orders endpoint and renders a reorder button.",
		NavigationRole: "Account section hub linking to order detail and support pages.",
	}
	boilerplate := model.ContentSummary{
		Purpose:        "this page is unknown n/a",
		UserContext:    "this page is unknown n/a",
		BusinessLogic:  "this page is unknown n/a todo",
		NavigationRole: "this page is unknown n/a",
	}
	richScore := ScoreContentSummary(rich)
	boilerScore := ScoreContentSummary(boilerplate)
	if boilerScore.Overall >= richScore.Overall {
		t.Fatalf("expected boilerplate text to score lower: rich=%.2f boilerplate=%.2f", richScore.Overall, boilerScore.Overall)
	}
}

func TestPasses_ThresholdBehavior(t *testing.T) {
	if !Passes(0.5, 0) {
		t.Error("expected default threshold 0.5 to pass a 0.5 score")
	}
	if Passes(0.4, 0) {
		t.Error("expected default threshold 0.5 to fail a 0.4 score")
	}
	if Passes(0.8, 0.9) {
		t.Error("expected a custom higher threshold to fail a lower score")
	}
}
