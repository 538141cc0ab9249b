// Package analysis implements C8 (response validator & quality scorer)
// and C9 (two-step analyzer). The penalty-based scoring shape is
// grounded on original_source's ContentSummarizer._calculate_confidence
// (start at 1.0, subtract a fixed penalty per thin/missing field, floor
// at a minimum); this module generalizes that single penalty ladder into
// spec.md §4.8's three weighted dimensions (completeness, specificity,
// technical depth; weights 0.4/0.35/0.25).
package analysis

import (
	"strings"

	"legacywebanalyzer/internal/model"
)

const (
	weightCompleteness = 0.4
	weightSpecificity  = 0.35
	weightDepth        = 0.25

	// DefaultMinQuality is the pass/fail threshold from spec.md §4.8.
	DefaultMinQuality = 0.5

	minFreeTextWords = 6
)

var boilerplatePhrases = []string{
	"this page", "lorem ipsum", "n/a", "unknown", "todo",
}

var technicalTermPattern = []string{
	"api", "endpoint", "selector", "button", "form", "graphql",
	"json", "http", "session", "token", "query", "parameter",
}

// ScoreContentSummary computes the quality breakdown for a Step 1 result.
func ScoreContentSummary(s model.ContentSummary) model.QualityBreakdown {
	freeText := []string{s.Purpose, s.UserContext, s.BusinessLogic, s.NavigationRole}
	optionalPresent := 0
	optionalTotal := 2 // workflows, keywords
	if len(s.Workflows) > 0 {
		optionalPresent++
	}
	if len(s.Keywords) > 0 {
		optionalPresent++
	}
	requiredPresent := 0
	requiredTotal := len(freeText)
	for _, f := range freeText {
		if strings.TrimSpace(f) != "" {
			requiredPresent++
		}
	}
	completeness := blend(requiredPresent, requiredTotal, optionalPresent, optionalTotal)

	specificity := specificityScore(freeText)
	depth := technicalDepthScore(strings.Join(freeText, " "))

	overall := weightCompleteness*completeness + weightSpecificity*specificity + weightDepth*depth
	return model.QualityBreakdown{Overall: clamp01(overall), Completeness: completeness, Depth: depth}
}

// ScoreFeatureAnalysis computes a single quality scalar for a Step 2
// result using the same three-dimension blend over its free-text and
// structural fields.
func ScoreFeatureAnalysis(f model.FeatureAnalysis) float64 {
	completeness := 0.0
	fields := 5
	present := 0
	if len(f.InteractiveElements) > 0 {
		present++
	}
	if len(f.FunctionalCapabilities) > 0 {
		present++
	}
	if len(f.APIIntegrations) > 0 {
		present++
	}
	if len(f.BusinessRules) > 0 {
		present++
	}
	if len(f.RebuildSpecs) > 0 {
		present++
	}
	completeness = float64(present) / float64(fields)

	var allText []string
	allText = append(allText, f.FunctionalCapabilities...)
	allText = append(allText, f.BusinessRules...)
	for _, r := range f.RebuildSpecs {
		allText = append(allText, r.Description)
	}
	specificity := specificityScore(allText)
	depth := technicalDepthScore(strings.Join(allText, " "))

	overall := weightCompleteness*completeness + weightSpecificity*specificity + weightDepth*depth
	return clamp01(overall)
}

func blend(requiredPresent, requiredTotal, optionalPresent, optionalTotal int) float64 {
	if requiredTotal == 0 {
		return 0
	}
	reqScore := float64(requiredPresent) / float64(requiredTotal)
	if optionalTotal == 0 {
		return reqScore
	}
	optScore := float64(optionalPresent) / float64(optionalTotal)
	// Required fields dominate; optional fields nudge the score.
	return clamp01(0.8*reqScore + 0.2*optScore)
}

func specificityScore(fields []string) float64 {
	if len(fields) == 0 {
		return 0
	}
	total := 0.0
	for _, f := range fields {
		words := strings.Fields(f)
		lengthScore := float64(len(words)) / float64(minFreeTextWords)
		if lengthScore > 1 {
			lengthScore = 1
		}
		if isBoilerplate(f) {
			lengthScore *= 0.3
		}
		total += lengthScore
	}
	return clamp01(total / float64(len(fields)))
}

func isBoilerplate(s string) bool {
	lower := strings.ToLower(s)
	for _, phrase := range boilerplatePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func technicalDepthScore(text string) float64 {
	lower := strings.ToLower(text)
	hits := 0
	for _, term := range technicalTermPattern {
		if strings.Contains(lower, term) {
			hits++
		}
	}
	const minHitsForFullScore = 4
	score := float64(hits) / float64(minHitsForFullScore)
	return clamp01(score)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
