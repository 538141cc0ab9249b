package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"legacywebanalyzer/internal/model"
)

// ErrSchemaParse indicates the LLM response contained no parseable JSON
// object, per spec.md §4.8 ("Parse JSON; on parse failure -> SchemaError(parse)").
var ErrSchemaParse = errors.New("analysis: no valid JSON object found in response")

// extractJSON pulls a JSON object out of raw LLM content, handling a
// fenced ```json block, a bare object, or an object embedded in prose --
// the three shapes original_source's step1_summarize.py's manual
// extraction handles (markdown code fence, leading/trailing brace scan).
func extractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)

	if idx := strings.Index(content, "```json"); idx != -1 {
		rest := content[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end]), nil
		}
	}

	if strings.HasPrefix(content, "{") && strings.HasSuffix(content, "}") {
		return content, nil
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return "", ErrSchemaParse
	}
	return content[start : end+1], nil
}

// ParseContentSummary parses and validates a Step 1 response, computing
// its quality breakdown. It never partially fills fields: either the
// parse/schema checks succeed or an error is returned.
func ParseContentSummary(raw string, id string) (model.ContentSummary, error) {
	jsonStr, err := extractJSON(raw)
	if err != nil {
		return model.ContentSummary{}, err
	}

	var s model.ContentSummary
	if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
		return model.ContentSummary{}, fmt.Errorf("%w: %v", ErrSchemaParse, err)
	}
	s.ID = id

	if err := validateContentSummarySchema(s); err != nil {
		return model.ContentSummary{}, err
	}

	s.BusinessImportance = clamp01(s.BusinessImportance)
	s.Confidence = clamp01(s.Confidence)
	s.Quality = ScoreContentSummary(s)
	return s, nil
}

func validateContentSummarySchema(s model.ContentSummary) error {
	if strings.TrimSpace(s.Purpose) == "" {
		return fmt.Errorf("analysis: schema error: purpose is required")
	}
	switch s.JourneyStage {
	case model.JourneyEntry, model.JourneyMiddle, model.JourneyConversion, model.JourneyExit, "":
	default:
		return fmt.Errorf("analysis: schema error: invalid journey_stage %q", s.JourneyStage)
	}
	return nil
}

// ParseFeatureAnalysis parses and validates a Step 2 response, enforcing
// the context-passing contract that context_ref must match the Step 1
// summary's id (spec.md §4.9).
func ParseFeatureAnalysis(raw string, expectedContextRef string) (model.FeatureAnalysis, error) {
	jsonStr, err := extractJSON(raw)
	if err != nil {
		return model.FeatureAnalysis{}, err
	}

	var f model.FeatureAnalysis
	if err := json.Unmarshal([]byte(jsonStr), &f); err != nil {
		return model.FeatureAnalysis{}, fmt.Errorf("%w: %v", ErrSchemaParse, err)
	}

	for i := range f.APIIntegrations {
		switch f.APIIntegrations[i].Auth {
		case model.AuthNone, model.AuthOptional, model.AuthRequired:
		case "":
			f.APIIntegrations[i].Auth = model.AuthNone
		default:
			return model.FeatureAnalysis{}, fmt.Errorf("analysis: schema error: invalid auth %q", f.APIIntegrations[i].Auth)
		}
	}

	if f.ContextRef == "" {
		f.ContextRef = expectedContextRef
	} else if f.ContextRef != expectedContextRef {
		return model.FeatureAnalysis{}, fmt.Errorf("analysis: schema error: context_ref %q does not match expected %q", f.ContextRef, expectedContextRef)
	}

	f.OverallConfidence = clamp01(f.OverallConfidence)
	f.QualityScore = ScoreFeatureAnalysis(f)
	return f, nil
}

// Passes reports whether a quality score clears the pass threshold.
func Passes(score, minQuality float64) bool {
	if minQuality <= 0 {
		minQuality = DefaultMinQuality
	}
	return score >= minQuality
}
