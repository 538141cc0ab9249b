package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"legacywebanalyzer/internal/llm"
	"legacywebanalyzer/internal/metrics"
	"legacywebanalyzer/internal/model"
)

const maxVisibleTextChars = 8000

// Chatter is the narrow facade surface the analyzer needs, letting
// callers substitute a fake in tests without depending on llm.Facade's
// full HTTP machinery.
type Chatter interface {
	Chat(ctx context.Context, provider llm.Provider, modelID string, messages []llm.Message, opts llm.ChatOptions) (llm.ChatResponse, error)
}

// Analyzer implements C9: the two-step summarize-then-analyze pipeline
// with the retry/fallback ladder spec.md §4.9 requires.
type Analyzer struct {
	facade     Chatter
	registry   *llm.Registry
	minQuality float64
}

// NewAnalyzer builds an Analyzer over a chat facade and model registry.
func NewAnalyzer(facade Chatter, registry *llm.Registry, minQuality float64) *Analyzer {
	if minQuality <= 0 {
		minQuality = DefaultMinQuality
	}
	return &Analyzer{facade: facade, registry: registry, minQuality: minQuality}
}

// Step1Result is the outcome of the content-summarization pass.
type Step1Result struct {
	Summary model.ContentSummary
	State   model.StepState
	RawErr  error
}

// Step2Result is the outcome of the feature-analysis pass.
type Step2Result struct {
	Analysis model.FeatureAnalysis
	State    model.StepState
	RawErr   error
}

// AnalyzePage runs Step 1 then (if Step 1 succeeds) Step 2 against a
// captured snapshot, per spec.md §4.9.
func (a *Analyzer) AnalyzePage(ctx context.Context, url string, snapshot model.PageSnapshot) (Step1Result, Step2Result) {
	step1 := a.runStep1(ctx, url, snapshot)
	if step1.State == model.StepFailed {
		return step1, Step2Result{State: model.StepSkipped}
	}

	step2 := a.runStep2(ctx, url, snapshot, step1.Summary)
	if step2.State != model.StepOK {
		step1.State = model.StepPartial
	}
	return step1, step2
}

// AnalyzeStep1Only runs Step 1 alone, letting a caller gate Step 2 behind
// an interactive checkpoint without paying for a feature-analysis call
// that might be declined.
func (a *Analyzer) AnalyzeStep1Only(ctx context.Context, url string, snapshot model.PageSnapshot) Step1Result {
	return a.runStep1(ctx, url, snapshot)
}

func (a *Analyzer) runStep1(ctx context.Context, url string, snapshot model.PageSnapshot) Step1Result {
	id := newID()
	prompt := buildStep1Prompt(url, snapshot, false)

	summary, err := a.callStep1(ctx, llm.RoleStep1, prompt, id)
	if err == nil {
		return Step1Result{Summary: summary, State: model.StepOK}
	}

	hardened := buildStep1Prompt(url, snapshot, true)
	summary, err = a.callStep1(ctx, llm.RoleStep1, hardened, id)
	if err == nil {
		return Step1Result{Summary: summary, State: model.StepOK}
	}

	summary, err = a.callStep1(ctx, llm.RoleFallback, hardened, id)
	if err == nil {
		return Step1Result{Summary: summary, State: model.StepOK}
	}

	return Step1Result{State: model.StepFailed, RawErr: err}
}

func (a *Analyzer) callStep1(ctx context.Context, role llm.Role, prompt string, id string) (model.ContentSummary, error) {
	resolved, err := a.registry.Resolve(role)
	if err != nil {
		return model.ContentSummary{}, err
	}

	resp, err := a.facade.Chat(ctx, resolved.Provider, resolved.ModelID, []llm.Message{
		{Role: "system", Content: step1SystemPrompt},
		{Role: "user", Content: prompt},
	}, llm.ChatOptions{Temperature: 0.2, MaxTokens: 1024})
	if err != nil {
		return model.ContentSummary{}, err
	}

	summary, err := ParseContentSummary(resp.Content, id)
	if err != nil {
		return model.ContentSummary{}, err
	}
	if !Passes(summary.Quality.Overall, a.minQuality) {
		metrics.RecordQualityBelowThreshold("step1")
		return model.ContentSummary{}, fmt.Errorf("analysis: step1 quality %.2f below threshold %.2f", summary.Quality.Overall, a.minQuality)
	}
	return summary, nil
}

func (a *Analyzer) runStep2(ctx context.Context, url string, snapshot model.PageSnapshot, summary model.ContentSummary) Step2Result {
	prompt := buildStep2Prompt(url, snapshot, summary, false)

	analysis, err := a.callStep2(ctx, llm.RoleStep2, prompt, summary.ID)
	if err == nil {
		analysis.RebuildSpecs = PrioritizeRebuildSpecs(analysis.RebuildSpecs, summary.BusinessImportance, analysis.OverallConfidence)
		return Step2Result{Analysis: analysis, State: model.StepOK}
	}

	hardened := buildStep2Prompt(url, snapshot, summary, true)
	analysis, err = a.callStep2(ctx, llm.RoleStep2, hardened, summary.ID)
	if err == nil {
		analysis.RebuildSpecs = PrioritizeRebuildSpecs(analysis.RebuildSpecs, summary.BusinessImportance, analysis.OverallConfidence)
		return Step2Result{Analysis: analysis, State: model.StepOK}
	}

	analysis, err = a.callStep2(ctx, llm.RoleFallback, hardened, summary.ID)
	if err == nil {
		analysis.RebuildSpecs = PrioritizeRebuildSpecs(analysis.RebuildSpecs, summary.BusinessImportance, analysis.OverallConfidence)
		return Step2Result{Analysis: analysis, State: model.StepOK}
	}

	return Step2Result{State: model.StepFailed, RawErr: err}
}

func (a *Analyzer) callStep2(ctx context.Context, role llm.Role, prompt string, contextRef string) (model.FeatureAnalysis, error) {
	resolved, err := a.registry.Resolve(role)
	if err != nil {
		return model.FeatureAnalysis{}, err
	}

	resp, err := a.facade.Chat(ctx, resolved.Provider, resolved.ModelID, []llm.Message{
		{Role: "system", Content: step2SystemPrompt},
		{Role: "user", Content: prompt},
	}, llm.ChatOptions{Temperature: 0.2, MaxTokens: 1536})
	if err != nil {
		return model.FeatureAnalysis{}, err
	}

	analysis, err := ParseFeatureAnalysis(resp.Content, contextRef)
	if err != nil {
		return model.FeatureAnalysis{}, err
	}
	if !Passes(analysis.QualityScore, a.minQuality) {
		metrics.RecordQualityBelowThreshold("step2")
		return model.FeatureAnalysis{}, fmt.Errorf("analysis: step2 quality %.2f below threshold %.2f", analysis.QualityScore, a.minQuality)
	}
	return analysis, nil
}

const step1SystemPrompt = "You are a JSON-only analyst. Respond with a single JSON object matching the requested content-summary schema and no extra text."
const step2SystemPrompt = "You are a JSON-only analyst. Respond with a single JSON object matching the requested feature-analysis schema and no extra text."

func buildStep1Prompt(url string, snapshot model.PageSnapshot, hardened bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "URL: %s\nTitle: %s\n", url, snapshot.Title)
	fmt.Fprintf(&sb, "DOM stats: total=%d interactive=%d forms=%d links=%d\n",
		snapshot.DOMStats.TotalElements, snapshot.DOMStats.InteractiveElements,
		snapshot.DOMStats.FormElements, snapshot.DOMStats.LinkElements)
	if len(snapshot.TechSignals) > 0 {
		fmt.Fprintf(&sb, "Tech signals: %s\n", strings.Join(snapshot.TechSignals, ", "))
	}
	sb.WriteString("Visible text:\n")
	sb.WriteString(truncate(snapshot.VisibleText, maxVisibleTextChars))

	if hardened {
		sb.WriteString("\n\nRespond with EXACTLY this JSON schema and nothing else: ")
		sb.WriteString(`{"purpose":"","user_context":"","business_logic":"","navigation_role":"","business_importance":0.0,"confidence":0.0,"workflows":[],"journey_stage":"entry|middle|conversion|exit","keywords":[]}`)
	}
	return sb.String()
}

func buildStep2Prompt(url string, snapshot model.PageSnapshot, summary model.ContentSummary, hardened bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "URL: %s\n", url)
	sb.WriteString("Content summary (from step 1):\n")
	fmt.Fprintf(&sb, "Purpose: %s\nUser context: %s\nBusiness logic: %s\nNavigation role: %s\n",
		summary.Purpose, summary.UserContext, summary.BusinessLogic, summary.NavigationRole)
	fmt.Fprintf(&sb, "Business importance: %.2f\nJourney stage: %s\n", summary.BusinessImportance, summary.JourneyStage)

	if len(snapshot.Network.APIEndpoints) > 0 {
		fmt.Fprintf(&sb, "Observed API endpoints: %s\n", strings.Join(snapshot.Network.APIEndpoints, ", "))
	}
	if len(snapshot.InteractionLog) > 0 {
		sb.WriteString("Interaction log:\n")
		for _, step := range snapshot.InteractionLog {
			fmt.Fprintf(&sb, "- %s %s -> %s\n", step.Action, step.Selector, step.Outcome)
		}
	}
	fmt.Fprintf(&sb, "\ncontext_ref MUST be %q.\n", summary.ID)

	if hardened {
		sb.WriteString("\nRespond with EXACTLY this JSON schema and nothing else: ")
		sb.WriteString(`{"interactive_elements":[],"functional_capabilities":[],"api_integrations":[],"business_rules":[],"rebuild_specs":[],"overall_confidence":0.0,"quality_score":0.0,"context_ref":""}`)
	}
	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// PrioritizeRebuildSpecs assigns priority tiers to each rebuild spec per
// spec.md §4.9: score = business_importance x feature_confidence x
// complexity_inverse, tie-break toward interactive-element-referencing
// items. complexity_inverse is approximated as 1 - (description length /
// a fixed normalization window), since FeatureAnalysis carries no
// explicit complexity field of its own.
func PrioritizeRebuildSpecs(specs []model.RebuildSpec, businessImportance, featureConfidence float64) []model.RebuildSpec {
	const complexityWindow = 400.0

	for i := range specs {
		complexityInverse := 1.0 - float64(len(specs[i].Description))/complexityWindow
		if complexityInverse < 0.1 {
			complexityInverse = 0.1
		}
		specs[i].Score = clamp01(businessImportance * featureConfidence * complexityInverse)
	}

	sort.SliceStable(specs, func(i, j int) bool {
		if specs[i].Score != specs[j].Score {
			return specs[i].Score > specs[j].Score
		}
		if specs[i].ReferencesInteraction != specs[j].ReferencesInteraction {
			return specs[i].ReferencesInteraction
		}
		return specs[i].Title < specs[j].Title
	})

	for i := range specs {
		switch {
		case specs[i].Score >= 0.66:
			specs[i].Priority = model.PriorityHigh
		case specs[i].Score >= 0.33:
			specs[i].Priority = model.PriorityMedium
		default:
			specs[i].Priority = model.PriorityLow
		}
	}
	return specs
}
