// Package model defines the shared data entities that flow between the
// discovery, navigation, analysis, workflow, and artifact subsystems.
package model

import "time"

// NormalizedURL is a URL that has passed through urlutil.Normalize:
// scheme and host lowercased, fragment stripped, query preserved.
type NormalizedURL struct {
	URL    string `json:"url"`
	Scheme string `json:"scheme"`
	Host   string `json:"host"`
	Path   string `json:"path"`
	Domain string `json:"domain"`
}

// Source identifies how a URL was discovered.
type Source string

const (
	SourceSitemap       Source = "sitemap"
	SourceRobotsSitemap Source = "robots-sitemap"
	SourceCrawl         Source = "crawl"
	SourceSeed          Source = "seed"
)

// DiscoveredURL is one entry in a URLInventory.
type DiscoveredURL struct {
	Normalized         NormalizedURL `json:"normalized"`
	Source             Source        `json:"source"`
	Depth              int           `json:"depth"`
	Internal           bool          `json:"internal"`
	IsAsset            bool          `json:"is_asset"`
	Title              string        `json:"title,omitempty"`
	Description        string        `json:"description,omitempty"`
	ComplexityEstimate int           `json:"complexity_estimate,omitempty"`
}

// Key returns the uniqueness key for a DiscoveredURL: its normalized URL.
func (d DiscoveredURL) Key() string { return d.Normalized.URL }

// URLInventory is the ordered, deduplicated result of discovery.
type URLInventory struct {
	SeedURL string          `json:"seed_url"`
	Entries []DiscoveredURL `json:"entries"`
}

// NetworkEvent is one captured HTTP request/response observed during
// page navigation.
type NetworkEvent struct {
	Timestamp       time.Time         `json:"ts"`
	Method          string            `json:"method"`
	URL             string            `json:"url"`
	Status          int               `json:"status"`
	RequestHeaders  map[string]string `json:"req_headers,omitempty"`
	ResponseHeaders map[string]string `json:"resp_headers,omitempty"`
	RequestBody     string            `json:"req_body,omitempty"`
	ResponseSize    int64             `json:"resp_size"`
	TimingMS        int64             `json:"timing_ms"`
	IsThirdParty    bool              `json:"is_third_party"`
}

// NetworkLog is the ordered sequence of network events captured for a
// single page navigation, plus derived views.
type NetworkLog struct {
	Events       []NetworkEvent `json:"events"`
	APIEndpoints []string       `json:"api_endpoints,omitempty"`
	ThirdParties []string       `json:"third_parties,omitempty"`
}

// InteractionStep records one safe-interaction performed during capture.
type InteractionStep struct {
	Action   string `json:"action"`
	Selector string `json:"selector"`
	Outcome  string `json:"outcome"`
}

// DOMStats is a cheap structural summary of a page's DOM.
type DOMStats struct {
	TotalElements       int `json:"total_elements"`
	InteractiveElements int `json:"interactive_elements"`
	FormElements        int `json:"form_elements"`
	LinkElements        int `json:"link_elements"`
}

// PageSnapshot is the full captured state of a page after navigation.
type PageSnapshot struct {
	URL            string            `json:"url"`
	FinalURL       string            `json:"final_url"`
	StatusCode     int               `json:"status_code"`
	Title          string            `json:"title"`
	HTML           string            `json:"html"`
	VisibleText    string            `json:"visible_text"`
	Meta           map[string]string `json:"meta"`
	Screenshot     []byte            `json:"screenshot,omitempty"`
	Network        NetworkLog        `json:"network"`
	DOMStats       DOMStats          `json:"dom_stats"`
	TechSignals    []string          `json:"tech_signals,omitempty"`
	InteractionLog []InteractionStep `json:"interaction_log,omitempty"`
	LoadTimeMS     int64             `json:"load_time_ms"`
}

// QualityBreakdown is the weighted components behind a quality score.
type QualityBreakdown struct {
	Overall      float64 `json:"overall"`
	Completeness float64 `json:"completeness"`
	Depth        float64 `json:"depth"`
}

// JourneyStage classifies where a page sits in a user journey.
type JourneyStage string

const (
	JourneyEntry      JourneyStage = "entry"
	JourneyMiddle     JourneyStage = "middle"
	JourneyConversion JourneyStage = "conversion"
	JourneyExit       JourneyStage = "exit"
)

// ContentSummary is the Step 1 LLM output.
type ContentSummary struct {
	ID                 string           `json:"id"`
	Purpose            string           `json:"purpose"`
	UserContext        string           `json:"user_context"`
	BusinessLogic      string           `json:"business_logic"`
	NavigationRole     string           `json:"navigation_role"`
	BusinessImportance float64          `json:"business_importance"`
	Confidence         float64          `json:"confidence"`
	Workflows          []string         `json:"workflows,omitempty"`
	JourneyStage       JourneyStage     `json:"journey_stage"`
	Keywords           []string         `json:"keywords,omitempty"`
	Quality            QualityBreakdown `json:"quality"`
}

// AuthRequirement describes what auth an API integration needs.
type AuthRequirement string

const (
	AuthNone     AuthRequirement = "none"
	AuthOptional AuthRequirement = "optional"
	AuthRequired AuthRequirement = "required"
)

// InteractiveElement is a discovered UI control.
type InteractiveElement struct {
	Type     string `json:"type"`
	Selector string `json:"selector"`
	Purpose  string `json:"purpose"`
}

// APIIntegration is a discovered network-backed capability.
type APIIntegration struct {
	Method   string          `json:"method"`
	Endpoint string          `json:"endpoint"`
	Purpose  string          `json:"purpose"`
	Auth     AuthRequirement `json:"auth"`
}

// Priority is the rebuild urgency tier for a RebuildSpec.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// RebuildSpec is one actionable item in a rebuild plan.
type RebuildSpec struct {
	Title                 string   `json:"title"`
	Description           string   `json:"description"`
	ReferencesInteraction bool     `json:"references_interaction"`
	Priority              Priority `json:"priority"`
	Score                 float64  `json:"score"`
}

// FeatureAnalysis is the Step 2 LLM output.
type FeatureAnalysis struct {
	InteractiveElements    []InteractiveElement `json:"interactive_elements,omitempty"`
	FunctionalCapabilities []string             `json:"functional_capabilities,omitempty"`
	APIIntegrations        []APIIntegration     `json:"api_integrations,omitempty"`
	BusinessRules          []string             `json:"business_rules,omitempty"`
	RebuildSpecs           []RebuildSpec        `json:"rebuild_specs,omitempty"`
	OverallConfidence      float64              `json:"overall_confidence"`
	QualityScore           float64              `json:"quality_score"`
	ContextRef             string               `json:"context_ref"`
}

// StepState is the lifecycle state of one analysis step within a PageResult.
type StepState string

const (
	StepPending StepState = "pending"
	StepOK      StepState = "ok"
	StepPartial StepState = "partial"
	StepFailed  StepState = "failed"
	StepSkipped StepState = "skipped"
)

// AnalysisError captures one page-scoped error event per the error taxonomy.
type AnalysisError struct {
	WorkflowID string    `json:"workflow_id"`
	PageURL    string    `json:"page_url"`
	Kind       string    `json:"error_kind"`
	Code       string    `json:"error_code"`
	Message    string    `json:"message"`
	RetryCount int       `json:"retry_count"`
	Timestamp  time.Time `json:"ts"`
}

// PageState is the overall state machine position of a PageResult.
type PageState string

const (
	PageQueued      PageState = "queued"
	PageRunning     PageState = "running"
	PageStep1Done   PageState = "step1_done"
	PageStep2Done   PageState = "step2_done"
	PageCompleted   PageState = "completed"
	PageStep1Failed PageState = "step1_failed"
	PageStep2Failed PageState = "step2_failed"
	PageSkipped     PageState = "skipped"
)

// PageResult is the per-page outcome of the analysis pipeline.
type PageResult struct {
	PageID           string           `json:"page_id"`
	URL              string           `json:"url"`
	State            PageState        `json:"state"`
	Step1State       StepState        `json:"step1_state"`
	Step1            *ContentSummary  `json:"step1,omitempty"`
	Step2State       StepState        `json:"step2_state"`
	Step2            *FeatureAnalysis `json:"step2,omitempty"`
	Errors           []AnalysisError  `json:"errors,omitempty"`
	ProcessingTimeMS int64            `json:"processing_time_ms"`
	// RawHTMLExcerpt is a bounded prefix of the captured page HTML,
	// carried through from the PageSnapshot for the doc generator to
	// render into the per-page report's excerpt block.
	RawHTMLExcerpt string `json:"-"`
}

// Checkpoint is the atomically persisted record of workflow progress.
type Checkpoint struct {
	WorkflowID     string    `json:"workflow_id"`
	CreatedAt      time.Time `json:"created_at"`
	CompletedPages []string  `json:"completed_pages"`
	PendingPages   []string  `json:"pending_pages"`
	FailedPages    []string  `json:"failed_pages"`
	SkippedPages   []string  `json:"skipped_pages"`
	ResumeToken    string    `json:"resume_token"`
}

// QualitySummary aggregates quality metrics across all processed pages.
type QualitySummary struct {
	AverageStep1Quality float64 `json:"average_step1_quality"`
	AverageStep2Quality float64 `json:"average_step2_quality"`
	PagesBelowThreshold int     `json:"pages_below_threshold"`
}

// ProjectCounts aggregates page-state counts for a project.
type ProjectCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
}

// ProjectMetadata is the persisted summary of one analysis project.
type ProjectMetadata struct {
	ProjectID      string         `json:"project_id"`
	SeedURL        string         `json:"seed_url"`
	Domain         string         `json:"domain"`
	CreatedAt      time.Time      `json:"created_at"`
	Settings       map[string]any `json:"settings,omitempty"`
	Counts         ProjectCounts  `json:"counts"`
	QualitySummary QualitySummary `json:"quality_summary"`
}

// Errors implementing the error taxonomy (spec §7). Each is a distinct
// type so callers can errors.As() to the specific kind.

// ConfigError indicates a missing or invalid required environment variable.
type ConfigError struct {
	Variable string
	Reason   string
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return "config error: missing required variable " + e.Variable
	}
	return "config error: " + e.Variable + ": " + e.Reason
}

// InvalidURLError indicates a URL failed normalization.
type InvalidURLError struct {
	Raw    string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return "invalid url " + e.Raw + ": " + e.Reason
}

// DiscoveryError indicates robots/sitemap/crawl failed collectively.
type DiscoveryError struct {
	SeedURL string
	Reason  string
	Fatal   bool
}

func (e *DiscoveryError) Error() string {
	return "discovery error for " + e.SeedURL + ": " + e.Reason
}

// NavigationTimeoutError indicates a page load exceeded its timeout.
type NavigationTimeoutError struct {
	URL       string
	TimeoutMS int
}

func (e *NavigationTimeoutError) Error() string {
	return "navigation timeout for " + e.URL
}

// NavigationFailureError indicates an HTTP status >= 400 was returned.
type NavigationFailureError struct {
	URL    string
	Status int
}

func (e *NavigationFailureError) Error() string {
	return "navigation failure for " + e.URL
}

// BrowserCrashError indicates the browser session died unexpectedly.
type BrowserCrashError struct {
	SessionID string
	Reason    string
}

func (e *BrowserCrashError) Error() string {
	return "browser crash in session " + e.SessionID + ": " + e.Reason
}

// LLMError indicates facade retries and fallback were exhausted.
type LLMError struct {
	Provider string
	Model    string
	Reason   string
}

func (e *LLMError) Error() string {
	return "llm error (" + e.Provider + "/" + e.Model + "): " + e.Reason
}

// AnalysisQualityError indicates schema or quality-score validation failed
// after retries and fallback.
type AnalysisQualityError struct {
	URL    string
	Step   string
	Reason string
}

func (e *AnalysisQualityError) Error() string {
	return "analysis quality error for " + e.URL + " (" + e.Step + "): " + e.Reason
}

// CheckpointError indicates the workflow could not persist progress.
type CheckpointError struct {
	WorkflowID string
	Reason     string
}

func (e *CheckpointError) Error() string {
	return "checkpoint error for " + e.WorkflowID + ": " + e.Reason
}

// IOError indicates an artifact write failed.
type IOError struct {
	Path   string
	Reason string
}

func (e *IOError) Error() string {
	return "io error writing " + e.Path + ": " + e.Reason
}
