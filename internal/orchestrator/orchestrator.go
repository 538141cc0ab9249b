// Package orchestrator implements C12: the top-level analyze_legacy_site
// phase sequence. It is grounded on services.CrawlService's thin
// composition-over-store shape (a service type wrapping the
// lower-level collaborators it composes, exposing one verb) generalized
// from "enqueue one job" to "run discovery, selection, execution, and
// synthesis end to end."
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"legacywebanalyzer/internal/analysis"
	"legacywebanalyzer/internal/artifact"
	"legacywebanalyzer/internal/browser"
	"legacywebanalyzer/internal/discovery"
	"legacywebanalyzer/internal/docgen"
	"legacywebanalyzer/internal/llm"
	"legacywebanalyzer/internal/model"
	"legacywebanalyzer/internal/navigator"
	"legacywebanalyzer/internal/urlutil"
	"legacywebanalyzer/internal/workflow"
)

// AnalysisMode is the page-selection preset from spec.md §4.12.
type AnalysisMode string

const (
	ModeQuick         AnalysisMode = "quick"
	ModeRecommended   AnalysisMode = "recommended"
	ModeComprehensive AnalysisMode = "comprehensive"
	ModeTargeted      AnalysisMode = "targeted"
)

// CostPriority influences model selection preference (currently
// descriptive only; concrete model choice is still role-resolved via
// the registry per spec.md §4.7).
type CostPriority string

const (
	CostSpeed     CostPriority = "speed"
	CostBalanced  CostPriority = "balanced"
	CostEfficient CostPriority = "cost_efficient"
)

// Options controls one analyze_legacy_site run.
type Options struct {
	Mode            AnalysisMode
	MaxPages        int
	IncludeStep2    bool
	InteractiveMode bool
	ProjectID       string
	CostPriority    CostPriority
	IncludePatterns []string
	ExcludePatterns []string
	URLFilterMode   string
	FocusAreas      []string
	MinQuality      float64
}

// Confirmer gates interactive-mode checkpoints. The no-op AutoConfirm
// implementation is used in non-interactive mode.
type Confirmer interface {
	Confirm(ctx context.Context, checkpoint string, detail any) bool
}

// AutoConfirm always approves, matching spec.md §4.12's non-interactive
// auto-confirm behavior.
type AutoConfirm struct{}

func (AutoConfirm) Confirm(context.Context, string, any) bool { return true }

// scoredPage pairs a discovered URL with its selection score and
// original discovery order, used for the deterministic tie-break
// spec.md §4.12 requires.
type scoredPage struct {
	model.DiscoveredURL
	Score        float64
	DiscoveryIdx int
}

// Result is the end-to-end analysis outcome.
type Result struct {
	ProjectID       string
	Inventory       *model.URLInventory
	Selected        []scoredPage
	PageCount       int
	CostEstimateUSD float64
	FinalState      workflow.RunState
	Metadata        model.ProjectMetadata
}

// Orchestrator wires discovery, the browser pool, the analyzer, the
// workflow engine, and the doc generator into spec.md §6's entry points:
// AnalyzeLegacySite, DiscoverWebsite, AnalyzePageList, ControlWorkflow,
// ResumeWorkflowFromCheckpoint, and GetAnalysisStatus.
type Orchestrator struct {
	pool     *browser.Pool
	facade   *llm.Facade
	registry *llm.Registry
	store    *artifact.Store
	logger   *zap.Logger

	maxConcurrentSessions int
	maxRetriesPerPage     int

	mu            sync.Mutex
	activeEngines map[string]*activeWorkflow
}

// activeWorkflow pairs a running engine with the project ID it belongs
// to, since ControlWorkflow addresses a run by workflow ID while
// GetAnalysisStatus addresses it by project ID.
type activeWorkflow struct {
	engine    *workflow.Engine
	projectID string
}

// New builds an Orchestrator over its component collaborators.
// maxConcurrentSessions and maxRetriesPerPage come from config.Settings
// (MaxConcurrentPages/MaxRetriesPerPage) and must agree with the browser
// pool's own capacity, since the workflow engine's worker count is
// bounded by how many sessions the pool can actually hand out.
func New(pool *browser.Pool, facade *llm.Facade, registry *llm.Registry, store *artifact.Store, logger *zap.Logger, maxConcurrentSessions, maxRetriesPerPage int) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		pool:                  pool,
		facade:                facade,
		registry:              registry,
		store:                 store,
		logger:                logger.Named("orchestrator"),
		maxConcurrentSessions: maxConcurrentSessions,
		maxRetriesPerPage:     maxRetriesPerPage,
		activeEngines:         make(map[string]*activeWorkflow),
	}
}

// AnalyzeLegacySite runs the full discovery -> selection -> cost-estimate
// -> execution -> synthesis sequence per spec.md §4.12.
func (o *Orchestrator) AnalyzeLegacySite(ctx context.Context, seedURL string, opts Options, confirm Confirmer) (Result, error) {
	if confirm == nil {
		confirm = AutoConfirm{}
	}

	// Phase 1: discovery.
	inventory, err := discovery.Discover(ctx, seedURL, discovery.Options{
		IncludePatterns: opts.IncludePatterns,
		ExcludePatterns: opts.ExcludePatterns,
		URLFilterMode:   opts.URLFilterMode,
	})
	if err != nil {
		return Result{}, err
	}
	if opts.InteractiveMode && !confirm.Confirm(ctx, "post_discovery", inventory) {
		return Result{}, fmt.Errorf("orchestrator: user declined post-discovery checkpoint")
	}

	return o.analyzeInventory(ctx, seedURL, inventory, opts, confirm)
}

// DiscoverWebsite runs C3 alone, exposing the raw URLInventory without
// starting a workflow — spec.md §6's discover_website entry point.
func (o *Orchestrator) DiscoverWebsite(ctx context.Context, seedURL string, opts Options) (*model.URLInventory, error) {
	return discovery.Discover(ctx, seedURL, discovery.Options{
		IncludePatterns: opts.IncludePatterns,
		ExcludePatterns: opts.ExcludePatterns,
		URLFilterMode:   opts.URLFilterMode,
	})
}

// AnalyzePageList starts a workflow over an explicit set of URLs,
// skipping discovery entirely — spec.md §6's analyze_page_list entry
// point. Page-selection scoring and mode caps still apply, since the
// caller may hand in more URLs than a quick/recommended run should
// process in one pass.
func (o *Orchestrator) AnalyzePageList(ctx context.Context, urls []string, opts Options, confirm Confirmer) (Result, error) {
	if confirm == nil {
		confirm = AutoConfirm{}
	}
	if len(urls) == 0 {
		return Result{}, fmt.Errorf("orchestrator: analyze_page_list requires at least one url")
	}

	entries := make([]model.DiscoveredURL, 0, len(urls))
	for _, raw := range urls {
		norm, err := urlutil.Normalize(raw)
		if err != nil {
			o.logger.Warn("analyze_page_list_skipped_invalid_url", zap.String("url", raw), zap.Error(err))
			continue
		}
		entries = append(entries, model.DiscoveredURL{
			Normalized: norm,
			Source:     model.SourceSeed,
			Internal:   true,
		})
	}
	if len(entries) == 0 {
		return Result{}, &model.DiscoveryError{SeedURL: urls[0], Reason: "no supplied url normalized successfully", Fatal: true}
	}

	inventory := &model.URLInventory{SeedURL: urls[0], Entries: entries}
	return o.analyzeInventory(ctx, urls[0], inventory, opts, confirm)
}

// ResumeWorkflowFromCheckpoint re-queues a checkpoint's pending pages
// (and, if retryFailed is set, its failed pages) and runs them to
// completion — spec.md §6's resume_workflow_from_checkpoint entry
// point. Per spec.md §8, a resumed run never reprocesses a page already
// marked terminal unless the caller opts into retrying failures.
func (o *Orchestrator) ResumeWorkflowFromCheckpoint(ctx context.Context, opts Options, confirm Confirmer, retryFailed bool) (Result, error) {
	if confirm == nil {
		confirm = AutoConfirm{}
	}

	cp, err := o.store.ReadCheckpoint()
	if err != nil {
		return Result{}, err
	}
	if cp == nil {
		return Result{}, fmt.Errorf("orchestrator: no checkpoint to resume from")
	}

	pageIDs := append([]string{}, cp.PendingPages...)
	if retryFailed {
		pageIDs = append(pageIDs, cp.FailedPages...)
	}

	work := make([]workflow.PageWork, 0, len(pageIDs))
	var seedURL string
	for _, id := range pageIDs {
		pr, err := o.store.ReadPageResult(id)
		if err != nil {
			o.logger.Warn("resume_missing_page_artifact", zap.String("page_id", id), zap.Error(err))
			continue
		}
		if seedURL == "" {
			seedURL = pr.URL
		}
		work = append(work, workflow.PageWork{PageID: id, URL: pr.URL})
	}
	if len(work) == 0 {
		return Result{}, fmt.Errorf("orchestrator: checkpoint %q has no resumable pages", cp.WorkflowID)
	}

	return o.execute(ctx, cp.WorkflowID, seedURL, nil, work, opts, confirm)
}

// ControlWorkflow applies pause/resume/stop/skip to a running workflow
// by ID — spec.md §6's control_workflow entry point. pageID is required
// (and otherwise ignored) for the skip action.
func (o *Orchestrator) ControlWorkflow(workflowID, action, pageID string) error {
	o.mu.Lock()
	aw, ok := o.activeEngines[workflowID]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("orchestrator: no active workflow %q", workflowID)
	}
	eng := aw.engine

	switch action {
	case "pause":
		eng.Pause()
	case "resume":
		eng.Resume()
	case "stop":
		eng.Stop()
	case "skip":
		if pageID == "" {
			return fmt.Errorf("orchestrator: skip action requires a page id")
		}
		eng.Skip(pageID)
	default:
		return fmt.Errorf("orchestrator: unknown control action %q", action)
	}
	return nil
}

// GetAnalysisStatus reports a project's current counts and states —
// spec.md §6's get_analysis_status entry point. While a workflow for
// this project is still running, it reports a live snapshot; otherwise
// it falls back to the last-persisted analysis-metadata.json.
func (o *Orchestrator) GetAnalysisStatus(projectID string) (model.ProjectMetadata, error) {
	o.mu.Lock()
	var live *workflow.Engine
	for _, aw := range o.activeEngines {
		if aw.projectID == projectID {
			live = aw.engine
			break
		}
	}
	o.mu.Unlock()

	if live != nil {
		return buildProjectMetadata(projectID, "", live.Results()), nil
	}
	return o.store.ReadProjectMetadata()
}

// analyzeInventory runs phases 2-5 (selection -> cost estimate ->
// execution -> synthesis) over an already-built inventory, shared by
// AnalyzeLegacySite and AnalyzePageList.
func (o *Orchestrator) analyzeInventory(ctx context.Context, seedURL string, inventory *model.URLInventory, opts Options, confirm Confirmer) (Result, error) {
	// Phase 2: page selection.
	selected, includeStep2 := selectPages(inventory, opts)
	if opts.InteractiveMode && !confirm.Confirm(ctx, "post_selection", selected) {
		return Result{}, fmt.Errorf("orchestrator: user declined post-selection checkpoint")
	}

	// Phase 3: cost estimate.
	costEstimate := o.estimateCost(selected, includeStep2)

	work := make([]workflow.PageWork, 0, len(selected))
	for _, s := range selected {
		work = append(work, workflow.PageWork{PageID: urlutil.Slugify(s.Normalized), URL: s.Normalized.URL, Priority: s.Score})
	}
	workflowID := fmt.Sprintf("wf-%s", urlutil.SlugifyWithSuffix(inventory.Entries[0].Normalized))

	result, err := o.execute(ctx, workflowID, seedURL, &includeStep2, work, opts, confirm)
	if err != nil {
		return result, err
	}
	result.Inventory = inventory
	result.Selected = selected
	result.PageCount = len(selected)
	result.CostEstimateUSD = costEstimate
	return result, nil
}

// execute runs phases 4-5 (execution -> synthesis) over a prebuilt
// PageWork list, shared by AnalyzeLegacySite/AnalyzePageList (via
// analyzeInventory) and ResumeWorkflowFromCheckpoint. includeStep2
// defaults to opts.IncludeStep2 when nil, so a resumed run takes its
// Step 2 setting from the caller's opts.
func (o *Orchestrator) execute(ctx context.Context, workflowID, seedURL string, includeStep2 *bool, work []workflow.PageWork, opts Options, confirm Confirmer) (Result, error) {
	step2 := opts.IncludeStep2
	if includeStep2 != nil {
		step2 = *includeStep2
	}

	analyzer := analysis.NewAnalyzer(o.facade, o.registry, opts.MinQuality)
	proc := &pageProcessor{
		pool:         o.pool,
		analyzer:     analyzer,
		store:        o.store,
		includeStep2: step2,
		confirm:      confirm,
		interactive:  opts.InteractiveMode,
	}

	engine := workflow.NewEngine(workflowID, work, proc, o.store, workflow.Options{
		MaxConcurrentSessions: o.maxConcurrentSessions,
		MaxRetriesPerPage:     o.maxRetriesPerPage,
	}, o.logger)

	o.mu.Lock()
	o.activeEngines[workflowID] = &activeWorkflow{engine: engine, projectID: opts.ProjectID}
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		delete(o.activeEngines, workflowID)
		o.mu.Unlock()
	}()

	finalState := engine.Run(ctx)

	// Phase 5: synthesis.
	results := engine.Results()
	gen := docgen.New(o.store)
	for pageID, result := range results {
		if err := gen.PublishPage(pageID, result); err != nil {
			o.logger.Error("publish_page_failed", zap.String("page_id", pageID), zap.Error(err))
		}
	}
	metadata := buildProjectMetadata(opts.ProjectID, seedURL, results)
	if err := gen.PublishMasterReport(metadata, results); err != nil {
		o.logger.Error("publish_master_report_failed", zap.Error(err))
	}
	if err := o.store.WriteProjectMetadata(metadata); err != nil {
		o.logger.Error("write_project_metadata_failed", zap.Error(err))
	}

	return Result{
		ProjectID:  opts.ProjectID,
		FinalState: finalState,
		Metadata:   metadata,
	}, nil
}

func (o *Orchestrator) estimateCost(selected []scoredPage, includeStep2 bool) float64 {
	const avgPromptTokensPerPage = 2000
	const avgCompletionTokensPerPage = 500

	total := 0.0
	for _, role := range []llm.Role{llm.RoleStep1, llm.RoleStep2} {
		if role == llm.RoleStep2 && !includeStep2 {
			continue
		}
		resolved, err := o.registry.Resolve(role)
		if err != nil {
			continue
		}
		total += float64(len(selected)) * o.registry.EstimateCost(resolved.Provider, avgPromptTokensPerPage, avgCompletionTokensPerPage)
	}
	return total
}

func buildProjectMetadata(projectID, seedURL string, results map[string]model.PageResult) model.ProjectMetadata {
	counts := model.ProjectCounts{Total: len(results)}
	var step1Sum, step2Sum float64
	var step1N, step2N int

	for _, r := range results {
		switch r.State {
		case model.PageCompleted, model.PageStep2Done:
			counts.Completed++
		case model.PageSkipped:
			counts.Skipped++
		case model.PageQueued:
			counts.Pending++
		case model.PageRunning:
			counts.Running++
		default:
			counts.Failed++
		}
		if r.Step1 != nil {
			step1Sum += r.Step1.Quality.Overall
			step1N++
		}
		if r.Step2 != nil {
			step2Sum += r.Step2.QualityScore
			step2N++
		}
	}

	quality := model.QualitySummary{}
	if step1N > 0 {
		quality.AverageStep1Quality = step1Sum / float64(step1N)
	}
	if step2N > 0 {
		quality.AverageStep2Quality = step2Sum / float64(step2N)
	}

	domain, _ := urlutil.Normalize(seedURL)
	return model.ProjectMetadata{
		ProjectID:      projectID,
		SeedURL:        seedURL,
		Domain:         domain.Domain,
		CreatedAt:      time.Now().UTC(),
		Counts:         counts,
		QualitySummary: quality,
	}
}

// selectPages drops assets and external URLs, ranks the remaining
// candidates by the weighted priority-score formula of spec.md §4.12
// step 2, then truncates to the mode preset's page cap and reports its
// step2 default.
func selectPages(inventory *model.URLInventory, opts Options) ([]scoredPage, bool) {
	maxPages, includeStep2 := modePreset(opts.Mode, opts.MaxPages, opts.IncludeStep2)

	scored := make([]scoredPage, 0, len(inventory.Entries))
	for i, e := range inventory.Entries {
		if e.IsAsset || !e.Internal {
			continue
		}
		scored = append(scored, scoredPage{
			DiscoveredURL: e,
			Score:         pageSelectionScore(e, opts.FocusAreas),
			DiscoveryIdx:  i,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].DiscoveryIdx < scored[j].DiscoveryIdx
	})

	if maxPages > 0 && len(scored) > maxPages {
		scored = scored[:maxPages]
	}
	return scored, includeStep2
}

func modePreset(mode AnalysisMode, callerMaxPages int, callerIncludeStep2 bool) (int, bool) {
	switch mode {
	case ModeQuick:
		return 10, callerIncludeStep2
	case ModeComprehensive:
		return 50, true
	case ModeTargeted:
		return callerMaxPages, true
	case ModeRecommended, "":
		return 20, true
	default:
		return 20, true
	}
}

func pageSelectionScore(e model.DiscoveredURL, focusAreas []string) float64 {
	journeyWeight := 0.5
	complexity := float64(e.ComplexityEstimate) / 10.0
	depthCloseness := 1.0 / float64(1+e.Depth)

	keywordMatch := 0.0
	if len(focusAreas) > 0 {
		lowerTitle := strings.ToLower(e.Title + " " + e.Description + " " + e.Normalized.Path)
		for _, focus := range focusAreas {
			if strings.Contains(lowerTitle, strings.ToLower(focus)) {
				keywordMatch = 1.0
				break
			}
		}
	}

	return 0.3*journeyWeight + 0.3*complexity + 0.25*depthCloseness + 0.15*keywordMatch
}

// pageProcessor adapts the browser pool + navigator + analyzer into a
// workflow.Processor, owning session acquisition/release for each page
// per spec.md §4.11's ownership rule ("workflow exclusively owns the
// browser-session handle it has acquired").
type pageProcessor struct {
	pool         *browser.Pool
	analyzer     *analysis.Analyzer
	store        *artifact.Store
	includeStep2 bool
	confirm      Confirmer
	interactive  bool
}

func (p *pageProcessor) Process(ctx context.Context, work workflow.PageWork) model.PageResult {
	result := model.PageResult{PageID: work.PageID, URL: work.URL, State: model.PageRunning}

	sess, err := p.pool.Acquire(ctx, browser.EngineChromium)
	if err != nil {
		result.State = model.PageStep1Failed
		result.Errors = append(result.Errors, toAnalysisError(work.URL, err))
		return result
	}
	defer p.pool.Release(sess)

	snapshot, err := navigator.NavigateAndExtract(ctx, sess, work.URL, navigator.Options{CaptureNetwork: true})
	if err != nil {
		result.State = model.PageStep1Failed
		result.Errors = append(result.Errors, toAnalysisError(work.URL, err))
		return result
	}
	result.RawHTMLExcerpt = truncateHTML(snapshot.HTML, maxHTMLExcerptChars)

	step1, step2 := p.runAnalysis(ctx, work, *snapshot)

	result.Step1State = step1.State
	if step1.State == model.StepOK || step1.State == model.StepPartial {
		s := step1.Summary
		result.Step1 = &s
	}
	result.Step2State = step2.State
	if step2.State == model.StepOK {
		a := step2.Analysis
		result.Step2 = &a
	}

	switch {
	case step1.State == model.StepFailed:
		result.State = model.PageStep1Failed
		result.Errors = append(result.Errors, toAnalysisErrorKind(work.URL, "step1", step1.RawErr))
	case !p.includeStep2:
		result.State = model.PageCompleted
	case step2.State == model.StepOK:
		result.State = model.PageCompleted
	case step2.State == model.StepFailed:
		result.State = model.PageStep2Failed
		result.Errors = append(result.Errors, toAnalysisErrorKind(work.URL, "step2", step2.RawErr))
	default:
		result.State = model.PageCompleted
	}

	if err := p.store.WritePageResult(work.PageID, result); err != nil {
		result.Errors = append(result.Errors, toAnalysisError(work.URL, err))
	}
	return result
}

func (p *pageProcessor) runAnalysis(ctx context.Context, work workflow.PageWork, snapshot model.PageSnapshot) (analysis.Step1Result, analysis.Step2Result) {
	if !p.includeStep2 {
		return p.analyzer.AnalyzeStep1Only(ctx, work.URL, snapshot), analysis.Step2Result{State: model.StepSkipped}
	}
	if p.interactive && p.confirm != nil && !p.confirm.Confirm(ctx, "pre_step2", work.PageID) {
		return p.analyzer.AnalyzeStep1Only(ctx, work.URL, snapshot), analysis.Step2Result{State: model.StepSkipped}
	}
	return p.analyzer.AnalyzePage(ctx, work.URL, snapshot)
}

const maxHTMLExcerptChars = 4000

func truncateHTML(html string, maxLen int) string {
	if len(html) <= maxLen {
		return html
	}
	return html[:maxLen]
}

func toAnalysisError(url string, err error) model.AnalysisError {
	return model.AnalysisError{PageURL: url, Kind: "navigation", Message: err.Error(), Timestamp: time.Now().UTC()}
}

func toAnalysisErrorKind(url, kind string, err error) model.AnalysisError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return model.AnalysisError{PageURL: url, Kind: kind, Message: msg, Timestamp: time.Now().UTC()}
}
