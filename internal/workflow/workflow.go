// Package workflow implements C11: the sequential, checkpointed page
// processing engine. Its bounded-concurrency dispatch loop is adapted
// from jobs.Runner.Start (a buffered-channel semaphore gating goroutines
// launched per unit of work), generalized from a DB-polled job queue to
// an in-memory priority queue of pages and rebuilt on
// golang.org/x/sync/errgroup's Group.SetLimit (codenerd's concurrency
// dependency) rather than a hand-rolled channel semaphore, since errgroup
// also gives clean cancellation propagation across the per-page fan-out.
// Extended with the pause/resume/stop/skip state machine and per-page
// retry/checkpoint semantics spec.md §4.11 requires, which the teacher's
// fire-and-forget job runner never needed.
package workflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"legacywebanalyzer/internal/metrics"
	"legacywebanalyzer/internal/model"
)

// RunState is the workflow-level lifecycle position.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunPaused    RunState = "paused"
	RunStopped   RunState = "stopped"
	RunCompleted RunState = "completed"
)

// PageWork is one unit of work the engine dequeues and processes.
type PageWork struct {
	PageID   string
	URL      string
	Priority float64
}

// Processor processes one PageWork to completion, returning its final
// PageResult. Implementations own session acquisition/release and the
// analysis calls; the engine only handles scheduling, retries, and
// checkpointing.
type Processor interface {
	Process(ctx context.Context, work PageWork) model.PageResult
}

// Checkpointer persists progress; implemented by artifact.Store.
type Checkpointer interface {
	WriteCheckpoint(cp model.Checkpoint) error
	AppendEvent(event map[string]any) error
}

// Options configures one Engine run.
type Options struct {
	MaxConcurrentSessions int
	MaxRetriesPerPage     int
}

func (o Options) maxConcurrent() int {
	if o.MaxConcurrentSessions <= 0 {
		return 3
	}
	return o.MaxConcurrentSessions
}

func (o Options) maxRetries() int {
	if o.MaxRetriesPerPage < 0 {
		return 1
	}
	return o.MaxRetriesPerPage
}

// etaAlpha is the EMA smoothing factor for ETA estimation, spec.md §4.11.
const etaAlpha = 0.3

// Engine runs the priority-ordered, bounded-concurrency page pipeline
// with pause/resume/stop/skip control and atomic per-page checkpointing.
type Engine struct {
	workflowID string
	processor  Processor
	store      Checkpointer
	opts       Options
	logger     *zap.Logger

	mu           sync.Mutex
	state        RunState
	queue        []PageWork
	skipSet      map[string]struct{}
	results      map[string]model.PageResult
	completedIDs []string
	failedIDs    []string
	skippedIDs   []string
	avgPageMS    float64
	pauseCh      chan struct{}
	stopCh       chan struct{}
}

// NewEngine builds an Engine over a priority-ordered work queue.
func NewEngine(workflowID string, work []PageWork, processor Processor, store Checkpointer, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	sorted := append([]PageWork{}, work...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })

	return &Engine{
		workflowID: workflowID,
		processor:  processor,
		store:      store,
		opts:       opts,
		logger:     logger.Named("workflow.engine"),
		state:      RunIdle,
		queue:      sorted,
		skipSet:    make(map[string]struct{}),
		results:    make(map[string]model.PageResult),
		stopCh:     make(chan struct{}),
	}
}

// Skip marks a page to be recorded as skipped rather than processed,
// effective before Run reaches it in the queue.
func (e *Engine) Skip(pageID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.skipSet[pageID] = struct{}{}
}

// Pause requests the engine stop dequeuing new work; in-flight work
// completes. Resume clears the pause.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == RunRunning {
		e.state = RunPaused
		e.pauseCh = make(chan struct{})
	}
}

// Resume clears a pause and lets Run continue dequeuing.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == RunPaused {
		e.state = RunRunning
		close(e.pauseCh)
	}
}

// Stop requests the engine halt after in-flight work completes; no
// further pages are dequeued.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != RunStopped {
		select {
		case <-e.stopCh:
		default:
			close(e.stopCh)
		}
		e.state = RunStopped
	}
}

// State reports the current workflow-level state.
func (e *Engine) State() RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Run drains the priority-ordered queue with bounded concurrency,
// retrying transient per-page failures and checkpointing after every
// terminal state, until the queue empties, Stop is called, or ctx ends.
func (e *Engine) Run(ctx context.Context) RunState {
	e.mu.Lock()
	if e.state == RunIdle {
		e.state = RunRunning
	}
	e.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(e.opts.maxConcurrent())

loop:
	for {
		e.mu.Lock()
		if e.state == RunStopped || len(e.queue) == 0 {
			e.mu.Unlock()
			break
		}
		if e.state == RunPaused {
			waitCh := e.pauseCh
			e.mu.Unlock()
			select {
			case <-waitCh:
				continue
			case <-e.stopCh:
				break loop
			case <-ctx.Done():
				break loop
			}
		}
		work := e.queue[0]
		e.queue = e.queue[1:]
		e.mu.Unlock()

		if e.isSkipped(work.PageID) {
			e.recordTerminal(work.PageID, model.PageResult{PageID: work.PageID, URL: work.URL, State: model.PageSkipped})
			continue
		}

		if ctx.Err() != nil {
			e.mu.Lock()
			e.state = RunStopped
			e.mu.Unlock()
			break
		}

		g.Go(func() error {
			e.processWithRetry(ctx, work)
			return nil
		})
	}

	_ = g.Wait()
	return e.finalize()
}

func (e *Engine) finalize() RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != RunStopped {
		e.state = RunCompleted
	}
	return e.state
}

func (e *Engine) isSkipped(pageID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.skipSet[pageID]
	return ok
}

func (e *Engine) processWithRetry(ctx context.Context, work PageWork) {
	start := time.Now()
	var result model.PageResult

	for attempt := 0; attempt <= e.opts.maxRetries(); attempt++ {
		result = e.processor.Process(ctx, work)
		if isTerminalSuccess(result.State) || attempt == e.opts.maxRetries() {
			break
		}
		if !isRetryable(result.State) {
			break
		}
	}

	result.ProcessingTimeMS = time.Since(start).Milliseconds()
	e.recordTerminal(work.PageID, result)
}

func isTerminalSuccess(s model.PageState) bool {
	return s == model.PageCompleted || s == model.PageStep2Done
}

func isRetryable(s model.PageState) bool {
	return s == model.PageStep1Failed || s == model.PageStep2Failed
}

// recordTerminal stores the page's final result, updates the running
// ETA estimate, and checkpoints atomically. The checkpoint write happens
// while e.mu is still held, so concurrent callers (up to
// MaxConcurrentSessions worker goroutines, plus the main loop for
// skipped pages) write checkpoint.json in the same order they snapshot
// it in — the mutex that protects engine state is the same mutex that
// orders the checkpoint file's writes, per spec.md's checkpoint
// invariant.
func (e *Engine) recordTerminal(pageID string, result model.PageResult) {
	metrics.RecordPageTerminal(string(result.State))

	e.mu.Lock()
	e.results[pageID] = result
	switch result.State {
	case model.PageCompleted, model.PageStep2Done:
		e.completedIDs = append(e.completedIDs, pageID)
	case model.PageSkipped:
		e.skippedIDs = append(e.skippedIDs, pageID)
	default:
		e.failedIDs = append(e.failedIDs, pageID)
	}
	if result.ProcessingTimeMS > 0 {
		if e.avgPageMS == 0 {
			e.avgPageMS = float64(result.ProcessingTimeMS)
		} else {
			e.avgPageMS = etaAlpha*float64(result.ProcessingTimeMS) + (1-etaAlpha)*e.avgPageMS
		}
	}
	pending := make([]string, 0, len(e.queue))
	for _, w := range e.queue {
		pending = append(pending, w.PageID)
	}
	cp := model.Checkpoint{
		WorkflowID:     e.workflowID,
		CreatedAt:      time.Now().UTC(),
		CompletedPages: append([]string{}, e.completedIDs...),
		PendingPages:   pending,
		FailedPages:    append([]string{}, e.failedIDs...),
		SkippedPages:   append([]string{}, e.skippedIDs...),
		ResumeToken:    pageID,
	}
	checkpointErr := e.store.WriteCheckpoint(cp)
	e.mu.Unlock()

	if checkpointErr != nil {
		e.logger.Error("checkpoint_write_failed", zap.String("page_id", pageID), zap.Error(checkpointErr))
	}
	_ = e.store.AppendEvent(map[string]any{
		"kind":    "page_terminal",
		"page_id": pageID,
		"state":   string(result.State),
	})
}

// ETAms returns the current exponential-moving-average per-page
// duration, usable by callers to project remaining time as
// avg * len(pending).
func (e *Engine) ETAms() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.avgPageMS
}

// Results returns a snapshot of all recorded page results so far.
func (e *Engine) Results() map[string]model.PageResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]model.PageResult, len(e.results))
	for k, v := range e.results {
		out[k] = v
	}
	return out
}
