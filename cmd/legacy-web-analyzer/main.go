// Command legacy-web-analyzer wires C1-C14 together into a single
// batch run: one seed URL in, a populated docs/web_discovery/ tree out.
// Like raito-api's main, it composes config, a logger, and the
// lower-level collaborators, then hands off to a single top-level verb.
// Run options (seed URL, project, mode, page cap, Step 2, interactive
// checkpoints, focus areas) come from a small stdlib flag set; provider
// and model settings come from environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"legacywebanalyzer/internal/artifact"
	"legacywebanalyzer/internal/browser"
	"legacywebanalyzer/internal/config"
	"legacywebanalyzer/internal/llm"
	"legacywebanalyzer/internal/logging"
	"legacywebanalyzer/internal/model"
	"legacywebanalyzer/internal/orchestrator"
	"legacywebanalyzer/internal/resource"
)

// Exit codes per spec.md §6.
const (
	exitSuccess          = 0
	exitConfigError      = 2
	exitDiscoveryError   = 3
	exitTerminalAnalysis = 4
	exitInterrupted      = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	seedURL := flag.String("url", "", "seed URL to analyze")
	projectID := flag.String("project", "", "project id; defaults to a slug of the seed URL")
	mode := flag.String("mode", string(orchestrator.ModeRecommended), "quick|recommended|comprehensive|targeted")
	maxPages := flag.Int("max-pages", 0, "override the mode's page cap (0 = mode default)")
	includeStep2 := flag.Bool("step2", true, "run the feature-analysis pass")
	interactive := flag.Bool("interactive", false, "pause at discovery/selection/pre-step2 checkpoints")
	focusAreas := flag.String("focus", "", "comma-separated focus-area keywords")
	flag.Parse()

	logger := logging.NewFromEnv()
	defer logger.Sync()

	if *seedURL == "" {
		logger.Error("missing required -url flag")
		return exitConfigError
	}

	settings, err := config.LoadFromOS()
	if err != nil {
		logger.Error("configuration error", zap.Error(err))
		return exitConfigError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := browser.NewPool("", settings.MaxConcurrentPages, logger)
	defer pool.Close()

	facade := llm.NewFacade(settings)
	registry := llm.NewRegistry(settings)
	for _, role := range []llm.Role{llm.RoleStep1, llm.RoleStep2, llm.RoleFallback} {
		if _, err := registry.Resolve(role); err != nil {
			logger.Error("configuration error", zap.Error(err))
			return exitConfigError
		}
	}

	pid := *projectID
	if pid == "" {
		pid = slugProjectID(*seedURL)
	}
	store, err := artifact.New(fmt.Sprintf("%s/%s", settings.OutputRoot, pid))
	if err != nil {
		logger.Error("failed to initialize artifact store", zap.Error(err))
		return exitConfigError
	}

	orch := orchestrator.New(pool, facade, registry, store, logger, settings.MaxConcurrentPages, settings.MaxRetriesPerPage)

	opts := orchestrator.Options{
		Mode:            orchestrator.AnalysisMode(*mode),
		MaxPages:        *maxPages,
		IncludeStep2:    *includeStep2,
		InteractiveMode: *interactive,
		ProjectID:       pid,
		FocusAreas:      splitNonEmpty(*focusAreas),
	}

	var confirm orchestrator.Confirmer = orchestrator.AutoConfirm{}
	if *interactive {
		confirm = stdinConfirmer{logger: logger}
	}

	result, err := orch.AnalyzeLegacySite(ctx, *seedURL, opts, confirm)
	if err != nil {
		return exitCodeFor(err, ctx)
	}

	logger.Info("analysis complete",
		zap.String("project_id", result.ProjectID),
		zap.Int("page_count", result.PageCount),
		zap.Float64("estimated_cost_usd", result.CostEstimateUSD),
		zap.String("final_state", string(result.FinalState)),
	)

	for _, entry := range listResources(pid, store) {
		logger.Info("artifact", zap.String("uri", entry.URI), zap.String("mime", entry.MIMEType))
	}

	if result.Metadata.Counts.Completed == 0 {
		return exitTerminalAnalysis
	}
	return exitSuccess
}

// listResources enumerates the project's artifacts via C14's read-only
// addressing scheme, logged at the end of a run the way a caller would
// query it through get_analysis_status's companion resource listing.
func listResources(projectID string, store *artifact.Store) []resource.Entry {
	entries, err := resource.New(projectID, store).List()
	if err != nil {
		return nil
	}
	return entries
}

func exitCodeFor(err error, ctx context.Context) int {
	if ctx.Err() != nil {
		return exitInterrupted
	}
	var configErr *model.ConfigError
	if errors.As(err, &configErr) {
		return exitConfigError
	}
	var discoveryErr *model.DiscoveryError
	if errors.As(err, &discoveryErr) {
		return exitDiscoveryError
	}
	return exitTerminalAnalysis
}

// stdinConfirmer implements orchestrator.Confirmer by prompting on
// stdout and reading a y/n answer from stdin, the minimal interactive
// surface spec.md §4.12 asks for without pulling in a TUI framework.
type stdinConfirmer struct {
	logger *zap.Logger
}

func (c stdinConfirmer) Confirm(ctx context.Context, checkpoint string, detail any) bool {
	fmt.Printf("[%s] %v — continue? [Y/n] ", checkpoint, detail)
	var answer string
	_, _ = fmt.Scanln(&answer)
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "" || answer == "y" || answer == "yes"
}

func slugProjectID(seedURL string) string {
	s := strings.ToLower(seedURL)
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	slug := strings.Trim(sb.String(), "-")
	if slug == "" {
		return "project-" + strconv.Itoa(os.Getpid())
	}
	return slug
}

func splitNonEmpty(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
