// Package docgen implements C13: rendering PageResults into the
// per-page and master Markdown reports under the artifact store. It
// reuses JohannesKaufmann/html-to-markdown the way the teacher's
// scraper.HTTPScraper.Scrape does (htmlmd.NewConverter(host, true,
// nil).ConvertString(html)), here to fold a page's raw HTML into a
// readable excerpt block instead of converting a whole document.
package docgen

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	htmlmd "github.com/JohannesKaufmann/html-to-markdown"

	"legacywebanalyzer/internal/artifact"
	"legacywebanalyzer/internal/model"
)

// excerptHTMLChars bounds how much raw HTML the converter sees for the
// page excerpt block, keeping it short without truncating mid-tag often
// enough to break the converter.
const excerptHTMLChars = 4000

// Generator renders PageResults into the store's Markdown artifacts.
type Generator struct {
	store *artifact.Store
}

// New builds a Generator over a Store.
func New(store *artifact.Store) *Generator {
	return &Generator{store: store}
}

// PublishPage atomically (re)writes one page's Markdown artifact.
func (g *Generator) PublishPage(pageID string, result model.PageResult) error {
	return g.store.WritePageMarkdown(pageID, RenderPage(pageID, result))
}

// PublishMasterReport regenerates the full master report — executive
// summary, project overview, per-page TOC, API integration summary,
// deduplicated business logic, and priority-ranked rebuild specs — from
// the current result set, publishing it via one atomic rewrite per
// spec.md §4.13 ("file integrity is preserved by only publishing the
// master report via atomic rename of a full rewrite").
func (g *Generator) PublishMasterReport(meta model.ProjectMetadata, results map[string]model.PageResult) error {
	return g.store.WriteMasterReport(RenderMasterReport(meta, results))
}

// RenderPage builds one page's Markdown artifact: a frontmatter-like
// header, the content-summary block, the feature-analysis block, and
// tables for interactive elements, capabilities, API integrations,
// business rules, and quality metrics, per spec.md §4.13.
func RenderPage(pageID string, r model.PageResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "---\n")
	fmt.Fprintf(&sb, "page_id: %s\n", pageID)
	fmt.Fprintf(&sb, "url: %s\n", r.URL)
	fmt.Fprintf(&sb, "state: %s\n", r.State)
	fmt.Fprintf(&sb, "---\n\n")
	fmt.Fprintf(&sb, "# %s\n\n", r.URL)

	if len(r.Errors) > 0 {
		sb.WriteString("## Errors\n\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&sb, "- **%s**: %s\n", e.Kind, e.Message)
		}
		sb.WriteString("\n")
	}

	if r.Step1 != nil {
		renderContentSummary(&sb, *r.Step1)
	}
	if r.Step2 != nil {
		renderFeatureAnalysis(&sb, *r.Step2)
	}

	if excerpt := htmlExcerpt(hostOf(r.URL), r.RawHTMLExcerpt); excerpt != "" {
		sb.WriteString("## Page Excerpt\n\n")
		sb.WriteString(excerpt)
		sb.WriteString("\n")
	}

	return sb.String()
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Hostname()
	}
	return ""
}

func renderContentSummary(sb *strings.Builder, s model.ContentSummary) {
	sb.WriteString("## Content Summary\n\n")
	fmt.Fprintf(sb, "**Purpose**: %s\n\n", s.Purpose)
	fmt.Fprintf(sb, "**User context**: %s\n\n", s.UserContext)
	fmt.Fprintf(sb, "**Business logic**: %s\n\n", s.BusinessLogic)
	fmt.Fprintf(sb, "**Navigation role**: %s\n\n", s.NavigationRole)
	fmt.Fprintf(sb, "**Journey stage**: %s\n\n", s.JourneyStage)
	if len(s.Workflows) > 0 {
		fmt.Fprintf(sb, "**Workflows**: %s\n\n", strings.Join(s.Workflows, ", "))
	}
	if len(s.Keywords) > 0 {
		fmt.Fprintf(sb, "**Keywords**: %s\n\n", strings.Join(s.Keywords, ", "))
	}

	sb.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(sb, "| Business importance | %.2f |\n", s.BusinessImportance)
	fmt.Fprintf(sb, "| Confidence | %.2f |\n", s.Confidence)
	fmt.Fprintf(sb, "| Quality (overall) | %.2f |\n", s.Quality.Overall)
	fmt.Fprintf(sb, "| Quality (completeness) | %.2f |\n", s.Quality.Completeness)
	fmt.Fprintf(sb, "| Quality (depth) | %.2f |\n\n", s.Quality.Depth)
}

func renderFeatureAnalysis(sb *strings.Builder, f model.FeatureAnalysis) {
	sb.WriteString("## Feature Analysis\n\n")

	if len(f.InteractiveElements) > 0 {
		sb.WriteString("### Interactive Elements\n\n")
		sb.WriteString("| Type | Selector | Purpose |\n|---|---|---|\n")
		for _, el := range f.InteractiveElements {
			fmt.Fprintf(sb, "| %s | `%s` | %s |\n", el.Type, el.Selector, el.Purpose)
		}
		sb.WriteString("\n")
	}

	if len(f.FunctionalCapabilities) > 0 {
		sb.WriteString("### Functional Capabilities\n\n")
		for _, c := range f.FunctionalCapabilities {
			fmt.Fprintf(sb, "- %s\n", c)
		}
		sb.WriteString("\n")
	}

	if len(f.APIIntegrations) > 0 {
		sb.WriteString("### API Integrations\n\n")
		sb.WriteString("| Method | Endpoint | Auth | Purpose |\n|---|---|---|---|\n")
		for _, a := range f.APIIntegrations {
			fmt.Fprintf(sb, "| %s | `%s` | %s | %s |\n", a.Method, a.Endpoint, a.Auth, a.Purpose)
		}
		sb.WriteString("\n")
	}

	if len(f.BusinessRules) > 0 {
		sb.WriteString("### Business Rules\n\n")
		for _, br := range f.BusinessRules {
			fmt.Fprintf(sb, "- %s\n", br)
		}
		sb.WriteString("\n")
	}

	if len(f.RebuildSpecs) > 0 {
		sb.WriteString("### Rebuild Specs\n\n")
		sb.WriteString("| Priority | Score | Title | Description |\n|---|---|---|---|\n")
		for _, rs := range f.RebuildSpecs {
			fmt.Fprintf(sb, "| %s | %.2f | %s | %s |\n", rs.Priority, rs.Score, rs.Title, rs.Description)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(sb, "| Overall confidence | %.2f |\n", f.OverallConfidence)
	fmt.Fprintf(sb, "| Quality score | %.2f |\n\n", f.QualityScore)
}

// RenderMasterReport builds the full master report document.
func RenderMasterReport(meta model.ProjectMetadata, results map[string]model.PageResult) string {
	var sb strings.Builder

	sb.WriteString("# Legacy Site Analysis Report\n\n")

	sb.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&sb, "- Seed URL: %s\n", meta.SeedURL)
	fmt.Fprintf(&sb, "- Domain: %s\n", meta.Domain)
	fmt.Fprintf(&sb, "- Pages total: %d, completed: %d, failed: %d, skipped: %d, pending: %d, running: %d\n",
		meta.Counts.Total, meta.Counts.Completed, meta.Counts.Failed, meta.Counts.Skipped, meta.Counts.Pending, meta.Counts.Running)
	fmt.Fprintf(&sb, "- Average Step 1 quality: %.2f\n", meta.QualitySummary.AverageStep1Quality)
	fmt.Fprintf(&sb, "- Average Step 2 quality: %.2f\n\n", meta.QualitySummary.AverageStep2Quality)

	sb.WriteString("## Project Overview\n\n")
	fmt.Fprintf(&sb, "Created: %s\n\n", meta.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	pageIDs := sortedPageIDs(results)

	sb.WriteString("## Pages\n\n")
	for _, id := range pageIDs {
		r := results[id]
		fmt.Fprintf(&sb, "- [%s](pages/page-%s.md) — %s\n", r.URL, id, r.State)
	}
	sb.WriteString("\n")

	renderAPIIntegrationSummary(&sb, results, pageIDs)
	renderBusinessLogicSummary(&sb, results, pageIDs)
	renderRebuildSpecSummary(&sb, results, pageIDs)

	return sb.String()
}

func sortedPageIDs(results map[string]model.PageResult) []string {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// renderAPIIntegrationSummary groups every discovered API integration
// across all pages by HTTP method, per spec.md §4.13.
func renderAPIIntegrationSummary(sb *strings.Builder, results map[string]model.PageResult, pageIDs []string) {
	byMethod := make(map[string][]string)
	for _, id := range pageIDs {
		r := results[id]
		if r.Step2 == nil {
			continue
		}
		for _, a := range r.Step2.APIIntegrations {
			line := fmt.Sprintf("`%s` (%s) — %s", a.Endpoint, r.URL, a.Purpose)
			byMethod[a.Method] = append(byMethod[a.Method], line)
		}
	}
	if len(byMethod) == 0 {
		return
	}

	sb.WriteString("## API Integration Summary\n\n")
	methods := make([]string, 0, len(byMethod))
	for m := range byMethod {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	for _, m := range methods {
		fmt.Fprintf(sb, "### %s\n\n", m)
		for _, line := range byMethod[m] {
			fmt.Fprintf(sb, "- %s\n", line)
		}
		sb.WriteString("\n")
	}
}

// renderBusinessLogicSummary deduplicates workflows across all pages'
// Step 1 summaries into one list, per spec.md §4.13.
func renderBusinessLogicSummary(sb *strings.Builder, results map[string]model.PageResult, pageIDs []string) {
	seen := make(map[string]struct{})
	var workflows []string
	for _, id := range pageIDs {
		r := results[id]
		if r.Step1 == nil {
			continue
		}
		for _, w := range r.Step1.Workflows {
			if _, dup := seen[w]; dup {
				continue
			}
			seen[w] = struct{}{}
			workflows = append(workflows, w)
		}
	}
	if len(workflows) == 0 {
		return
	}

	sb.WriteString("## Business Logic Documentation\n\n")
	sort.Strings(workflows)
	for _, w := range workflows {
		fmt.Fprintf(sb, "- %s\n", w)
	}
	sb.WriteString("\n")
}

// renderRebuildSpecSummary collects every rebuild spec across all pages
// and re-sorts by score, matching analysis.PrioritizeRebuildSpecs'
// ordering rule (score desc, interaction-referencing first, then title).
func renderRebuildSpecSummary(sb *strings.Builder, results map[string]model.PageResult, pageIDs []string) {
	type specWithSource struct {
		model.RebuildSpec
		SourceURL string
	}
	var all []specWithSource
	for _, id := range pageIDs {
		r := results[id]
		if r.Step2 == nil {
			continue
		}
		for _, rs := range r.Step2.RebuildSpecs {
			all = append(all, specWithSource{RebuildSpec: rs, SourceURL: r.URL})
		}
	}
	if len(all) == 0 {
		return
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		if all[i].ReferencesInteraction != all[j].ReferencesInteraction {
			return all[i].ReferencesInteraction
		}
		return all[i].Title < all[j].Title
	})

	sb.WriteString("## Technical Specifications — Rebuild Specs (Priority Order)\n\n")
	sb.WriteString("| Priority | Score | Title | Source Page | Description |\n|---|---|---|---|---|\n")
	for _, s := range all {
		fmt.Fprintf(sb, "| %s | %.2f | %s | %s | %s |\n", s.Priority, s.Score, s.Title, s.SourceURL, s.Description)
	}
	sb.WriteString("\n")
}

// htmlExcerpt renders a bounded HTML fragment to Markdown using the same
// converter the teacher's scraper uses for whole-page conversion. It
// returns "" when conversion fails or yields only whitespace; no
// plain-text excerpt is produced in that case.
func htmlExcerpt(host, html string) string {
	if len(html) > excerptHTMLChars {
		html = html[:excerptHTMLChars]
	}
	converter := htmlmd.NewConverter(host, true, nil)
	md, err := converter.ConvertString(html)
	if err != nil || strings.TrimSpace(md) == "" {
		return ""
	}
	return md
}
