package discovery

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"legacywebanalyzer/internal/model"
	"legacywebanalyzer/internal/urlutil"
)

// Options controls the C3 discovery pipeline.
type Options struct {
	Timeout          time.Duration
	RespectRobots    bool
	UserAgent        string
	MaxDepth         int
	MaxPages         int
	MinSitemapPages  int
	IncludePatterns  []string
	ExcludePatterns  []string
	URLFilterMode    string // "include" or "exclude"
}

// FilterMode constants.
const (
	FilterModeInclude = "include"
	FilterModeExclude = "exclude"
)

// Discover composes robots -> sitemaps -> crawl (fallback) into a
// URLInventory in first-seen order, enriching each entry and applying
// caller filters. It
// mirrors the source ordering of the teacher's crawler.Map (sitemap
// discovery before HTML discovery) but treats crawl strictly as a
// fallback/augmentation per spec.md §4.2 ("crawl is a fallback ... when
// sitemap yields < min_sitemap_pages").
func Discover(ctx context.Context, seed string, opts Options) (*model.URLInventory, error) {
	rootNorm, err := urlutil.Normalize(seed)
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	robots, _ := AnalyzeRobots(ctx, client, rootNorm.URL, opts.UserAgent)

	sitemapURLs := append([]string{}, robots.SitemapURLs...)
	// Conventional locations, tried regardless of robots.txt contents.
	sitemapURLs = append(sitemapURLs,
		(&url.URL{Scheme: rootNorm.Scheme, Host: rootNorm.Host, Path: "/sitemap.xml"}).String(),
	)

	sitemapPages := FetchSitemaps(ctx, client, sitemapURLs)

	seen := make(map[string]struct{})
	var inventory []model.DiscoveredURL

	addEntry := func(rawURL string, source model.Source, depth int) {
		n, err := urlutil.Normalize(rawURL)
		if err != nil {
			return
		}
		if _, dup := seen[n.URL]; dup {
			return
		}
		seen[n.URL] = struct{}{}

		entry := model.DiscoveredURL{
			Normalized: n,
			Source:     source,
			Depth:      depth,
			Internal:   urlutil.IsInternal(n, rootNorm.Domain),
			IsAsset:    urlutil.IsAsset(n),
		}
		enrich(ctx, client, &entry)
		inventory = append(inventory, entry)
	}

	// Seed is always present.
	addEntry(rootNorm.URL, model.SourceSeed, 0)

	for _, u := range sitemapPages {
		addEntry(u, model.SourceSitemap, 1)
	}

	// Crawl fallback/augmentation when sitemap yields too few pages.
	minSitemap := opts.MinSitemapPages
	if minSitemap <= 0 {
		minSitemap = 1
	}
	if len(sitemapPages) < minSitemap {
		crawled, err := Crawl(ctx, client, rootNorm.URL, CrawlOptions{
			MaxDepth:        opts.MaxDepth,
			MaxPages:        opts.MaxPages,
			RespectDisallow: opts.RespectRobots,
			UserAgent:       opts.UserAgent,
		})
		if err == nil {
			for _, u := range crawled {
				addEntry(u, model.SourceCrawl, depthOf(rootNorm.URL, u))
			}
		}
	}

	inventory = applyFilters(inventory, opts.IncludePatterns, opts.ExcludePatterns, opts.URLFilterMode)

	if len(inventory) == 0 {
		return nil, &model.DiscoveryError{SeedURL: seed, Reason: "no URLs discovered from robots, sitemaps, or crawl", Fatal: true}
	}

	return &model.URLInventory{SeedURL: rootNorm.URL, Entries: inventory}, nil
}

// depthOf is a cheap path-segment-count proxy for crawl depth when the
// crawler doesn't carry depth metadata through to the pipeline.
func depthOf(root, candidate string) int {
	if candidate == root {
		return 0
	}
	u, err := url.Parse(candidate)
	if err != nil {
		return 1
	}
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return 1
	}
	return len(segments)
}

// enrich populates title/description/complexity_estimate with a cheap
// best-effort fetch, matching spec.md §4.3 ("first HTML <title> and meta
// description when available").
func enrich(ctx context.Context, client *http.Client, entry *model.DiscoveredURL) {
	entry.ComplexityEstimate = complexityEstimate(entry.Normalized)

	if entry.IsAsset {
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, entry.Normalized.URL, nil)
	if err != nil {
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return
	}

	entry.Title = strings.TrimSpace(doc.Find("title").First().Text())
	entry.Description = strings.TrimSpace(doc.Find(`meta[name="description"]`).AttrOr("content", ""))
}

// complexityEstimate is an integer 1-10 derived from path depth + query
// parameter count + asset indicators, per spec.md §4.3.
func complexityEstimate(n model.NormalizedURL) int {
	score := 1

	segments := strings.FieldsFunc(n.Path, func(r rune) bool { return r == '/' })
	score += len(segments)

	if u, err := url.Parse(n.URL); err == nil {
		score += len(u.Query())
	}

	if urlutil.IsAsset(n) {
		score += 1
	}

	if score > 10 {
		score = 10
	}
	if score < 1 {
		score = 1
	}
	return score
}

// applyFilters applies caller-supplied include/exclude glob patterns
// AFTER discovery, per spec.md §4.3. When both lists are present,
// filterMode resolves precedence.
func applyFilters(entries []model.DiscoveredURL, include, exclude []string, filterMode string) []model.DiscoveredURL {
	if len(include) == 0 && len(exclude) == 0 {
		return entries
	}

	mode := filterMode
	if mode == "" {
		mode = FilterModeExclude
	}

	var out []model.DiscoveredURL
	for _, e := range entries {
		matched := false
		if len(include) > 0 && matchesAny(e.Normalized.Path, include) {
			matched = true
		}
		excluded := len(exclude) > 0 && matchesAny(e.Normalized.Path, exclude)

		switch mode {
		case FilterModeInclude:
			if len(include) > 0 && !matched {
				continue
			}
			if excluded {
				continue
			}
		default: // exclude
			if excluded {
				continue
			}
			if len(include) > 0 && !matched {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func matchesAny(p string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, p); err == nil && ok {
			return true
		}
		// Support "/admin/*"-style prefix globs over the full path,
		// including nested segments, which path.Match does not span.
		if strings.HasSuffix(pattern, "/*") {
			prefix := strings.TrimSuffix(pattern, "/*")
			if strings.HasPrefix(p, prefix+"/") || p == prefix {
				return true
			}
		}
		if strings.HasPrefix(pattern, "*") {
			suffix := strings.TrimPrefix(pattern, "*")
			if strings.HasSuffix(p, suffix) {
				return true
			}
		}
	}
	return false
}
