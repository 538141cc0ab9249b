package discovery

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	robotstxt "github.com/temoto/robotstxt"

	"legacywebanalyzer/internal/urlutil"
)

// CrawlOptions controls the breadth-first fallback crawl.
type CrawlOptions struct {
	MaxDepth        int
	MaxPages        int
	RespectDisallow bool
	UserAgent       string
}

// Crawl performs a breadth-first, same-domain crawl starting at root,
// extracting anchors the way the teacher's crawler.collectFromHTML does
// (goquery over a single page), generalized here into a frontier queue
// that walks multiple pages up to MaxDepth/MaxPages. Asset URLs are
// skipped by default; fragments are stripped before dedup.
func Crawl(ctx context.Context, client *http.Client, root string, opts CrawlOptions) ([]string, error) {
	rootNorm, err := urlutil.Normalize(root)
	if err != nil {
		return nil, err
	}

	var robotsData *robotstxt.RobotsData
	if opts.RespectDisallow {
		if ru, err := url.Parse(rootNorm.URL); err == nil {
			robotsData = fetchRobotsData(ctx, client, ru, opts.UserAgent)
		}
	}

	type frontierItem struct {
		url   string
		depth int
	}

	seen := map[string]struct{}{rootNorm.URL: {}}
	queue := []frontierItem{{url: rootNorm.URL, depth: 0}}
	var results []string

	for len(queue) > 0 {
		if opts.MaxPages > 0 && len(results) >= opts.MaxPages {
			break
		}
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		item := queue[0]
		queue = queue[1:]
		results = append(results, item.url)

		if opts.MaxDepth > 0 && item.depth >= opts.MaxDepth {
			continue
		}

		links, err := extractLinks(ctx, client, item.url)
		if err != nil {
			continue
		}

		for _, link := range links {
			n, err := urlutil.Normalize(link)
			if err != nil {
				continue
			}
			if !urlutil.IsInternal(n, rootNorm.Domain) {
				continue
			}
			if urlutil.IsAsset(n) {
				continue
			}
			if _, dup := seen[n.URL]; dup {
				continue
			}
			if opts.RespectDisallow && !robotsAllows(robotsData, opts.UserAgent, n.URL) {
				continue
			}
			seen[n.URL] = struct{}{}
			if opts.MaxPages > 0 && len(results)+len(queue) >= opts.MaxPages {
				continue
			}
			queue = append(queue, frontierItem{url: n.URL, depth: item.depth + 1})
		}
	}

	return results, nil
}

func extractLinks(ctx context.Context, client *http.Client, pageURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		linkURL, err := url.Parse(href)
		if err != nil {
			return
		}
		if !linkURL.IsAbs() {
			linkURL = base.ResolveReference(linkURL)
		}
		if linkURL.Scheme != "http" && linkURL.Scheme != "https" {
			return
		}
		linkURL.Fragment = ""
		links = append(links, linkURL.String())
	})

	return links, nil
}
