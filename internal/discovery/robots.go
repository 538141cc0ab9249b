// Package discovery implements C2 (robots/sitemap/crawler) and C3 (the
// discovery pipeline that composes them into a URLInventory).
//
// analyzeRobots is grounded on the teacher's crawler.fetchRobots
// (internal/crawler/map.go in ncecere-raito): fetch /robots.txt over
// plain net/http, parse with github.com/temoto/robotstxt, and treat a
// non-200 response as "no robots.txt" rather than an error.
package discovery

import (
	"context"
	"io"
	"net/http"
	"net/url"

	robotstxt "github.com/temoto/robotstxt"
)

// RobotsResult is the outcome of analyzing a site's robots.txt.
type RobotsResult struct {
	DisallowPatterns []string
	SitemapURLs      []string
}

// AnalyzeRobots fetches and parses robots.txt for rootURL. A missing
// robots.txt (non-200, network error) yields an empty result, not an
// error, per spec.
func AnalyzeRobots(ctx context.Context, client *http.Client, rootURL string, userAgent string) (*RobotsResult, error) {
	root, err := url.Parse(rootURL)
	if err != nil {
		return &RobotsResult{}, nil
	}

	robotsURL := &url.URL{Scheme: root.Scheme, Host: root.Host, Path: "/robots.txt"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return &RobotsResult{}, nil
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &RobotsResult{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &RobotsResult{}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RobotsResult{}, nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return &RobotsResult{}, nil
	}

	result := &RobotsResult{SitemapURLs: data.Sitemaps}

	grp := data.FindGroup(userAgent)
	if grp != nil {
		for _, rule := range grp.Rules {
			if !rule.Allow {
				result.DisallowPatterns = append(result.DisallowPatterns, rule.Path)
			}
		}
	}

	return result, nil
}

// robotsAllows reports whether fullURL is allowed for userAgent according
// to data. A nil data (no robots.txt found) always allows.
func robotsAllows(data *robotstxt.RobotsData, userAgent, fullURL string) bool {
	if data == nil {
		return true
	}
	grp := data.FindGroup(userAgent)
	if grp == nil {
		return true
	}
	return grp.Test(fullURL)
}

func fetchRobotsData(ctx context.Context, client *http.Client, root *url.URL, userAgent string) *robotstxt.RobotsData {
	robotsURL := &url.URL{Scheme: root.Scheme, Host: root.Host, Path: "/robots.txt"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}
	return data
}
