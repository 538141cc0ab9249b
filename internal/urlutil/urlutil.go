// Package urlutil parses, normalizes, classifies, and slugifies URLs.
// Link resolution follows the same absolute-URL-and-fragment-stripping
// idiom as the teacher's scraper.HTTPScraper.Scrape and
// crawler.sameHostOrSubdomain.
package urlutil

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"legacywebanalyzer/internal/model"
)

// assetSuffixes is the fixed suffix set used to classify asset URLs.
var assetSuffixes = map[string]struct{}{
	".css": {}, ".js": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {},
	".svg": {}, ".ico": {}, ".woff": {}, ".woff2": {}, ".ttf": {}, ".map": {},
	".pdf": {},
}

// multiLabelPublicSuffixes is a short, explicit list of two-label public
// suffixes used by the registrable-domain heuristic below. No pack
// example imports golang.org/x/net/publicsuffix or an equivalent PSL
// library, so this module uses a documented heuristic instead of a
// dependency none of the retrieval pack exercises (see DESIGN.md).
var multiLabelPublicSuffixes = map[string]struct{}{
	"co.uk": {}, "org.uk": {}, "ac.uk": {}, "gov.uk": {},
	"com.au": {}, "net.au": {}, "org.au": {},
	"co.jp": {}, "co.nz": {}, "co.in": {},
	"com.br": {}, "com.cn": {},
}

// Normalize parses a raw URL string and produces a model.NormalizedURL.
// It requires an http/https scheme and a non-empty host, lowercases
// scheme and host, strips the fragment, and preserves the query string.
// Percent-encoding is never resolved or re-encoded.
func Normalize(raw string) (model.NormalizedURL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return model.NormalizedURL{}, &model.InvalidURLError{Raw: raw, Reason: err.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return model.NormalizedURL{}, &model.InvalidURLError{Raw: raw, Reason: "scheme must be http or https"}
	}
	if u.Host == "" {
		return model.NormalizedURL{}, &model.InvalidURLError{Raw: raw, Reason: "host is required"}
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	return model.NormalizedURL{
		URL:    u.String(),
		Scheme: u.Scheme,
		Host:   u.Host,
		Path:   u.Path,
		Domain: RegistrableDomain(u.Host),
	}, nil
}

// RegistrableDomain extracts the public-suffix-aware base domain used to
// classify internal vs. external links. host may include a port,
// which is stripped before classification.
func RegistrableDomain(host string) string {
	host = strings.ToLower(host)
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}

	lastTwo := strings.Join(labels[len(labels)-2:], ".")
	if _, ok := multiLabelPublicSuffixes[lastTwo]; ok && len(labels) >= 3 {
		return strings.Join(labels[len(labels)-3:], ".")
	}
	return lastTwo
}

// IsInternal reports whether u belongs to the same registrable domain as
// rootDomain (the seed host's authority).
func IsInternal(u model.NormalizedURL, rootDomain string) bool {
	return strings.EqualFold(u.Domain, rootDomain)
}

// IsAsset reports whether u's path matches a recognized static-asset
// suffix.
func IsAsset(u model.NormalizedURL) bool {
	lower := strings.ToLower(u.Path)
	for suffix := range assetSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

const maxSlugLen = 120

// Slugify derives a filesystem-safe identifier from host+path. Results
// are capped at 120 characters. The query is not part of the slug, and
// punctuation collapses, so distinct URLs can share a slug (as can URLs
// cut at the cap); callers should detect the collision (e.g. via a
// seen-set) and call SlugifyWithSuffix to disambiguate.
func Slugify(u model.NormalizedURL) string {
	raw := u.Host + u.Path
	slug := slugifyString(raw)
	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}
	if slug == "" {
		slug = "root"
	}
	return slug
}

// SlugifyWithSuffix produces a slug for u, appending a deterministic
// 6-character suffix derived from a stable hash of the full URL. This is
// used to resolve collisions between distinct URLs whose plain slugs
// match.
func SlugifyWithSuffix(u model.NormalizedURL) string {
	base := Slugify(u)
	maxBase := maxSlugLen - 7 // "-" + 6 hex chars
	if maxBase < 1 {
		maxBase = 1
	}
	if len(base) > maxBase {
		base = base[:maxBase]
	}
	return base + "-" + stableHash(u.URL)
}

func stableHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:6]
}

func slugifyString(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
