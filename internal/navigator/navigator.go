// Package navigator implements C5: navigate a pooled browser session to
// a URL, wait for the page to settle, and extract a PageSnapshot. It is
// grounded on ncecere-raito's scraper.RodScraper.Scrape for the
// page.Navigate/page.WaitLoad/page.HTML sequence, extended with go-rod's
// proto.NetworkRequestWillBeSent/NetworkResponseReceived event hub
// (page.EachEvent) for network capture, which the teacher never uses but
// which go-rod (already a teacher dependency) exposes directly.
package navigator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/PuerkitoBio/goquery"

	"legacywebanalyzer/internal/browser"
	"legacywebanalyzer/internal/model"
	"legacywebanalyzer/internal/urlutil"
)

// denylistPattern matches interactive elements navigator must never
// trigger during safe-interaction capture, per spec.md §4.5.
var denylistPattern = regexp.MustCompile(`(?i)delete|remove|cancel|logout`)

// Options controls one navigation.
type Options struct {
	TimeoutMS        int
	MaxRedirects     int
	CaptureNetwork   bool
	CaptureScreenshot bool
	SafeInteractions bool
	MaxInteractions  int
}

func (o Options) timeout() time.Duration {
	if o.TimeoutMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(o.TimeoutMS) * time.Millisecond
}

func (o Options) maxRedirects() int {
	if o.MaxRedirects <= 0 {
		return 5
	}
	return o.MaxRedirects
}

// NavigateAndExtract drives sess's browser to targetURL and returns the
// captured page state, surfacing NavigationTimeout/NavigationFailure/
// BrowserCrash per spec.md §4.5.
func NavigateAndExtract(ctx context.Context, sess *browser.Session, targetURL string, opts Options) (*model.PageSnapshot, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout())
	defer cancel()

	page, err := sess.Browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		sess.MarkUnhealthy()
		return nil, &model.BrowserCrashError{SessionID: sess.ID, Reason: err.Error()}
	}
	defer page.Close()

	var netLog guardedNetworkLog
	var stopEvents func()
	if opts.CaptureNetwork {
		stopEvents = hookNetworkEvents(page, targetURL, &netLog)
		defer stopEvents()
	}

	docStatus, stopDocStatus := hookDocumentStatus(page)
	defer stopDocStatus()

	redirectCount := 0
	currentURL := targetURL
	var lastStatus int

	for {
		if redirectCount > opts.maxRedirects() {
			return nil, &model.NavigationFailureError{URL: targetURL, Status: lastStatus}
		}

		if err := page.Navigate(currentURL); err != nil {
			if ctx.Err() != nil {
				return nil, &model.NavigationTimeoutError{URL: targetURL, TimeoutMS: opts.TimeoutMS}
			}
			return nil, &model.NavigationFailureError{URL: targetURL, Status: 0}
		}

		if err := page.Context(ctx).WaitLoad(); err != nil {
			if ctx.Err() != nil {
				return nil, &model.NavigationTimeoutError{URL: targetURL, TimeoutMS: opts.TimeoutMS}
			}
			return nil, &model.NavigationFailureError{URL: targetURL, Status: 0}
		}

		if err := waitNetworkIdle(ctx, page); err != nil && ctx.Err() != nil {
			return nil, &model.NavigationTimeoutError{URL: targetURL, TimeoutMS: opts.TimeoutMS}
		}

		info, err := page.Info()
		if err != nil {
			sess.MarkUnhealthy()
			return nil, &model.BrowserCrashError{SessionID: sess.ID, Reason: err.Error()}
		}

		if info.URL != currentURL && info.URL != "" {
			currentURL = info.URL
			redirectCount++
			continue
		}
		break
	}

	status := docStatus.get()
	if status >= 400 {
		return nil, &model.NavigationFailureError{URL: targetURL, Status: status}
	}
	if status == 0 {
		status = 200
	}

	html, err := page.HTML()
	if err != nil {
		sess.MarkUnhealthy()
		return nil, &model.BrowserCrashError{SessionID: sess.ID, Reason: err.Error()}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &model.NavigationFailureError{URL: targetURL, Status: 0}
	}

	snapshot := &model.PageSnapshot{
		URL:        targetURL,
		FinalURL:   currentURL,
		StatusCode: status,
		HTML:       html,
		Title:      strings.TrimSpace(doc.Find("title").First().Text()),
		Meta:       extractMeta(doc),
		Network:    netLog.snapshot(),
		DOMStats:   computeDOMStats(doc),
		LoadTimeMS: time.Since(start).Milliseconds(),
	}
	snapshot.VisibleText = extractVisibleText(doc)
	snapshot.TechSignals = detectTechSignals(html)

	if opts.CaptureScreenshot {
		if shot, err := page.Screenshot(false, nil); err == nil {
			snapshot.Screenshot = shot
		}
	}

	if opts.SafeInteractions {
		snapshot.InteractionLog = captureSafeInteractions(ctx, page, doc, opts.MaxInteractions)
	}

	sess.RecordPage(snapshot.LoadTimeMS)
	return snapshot, nil
}

// documentStatus tracks the most recently observed HTTP status of the
// page's top-level document response, set from the network event hook
// below and read once the navigation loop settles.
type documentStatus struct {
	mu     sync.Mutex
	status int
}

func (d *documentStatus) get() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// hookDocumentStatus listens for the main document's response, independent
// of opts.CaptureNetwork, since spec.md §4.5 requires status-based
// navigation failures regardless of whether network capture is requested.
func hookDocumentStatus(page *rod.Page) (*documentStatus, func()) {
	ds := &documentStatus{}
	wait := page.EachEvent(func(e *proto.NetworkResponseReceived) {
		if e.Type != proto.NetworkResourceTypeDocument {
			return
		}
		ds.mu.Lock()
		ds.status = e.Response.Status
		ds.mu.Unlock()
	})
	go wait()
	return ds, func() {}
}

func waitNetworkIdle(ctx context.Context, page *rod.Page) error {
	return page.Context(ctx).Timeout(2 * time.Second).WaitIdle(1 * time.Second)
}

// guardedNetworkLog is a model.NetworkLog mutated from the background
// event-hook goroutine (hookNetworkEvents) while NavigateAndExtract reads
// it on the calling goroutine once navigation settles; the mutex makes
// both sides safe since stopEvents does not join the hook goroutine (it
// keeps running until the page closes).
type guardedNetworkLog struct {
	mu  sync.Mutex
	log model.NetworkLog
}

func (g *guardedNetworkLog) snapshot() model.NetworkLog {
	g.mu.Lock()
	defer g.mu.Unlock()
	return model.NetworkLog{
		APIEndpoints: append([]string{}, g.log.APIEndpoints...),
		ThirdParties: append([]string{}, g.log.ThirdParties...),
		Events:       append([]model.NetworkEvent{}, g.log.Events...),
	}
}

func hookNetworkEvents(page *rod.Page, rootURL string, out *guardedNetworkLog) func() {
	rootNorm, err := urlutil.Normalize(rootURL)
	rootDomain := ""
	if err == nil {
		rootDomain = rootNorm.Domain
	}

	seen := make(map[string]struct{})
	addAPI := func(u string) {
		if _, ok := seen["api:"+u]; ok {
			return
		}
		seen["api:"+u] = struct{}{}
		out.log.APIEndpoints = append(out.log.APIEndpoints, u)
	}
	addThirdParty := func(host string) {
		if _, ok := seen["3p:"+host]; ok {
			return
		}
		seen["3p:"+host] = struct{}{}
		out.log.ThirdParties = append(out.log.ThirdParties, host)
	}

	wait := page.EachEvent(func(e *proto.NetworkRequestWillBeSent) {
		n, err := urlutil.Normalize(e.Request.URL)
		if err != nil {
			return
		}
		isThirdParty := rootDomain != "" && n.Domain != rootDomain

		out.mu.Lock()
		defer out.mu.Unlock()
		if isThirdParty {
			addThirdParty(n.Domain)
		}
		if looksLikeAPI(e.Request.URL) {
			addAPI(e.Request.URL)
		}
		out.log.Events = append(out.log.Events, model.NetworkEvent{
			Timestamp:    time.Now(),
			Method:       e.Request.Method,
			URL:          e.Request.URL,
			IsThirdParty: isThirdParty,
		})
	}, func(e *proto.NetworkResponseReceived) {
		out.mu.Lock()
		defer out.mu.Unlock()
		for i := range out.log.Events {
			if out.log.Events[i].URL == e.Response.URL && out.log.Events[i].Status == 0 {
				out.log.Events[i].Status = e.Response.Status
				out.log.Events[i].ResponseSize = int64(e.Response.EncodedDataLength)
				break
			}
		}
	})
	go wait()
	return func() {}
}

func looksLikeAPI(u string) bool {
	lower := strings.ToLower(u)
	return strings.Contains(lower, "/api/") ||
		strings.Contains(lower, "/graphql") ||
		strings.Contains(lower, ".json") ||
		strings.Contains(lower, "/v1/") ||
		strings.Contains(lower, "/v2/")
}

func extractMeta(doc *goquery.Document) map[string]string {
	meta := make(map[string]string)
	doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		content, _ := s.Attr("content")
		if name != "" {
			meta[name] = content
		}
	})
	if canonical, ok := doc.Find(`link[rel="canonical"]`).Attr("href"); ok {
		meta["canonical"] = canonical
	}
	if lang, ok := doc.Find("html").Attr("lang"); ok {
		meta["language"] = lang
	}
	if viewport, ok := doc.Find(`meta[name="viewport"]`).Attr("content"); ok {
		meta["viewport"] = viewport
	}
	return meta
}

func extractVisibleText(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()
	text := doc.Find("body").Text()
	fields := strings.Fields(text)
	return strings.Join(fields, " ")
}

func computeDOMStats(doc *goquery.Document) model.DOMStats {
	return model.DOMStats{
		TotalElements:       doc.Find("*").Length(),
		InteractiveElements: doc.Find("a, button, input, select, textarea").Length(),
		FormElements:        doc.Find("form").Length(),
		LinkElements:        doc.Find("a[href]").Length(),
	}
}

var techSignalPatterns = map[string]string{
	"react":    `data-reactroot|__react`,
	"angular":  `ng-app|ng-controller|ng-version`,
	"vue":      `data-v-|__vue__`,
	"jquery":   `jquery`,
	"wordpress": `wp-content|wp-includes`,
}

func detectTechSignals(html string) []string {
	var signals []string
	lower := strings.ToLower(html)
	for name, pattern := range techSignalPatterns {
		if ok, _ := regexp.MatchString(pattern, lower); ok {
			signals = append(signals, name)
		}
	}
	return signals
}

// captureSafeInteractions clicks a bounded number of non-destructive
// controls (buttons/links whose text does not match the
// delete|remove|cancel|logout denylist) to surface hidden content, per
// spec.md §4.5. If a click triggers navigation, the page is reloaded to
// the pre-interaction URL to keep the capture isolated.
func captureSafeInteractions(ctx context.Context, page *rod.Page, doc *goquery.Document, maxInteractions int) []model.InteractionStep {
	if maxInteractions <= 0 {
		maxInteractions = 3
	}
	if maxInteractions > 5 {
		maxInteractions = 5
	}

	beforeURL := ""
	if info, err := page.Info(); err == nil {
		beforeURL = info.URL
	}

	var steps []model.InteractionStep
	candidates := doc.Find("button, a.btn, [role=button]")
	candidates.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(steps) >= maxInteractions {
			return false
		}
		label := strings.TrimSpace(sel.Text())
		if label == "" || denylistPattern.MatchString(label) {
			return true
		}
		if formDenylisted(sel) {
			return true
		}

		selector := fmt.Sprintf("text/%s", label)
		el, err := page.Context(ctx).Timeout(2 * time.Second).ElementR("button, a", label)
		if err != nil || el == nil {
			steps = append(steps, model.InteractionStep{Action: "click", Selector: selector, Outcome: "not_found"})
			return true
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			steps = append(steps, model.InteractionStep{Action: "click", Selector: selector, Outcome: "click_failed"})
			return true
		}

		if info, err := page.Info(); err == nil && info.URL != beforeURL {
			_ = page.Context(ctx).Navigate(beforeURL)
			_ = page.Context(ctx).WaitLoad()
			steps = append(steps, model.InteractionStep{Action: "click", Selector: selector, Outcome: "navigated_rolled_back"})
			return true
		}
		steps = append(steps, model.InteractionStep{Action: "click", Selector: selector, Outcome: "ok"})
		return true
	})
	return steps
}

// formDenylisted reports whether sel sits inside a <form> whose action,
// id, or class attribute matches the destructive-keyword denylist.
func formDenylisted(sel *goquery.Selection) bool {
	form := sel.Closest("form")
	if form.Length() == 0 {
		return false
	}
	action, _ := form.Attr("action")
	id, _ := form.Attr("id")
	class, _ := form.Attr("class")
	return denylistPattern.MatchString(action) || denylistPattern.MatchString(id) || denylistPattern.MatchString(class)
}
