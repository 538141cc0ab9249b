package navigator

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestLooksLikeAPI(t *testing.T) {
	cases := map[string]bool{
		"https://example.com/api/users":     true,
		"https://example.com/graphql":       true,
		"https://example.com/data.json":     true,
		"https://example.com/v2/orders":     true,
		"https://example.com/about":         false,
		"https://example.com/static/app.js": false,
	}
	for url, want := range cases {
		if got := looksLikeAPI(url); got != want {
			t.Errorf("looksLikeAPI(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestDetectTechSignals(t *testing.T) {
	html := `<html><body data-reactroot=""><div class="wp-content"></div></body></html>`
	signals := detectTechSignals(html)
	found := make(map[string]bool)
	for _, s := range signals {
		found[s] = true
	}
	if !found["react"] {
		t.Error("expected react signal")
	}
	if !found["wordpress"] {
		t.Error("expected wordpress signal")
	}
}

func TestComputeDOMStats(t *testing.T) {
	html := `<html><body>
		<a href="/a">a</a>
		<form></form>
		<button>click</button>
		<input type="text" />
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	stats := computeDOMStats(doc)
	if stats.FormElements != 1 {
		t.Errorf("expected 1 form, got %d", stats.FormElements)
	}
	if stats.LinkElements != 1 {
		t.Errorf("expected 1 link, got %d", stats.LinkElements)
	}
	if stats.InteractiveElements < 3 {
		t.Errorf("expected at least 3 interactive elements, got %d", stats.InteractiveElements)
	}
}

func TestFormDenylisted(t *testing.T) {
	html := `<html><body>
		<form id="delete-account"><button id="confirm">Confirm</button></form>
		<form id="subscribe"><button id="go">Go</button></form>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	deleteBtn := doc.Find("#confirm")
	if !formDenylisted(deleteBtn) {
		t.Error("expected delete-account form button to be denylisted")
	}
	subscribeBtn := doc.Find("#go")
	if formDenylisted(subscribeBtn) {
		t.Error("expected subscribe form button to not be denylisted")
	}
}

func TestExtractVisibleText_StripsScriptsAndStyles(t *testing.T) {
	html := `<html><body>
		<script>alert('hi')</script>
		<style>.a{color:red}</style>
		<p>Hello world</p>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	text := extractVisibleText(doc)
	if strings.Contains(text, "alert") || strings.Contains(text, "color:red") {
		t.Fatalf("expected scripts/styles stripped, got %q", text)
	}
	if !strings.Contains(text, "Hello world") {
		t.Fatalf("expected visible text preserved, got %q", text)
	}
}
