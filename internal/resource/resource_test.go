package resource

import (
	"strings"
	"testing"

	"legacywebanalyzer/internal/artifact"
	"legacywebanalyzer/internal/model"
)

func newTestExposer(t *testing.T) (*Exposer, *artifact.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := artifact.New(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return New("proj-1", store), store
}

func TestList_FindsWrittenArtifacts(t *testing.T) {
	e, store := newTestExposer(t)

	if err := store.WritePageResult("abc123", model.PageResult{PageID: "abc123", URL: "https://example.com/"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.WritePageMarkdown("abc123", "# Page\n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := e.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawJSON, sawMD bool
	for _, entry := range entries {
		if strings.HasSuffix(entry.RelativePath, "page-abc123.json") {
			sawJSON = true
			if entry.MIMEType != "application/json" {
				t.Fatalf("expected application/json, got %q", entry.MIMEType)
			}
			if !strings.HasPrefix(entry.URI, "web_discovery://proj-1/") {
				t.Fatalf("unexpected uri: %q", entry.URI)
			}
		}
		if strings.HasSuffix(entry.RelativePath, "page-abc123.md") {
			sawMD = true
			if entry.MIMEType != "text/markdown" {
				t.Fatalf("expected text/markdown, got %q", entry.MIMEType)
			}
		}
	}
	if !sawJSON || !sawMD {
		t.Fatalf("expected both json and markdown entries, got %+v", entries)
	}
}

func TestGet_RoundTripsThroughListedURI(t *testing.T) {
	e, store := newTestExposer(t)
	if err := store.WritePageMarkdown("abc123", "# Page\nbody\n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := e.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	data, mime, err := e.Get(entries[0].URI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mime != "text/markdown" {
		t.Fatalf("expected text/markdown, got %q", mime)
	}
	if string(data) != "# Page\nbody\n" {
		t.Fatalf("unexpected contents: %q", string(data))
	}
}

func TestGet_RejectsWrongProjectID(t *testing.T) {
	e, store := newTestExposer(t)
	if err := store.WritePageMarkdown("abc123", "# Page\n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, err := e.Get("web_discovery://other-project/pages/page-abc123.md")
	if err == nil {
		t.Fatal("expected an error for mismatched project id")
	}
}

func TestGet_RejectsPathEscape(t *testing.T) {
	e, _ := newTestExposer(t)
	_, _, err := e.Get("web_discovery://proj-1/../../../etc/passwd")
	if err == nil {
		t.Fatal("expected an error for a path-escaping uri")
	}
}

func TestGet_RejectsMalformedURI(t *testing.T) {
	e, _ := newTestExposer(t)
	if _, _, err := e.Get("not-a-uri"); err == nil {
		t.Fatal("expected an error for a malformed uri")
	}
	if _, _, err := e.Get("web_discovery://proj-1"); err == nil {
		t.Fatal("expected an error for a uri with no relative path")
	}
}
