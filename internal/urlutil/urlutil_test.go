package urlutil

import "testing"

func TestNormalize_LowercasesSchemeAndHost(t *testing.T) {
	n, err := Normalize("HTTPS://Example.COM/Path?q=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Scheme != "https" || n.Host != "example.com" {
		t.Fatalf("expected lowercased scheme/host, got %+v", n)
	}
	if n.Path != "/Path" {
		t.Fatalf("expected path preserved, got %q", n.Path)
	}
}

func TestNormalize_StripsFragment(t *testing.T) {
	n, err := Normalize("https://example.com/page#section")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.URL != "https://example.com/page" {
		t.Fatalf("expected fragment stripped, got %q", n.URL)
	}
}

func TestNormalize_RejectsMissingScheme(t *testing.T) {
	if _, err := Normalize("example.com/path"); err == nil {
		t.Fatalf("expected error for missing scheme")
	}
}

func TestNormalize_RejectsNonHTTPScheme(t *testing.T) {
	if _, err := Normalize("ftp://example.com/file"); err == nil {
		t.Fatalf("expected error for non-http(s) scheme")
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	n1, err := Normalize("https://Example.com/a/b?x=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n2, err := Normalize(n1.URL)
	if err != nil {
		t.Fatalf("unexpected error on second pass: %v", err)
	}
	if n1.URL != n2.URL {
		t.Fatalf("normalize not idempotent: %q != %q", n1.URL, n2.URL)
	}
}

func TestRegistrableDomain_SimpleDomain(t *testing.T) {
	if got := RegistrableDomain("www.example.com"); got != "example.com" {
		t.Fatalf("expected example.com, got %q", got)
	}
}

func TestRegistrableDomain_MultiLabelSuffix(t *testing.T) {
	if got := RegistrableDomain("shop.example.co.uk"); got != "example.co.uk" {
		t.Fatalf("expected example.co.uk, got %q", got)
	}
}

func TestRegistrableDomain_StripsPort(t *testing.T) {
	if got := RegistrableDomain("example.com:8080"); got != "example.com" {
		t.Fatalf("expected example.com, got %q", got)
	}
}

func TestIsAsset_RecognizesKnownSuffixes(t *testing.T) {
	for _, raw := range []string{
		"https://example.com/app.js",
		"https://example.com/styles.css",
		"https://example.com/logo.png",
		"https://example.com/doc.pdf",
	} {
		n, err := Normalize(raw)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !IsAsset(n) {
			t.Fatalf("expected %q to be classified as asset", raw)
		}
	}
}

func TestIsAsset_RejectsHTMLPage(t *testing.T) {
	n, err := Normalize("https://example.com/about")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if IsAsset(n) {
		t.Fatalf("expected /about to not be classified as asset")
	}
}

func TestIsInternal_ComparesRegistrableDomain(t *testing.T) {
	n, err := Normalize("https://blog.example.com/post")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsInternal(n, "example.com") {
		t.Fatalf("expected blog.example.com to be internal to example.com")
	}
	if IsInternal(n, "other.com") {
		t.Fatalf("expected blog.example.com to not be internal to other.com")
	}
}

func TestSlugify_IsFilesystemSafeAndBounded(t *testing.T) {
	n, err := Normalize("https://example.com/a/b/c?x=1&y=2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slug := Slugify(n)
	if len(slug) == 0 || len(slug) > maxSlugLen {
		t.Fatalf("expected bounded non-empty slug, got %q", slug)
	}
	for _, r := range slug {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '-' {
			t.Fatalf("slug contains unsafe character %q in %q", r, slug)
		}
	}
}

func TestSlugify_Deterministic(t *testing.T) {
	n, err := Normalize("https://example.com/products/widget")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if Slugify(n) != Slugify(n) {
		t.Fatalf("expected slugify to be deterministic")
	}
}

func TestSlugifyWithSuffix_DisambiguatesCollisions(t *testing.T) {
	a, _ := Normalize("https://example.com/page?id=1")
	b, _ := Normalize("https://example.com/page?id=2")
	if Slugify(a) != Slugify(b) {
		t.Skip("base slugs did not collide in this case")
	}
	sa := SlugifyWithSuffix(a)
	sb := SlugifyWithSuffix(b)
	if sa == sb {
		t.Fatalf("expected distinct suffixed slugs for colliding URLs")
	}
}
