package crawl

import (
	"strings"
	"testing"
)

func TestNormalizeDedupKeyStripsFragmentAndQuery(t *testing.T) {
	a := normalizeDedupKey("https://www.gov.uk/guidance/apply?ref=1#section-2")
	b := normalizeDedupKey("https://www.gov.uk/guidance/apply")
	if a != b {
		t.Fatalf("expected equal dedup keys, got %q vs %q", a, b)
	}
}

func TestExtractLinksResolvesRelative(t *testing.T) {
	html := `<html><body><a href="/guidance/other">Other</a>` +
		`<a href="https://www.gov.uk/full-page">Full</a></body></html>`

	links := extractLinks(html, "https://www.gov.uk/guidance/start")

	wantOther := "https://www.gov.uk/guidance/other"
	found := false
	for _, l := range links {
		if l == wantOther {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected relative link resolved to %s, got %v", wantOther, links)
	}
}

func TestExtractLinksDropsFragmentAndQuery(t *testing.T) {
	html := `<a href="/guidance/x?ref=1#top">link</a>`
	links := extractLinks(html, "https://www.gov.uk/")
	if len(links) != 1 {
		t.Fatalf("expected exactly 1 link, got %v", links)
	}
	if strings.ContainsAny(links[0], "#?") {
		t.Fatalf("expected fragment/query stripped, got %s", links[0])
	}
}

func TestExtractTitleAndText(t *testing.T) {
	html := `<html><head><title>Apply for a passport</title></head>` +
		`<body><p>Guidance body text.</p></body></html>`

	title, text := extractTitleAndText(html)
	if title != "Apply for a passport" {
		t.Fatalf("expected title extracted, got %q", title)
	}
	if !strings.Contains(text, "Guidance body text") {
		t.Fatalf("expected body text extracted, got %q", text)
	}
}

func TestContentMatchesByURLHint(t *testing.T) {
	c := New(DefaultConfig(), nil)
	if !c.contentMatches("https://www.gov.uk/guidance/apply-for-a-visa", "irrelevant") {
		t.Fatal("expected URL hint /guidance/ to satisfy content match")
	}
}

func TestContentMatchesByKeywordThreshold(t *testing.T) {
	c := New(DefaultConfig(), nil)
	text := "This guidance explains the application process, eligibility rules, and how to apply."
	if !c.contentMatches("https://www.gov.uk/some-page", text) {
		t.Fatal("expected keyword threshold to be met")
	}
}

func TestContentMatchesRejectsIrrelevant(t *testing.T) {
	c := New(DefaultConfig(), nil)
	if c.contentMatches("https://www.gov.uk/some-page", "just a short unrelated sentence") {
		t.Fatal("expected irrelevant content to be filtered")
	}
}

func TestContentMatchDisabledAcceptsAll(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DisableContentMatch = true
	c := New(cfg, nil)
	if !c.contentMatches("https://www.gov.uk/some-page", "anything") {
		t.Fatal("expected content match disabled to accept all pages")
	}
}
