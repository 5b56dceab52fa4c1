package chrome

import (
	"strings"
	"testing"
)

func TestStripRemovesCookieBannerKeepsMain(t *testing.T) {
	input := `<html><div class="gem-c-cookie-banner">Cookies on GOV.UK</div>` +
		`<main class="govuk-main-wrapper"><h1>Apply for a passport</h1></main></html>`

	cleaned, stats := Strip(input, "doc-1")

	if !strings.Contains(cleaned, "Apply for a passport") {
		t.Fatalf("expected guidance content preserved, got: %s", cleaned)
	}
	if strings.Contains(cleaned, "gem-c-cookie-banner") {
		t.Fatalf("expected cookie banner class removed, got: %s", cleaned)
	}
	if strings.Contains(cleaned, "Cookies on GOV.UK") {
		t.Fatalf("expected cookie banner text removed, got: %s", cleaned)
	}

	found := false
	for _, p := range stats.PatternsMatched {
		if p == "cookie-banner" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected patterns_matched to include cookie-banner, got %v", stats.PatternsMatched)
	}
}

func TestStripInvariantCharsAddUp(t *testing.T) {
	input := `<html><header class="govuk-header">GOV.UK</header>` +
		`<main><p>Some guidance text about visas.</p></main>` +
		`<footer class="govuk-footer">Crown copyright</footer></html>`

	_, stats := Strip(input, "doc-2")

	if stats.ChromeChars+stats.GuidanceChars != stats.OriginalChars {
		t.Fatalf("invariant violated: chrome(%d)+guidance(%d) != original(%d)",
			stats.ChromeChars, stats.GuidanceChars, stats.OriginalChars)
	}
}

func TestStripDeterministic(t *testing.T) {
	input := `<html><div class="gem-c-phase-banner">Beta</div>` +
		`<main><p>Guidance body.</p></main></html>`

	c1, s1 := Strip(input, "doc-3")
	c2, s2 := Strip(input, "doc-3")

	if c1 != c2 {
		t.Fatalf("expected deterministic cleaned output, got %q vs %q", c1, c2)
	}
	if s1.ChromeChars != s2.ChromeChars || s1.OriginalChars != s2.OriginalChars {
		t.Fatalf("expected deterministic stats, got %+v vs %+v", s1, s2)
	}
}

func TestStripScriptsAndStylesRemoved(t *testing.T) {
	input := `<html><head><style>.x{color:red}</style></head>` +
		`<body><script>alert(1)</script><main><p>Content here.</p></main></body></html>`

	cleaned, _ := Strip(input, "doc-4")

	if strings.Contains(cleaned, "alert(1)") {
		t.Fatalf("expected script content removed, got: %s", cleaned)
	}
	if strings.Contains(cleaned, "color:red") {
		t.Fatalf("expected style content removed, got: %s", cleaned)
	}
}

func TestStripPlainTextWrappedInBody(t *testing.T) {
	input := "not really html at all, just text"

	cleaned, stats := Strip(input, "doc-5")

	// html.Parse accepts plain text, so it comes back rendered from <body>.
	if cleaned != "<body>"+input+"</body>" {
		t.Fatalf("expected plain text wrapped in <body>, got: %s", cleaned)
	}
	if stats.ChromeChars != 0 {
		t.Fatalf("expected zero chrome chars for plain text input, got %d", stats.ChromeChars)
	}
}

func TestStripEmptyDocument(t *testing.T) {
	cleaned, stats := Strip("", "doc-6")
	if stats.OriginalChars != 0 || stats.ChromePercentage != 0 {
		t.Fatalf("expected zero stats for empty input, got %+v", stats)
	}
	_ = cleaned
}

func TestStripNoChromePresent(t *testing.T) {
	input := `<main><p>Pure guidance, nothing to strip.</p></main>`
	cleaned, stats := Strip(input, "doc-7")

	if stats.ChromeChars != 0 {
		t.Fatalf("expected no chrome matched, got %d chars across %v", stats.ChromeChars, stats.PatternsMatched)
	}
	if !strings.Contains(cleaned, "Pure guidance") {
		t.Fatalf("expected content preserved, got: %s", cleaned)
	}
}
