// Package chrome implements deterministic removal of non-guidance HTML
// structure ("chrome": navigation, footers, cookie banners, GOV.UK design
// system furniture) from a fetched page, grounded on the teacher's
// tolerant-HTML-parse-tree traversal style (internal/tools/research/web_fetch.go,
// internal/shards/researcher/scraper.go use golang.org/x/net/html the same way).
package chrome

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Stats is the structured removal record returned alongside cleaned HTML.
type Stats struct {
	OriginalChars    int      `json:"original_chars"`
	ChromeChars      int      `json:"chrome_chars"`
	GuidanceChars    int      `json:"guidance_chars"`
	ChromePercentage float64  `json:"chrome_percentage"`
	PatternsMatched  []string `json:"patterns_matched"`
	DurationMs       int64    `json:"duration_ms"`
}

// selectorRule matches a chrome subtree by tag name and/or class/id
// substring. Rules are applied in catalog order; a node is removed by the
// first rule it matches.
type selectorRule struct {
	name     string // canonical pattern name once normalized
	tag      string // exact tag match, or "" for any element
	classHas string // class attribute must contain this substring
	idHas    string // id attribute must contain this substring
}

// catalog is the ordered selector list from spec §4.A. Order matters only
// for readability here — each rule is independent and non-overlapping in
// practice, but GOV.UK guidance pages apply several of these per page.
var catalog = []selectorRule{
	{name: "cookie-banner", classHas: "cookie-banner"},
	{name: "skip-link", classHas: "skip-link"},
	{name: "header", classHas: "header", tag: ""},
	{name: "header", tag: "header"},
	{name: "breadcrumbs", classHas: "breadcrumbs"},
	{name: "footer", classHas: "footer"},
	{name: "footer", tag: "footer"},
	{name: "feedback", classHas: "feedback"},
	{name: "intervention", classHas: "intervention"},
	{name: "print-link", classHas: "print-link"},
	{name: "phase-banner", classHas: "phase-banner"},
	{name: "related-navigation", classHas: "related-navigation"},
	{name: "step-nav", classHas: "step-nav"},
	{name: "contextual-sidebar", classHas: "contextual-sidebar"},
	{name: "report-a-problem", classHas: "report-a-problem"},
	{name: "improvement-banner", classHas: "improvement-banner"},
	{name: "emergency-banner", classHas: "emergency-banner"},
	{name: "nav", tag: "nav"},
}

// innermostCandidates lists the content-wrapper classes/tags to prefer, in
// priority order, once chrome has been stripped. "Innermost" means: prefer
// the most specific wrapper that exists on the page.
var innermostCandidates = []selectorRule{
	{name: "main-wrapper", classHas: "main-wrapper"},
	{tag: "main"},
	{name: "content", classHas: "content"},
	{tag: "body"},
}

// Strip removes chrome subtrees from html, returning the cleaned inner
// HTML and a removal-stats record. It never raises: a parse failure
// returns the original HTML unchanged with a zero-removal stats record.
// Strip is deterministic — the same input bytes always produce the same
// output and stats, apart from the wall-clock DurationMs.
func Strip(rawHTML string, documentID string) (string, Stats) {
	start := time.Now()

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return rawHTML, Stats{
			OriginalChars: utf8.RuneCountInString(rawHTML),
			GuidanceChars: utf8.RuneCountInString(rawHTML),
			DurationMs:    time.Since(start).Milliseconds(),
		}
	}

	originalChars := utf8.RuneCountInString(textContent(doc))

	chromeChars := 0
	matchedSet := make(map[string]struct{})

	var strip func(n *html.Node)
	strip = func(n *html.Node) {
		child := n.FirstChild
		for child != nil {
			next := child.NextSibling
			if child.Type == html.ElementNode {
				if rule, label, ok := matchRule(child); ok {
					chromeChars += utf8.RuneCountInString(textContent(child))
					matchedSet[normalizePattern(rule.name, label)] = struct{}{}
					n.RemoveChild(child)
					child = next
					continue
				}
			}
			if isNonContentTag(child) {
				n.RemoveChild(child)
				matchedSet[normalizePattern(tagPatternName(child), "")] = struct{}{}
				child = next
				continue
			}
			strip(child)
			child = next
		}
	}
	strip(doc)

	guidanceChars := originalChars - chromeChars
	if guidanceChars < 0 {
		guidanceChars = 0
	}

	pct := 0.0
	if originalChars > 0 {
		pct = round2(100 * float64(chromeChars) / float64(originalChars))
	}

	innermost := findInnermost(doc)

	var sb strings.Builder
	_ = html.Render(&sb, innermost)

	patterns := make([]string, 0, len(matchedSet))
	for p := range matchedSet {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)

	return sb.String(), Stats{
		OriginalChars:    originalChars,
		ChromeChars:      chromeChars,
		GuidanceChars:    guidanceChars,
		ChromePercentage: pct,
		PatternsMatched:  patterns,
		DurationMs:       time.Since(start).Milliseconds(),
	}
}

func isNonContentTag(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.Data {
	case "script", "style", "noscript":
		return true
	case "link":
		return attr(n, "rel") == "stylesheet"
	}
	return false
}

func tagPatternName(n *html.Node) string {
	if n.Data == "link" {
		return "stylesheet"
	}
	return n.Data
}

func matchRule(n *html.Node) (selectorRule, string, bool) {
	class := strings.ToLower(attr(n, "class"))
	id := strings.ToLower(attr(n, "id"))
	tag := n.Data

	for _, rule := range catalog {
		if rule.tag != "" && rule.tag != tag {
			continue
		}
		if rule.classHas != "" {
			if tok, ok := findToken(class, rule.classHas); ok {
				return rule, tok, true
			}
			continue
		}
		if rule.idHas != "" {
			if tok, ok := findToken(id, rule.idHas); ok {
				return rule, tok, true
			}
			continue
		}
		if rule.tag != "" {
			return rule, tag, true
		}
	}
	return selectorRule{}, "", false
}

// findToken returns the single class token containing substr, so
// normalizePattern can strip its design-system prefix.
func findToken(classAttr, substr string) (string, bool) {
	for _, tok := range strings.Fields(classAttr) {
		if strings.Contains(tok, substr) {
			return tok, true
		}
	}
	return "", false
}

// normalizePattern strips gem-c-/govuk- class prefixes, strips any
// attribute-selector decoration (e.g. "[data-foo]"), and returns the
// trailing token, matching spec §4.A's patterns_matched normalization.
func normalizePattern(name, rawToken string) string {
	label := rawToken
	if label == "" {
		label = name
	}
	if i := strings.IndexByte(label, '['); i >= 0 {
		label = label[:i]
	}
	label = strings.TrimPrefix(label, "gem-c-")
	label = strings.TrimPrefix(label, "govuk-")
	if label == "" {
		label = name
	}
	return label
}

func findInnermost(doc *html.Node) *html.Node {
	for _, cand := range innermostCandidates {
		if n := findNode(doc, cand); n != nil {
			return n
		}
	}
	return doc
}

func findNode(n *html.Node, cand selectorRule) *html.Node {
	if n.Type == html.ElementNode {
		if cand.tag != "" && n.Data == cand.tag {
			return n
		}
		if cand.classHas != "" {
			if _, ok := findToken(strings.ToLower(attr(n, "class")), cand.classHas); ok {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, cand); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
