package decode

import (
	"strings"

	"golang.org/x/net/html"

	"guidance-rag/internal/chrome"
)

// decodeHTML runs raw HTML bytes through the chrome stripper and returns
// the cleaned guidance text plus the removal stats (4.B: "HTML/MD pass
// through 4.A"). The stripper's output is still markup (so callers that
// want to re-render can); decode's Text field is the plain-text rendering
// of that cleaned markup.
func decodeHTML(content []byte, filename string) (string, *chrome.Stats, error) {
	cleaned, stats := chrome.Strip(string(content), filename)
	return htmlToText(cleaned), &stats, nil
}

// htmlToText extracts whitespace-joined text nodes, tolerant of malformed
// markup the same way the chrome stripper is.
func htmlToText(cleanedHTML string) string {
	doc, err := html.Parse(strings.NewReader(cleanedHTML))
	if err != nil {
		return cleanedHTML
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(sb.String())
}
