package decode

import (
	"bytes"

	"github.com/yuin/goldmark"

	"guidance-rag/internal/chrome"
)

// decodeMarkdown renders Markdown to HTML and delegates to the HTML path,
// so the chrome stripper (4.A) runs uniformly regardless of source format
// (4.B: "MD is rendered to HTML first and then delegated to HTML path").
func decodeMarkdown(content []byte, filename string) (string, *chrome.Stats, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(content, &buf); err != nil {
		return "", nil, err
	}
	return decodeHTML(buf.Bytes(), filename)
}
