// Package decode validates and converts an uploaded document's raw bytes
// into normalized UTF-8 text plus an ordered chunk list, gated by the
// chrome stripper for anything that passes through HTML.
package decode

import (
	"bytes"
	"fmt"
	"strings"

	"guidance-rag/internal/chrome"
	"guidance-rag/internal/chunk"
	"guidance-rag/internal/fingerprint"
	"guidance-rag/internal/shared/errs"
)

// MaxFileSize is the spec's upload size ceiling (50 MB).
const MaxFileSize = 50 * 1024 * 1024

// Format is a recognized input document type.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
)

var extensionFormats = map[string]Format{
	".pdf":      FormatPDF,
	".docx":     FormatDOCX,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".txt":      FormatText,
}

var allowedMIMEs = map[Format][]string{
	FormatPDF:      {"application/pdf"},
	FormatDOCX:     {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	FormatHTML:     {"text/html"},
	FormatMarkdown: {"text/markdown", "text/x-markdown"},
	FormatText:     {"text/plain"},
}

// Result is the output record for a decoded document.
type Result struct {
	Filename    string
	MIME        string
	Format      Format
	Text        string
	ContentHash string
	Chunks      []chunk.Chunk
	FileSize    int
	ChromeStats *chrome.Stats // nil unless the document passed through HTML
}

// Decode validates filename/content/declaredMIME against the spec's
// allow-list and magic-byte checks, then dispatches to the matching
// format decoder. HTML and Markdown both end up routed through the
// chrome stripper (4.A); Markdown is rendered to HTML first so the same
// stripping rules apply uniformly.
func Decode(filename string, content []byte, declaredMIME string) (Result, error) {
	if len(content) > MaxFileSize {
		return Result{}, errs.New(errs.KindValidation, fmt.Sprintf("file exceeds max size of %d bytes", MaxFileSize))
	}

	format, ok := formatFromFilename(filename)
	if !ok {
		return Result{}, errs.New(errs.KindValidation, "unsupported file extension")
	}

	if declaredMIME != "" && !mimeAllowed(format, declaredMIME) {
		return Result{}, errs.New(errs.KindValidation, fmt.Sprintf("declared MIME %q inconsistent with extension", declaredMIME))
	}

	if !magicBytesMatch(format, content) {
		return Result{}, errs.New(errs.KindValidation, "magic bytes do not match declared format")
	}

	var (
		text        string
		chromeStats *chrome.Stats
		err         error
	)

	switch format {
	case FormatPDF:
		text, err = decodePDF(content)
	case FormatDOCX:
		text, err = decodeDOCX(content)
	case FormatHTML:
		text, chromeStats, err = decodeHTML(content, filename)
	case FormatMarkdown:
		text, chromeStats, err = decodeMarkdown(content, filename)
	case FormatText:
		text, err = decodeText(content)
	}
	if err != nil {
		return Result{}, errs.Wrap(errs.KindParse, "decode failed", err)
	}

	chunkList, err := chunk.ChunkText(text, chunk.DefaultTargetTokens)
	if err != nil {
		return Result{}, errs.Wrap(errs.KindParse, "chunking failed", err)
	}

	mime := declaredMIME
	if mime == "" && len(allowedMIMEs[format]) > 0 {
		mime = allowedMIMEs[format][0]
	}

	return Result{
		Filename:    filename,
		MIME:        mime,
		Format:      format,
		Text:        text,
		ContentHash: fingerprint.ContentHashBytes(content),
		Chunks:      chunkList,
		FileSize:    len(content),
		ChromeStats: chromeStats,
	}, nil
}

func formatFromFilename(filename string) (Format, bool) {
	lower := strings.ToLower(filename)
	for ext, f := range extensionFormats {
		if strings.HasSuffix(lower, ext) {
			return f, true
		}
	}
	return "", false
}

func mimeAllowed(format Format, declared string) bool {
	for _, m := range allowedMIMEs[format] {
		if strings.EqualFold(m, declared) {
			return true
		}
	}
	return false
}

var (
	pdfMagic  = []byte("%PDF")
	docxMagic = []byte("PK\x03\x04")
	oleMagic  = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// magicBytesMatch checks the declared format's file signature. A legacy
// .doc (OLE compound file) is always rejected as unsupported, matching
// the spec's explicit carve-out.
func magicBytesMatch(format Format, content []byte) bool {
	if bytes.HasPrefix(content, oleMagic) {
		return false
	}
	switch format {
	case FormatPDF:
		return bytes.HasPrefix(content, pdfMagic)
	case FormatDOCX:
		return bytes.HasPrefix(content, docxMagic)
	case FormatHTML, FormatMarkdown, FormatText:
		return true // text formats carry no reliable magic bytes
	default:
		return false
	}
}
