package decode

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func TestDecodeTextPlain(t *testing.T) {
	res, err := Decode("notes.txt", []byte("Apply for a visa before travelling."), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Format != FormatText {
		t.Fatalf("expected txt format, got %s", res.Format)
	}
	if !strings.Contains(res.Text, "Apply for a visa") {
		t.Fatalf("expected text preserved, got: %s", res.Text)
	}
	if res.ContentHash == "" {
		t.Fatal("expected content hash to be set")
	}
}

func TestDecodeRejectsOversized(t *testing.T) {
	big := bytes.Repeat([]byte("a"), MaxFileSize+1)
	_, err := Decode("big.txt", big, "")
	if err == nil {
		t.Fatal("expected error for oversized file")
	}
}

func TestDecodeRejectsUnsupportedExtension(t *testing.T) {
	_, err := Decode("resume.doc", []byte{0xD0, 0xCF, 0x11, 0xE0}, "")
	if err == nil {
		t.Fatal("expected error for legacy .doc extension")
	}
}

func TestDecodeRejectsMismatchedMagicBytes(t *testing.T) {
	_, err := Decode("fake.pdf", []byte("not a pdf"), "")
	if err == nil {
		t.Fatal("expected error for PDF without %PDF magic bytes")
	}
}

func TestDecodeHTMLStripsChromeAndChunks(t *testing.T) {
	html := `<html><div class="gem-c-cookie-banner">Cookies on GOV.UK</div>` +
		`<main><h1>Apply for a passport</h1><p>You must be over 16.</p></main></html>`

	res, err := Decode("page.html", []byte(html), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(res.Text, "Cookies on GOV.UK") {
		t.Fatalf("expected cookie banner stripped, got: %s", res.Text)
	}
	if !strings.Contains(res.Text, "Apply for a passport") {
		t.Fatalf("expected guidance content preserved, got: %s", res.Text)
	}
	if res.ChromeStats == nil {
		t.Fatal("expected chrome stats to be populated for HTML source")
	}
}

func TestDecodeMarkdownRoutesThroughHTML(t *testing.T) {
	md := "# Apply for a passport\n\nYou must be over 16 to apply.\n"

	res, err := Decode("guide.md", []byte(md), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Text, "Apply for a passport") {
		t.Fatalf("expected heading text preserved, got: %s", res.Text)
	}
	if res.ChromeStats == nil {
		t.Fatal("expected markdown to be routed through the chrome stripper")
	}
}

func TestDecodeDOCXExtractsText(t *testing.T) {
	content := buildMinimalDocx(t, "Apply for a visa before travelling.")
	res, err := Decode("guide.docx", content, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Text, "Apply for a visa") {
		t.Fatalf("expected docx text extracted, got: %s", res.Text)
	}
}

func buildMinimalDocx(t *testing.T, paragraphText string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	xmlBody := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:body><w:p><w:r><w:t>` + paragraphText + `</w:t></w:r></w:p></w:body></w:document>`
	if _, err := w.Write([]byte(xmlBody)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
