package decode

import (
	"bytes"
	"compress/zlib"
	"strings"
	"testing"
)

func TestDecodePDFUncompressedStream(t *testing.T) {
	body := "BT /F1 12 Tf (Apply for a passport) Tj ET"
	pdf := "%PDF-1.4\n1 0 obj\n<< /Length " + itoa(len(body)) + " >>\nstream\n" + body + "\nendstream\nendobj\n"

	text, err := decodePDF([]byte(pdf))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Apply for a passport") {
		t.Fatalf("expected extracted text to contain the Tj string, got: %s", text)
	}
}

func TestDecodePDFFlateCompressedStream(t *testing.T) {
	body := "BT /F1 12 Tf (Apply for a visa) Tj ET"

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	_, _ = zw.Write([]byte(body))
	zw.Close()

	pdf := "%PDF-1.4\n1 0 obj\n<< /Filter /FlateDecode /Length " + itoa(compressed.Len()) + " >>\nstream\n" +
		compressed.String() + "\nendstream\nendobj\n"

	text, err := decodePDF([]byte(pdf))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "Apply for a visa") {
		t.Fatalf("expected extracted text from flate stream, got: %s", text)
	}
}

func TestDecodePDFNoStreamsErrors(t *testing.T) {
	_, err := decodePDF([]byte("%PDF-1.4\nno streams here\n"))
	if err == nil {
		t.Fatal("expected error when no content streams are present")
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}
