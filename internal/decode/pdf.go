package decode

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// decodePDF extracts visible text from a PDF's uncompressed and
// zlib-(Flate)-compressed content streams. This is a minimal extractor
// covering the text-showing operators (Tj, TJ) emitted by the overwhelming
// majority of GOV.UK-published PDFs; it does not attempt full PDF object
// graph resolution, font/encoding remapping, or image OCR. See DESIGN.md
// for why this is implemented on the standard library rather than a
// third-party PDF library.
func decodePDF(content []byte) (string, error) {
	streams := extractStreams(content)
	if len(streams) == 0 {
		return "", fmt.Errorf("no content streams found in PDF")
	}

	var sb strings.Builder
	for _, s := range streams {
		sb.WriteString(extractTextOperators(s))
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

var streamRe = regexp.MustCompile(`(?s)stream\r?\n(.*?)\r?\nendstream`)
var flateFilterRe = regexp.MustCompile(`/Filter\s*/FlateDecode`)

// extractStreams pulls each `stream ... endstream` block, inflating it
// first if preceded by a /FlateDecode filter declaration within the same
// object (checked via a bounded lookbehind window).
func extractStreams(content []byte) [][]byte {
	var out [][]byte
	matches := streamRe.FindAllSubmatchIndex(content, -1)
	for _, m := range matches {
		start, end := m[2], m[3]
		raw := content[start:end]

		lookback := start - 200
		if lookback < 0 {
			lookback = 0
		}
		header := content[lookback:start]

		if flateFilterRe.Match(header) {
			if inflated, err := inflate(raw); err == nil {
				out = append(out, inflated)
				continue
			}
		}
		out = append(out, raw)
	}
	return out
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

var tjRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)
var tjArrayRe = regexp.MustCompile(`\[(.*?)\]\s*TJ`)
var tjArrayStringRe = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)

// extractTextOperators pulls text shown via the Tj and TJ operators,
// unescaping PDF string-literal escapes (\(, \), \\, octal \ddd).
func extractTextOperators(stream []byte) string {
	var sb strings.Builder
	for _, m := range tjRe.FindAllSubmatch(stream, -1) {
		sb.WriteString(unescapePDFString(string(m[1])))
		sb.WriteString(" ")
	}
	for _, m := range tjArrayRe.FindAllSubmatch(stream, -1) {
		for _, sm := range tjArrayStringRe.FindAllSubmatch(m[1], -1) {
			sb.WriteString(unescapePDFString(string(sm[1])))
		}
		sb.WriteString(" ")
	}
	return sb.String()
}

func unescapePDFString(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			sb.WriteByte(s[i])
			continue
		}
		next := s[i+1]
		switch next {
		case 'n':
			sb.WriteByte('\n')
			i++
		case 'r':
			sb.WriteByte('\r')
			i++
		case 't':
			sb.WriteByte('\t')
			i++
		case '(', ')', '\\':
			sb.WriteByte(next)
			i++
		case '0', '1', '2', '3', '4', '5', '6', '7':
			v, j := 0, i+1
			for ; j < len(s) && j <= i+3 && s[j] >= '0' && s[j] <= '7'; j++ {
				v = v*8 + int(s[j]-'0')
			}
			sb.WriteByte(byte(v))
			i = j - 1
		default:
			sb.WriteByte(next)
			i++
		}
	}
	return sb.String()
}
