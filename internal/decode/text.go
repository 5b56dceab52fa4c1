package decode

import (
	"errors"
	"unicode/utf8"
)

var errInvalidUTF8 = errors.New("content is not valid UTF-8")

// decodeText validates that a plain-text upload is valid UTF-8 and
// returns it unchanged; there is no chrome to strip from plain text.
func decodeText(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return "", errInvalidUTF8
	}
	return string(content), nil
}
