package httpwire

import (
	"bytes"
	"compress/gzip"
	"io"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// encodingErrorSentinel is substituted for a body that isn't valid UTF-8,
// preserved as a sentinel string rather than discarded.
const encodingErrorSentinel = "Encoding error"

// asText converts raw body bytes to the string a receiver asking for text
// sees. Invalid UTF-8 becomes the sentinel rather than being dropped.
func asText(raw []byte) string {
	if !utf8.Valid(raw) {
		return encodingErrorSentinel
	}
	return string(raw)
}

// asTextString is asText for callers that already hold the bytes as a Go
// string (e.g. memview.MemView.String(), which copies raw bytes verbatim).
func asTextString(raw string) string {
	if !utf8.ValidString(raw) {
		return encodingErrorSentinel
	}
	return raw
}

// gunzip decodes a (possibly multi-member, i.e. concatenated) gzip
// payload. compress/gzip.Reader reads concatenated members transparently
// by default.
func gunzip(raw []byte) (string, error) {
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", errors.Wrap(err, "gzip: bad header")
	}
	defer zr.Close()

	decoded, err := io.ReadAll(zr)
	if err != nil {
		return "", errors.Wrap(err, "gzip: decode failed")
	}
	return asText(decoded), nil
}
