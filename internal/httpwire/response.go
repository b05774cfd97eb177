package httpwire

import (
	"strconv"
	"strings"

	"github.com/mccutchen/httpwatch/memview"
	"github.com/mccutchen/httpwatch/optionals"
)

// Response is one parsed HTTP/1.x status line plus headers and optional
// (possibly gzip-decoded) body. Reason is None for a status line with no
// reason phrase; Body is None when no Content-Length header was present.
type Response struct {
	Minor      int
	Status     int
	Reason     optionals.Optional[string]
	Header     Header
	Body       optionals.Optional[string]
	Decompress bool // true if Content-Encoding: gzip was applied
}

// ParseResponse attempts to carve one response out of the front of view,
// applying gzip decoding when Content-Encoding: gzip is present. Any other
// Content-Encoding value fails with ErrUnknownEncoding: the framer stops
// emitting further transactions for this flow, but prior transactions
// already emitted remain valid.
func ParseResponse(view memview.MemView) (Response, int64, error) {
	startLine, headers, headerBlockLen, err := headerBlock(view)
	if err != nil {
		return Response{}, 0, err
	}

	minor, status, reason, err := parseStatusLine(startLine)
	if err != nil {
		return Response{}, 0, err
	}

	resp := Response{Minor: minor, Status: status, Reason: reason, Header: headers}

	n, present, err := contentLength(headers)
	if err != nil {
		return Response{}, 0, err
	}
	if !present {
		return resp, headerBlockLen, nil
	}

	bodyView, consumed, err := splitBody(view, headerBlockLen, n)
	if err != nil {
		return Response{}, 0, err
	}
	if n == 0 {
		return resp, consumed, nil
	}

	if enc, ok := headers.Get("Content-Encoding"); ok {
		if !strings.EqualFold(strings.TrimSpace(enc), "gzip") {
			return Response{}, 0, ErrUnknownEncoding
		}
		decoded, gzErr := gunzip([]byte(bodyView.String()))
		if gzErr != nil {
			return Response{}, 0, ErrUnknownEncoding
		}
		resp.Decompress = true
		resp.Body = optionals.Some(decoded)
		return resp, consumed, nil
	}

	resp.Body = optionals.Some(asTextString(bodyView.String()))
	return resp, consumed, nil
}

// parseStatusLine parses "HTTP/1.<minor> STATUS [REASON]".
func parseStatusLine(line string) (minor, status int, reason optionals.Optional[string], err error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return 0, 0, reason, ErrMalformed
	}

	minor, err = parseHTTPMinorVersion(parts[0])
	if err != nil {
		return 0, 0, reason, err
	}

	status, convErr := strconv.Atoi(parts[1])
	if convErr != nil {
		return 0, 0, reason, ErrMalformed
	}

	if len(parts) == 3 {
		reason = optionals.Some(parts[2])
	}

	return minor, status, reason, nil
}
