package httpwire

import (
	"strconv"
	"strings"

	"github.com/mccutchen/httpwatch/memview"
	"github.com/mccutchen/httpwatch/optionals"
)

// Request is one parsed HTTP/1.x request line plus headers and optional
// body. Body is None when no Content-Length header was present: there is
// no implicit body.
type Request struct {
	Method string
	Path   string
	Minor  int // the "1.x" digit in HTTP/1.x
	Header Header
	Body   optionals.Optional[string]
}

// ParseRequest attempts to carve one request out of the front of view. On
// success it returns the request and the number of bytes consumed. On
// ErrIncomplete or ErrMalformed, the caller must stop the framer loop for
// this flow without advancing past view.
func ParseRequest(view memview.MemView) (Request, int64, error) {
	startLine, headers, headerBlockLen, err := headerBlock(view)
	if err != nil {
		return Request{}, 0, err
	}

	method, path, minor, err := parseRequestLine(startLine)
	if err != nil {
		return Request{}, 0, err
	}

	req := Request{Method: method, Path: path, Minor: minor, Header: headers}

	n, present, err := contentLength(headers)
	if err != nil {
		return Request{}, 0, err
	}
	if !present {
		return req, headerBlockLen, nil
	}

	body, consumed, err := splitBody(view, headerBlockLen, n)
	if err != nil {
		return Request{}, 0, err
	}
	if n > 0 {
		req.Body = optionals.Some(asTextString(body.String()))
	}
	return req, consumed, nil
}

// parseRequestLine parses "METHOD PATH HTTP/1.<minor>".
func parseRequestLine(line string) (method, path string, minor int, err error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return "", "", 0, ErrMalformed
	}

	method, path, version := parts[0], parts[1], parts[2]
	if method == "" || path == "" {
		return "", "", 0, ErrMalformed
	}

	minor, err = parseHTTPMinorVersion(version)
	if err != nil {
		return "", "", 0, err
	}
	return method, path, minor, nil
}

func parseHTTPMinorVersion(version string) (int, error) {
	const prefix = "HTTP/1."
	if !strings.HasPrefix(version, prefix) {
		return 0, ErrMalformed
	}
	minor, err := strconv.Atoi(strings.TrimPrefix(version, prefix))
	if err != nil {
		return 0, ErrMalformed
	}
	return minor, nil
}
