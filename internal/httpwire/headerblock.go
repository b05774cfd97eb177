package httpwire

import (
	"strconv"
	"strings"

	"github.com/mccutchen/httpwatch/memview"
)

const headerTerminator = "\r\n\r\n"

// headerBlock locates "\r\n\r\n" in view and splits the start line from the
// header fields. It returns ErrIncomplete if the terminator hasn't
// arrived yet: the caller stops its parse loop rather than treating this
// as a wire error.
//
// The terminator has a repeated two-byte prefix ("\r\n"), which
// memview.MemView.Index cannot search for reliably across a chunk
// boundary (its own doc comment limits it to needles without a repeated
// prefix). The framer only calls this once per finished flow rather than
// per packet, so materializing the view and using strings.Index is cheap
// enough to just be correct instead.
func headerBlock(view memview.MemView) (startLine string, headers Header, headerBlockLen int64, err error) {
	full := view.String()
	end := strings.Index(full, headerTerminator)
	if end < 0 {
		return "", Header{}, 0, ErrIncomplete
	}

	raw := full[:end]
	lines := strings.Split(raw, "\r\n")
	if len(lines) == 0 {
		return "", Header{}, 0, ErrMalformed
	}

	startLine = lines[0]

	var h Header
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return "", Header{}, 0, ErrMalformed
		}
		h.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	return startLine, h, int64(end) + int64(len(headerTerminator)), nil
}

// contentLength returns the parsed Content-Length header value, if present.
// An unparsable value is treated as malformed, not absent: this never
// silently drops a body boundary the sender actually declared.
func contentLength(h Header) (n int64, present bool, err error) {
	v, ok := h.Get("Content-Length")
	if !ok {
		return 0, false, nil
	}
	n, convErr := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if convErr != nil || n < 0 {
		return 0, true, ErrMalformed
	}
	return n, true, nil
}

// splitBody returns the N-byte body following a header block starting at
// headerBlockLen in view, and the total bytes consumed (header block +
// body). If fewer than N bytes are available, it returns ErrIncomplete.
func splitBody(view memview.MemView, headerBlockLen, n int64) (body memview.MemView, totalConsumed int64, err error) {
	if n == 0 {
		return memview.MemView{}, headerBlockLen, nil
	}
	if view.Len() < headerBlockLen+n {
		return memview.MemView{}, 0, ErrIncomplete
	}
	return view.SubView(headerBlockLen, headerBlockLen+n), headerBlockLen + n, nil
}
