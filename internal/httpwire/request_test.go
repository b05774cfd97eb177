package httpwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mccutchen/httpwatch/memview"
)

func TestParseRequestWithoutBody(t *testing.T) {
	raw := "GET /x HTTP/1.1\r\nHost: h\r\n\r\n"
	req, consumed, err := ParseRequest(memview.New([]byte(raw)))
	require.NoError(t, err)
	assert.Equal(t, int64(len(raw)), consumed)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, "/x", req.Path)
	assert.Equal(t, 1, req.Minor)
	assert.False(t, req.Body.IsSome())

	host, ok := req.Header.Get("host")
	require.True(t, ok)
	assert.Equal(t, "h", host)
}

func TestParseRequestWithContentLengthZero(t *testing.T) {
	raw := "GET /a HTTP/1.1\r\nContent-Length: 0\r\n\r\n"
	req, consumed, err := ParseRequest(memview.New([]byte(raw)))
	require.NoError(t, err)
	assert.Equal(t, int64(len(raw)), consumed)
	assert.False(t, req.Body.IsSome())
}

func TestParseRequestIncompleteHeaders(t *testing.T) {
	raw := "GET /a HTTP/1.1\r\nHost: h\r\n"
	_, _, err := ParseRequest(memview.New([]byte(raw)))
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestParseRequestIncompleteBody(t *testing.T) {
	raw := "POST /a HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc"
	_, _, err := ParseRequest(memview.New([]byte(raw)))
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestParseRequestSplitAcrossManyChunks(t *testing.T) {
	full := "POST /upload HTTP/1.1\r\nContent-Length: 11\r\n\r\nhello world"

	// Simulate a request reassembled from many packet payloads: feed the
	// 56 bytes one byte at a time into a MemView built via repeated
	// Append, which is how the reassembler accumulates packet payloads.
	view := memview.Empty()
	for i := 0; i < len(full); i++ {
		chunk := memview.New([]byte{full[i]})
		view.Append(chunk)
	}

	req, consumed, err := ParseRequest(view)
	require.NoError(t, err)
	assert.Equal(t, int64(len(full)), consumed)
	assert.Equal(t, "POST", req.Method)
	body, ok := req.Body.Get()
	require.True(t, ok)
	assert.Equal(t, "hello world", body)
}

func TestParseRequestMalformedStartLine(t *testing.T) {
	raw := "garbage\r\n\r\n"
	_, _, err := ParseRequest(memview.New([]byte(raw)))
	assert.ErrorIs(t, err, ErrMalformed)
}
