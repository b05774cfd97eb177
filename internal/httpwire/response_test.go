package httpwire

import (
	"bytes"
	"compress/gzip"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mccutchen/httpwatch/memview"
)

func TestParseResponseWithBody(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nhello"
	resp, consumed, err := ParseResponse(memview.New([]byte(raw)))
	require.NoError(t, err)
	assert.Equal(t, int64(len(raw)), consumed)
	assert.Equal(t, 200, resp.Status)
	reason, ok := resp.Reason.Get()
	require.True(t, ok)
	assert.Equal(t, "OK", reason)
	body, ok := resp.Body.Get()
	require.True(t, ok)
	assert.Equal(t, "hello", body)
}

func TestParseResponseWithoutReason(t *testing.T) {
	raw := "HTTP/1.1 204\r\nContent-Length: 0\r\n\r\n"
	resp, _, err := ParseResponse(memview.New([]byte(raw)))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.Status)
	assert.False(t, resp.Reason.IsSome())
	assert.False(t, resp.Body.IsSome())
}

func TestParseResponseUnknownEncodingFails(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 3\r\nContent-Encoding: br\r\n\r\nabc"
	_, _, err := ParseResponse(memview.New([]byte(raw)))
	assert.ErrorIs(t, err, ErrUnknownEncoding)
}

func TestParseResponseGzipSingleMember(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("payload-one"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	raw := "HTTP/1.1 200 OK\r\nContent-Encoding: gzip\r\nContent-Length: " +
		strconv.Itoa(buf.Len()) + "\r\n\r\n" + buf.String()

	resp, _, err := ParseResponse(memview.New([]byte(raw)))
	require.NoError(t, err)
	body, ok := resp.Body.Get()
	require.True(t, ok)
	assert.Equal(t, "payload-one", body)
	assert.True(t, resp.Decompress)
}

func TestParseResponseGzipConcatenatedMembers(t *testing.T) {
	var buf bytes.Buffer

	zw1 := gzip.NewWriter(&buf)
	_, err := zw1.Write([]byte("part-a"))
	require.NoError(t, err)
	require.NoError(t, zw1.Close())

	zw2 := gzip.NewWriter(&buf)
	_, err = zw2.Write([]byte("part-b"))
	require.NoError(t, err)
	require.NoError(t, zw2.Close())

	raw := "HTTP/1.1 200 OK\r\nContent-Encoding: gzip\r\nContent-Length: " +
		strconv.Itoa(buf.Len()) + "\r\n\r\n" + buf.String()

	resp, _, err := ParseResponse(memview.New([]byte(raw)))
	require.NoError(t, err)
	body, ok := resp.Body.Get()
	require.True(t, ok)
	assert.Equal(t, "part-apart-b", body)
}

func TestParseResponseIncompleteBody(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nshort"
	_, _, err := ParseResponse(memview.New([]byte(raw)))
	assert.ErrorIs(t, err, ErrIncomplete)
}

