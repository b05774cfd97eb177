package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mccutchen/httpwatch/internal/endpoint"
	"github.com/mccutchen/httpwatch/internal/httpwire"
	"github.com/mccutchen/httpwatch/internal/transaction"
	"github.com/mccutchen/httpwatch/optionals"
)

func TestWriteTextMatchesDocumentedFormat(t *testing.T) {
	var reqHeader httpwire.Header
	reqHeader.Add("Host", "example.com")

	var respHeader httpwire.Header
	respHeader.Add("Content-Length", "5")

	txn := transaction.Transaction{
		FlowID:      1,
		Source:      endpoint.New([]byte{127, 0, 0, 1}, 54321),
		Destination: endpoint.New([]byte{127, 0, 0, 1}, 80),
		Request: httpwire.Request{
			Method: "GET",
			Path:   "/x",
			Minor:  1,
			Header: reqHeader,
		},
		Response: httpwire.Response{
			Minor:  1,
			Status: 200,
			Reason: optionals.Some("OK"),
			Header: respHeader,
			Body:   optionals.Some("hello"),
		},
	}

	var buf strings.Builder
	require.NoError(t, WriteText(&buf, txn))

	out := buf.String()
	assert.Contains(t, out, "HTTP 1.1 GET /x\n")
	assert.Contains(t, out, "Host: example.com\n")
	assert.Contains(t, out, "200 OK\n")
	assert.Contains(t, out, "Content-Length: 5\n")
	assert.Contains(t, out, "hello\n")
}
