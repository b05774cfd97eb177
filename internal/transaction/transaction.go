// Package transaction defines the output unit emitted once a flow has been
// fully framed: one matched HTTP/1.x request paired with its response.
package transaction

import (
	"github.com/mccutchen/httpwatch/internal/endpoint"
	"github.com/mccutchen/httpwatch/internal/httpwire"
)

// Transaction is one request/response pair observed on a single flow.
type Transaction struct {
	FlowID      uint64
	Timestamp   int64 // Unix seconds, the flow's FirstSeen
	Source      endpoint.Endpoint
	Destination endpoint.Endpoint
	Request     httpwire.Request
	Response    httpwire.Response
}
