// Package flow implements the reassembly record for one TCP conversation
// and the table that maps connection fingerprints to those records.
package flow

import (
	"sync/atomic"
	"time"

	"github.com/mccutchen/httpwatch/internal/endpoint"
	"github.com/mccutchen/httpwatch/mempool"
	"github.com/mccutchen/httpwatch/memview"
)

// Flow is the reassembly record for one fingerprint: a fixed Source/
// Destination labeling plus the two directional byte accumulators and
// half-close state.
//
// Buffers only grow until retirement. A Flow is retired exactly once, at
// which point its buffers are handed to the framer and then released back
// to the pool.
type Flow struct {
	ID          uint64
	FirstSeen   int64 // Unix seconds
	Source      endpoint.Endpoint
	Destination endpoint.Endpoint

	requestBuf  mempool.Buffer
	responseBuf mempool.Buffer

	finSource      bool
	finDestination bool
}

func newFlow(id uint64, src, dst endpoint.Endpoint, ts time.Time, pool mempool.BufferPool) *Flow {
	return &Flow{
		ID:          id,
		FirstSeen:   ts.Unix(),
		Source:      src,
		Destination: dst,
		requestBuf:  pool.NewBuffer(),
		responseBuf: pool.NewBuffer(),
	}
}

// Append adds bytes observed on the given side to the corresponding
// directional buffer. Appending an empty slice is a legal no-op.
func (f *Flow) Append(side endpoint.Side, b []byte) {
	if len(b) == 0 {
		return
	}
	if side == endpoint.FromSource {
		_, _ = f.requestBuf.Write(b)
	} else {
		_, _ = f.responseBuf.Write(b)
	}
}

// RegisterFIN sets the per-side FIN flag (monotonic: false -> true only)
// and reports whether the flow is now finished on both sides.
func (f *Flow) RegisterFIN(side endpoint.Side) bool {
	if side == endpoint.FromSource {
		f.finSource = true
	} else {
		f.finDestination = true
	}
	return f.Finished()
}

// Finished reports whether both FINs have been observed.
func (f *Flow) Finished() bool {
	return f.finSource && f.finDestination
}

// RequestBytes returns a view of everything accumulated FromSource so far.
func (f *Flow) RequestBytes() memview.MemView {
	return f.requestBuf.Bytes()
}

// ResponseBytes returns a view of everything accumulated FromDestination so far.
func (f *Flow) ResponseBytes() memview.MemView {
	return f.responseBuf.Bytes()
}

// Release returns the flow's buffers to their backing pool. Called once,
// by the coordinator, after it has retired the flow from its table.
func (f *Flow) Release() {
	f.requestBuf.Release()
	f.responseBuf.Release()
}

// idGenerator hands out strictly monotonically increasing flow ids, shared
// across whichever Table implementation is in use.
type idGenerator struct {
	next uint64
}

func (g *idGenerator) next_() uint64 {
	return atomic.AddUint64(&g.next, 1) - 1
}
