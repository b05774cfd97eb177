package flow

import (
	"time"

	"github.com/mccutchen/httpwatch/internal/endpoint"
	"github.com/mccutchen/httpwatch/mempool"
)

// Table maps connection fingerprints to Flow records.
//
// Lookup/Store/Retire hand back a *Flow rather than a slice index, which
// sidesteps the "indices shift after retire" hazard of a
// compacting-slice design. Append and RegisterFIN are plain methods on
// *Flow, since once a caller holds a Flow handle there is nothing
// further to look up.
//
// The coordinator is the table's only writer, so no implementation here
// takes a lock.
type Table interface {
	// Lookup returns the existing flow for (src, dst), and which side a
	// packet traveling src->dst was sent from, or ok=false if no flow has
	// this fingerprint yet.
	Lookup(src, dst endpoint.Endpoint) (f *Flow, side endpoint.Side, ok bool)

	// Store returns the existing flow for (src, dst) if lookup hits,
	// otherwise creates one with src labeled Source, dst labeled
	// Destination, first_seen=ts, and a fresh monotonically increasing id.
	Store(src, dst endpoint.Endpoint, ts time.Time) (f *Flow, side endpoint.Side)

	// Retire removes f from the table. Returns false if f was not present
	// (already retired, or not created by this table).
	Retire(f *Flow) bool

	// Len reports the number of flows currently tracked.
	Len() int
}

// linearTable is the baseline Table: a slice of flows searched by linear
// scan. Acceptable because concurrent flows observed on a single port
// are typically small in number.
type linearTable struct {
	flows []*Flow
	ids   idGenerator
	pool  mempool.BufferPool
}

// NewLinearTable returns the baseline linear-scan flow table.
func NewLinearTable(pool mempool.BufferPool) Table {
	return &linearTable{pool: pool}
}

func (t *linearTable) Lookup(src, dst endpoint.Endpoint) (*Flow, endpoint.Side, bool) {
	for _, f := range t.flows {
		pair := endpoint.NewPair(f.Source, f.Destination)
		if side, ok := pair.Matches(src, dst); ok {
			return f, side, true
		}
	}
	return nil, 0, false
}

func (t *linearTable) Store(src, dst endpoint.Endpoint, ts time.Time) (*Flow, endpoint.Side) {
	if f, side, ok := t.Lookup(src, dst); ok {
		return f, side
	}
	f := newFlow(t.ids.next_(), src, dst, ts, t.pool)
	t.flows = append(t.flows, f)
	return f, endpoint.FromSource
}

func (t *linearTable) Retire(f *Flow) bool {
	for i, cur := range t.flows {
		if cur == f {
			t.flows[i] = t.flows[len(t.flows)-1]
			t.flows[len(t.flows)-1] = nil
			t.flows = t.flows[:len(t.flows)-1]
			return true
		}
	}
	return false
}

func (t *linearTable) Len() int {
	return len(t.flows)
}
