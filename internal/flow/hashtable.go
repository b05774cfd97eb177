package flow

import (
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/alphadose/haxmap"

	"github.com/mccutchen/httpwatch/internal/endpoint"
	"github.com/mccutchen/httpwatch/mempool"
)

// hashTable is the alternative flow table, keyed by a hash of the
// unordered endpoint pair rather than a linear scan; its behavior is
// identical to linearTable. Fingerprints are hashed
// with xxhash order-independently (swapping src/dst yields the same key),
// and each bucket is a short chain of flows to resolve the rare hash
// collision without ever returning the wrong flow.
//
// haxmap is built for concurrent readers/writers; the coordinator is
// still this table's only caller, so that concurrency is unused here, but
// the map gives us lock-free growth without hand-rolling a resize.
type hashTable struct {
	buckets *haxmap.Map[uint64, []*Flow]
	ids     idGenerator
	pool    mempool.BufferPool
	size    int
}

// NewHashTable returns a hash-keyed flow table with identical externally
// observable behavior to NewLinearTable.
func NewHashTable(pool mempool.BufferPool) Table {
	return &hashTable{
		buckets: haxmap.New[uint64, []*Flow](),
		pool:    pool,
	}
}

// fingerprintHash hashes an unordered endpoint pair: identical for
// (a, b) and (b, a).
func fingerprintHash(a, b endpoint.Endpoint) uint64 {
	ha := xxhash.ChecksumString64(a.String())
	hb := xxhash.ChecksumString64(b.String())
	// XOR is commutative, so the order the two endpoints are hashed in
	// never affects the combined key.
	return ha ^ hb
}

func (t *hashTable) Lookup(src, dst endpoint.Endpoint) (*Flow, endpoint.Side, bool) {
	bucket, ok := t.buckets.Get(fingerprintHash(src, dst))
	if !ok {
		return nil, 0, false
	}
	for _, f := range bucket {
		pair := endpoint.NewPair(f.Source, f.Destination)
		if side, ok := pair.Matches(src, dst); ok {
			return f, side, true
		}
	}
	return nil, 0, false
}

func (t *hashTable) Store(src, dst endpoint.Endpoint, ts time.Time) (*Flow, endpoint.Side) {
	if f, side, ok := t.Lookup(src, dst); ok {
		return f, side
	}

	f := newFlow(t.ids.next_(), src, dst, ts, t.pool)
	key := fingerprintHash(src, dst)
	bucket, _ := t.buckets.Get(key)
	t.buckets.Set(key, append(bucket, f))
	t.size++
	return f, endpoint.FromSource
}

func (t *hashTable) Retire(f *Flow) bool {
	key := fingerprintHash(f.Source, f.Destination)
	bucket, ok := t.buckets.Get(key)
	if !ok {
		return false
	}
	for i, cur := range bucket {
		if cur == f {
			bucket[i] = bucket[len(bucket)-1]
			bucket = bucket[:len(bucket)-1]
			if len(bucket) == 0 {
				t.buckets.Del(key)
			} else {
				t.buckets.Set(key, bucket)
			}
			t.size--
			return true
		}
	}
	return false
}

func (t *hashTable) Len() int {
	return t.size
}
