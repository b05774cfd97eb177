package flow

import (
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// IdleEvictor retires flows that have gone quiet for longer than timeout
// without ever seeing a second FIN. Whatever the framer can carve out of
// the half-finished buffers is still emitted; the rest is discarded
// along with the flow.
type IdleEvictor struct {
	cache *gocache.Cache
}

// NewIdleEvictor starts an evictor with the given idle timeout. onIdle is
// invoked (from the cache's janitor goroutine) for every flow that times
// out; the caller is responsible for retiring it from the Table and
// draining/releasing it, exactly as it would for a normal FIN-triggered
// retirement.
func NewIdleEvictor(timeout time.Duration, onIdle func(f *Flow)) *IdleEvictor {
	c := gocache.New(timeout, timeout/2)
	c.OnEvicted(func(_ string, value interface{}) {
		if f, ok := value.(*Flow); ok {
			onIdle(f)
		}
	})
	return &IdleEvictor{cache: c}
}

// Touch (re)starts f's idle timer. Call this once per packet processed
// for f, after Append/RegisterFIN.
func (e *IdleEvictor) Touch(f *Flow) {
	e.cache.SetDefault(strconv.FormatUint(f.ID, 10), f)
}

// Forget removes f from the evictor without invoking onIdle, for use
// when f is retired normally (both FINs observed) before it ever goes
// idle.
func (e *IdleEvictor) Forget(f *Flow) {
	key := strconv.FormatUint(f.ID, 10)
	// go-cache's Delete runs the eviction callback on the removed value, so
	// swap in a non-*Flow placeholder first; the callback ignores it.
	e.cache.SetDefault(key, struct{}{})
	e.cache.Delete(key)
}
