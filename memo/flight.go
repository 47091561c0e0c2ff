package memo

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/toolmemo/cache"
	"github.com/jonwraymond/toolmemo/observe"
)

// coalescer guarantees at most one producer invocation per key and
// generation, and writes successful results to the store before the
// invocation is deregistered.
type coalescer[V any] struct {
	fn    Func[V]
	store cache.Store[V]
	now   func() time.Time
	instr *observe.Instrument

	group singleflight.Group

	// mu orders store writes from finished invocations against clear.
	mu  sync.Mutex
	gen uint64

	invocations atomic.Uint64
	failures    atomic.Uint64
	evictions   atomic.Uint64
}

// flightResult is the shared outcome of one invocation.
type flightResult[V any] struct {
	value V
	// hit is set when the leader found a live entry on its second look.
	hit bool
}

// call joins the in-flight invocation for key or starts one.
func (c *coalescer[V]) call(ctx context.Context, key cache.Key, args []any) (V, observe.LookupResult, error) {
	var zero V

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	// led is written only by this caller's flight function, which runs only
	// if this caller registered the flight. The channel receive below orders
	// the read after the write.
	var led bool
	ch := c.group.DoChan(strconv.FormatUint(gen, 10)+"/"+key.String(), func() (any, error) {
		led = true
		return c.produce(ctx, key, args, gen)
	})

	select {
	case res := <-ch:
		result := observe.LookupCoalesced
		if led {
			result = observe.LookupMiss
		}
		if res.Err != nil {
			return zero, result, res.Err
		}
		fr := res.Val.(flightResult[V])
		if led && fr.hit {
			result = observe.LookupHit
		}
		return fr.value, result, nil

	case <-ctx.Done():
		// The invocation continues for the other waiters.
		return zero, "", ctx.Err()
	}
}

// produce runs inside the flight registration for key.
func (c *coalescer[V]) produce(ctx context.Context, key cache.Key, args []any, gen uint64) (any, error) {
	// A previous flight may have stored the value after this caller's first
	// lookup and before this flight registered.
	if v, ok := c.store.Get(key, c.now()); ok {
		return flightResult[V]{value: v, hit: true}, nil
	}

	c.invocations.Add(1)

	var value V
	err := c.instr.Invoke(context.WithoutCancel(ctx), key.Hash(), func(ctx context.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %v", ErrProducerPanic, r)
			}
		}()
		value, err = c.fn(ctx, args...)
		return err
	})
	if err != nil {
		c.failures.Add(1)
		return nil, err
	}

	c.mu.Lock()
	evicted := 0
	if c.gen == gen {
		evicted = c.store.Put(key, value, c.now())
	}
	c.mu.Unlock()

	if evicted > 0 {
		c.evictions.Add(uint64(evicted))
		c.instr.Evicted(ctx, evicted)
	}

	return flightResult[V]{value: value}, nil
}

// clear empties the store and detaches every in-flight invocation.
func (c *coalescer[V]) clear() {
	c.mu.Lock()
	c.gen++
	c.store.Clear()
	c.mu.Unlock()
}
