package memo

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jonwraymond/toolmemo/cache"
	"github.com/jonwraymond/toolmemo/observe"
)

// Func is a producer of fixed arity. Arguments are primitives as accepted by
// cache.EncodeKey.
type Func[V any] func(ctx context.Context, args ...any) (V, error)

// Memoized wraps a producer with keyed caching and call coalescing.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Errors: producer errors reach every waiter of the failing invocation
//     unchanged and are never cached.
//   - Ownership: each Memoized owns its store and in-flight registry; distinct
//     values never share state.
type Memoized[V any] struct {
	id     string
	arity  int
	config cache.Config
	clone  func(V) V
	store  *cache.MemoryStore[V]
	flight *coalescer[V]
	instr  *observe.Instrument

	hits      atomic.Uint64
	misses    atomic.Uint64
	coalesced atomic.Uint64
}

// New wraps fn, which accepts exactly arity arguments.
func New[V any](config cache.Config, arity int, fn Func[V], opts ...Option) (*Memoized[V], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, ErrNilFunc
	}
	if arity < 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidArity, arity)
	}

	s := settings{
		clock: time.Now,
		name:  "memo",
	}
	for _, opt := range opts {
		opt.apply(&s)
	}

	var clone func(V) V
	if s.clone != nil {
		c, ok := s.clone.(func(V) V)
		if !ok {
			return nil, fmt.Errorf("%w: got %T", ErrCloneType, s.clone)
		}
		clone = c
	}

	mw, err := s.middlewareFor()
	if err != nil {
		return nil, fmt.Errorf("memo: configure telemetry: %w", err)
	}

	id := uuid.NewString()
	instr := mw.Instrument(observe.FuncMeta{
		Namespace: s.namespace,
		Name:      s.name,
		Instance:  id,
	})
	store := cache.NewMemoryStore[V](config)

	return &Memoized[V]{
		id:     id,
		arity:  arity,
		config: config,
		clone:  clone,
		store:  store,
		instr:  instr,
		flight: &coalescer[V]{
			fn:    fn,
			store: store,
			now:   s.clock,
			instr: instr,
		},
	}, nil
}

// Call returns the value for args, invoking the producer only when no live
// entry or in-flight invocation exists for them.
//
// A wrong argument count fails with *ArityError, and an unsupported argument
// fails with a cache argument error; neither touches the store or counters.
func (m *Memoized[V]) Call(ctx context.Context, args ...any) (V, error) {
	var zero V
	if len(args) != m.arity {
		return zero, &ArityError{Got: len(args), Want: m.arity}
	}

	key, err := cache.EncodeKey(args...)
	if err != nil {
		return zero, err
	}

	if v, ok := m.store.Get(key, m.flight.now()); ok {
		m.record(ctx, key, observe.LookupHit)
		return m.deliver(v), nil
	}

	v, result, err := m.flight.call(ctx, key, slices.Clone(args))
	if result != "" {
		m.record(ctx, key, result)
	}
	if err != nil {
		return zero, err
	}
	return m.deliver(v), nil
}

// CacheSize returns the number of live entries after removing expired ones.
func (m *Memoized[V]) CacheSize() int {
	return m.store.Len(m.flight.now())
}

// ClearCache removes every entry. In-flight invocations are detached: their
// waiters still receive the outcome, but it is not stored.
func (m *Memoized[V]) ClearCache() {
	m.flight.clear()
	m.instr.Logger().Debug(context.Background(), "memo cache cleared")
}

// ID returns the instance identifier used in telemetry.
func (m *Memoized[V]) ID() string {
	return m.id
}

// Meta returns the telemetry metadata of m.
func (m *Memoized[V]) Meta() observe.FuncMeta {
	return m.instr.Meta()
}

// Arity returns the number of arguments Call expects.
func (m *Memoized[V]) Arity() int {
	return m.arity
}

// Config returns the store bounds.
func (m *Memoized[V]) Config() cache.Config {
	return m.config
}

// Stats is a snapshot of a Memoized value's counters.
type Stats struct {
	Hits        uint64 // calls answered from the store
	Misses      uint64 // calls that started a producer invocation
	Coalesced   uint64 // calls that joined an in-flight invocation
	Invocations uint64 // producer invocations
	Failures    uint64 // producer invocations that returned an error
	Evictions   uint64 // entries evicted by the size bound
	Entries     int    // live entries
	MaxSize     int    // configured size bound
}

// Stats returns a snapshot of m's counters.
func (m *Memoized[V]) Stats() Stats {
	return Stats{
		Hits:        m.hits.Load(),
		Misses:      m.misses.Load(),
		Coalesced:   m.coalesced.Load(),
		Invocations: m.flight.invocations.Load(),
		Failures:    m.flight.failures.Load(),
		Evictions:   m.flight.evictions.Load(),
		Entries:     m.CacheSize(),
		MaxSize:     m.config.MaxSize,
	}
}

func (m *Memoized[V]) record(ctx context.Context, key cache.Key, result observe.LookupResult) {
	switch result {
	case observe.LookupHit:
		m.hits.Add(1)
	case observe.LookupMiss:
		m.misses.Add(1)
	case observe.LookupCoalesced:
		m.coalesced.Add(1)
	}
	m.instr.Lookup(ctx, key.Hash(), result)
}

func (m *Memoized[V]) deliver(v V) V {
	if m.clone != nil {
		return m.clone(v)
	}
	return v
}
