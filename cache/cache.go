package cache

import (
	"errors"
	"time"
)

// Sentinel errors for cache operations.
var (
	ErrInvalidTTL          = errors.New("cache: ttl must be positive")
	ErrInvalidMaxSize      = errors.New("cache: max size must be at least 1")
	ErrUnsupportedArgument = errors.New("cache: unsupported argument type")
	ErrAbsentNotTrailing   = errors.New("cache: absent argument followed by a concrete value")
)

// Store holds completed entries for a single memoized function.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Ordering: eviction is by insertion order only; reads never reorder.
//   - Bounds: Len never exceeds the configured max size after an operation returns.
//   - Time: callers pass now explicitly so expiry is deterministic under test clocks.
type Store[V any] interface {
	// Get returns the live value for key. An expired entry is removed and
	// reported as a miss.
	Get(key Key, now time.Time) (V, bool)

	// Put inserts or overwrites key at the newest position and returns the
	// number of entries evicted to restore the size bound.
	Put(key Key, value V, now time.Time) int

	// Remove deletes key. Idempotent.
	Remove(key Key)

	// Clear removes every entry.
	Clear()

	// Len sweeps expired entries and returns the number of live ones.
	Len(now time.Time) int
}
