package cache

import (
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// MemoryStore is an in-memory Store with lazy TTL expiry and FIFO eviction.
type MemoryStore[V any] struct {
	mu      sync.Mutex
	entries *orderedmap.OrderedMap[Key, *entry[V]]
	config  Config
}

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

// NewMemoryStore creates a store bounded by config. The config is not
// validated here; callers construct stores through validated paths.
func NewMemoryStore[V any](config Config) *MemoryStore[V] {
	return &MemoryStore[V]{
		entries: orderedmap.New[Key, *entry[V]](),
		config:  config,
	}
}

// Config returns the bounds the store was created with.
func (s *MemoryStore[V]) Config() Config {
	return s.config
}

// Get returns the live value for key. Expired entries are removed on the way.
func (s *MemoryStore[V]) Get(key Key, now time.Time) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	e, ok := s.entries.Get(key)
	if !ok {
		return zero, false
	}
	if s.expired(e, now) {
		s.entries.Delete(key)
		return zero, false
	}
	return e.value, true
}

// Put stores value under key at the newest position, then evicts the
// oldest-inserted entries until the store is within MaxSize.
func (s *MemoryStore[V]) Put(key Key, value V, now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Overwrites move to the back: delete first so Set appends.
	s.entries.Delete(key)
	s.entries.Set(key, &entry[V]{value: value, insertedAt: now})

	evicted := 0
	for s.entries.Len() > s.config.MaxSize {
		oldest := s.entries.Oldest()
		if oldest == nil {
			break
		}
		s.entries.Delete(oldest.Key)
		evicted++
	}
	return evicted
}

// Remove deletes key if present.
func (s *MemoryStore[V]) Remove(key Key) {
	s.mu.Lock()
	s.entries.Delete(key)
	s.mu.Unlock()
}

// Clear empties the store.
func (s *MemoryStore[V]) Clear() {
	s.mu.Lock()
	s.entries = orderedmap.New[Key, *entry[V]]()
	s.mu.Unlock()
}

// Len removes every expired entry and returns the number left.
func (s *MemoryStore[V]) Len(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stale []Key
	for pair := s.entries.Oldest(); pair != nil; pair = pair.Next() {
		if s.expired(pair.Value, now) {
			stale = append(stale, pair.Key)
		}
	}
	for _, k := range stale {
		s.entries.Delete(k)
	}
	return s.entries.Len()
}

// keys returns the live keys from oldest to newest insertion.
func (s *MemoryStore[V]) keys(now time.Time) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]Key, 0, s.entries.Len())
	for pair := s.entries.Oldest(); pair != nil; pair = pair.Next() {
		if !s.expired(pair.Value, now) {
			keys = append(keys, pair.Key)
		}
	}
	return keys
}

// expired reports whether e has reached the TTL. Caller must hold mu.
func (s *MemoryStore[V]) expired(e *entry[V], now time.Time) bool {
	return now.Sub(e.insertedAt) >= s.config.TTL
}

// Ensure MemoryStore implements Store
var _ Store[string] = (*MemoryStore[string])(nil)
