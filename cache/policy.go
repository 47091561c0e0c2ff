package cache

import (
	"fmt"
	"time"
)

// Config bounds a memoized function's store. It is fixed for the lifetime of
// the store it configures.
type Config struct {
	// TTL is the maximum age of an entry. An entry whose age is greater than
	// or equal to TTL is treated as absent. Must be positive.
	TTL time.Duration

	// MaxSize is the maximum number of live entries. When an insert exceeds
	// it the oldest-inserted entries are evicted. Must be at least 1.
	MaxSize int
}

// DefaultConfig returns the default store configuration.
// TTL: 5 minutes, MaxSize: 1000
func DefaultConfig() Config {
	return Config{
		TTL:     5 * time.Minute,
		MaxSize: 1000,
	}
}

// Validate checks that c describes a usable store.
// MaxSize 0 is rejected rather than meaning "cache nothing".
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidTTL, c.TTL)
	}
	if c.MaxSize < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxSize, c.MaxSize)
	}
	return nil
}
