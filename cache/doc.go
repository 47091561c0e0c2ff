// Package cache provides the storage layer for memoized functions.
//
// It provides argument-tuple key encoding (Key, EncodeKey), a Store interface
// with an in-memory FIFO implementation bounded by TTL and entry count, and
// the Config that fixes those bounds.
package cache
