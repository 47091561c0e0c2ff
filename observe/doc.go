// Package observe provides observability primitives for memoized functions.
//
// It is a pure instrumentation library: tracing spans around producer
// invocations, lookup/invocation/eviction metrics, and a structured logger.
// It performs no I/O beyond exporter setup. Consumers hand an Observer or a
// Middleware to memo.New.
package observe
