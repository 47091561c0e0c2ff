// Package memo memoizes argument-keyed producer functions.
//
// A Memoized value wraps a producer of fixed arity. Calls are keyed on their
// primitive arguments (see cache.EncodeKey). Successful results are kept in a
// FIFO store bounded by TTL and entry count; failures are never kept.
// Concurrent calls for the same key share a single producer invocation and
// receive its identical outcome.
//
// # Usage
//
//	digest, err := memo.New(cache.Config{TTL: 5 * time.Second, MaxSize: 100}, 1,
//	    memo.Adapt1(func(ctx context.Context, path string) (string, error) {
//	        return hashFile(ctx, path)
//	    }))
//	if err != nil {
//	    return err
//	}
//
//	sum, err := digest.Call(ctx, "report.csv") // invokes hashFile
//	sum, err = digest.Call(ctx, "report.csv")  // answered from the store
//
// # Cancellation
//
// A caller whose context ends stops waiting and gets ctx.Err(). The shared
// producer invocation keeps running for the remaining waiters; it receives
// the initiating caller's context values without its cancellation.
//
// # Clearing
//
// ClearCache empties the store and detaches in-flight invocations: their
// current waiters still receive the outcome, but the result is not written to
// the cleared store and later callers start a fresh invocation.
//
// # Values
//
// Cached values are shared between callers. Use immutable value types, or
// supply WithClone to copy each delivered value.
package memo
