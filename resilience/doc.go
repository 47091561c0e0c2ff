// Package resilience retries failing operations with backoff.
//
// Memoized functions never cache a failure, so retrying a memoized call is
// the intended way to recover from transient producer errors:
//
//	r := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts:  4,
//	    InitialDelay: 50 * time.Millisecond,
//	    Jitter:       true,
//	})
//	sum, err := resilience.Do(ctx, r, func(ctx context.Context) (string, error) {
//	    return digests.Get(ctx, path)
//	})
//
// Wrap an error with Permanent to stop retrying immediately.
package resilience
