// Package health reports the health of memoized functions and the services
// built on them.
//
// A Checker reports a Status: healthy, degraded, or unhealthy. MemoChecker
// derives one from a memoized function's counters, judging the producer
// failures seen since the previous check.
//
// # Aggregating
//
//	agg := health.NewAggregator(health.AggregatorConfig{})
//	agg.Register("digest", health.NewMemoChecker("digest", digests, health.MemoCheckerConfig{}))
//
//	results := agg.CheckAll(ctx)
//	overall := health.OverallStatus(results)
//
// # HTTP Endpoints
//
//	mux := http.NewServeMux()
//	health.RegisterHandlers(mux, agg) // /healthz, /readyz, /health, /health/<name>
package health
