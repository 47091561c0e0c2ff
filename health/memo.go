package health

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonwraymond/toolmemo/memo"
)

// StatsSource exposes memoization counters. *memo.Memoized satisfies it for
// every value type.
type StatsSource interface {
	Stats() memo.Stats
}

// MemoCheckerConfig configures a MemoChecker.
type MemoCheckerConfig struct {
	// FailureThreshold is the share of failed producer invocations since the
	// previous check at which the checker reports degraded.
	// Default: 0.5
	FailureThreshold float64

	// MinInvocations is the number of invocations since the previous check
	// required before failures are judged at all.
	// Default: 5
	MinInvocations uint64
}

// MemoChecker reports the health of a memoized function from its counters.
// Each check judges the invocations made since the previous check: a failure
// share at or above FailureThreshold is degraded, and a window in which every
// invocation failed is unhealthy.
type MemoChecker struct {
	name   string
	source StatsSource
	config MemoCheckerConfig

	mu   sync.Mutex
	last memo.Stats
}

// NewMemoChecker creates a checker named name over source.
func NewMemoChecker(name string, source StatsSource, config MemoCheckerConfig) *MemoChecker {
	if config.FailureThreshold <= 0 || config.FailureThreshold > 1 {
		config.FailureThreshold = 0.5
	}
	if config.MinInvocations == 0 {
		config.MinInvocations = 5
	}
	return &MemoChecker{name: name, source: source, config: config}
}

// Name returns the checker name.
func (c *MemoChecker) Name() string {
	return c.name
}

// Check judges the invocations since the previous check.
func (c *MemoChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	stats := c.source.Stats()

	c.mu.Lock()
	invocations := stats.Invocations - c.last.Invocations
	failures := stats.Failures - c.last.Failures
	c.last = stats
	c.mu.Unlock()

	details := map[string]any{
		"entries":     stats.Entries,
		"max_size":    stats.MaxSize,
		"utilization": ratio(uint64(stats.Entries), uint64(stats.MaxSize)),
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"coalesced":   stats.Coalesced,
		"invocations": stats.Invocations,
		"failures":    stats.Failures,
		"evictions":   stats.Evictions,
		"hit_ratio":   ratio(stats.Hits, stats.Hits+stats.Misses+stats.Coalesced),
	}

	if invocations < c.config.MinInvocations {
		return Healthy(fmt.Sprintf("%d entries cached", stats.Entries)).WithDetails(details)
	}

	failureRatio := ratio(failures, invocations)
	details["recent_failure_ratio"] = failureRatio

	switch {
	case failures == invocations:
		return Unhealthy(
			fmt.Sprintf("all %d recent invocations failed", invocations),
			ErrCheckFailed,
		).WithDetails(details)
	case failureRatio >= c.config.FailureThreshold:
		return Degraded(
			fmt.Sprintf("%.1f%% of recent invocations failed", failureRatio*100),
		).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("%d entries cached", stats.Entries)).WithDetails(details)
	}
}

func ratio(n, d uint64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

var _ Checker = (*MemoChecker)(nil)
