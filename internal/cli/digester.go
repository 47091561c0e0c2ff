package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/jonwraymond/toolmemo/internal/digest"
	"github.com/jonwraymond/toolmemo/memo"
	"github.com/jonwraymond/toolmemo/observe"
	"github.com/jonwraymond/toolmemo/resilience"
)

// digester memoizes file digests and retries transient read failures.
// Concurrent requests for one path share a single read.
type digester struct {
	files *memo.Memoized1[string, string]
	retry *resilience.Retry
}

func newDigester(cfg Config, obs observe.Observer, produce func(context.Context, string) (string, error)) (*digester, error) {
	opts := []memo.Option{memo.WithName("file"), memo.WithNamespace("digest")}
	if obs != nil {
		opts = append(opts, memo.WithObserver(obs))
	}

	files, err := memo.New1(cfg.CacheConfig(), produce, opts...)
	if err != nil {
		return nil, fmt.Errorf("configure digest cache: %w", err)
	}

	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
		Jitter:       true,
		RetryIf:      transient,
	})
	return &digester{files: files, retry: retry}, nil
}

// Digest returns the digest of path. Equivalent spellings of one path share
// a cache entry.
func (d *digester) Digest(ctx context.Context, path string) (string, error) {
	path = filepath.Clean(path)
	return resilience.Do(ctx, d.retry, func(ctx context.Context) (string, error) {
		return d.files.Get(ctx, path)
	})
}

// Stats returns the digest cache counters.
func (d *digester) Stats() memo.Stats {
	return d.files.Stats()
}

// transient reports whether a digest failure may succeed on another attempt.
func transient(err error) bool {
	switch {
	case errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrPermission),
		errors.Is(err, digest.ErrNotRegular):
		return false
	default:
		return err != nil
	}
}
