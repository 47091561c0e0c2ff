package memo

import (
	"context"
	"testing"
	"time"

	"github.com/jonwraymond/toolmemo/cache"
)

// BenchmarkMemoized_Call_Hit measures the cached path.
func BenchmarkMemoized_Call_Hit(b *testing.B) {
	m, err := New(cache.Config{TTL: time.Hour, MaxSize: 1000}, 2,
		func(ctx context.Context, args ...any) (int, error) { return 1, nil })
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	_, _ = m.Call(ctx, "key", 42)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Call(ctx, "key", 42)
	}
}

// BenchmarkMemoized_Call_Miss measures the producer path with eviction.
func BenchmarkMemoized_Call_Miss(b *testing.B) {
	m, err := New(cache.Config{TTL: time.Hour, MaxSize: 100}, 1,
		func(ctx context.Context, args ...any) (int, error) { return 1, nil })
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Call(ctx, i)
	}
}

// BenchmarkMemoized_Call_Parallel measures contended hits on one key.
func BenchmarkMemoized_Call_Parallel(b *testing.B) {
	m, err := New(cache.Config{TTL: time.Hour, MaxSize: 1000}, 1,
		func(ctx context.Context, args ...any) (int, error) { return 1, nil })
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	_, _ = m.Call(ctx, "hot")

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = m.Call(ctx, "hot")
		}
	})
}
