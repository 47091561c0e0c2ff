package memo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonwraymond/toolmemo/cache"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingFunc returns a producer that counts its invocations, sleeps for
// delay, and returns value.
func countingFunc(calls *atomic.Int64, delay time.Duration, value string) Func[string] {
	return func(ctx context.Context, _ ...any) (string, error) {
		calls.Add(1)
		if delay > 0 {
			time.Sleep(delay)
		}
		return value, nil
	}
}

func mustNew[V any](t *testing.T, config cache.Config, arity int, fn Func[V], opts ...Option) *Memoized[V] {
	t.Helper()
	m, err := New(config, arity, fn, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func TestMemoized_SequentialCallsInvokeOnce(t *testing.T) {
	var calls atomic.Int64
	m := mustNew(t, cache.Config{TTL: 5 * time.Second, MaxSize: 100}, 0, countingFunc(&calls, 100*time.Millisecond, "test"))

	ctx := context.Background()
	for i := range 10 {
		got, err := m.Call(ctx)
		if err != nil {
			t.Fatalf("call %d: error = %v", i, err)
		}
		if got != "test" {
			t.Errorf("call %d: got %q, want %q", i, got, "test")
		}
	}

	if n := calls.Load(); n != 1 {
		t.Errorf("producer invoked %d times, want 1", n)
	}
	if size := m.CacheSize(); size != 1 {
		t.Errorf("CacheSize() = %d, want 1", size)
	}

	stats := m.Stats()
	if stats.Hits != 9 || stats.Misses != 1 || stats.Invocations != 1 {
		t.Errorf("Stats() = %+v, want 9 hits, 1 miss, 1 invocation", stats)
	}
}

func TestMemoized_ConcurrentCallsCoalesce(t *testing.T) {
	var calls atomic.Int64
	m := mustNew(t, cache.Config{TTL: 5 * time.Second, MaxSize: 100}, 0, countingFunc(&calls, 200*time.Millisecond, "test"))

	const n = 10
	results := make([]string, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Call(context.Background())
		}(i)
	}
	wg.Wait()

	for i := range n {
		if errs[i] != nil {
			t.Errorf("call %d: error = %v", i, errs[i])
		}
		if results[i] != "test" {
			t.Errorf("call %d: got %q, want %q", i, results[i], "test")
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("producer invoked %d times, want 1", got)
	}
	if size := m.CacheSize(); size != 1 {
		t.Errorf("CacheSize() = %d, want 1", size)
	}

	stats := m.Stats()
	if stats.Misses != 1 {
		t.Errorf("Stats().Misses = %d, want 1", stats.Misses)
	}
	if stats.Hits+stats.Coalesced != n-1 {
		t.Errorf("Stats() hits+coalesced = %d, want %d", stats.Hits+stats.Coalesced, n-1)
	}
}

func TestMemoized_CoalescedCallsShareFailure(t *testing.T) {
	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	wantErr := errors.New("backend unavailable")

	m := mustNew(t, cache.Config{TTL: time.Minute, MaxSize: 10}, 1, func(ctx context.Context, args ...any) (int, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return 0, wantErr
	})

	const n = 5
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = m.Call(context.Background(), "k")
	}()
	<-started
	for i := 1; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.Call(context.Background(), "k")
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != wantErr {
			t.Errorf("call %d: error = %v, want identical %v", i, err, wantErr)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("producer invoked %d times, want 1", got)
	}
	if size := m.CacheSize(); size != 0 {
		t.Errorf("CacheSize() = %d, want 0", size)
	}
}

func TestMemoized_CapacityOne(t *testing.T) {
	var calls atomic.Int64
	m := mustNew(t, cache.Config{TTL: 5 * time.Second, MaxSize: 1}, 1, func(ctx context.Context, args ...any) (string, error) {
		calls.Add(1)
		return fmt.Sprint(args[0]), nil
	})
	ctx := context.Background()

	if _, err := m.Call(ctx, 0); err != nil {
		t.Fatalf("Call(0) error = %v", err)
	}
	if _, err := m.Call(ctx, 1); err != nil {
		t.Fatalf("Call(1) error = %v", err)
	}
	if size := m.CacheSize(); size != 1 {
		t.Fatalf("CacheSize() = %d, want 1", size)
	}

	// Key 1 is cached, key 0 was evicted.
	if _, err := m.Call(ctx, 1); err != nil {
		t.Fatalf("Call(1) error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("after repeat of key 1: producer invoked %d times, want 2", got)
	}
	if _, err := m.Call(ctx, 0); err != nil {
		t.Fatalf("Call(0) error = %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("after repeat of key 0: producer invoked %d times, want 3", got)
	}
	if ev := m.Stats().Evictions; ev != 2 {
		t.Errorf("Stats().Evictions = %d, want 2", ev)
	}
}

func TestMemoized_EvictsFIFORegardlessOfReads(t *testing.T) {
	var calls atomic.Int64
	m := mustNew(t, cache.Config{TTL: time.Minute, MaxSize: 3}, 1, func(ctx context.Context, args ...any) (string, error) {
		calls.Add(1)
		return fmt.Sprint(args[0]), nil
	})
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if _, err := m.Call(ctx, k); err != nil {
			t.Fatalf("Call(%q) error = %v", k, err)
		}
	}
	// Reading "a" does not protect it.
	for range 5 {
		if _, err := m.Call(ctx, "a"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := m.Call(ctx, "d"); err != nil {
		t.Fatal(err)
	}
	if size := m.CacheSize(); size != 3 {
		t.Fatalf("CacheSize() = %d, want 3", size)
	}

	before := calls.Load()
	for _, k := range []string{"b", "c", "d"} {
		if _, err := m.Call(ctx, k); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != before {
		t.Errorf("b, c, d should be cached; producer invoked %d more times", calls.Load()-before)
	}
	if _, err := m.Call(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != before+1 {
		t.Error("a should have been evicted first")
	}
}

func TestMemoized_TTLExpiry(t *testing.T) {
	var calls atomic.Int64
	clock := newFakeClock()
	m := mustNew(t, cache.Config{TTL: time.Second, MaxSize: 100}, 0, countingFunc(&calls, 0, "test"), WithClock(clock.Now))
	ctx := context.Background()

	if _, err := m.Call(ctx); err != nil {
		t.Fatal(err)
	}

	clock.Advance(time.Second - time.Nanosecond)
	if _, err := m.Call(ctx); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("before TTL: producer invoked %d times, want 1", got)
	}

	clock.Advance(time.Nanosecond)
	if size := m.CacheSize(); size != 0 {
		t.Errorf("at TTL: CacheSize() = %d, want 0", size)
	}
	if _, err := m.Call(ctx); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("at TTL: producer invoked %d times, want 2", got)
	}
	if size := m.CacheSize(); size != 1 {
		t.Errorf("CacheSize() = %d, want 1", size)
	}
}

func TestMemoized_TTLExpiryWallClock(t *testing.T) {
	if testing.Short() {
		t.Skip("sleeps past the TTL")
	}

	var calls atomic.Int64
	m := mustNew(t, cache.Config{TTL: time.Second, MaxSize: 100}, 0, countingFunc(&calls, 0, "test"))
	ctx := context.Background()

	if got, err := m.Call(ctx); err != nil || got != "test" {
		t.Fatalf("Call() = %q, %v", got, err)
	}
	time.Sleep(1200 * time.Millisecond)
	if got, err := m.Call(ctx); err != nil || got != "test" {
		t.Fatalf("Call() = %q, %v", got, err)
	}

	if got := calls.Load(); got != 2 {
		t.Errorf("producer invoked %d times, want 2", got)
	}
	if size := m.CacheSize(); size != 1 {
		t.Errorf("CacheSize() = %d, want 1", size)
	}
}

func TestMemoized_FailuresAreNotCached(t *testing.T) {
	var calls atomic.Int64
	m := mustNew(t, cache.Config{TTL: 5 * time.Second, MaxSize: 50}, 1, func(ctx context.Context, args ...any) (string, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return "", fmt.Errorf("Error(%v)", args[0])
	})

	fire := func() {
		const n = 10
		errs := make([]error, n)
		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = m.Call(context.Background(), i)
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			want := fmt.Sprintf("Error(%d)", i)
			if err == nil || err.Error() != want {
				t.Errorf("call %d: error = %v, want %q", i, err, want)
			}
		}
		if size := m.CacheSize(); size != 0 {
			t.Errorf("CacheSize() = %d, want 0", size)
		}
	}

	fire()
	fire()

	if got := calls.Load(); got != 20 {
		t.Errorf("producer invoked %d times, want 20", got)
	}
	if f := m.Stats().Failures; f != 20 {
		t.Errorf("Stats().Failures = %d, want 20", f)
	}
}

func TestMemoized_ArityGuard(t *testing.T) {
	var calls atomic.Int64
	m := mustNew(t, cache.Config{TTL: 5 * time.Second, MaxSize: 10}, 1, countingFunc(&calls, 0, "test"))
	ctx := context.Background()

	if _, err := m.Call(ctx, "warm"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []any
	}{
		{"none", nil},
		{"two", []any{1, 2}},
		{"three", []any{"a", "b", "c"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Call(ctx, tc.args...)

			var arityErr *ArityError
			if !errors.As(err, &arityErr) {
				t.Fatalf("error = %v, want *ArityError", err)
			}
			if arityErr.Got != len(tc.args) || arityErr.Want != 1 {
				t.Errorf("ArityError = %+v, want Got=%d Want=1", arityErr, len(tc.args))
			}
			if !errors.Is(err, ErrArity) {
				t.Error("errors.Is(err, ErrArity) = false")
			}
		})
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("producer invoked %d times, want 1", got)
	}
	if size := m.CacheSize(); size != 1 {
		t.Errorf("CacheSize() = %d, want 1", size)
	}
	if stats := m.Stats(); stats.Misses != 1 || stats.Hits != 0 {
		t.Errorf("Stats() = %+v, arity failures must not count", stats)
	}
}

func TestArityError_Message(t *testing.T) {
	err := &ArityError{Got: 2, Want: 1}
	want := "memo: invalid number of arguments passed (2 != 1)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestMemoized_KeyDistinctness(t *testing.T) {
	var calls atomic.Int64
	m := mustNew(t, cache.Config{TTL: time.Minute, MaxSize: 100}, 1, func(ctx context.Context, args ...any) (string, error) {
		calls.Add(1)
		return fmt.Sprintf("%T:%v", args[0], args[0]), nil
	})
	ctx := context.Background()

	num, err := m.Call(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	str, err := m.Call(ctx, "1")
	if err != nil {
		t.Fatal(err)
	}
	if num == str {
		t.Errorf("number 1 and string \"1\" share a result: %q", num)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("producer invoked %d times, want 2", got)
	}

	// Numbers compare by value.
	if _, err := m.Call(ctx, 1.0); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("1.0 should hit the entry for 1; producer invoked %d times", got)
	}
}

func TestMemoized_BooleanDomain(t *testing.T) {
	var calls atomic.Int64
	m := mustNew(t, cache.Config{TTL: time.Minute, MaxSize: 100}, 1, func(ctx context.Context, args ...any) (bool, error) {
		calls.Add(1)
		return !args[0].(bool), nil
	})
	ctx := context.Background()

	for i := range 50 {
		b := i%2 == 0
		got, err := m.Call(ctx, b)
		if err != nil {
			t.Fatal(err)
		}
		if got != !b {
			t.Errorf("Call(%v) = %v, want %v", b, got, !b)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("producer invoked %d times, want 2", got)
	}
	if size := m.CacheSize(); size != 2 {
		t.Errorf("CacheSize() = %d, want 2", size)
	}
}

func TestMemoized_TrailingAbsentArgument(t *testing.T) {
	var calls atomic.Int64
	m := mustNew(t, cache.Config{TTL: time.Minute, MaxSize: 100}, 3, func(ctx context.Context, args ...any) (string, error) {
		calls.Add(1)
		return fmt.Sprint(args...), nil
	})
	ctx := context.Background()

	if _, err := m.Call(ctx, "a", 1, nil); err != nil {
		t.Fatalf("trailing nil: error = %v", err)
	}
	if _, err := m.Call(ctx, "a", nil, nil); err != nil {
		t.Fatalf("two trailing nils: error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("producer invoked %d times, want 2", got)
	}

	if _, err := m.Call(ctx, "a", nil, 1); !errors.Is(err, cache.ErrAbsentNotTrailing) {
		t.Errorf("interior nil: error = %v, want ErrAbsentNotTrailing", err)
	}
	if _, err := m.Call(ctx, "a", []int{1}, nil); !errors.Is(err, cache.ErrUnsupportedArgument) {
		t.Errorf("slice argument: error = %v, want ErrUnsupportedArgument", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("rejected arguments invoked the producer: %d calls", got)
	}
}

func TestMemoized_ClearCache(t *testing.T) {
	var calls atomic.Int64
	m := mustNew(t, cache.Config{TTL: time.Minute, MaxSize: 100}, 1, func(ctx context.Context, args ...any) (string, error) {
		calls.Add(1)
		return fmt.Sprint(args[0]), nil
	})
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if _, err := m.Call(ctx, k); err != nil {
			t.Fatal(err)
		}
	}
	m.ClearCache()
	if size := m.CacheSize(); size != 0 {
		t.Fatalf("CacheSize() after clear = %d, want 0", size)
	}

	if _, err := m.Call(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("producer invoked %d times, want 4", got)
	}

	// Clearing an empty store is harmless.
	m.ClearCache()
	m.ClearCache()
}

func TestMemoized_ClearCacheDetachesInFlight(t *testing.T) {
	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})

	m := mustNew(t, cache.Config{TTL: time.Minute, MaxSize: 100}, 1, func(ctx context.Context, args ...any) (string, error) {
		n := calls.Add(1)
		if n == 1 {
			close(started)
			<-release
			return "stale", nil
		}
		return "fresh", nil
	})
	ctx := context.Background()

	type outcome struct {
		v   string
		err error
	}
	first := make(chan outcome, 1)
	go func() {
		v, err := m.Call(ctx, "k")
		first <- outcome{v, err}
	}()
	<-started

	m.ClearCache()

	// A caller after the clear does not join the detached invocation.
	v, err := m.Call(ctx, "k")
	if err != nil || v != "fresh" {
		t.Fatalf("Call after clear = %q, %v; want %q", v, err, "fresh")
	}

	close(release)
	got := <-first
	if got.err != nil || got.v != "stale" {
		t.Fatalf("detached waiter = %q, %v; want %q", got.v, got.err, "stale")
	}

	// The detached result did not overwrite the fresh entry.
	v, err = m.Call(ctx, "k")
	if err != nil || v != "fresh" {
		t.Errorf("Call = %q, %v; want cached %q", v, err, "fresh")
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("producer invoked %d times, want 2", n)
	}
	if size := m.CacheSize(); size != 1 {
		t.Errorf("CacheSize() = %d, want 1", size)
	}
}

func TestMemoized_CancelledWaiterDoesNotCancelProducer(t *testing.T) {
	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	var producerErr atomic.Value

	m := mustNew(t, cache.Config{TTL: time.Minute, MaxSize: 100}, 0, func(ctx context.Context, _ ...any) (string, error) {
		calls.Add(1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			producerErr.Store(err)
		}
		return "done", nil
	})

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderErr := make(chan error, 1)
	go func() {
		_, err := m.Call(leaderCtx)
		leaderErr <- err
	}()
	<-started

	joined := make(chan string, 1)
	go func() {
		v, _ := m.Call(context.Background())
		joined <- v
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-leaderErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller error = %v, want context.Canceled", err)
	}

	close(release)
	if v := <-joined; v != "done" {
		t.Errorf("joined caller got %q, want %q", v, "done")
	}
	if err := producerErr.Load(); err != nil {
		t.Errorf("producer context was cancelled: %v", err)
	}
	if size := m.CacheSize(); size != 1 {
		t.Errorf("CacheSize() = %d, want 1", size)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("producer invoked %d times, want 1", n)
	}
}

func TestMemoized_ProducerPanic(t *testing.T) {
	var calls atomic.Int64
	m := mustNew(t, cache.Config{TTL: time.Minute, MaxSize: 10}, 0, func(ctx context.Context, _ ...any) (string, error) {
		calls.Add(1)
		panic("boom")
	})
	ctx := context.Background()

	for range 2 {
		_, err := m.Call(ctx)
		if !errors.Is(err, ErrProducerPanic) {
			t.Fatalf("error = %v, want ErrProducerPanic", err)
		}
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("producer invoked %d times, want 2", n)
	}
	if size := m.CacheSize(); size != 0 {
		t.Errorf("CacheSize() = %d, want 0", size)
	}
}

func TestMemoized_ProducerReceivesArguments(t *testing.T) {
	var got []any
	m := mustNew(t, cache.Config{TTL: time.Minute, MaxSize: 10}, 3, func(ctx context.Context, args ...any) (int, error) {
		got = args
		return len(args), nil
	})

	args := []any{"x", 2, true}
	if _, err := m.Call(context.Background(), args...); err != nil {
		t.Fatal(err)
	}
	args[0] = "mutated"

	if len(got) != 3 || got[0] != "x" || got[1] != 2 || got[2] != true {
		t.Errorf("producer args = %v, want [x 2 true]", got)
	}
}

func TestMemoized_WithClone(t *testing.T) {
	m := mustNew(t, cache.Config{TTL: time.Minute, MaxSize: 10}, 0,
		func(ctx context.Context, _ ...any) ([]int, error) {
			return []int{1, 2, 3}, nil
		},
		WithClone(func(v []int) []int { return append([]int(nil), v...) }),
	)
	ctx := context.Background()

	first, err := m.Call(ctx)
	if err != nil {
		t.Fatal(err)
	}
	first[0] = 99

	second, err := m.Call(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second[0] != 1 {
		t.Errorf("cached value was mutated through a delivered copy: %v", second)
	}
}

func TestNew_Validation(t *testing.T) {
	fn := func(ctx context.Context, _ ...any) (string, error) { return "", nil }
	valid := cache.Config{TTL: time.Second, MaxSize: 1}

	tests := []struct {
		name    string
		config  cache.Config
		arity   int
		fn      Func[string]
		opts    []Option
		wantErr error
	}{
		{"zero ttl", cache.Config{TTL: 0, MaxSize: 1}, 0, fn, nil, cache.ErrInvalidTTL},
		{"negative ttl", cache.Config{TTL: -time.Second, MaxSize: 1}, 0, fn, nil, cache.ErrInvalidTTL},
		{"zero max size", cache.Config{TTL: time.Second, MaxSize: 0}, 0, fn, nil, cache.ErrInvalidMaxSize},
		{"nil func", valid, 0, nil, nil, ErrNilFunc},
		{"negative arity", valid, -1, fn, nil, ErrInvalidArity},
		{"clone type mismatch", valid, 0, fn, []Option{WithClone(func(v int) int { return v })}, ErrCloneType},
		{"nil observer", valid, 0, fn, []Option{WithObserver(nil)}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := New(tc.config, tc.arity, tc.fn, tc.opts...)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("New() error = %v", err)
				}
				if m == nil {
					t.Fatal("New() returned nil")
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestMemoized_InstancesAreIndependent(t *testing.T) {
	var calls atomic.Int64
	fn := countingFunc(&calls, 0, "v")
	config := cache.Config{TTL: time.Minute, MaxSize: 10}

	a := mustNew(t, config, 0, fn)
	b := mustNew(t, config, 0, fn)
	ctx := context.Background()

	if _, err := a.Call(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Call(ctx); err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("producer invoked %d times, want 2", n)
	}

	a.ClearCache()
	if b.CacheSize() != 1 {
		t.Error("clearing one instance affected another")
	}
	if a.ID() == b.ID() {
		t.Errorf("instances share ID %q", a.ID())
	}
}

func TestMemoized_Accessors(t *testing.T) {
	config := cache.Config{TTL: 3 * time.Second, MaxSize: 7}
	m := mustNew(t, config, 2, func(ctx context.Context, _ ...any) (int, error) { return 0, nil },
		WithName("lookup"), WithNamespace("dns"))

	if m.Arity() != 2 {
		t.Errorf("Arity() = %d, want 2", m.Arity())
	}
	if m.Config() != config {
		t.Errorf("Config() = %+v, want %+v", m.Config(), config)
	}
	meta := m.Meta()
	if meta.ID() != "dns.lookup" {
		t.Errorf("Meta().ID() = %q, want %q", meta.ID(), "dns.lookup")
	}
	if meta.Instance != m.ID() {
		t.Errorf("Meta().Instance = %q, want %q", meta.Instance, m.ID())
	}
	if m.Stats().MaxSize != 7 {
		t.Errorf("Stats().MaxSize = %d, want 7", m.Stats().MaxSize)
	}
}

func TestMemoized_CapacityHoldsUnderConcurrency(t *testing.T) {
	const maxSize = 8
	m := mustNew(t, cache.Config{TTL: time.Minute, MaxSize: maxSize}, 1, func(ctx context.Context, args ...any) (int, error) {
		return args[0].(int) * 2, nil
	})

	var wg sync.WaitGroup
	for g := range 16 {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := range 200 {
				k := (g*7 + i) % 40
				v, err := m.Call(context.Background(), k)
				if err != nil {
					t.Errorf("Call(%d) error = %v", k, err)
					return
				}
				if v != k*2 {
					t.Errorf("Call(%d) = %d, want %d", k, v, k*2)
					return
				}
				if size := m.CacheSize(); size > maxSize {
					t.Errorf("CacheSize() = %d exceeds %d", size, maxSize)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}
