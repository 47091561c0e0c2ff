package memo

import (
	"context"
	"fmt"

	"github.com/jonwraymond/toolmemo/cache"
)

// Adapt0 converts a producer without arguments into a Func of arity 0.
func Adapt0[V any](fn func(context.Context) (V, error)) Func[V] {
	return func(ctx context.Context, _ ...any) (V, error) {
		return fn(ctx)
	}
}

// Adapt1 converts a one-argument producer into a Func of arity 1.
func Adapt1[A, V any](fn func(context.Context, A) (V, error)) Func[V] {
	return func(ctx context.Context, args ...any) (V, error) {
		var zero V
		a, err := argAs[A](args, 0)
		if err != nil {
			return zero, err
		}
		return fn(ctx, a)
	}
}

// Adapt2 converts a two-argument producer into a Func of arity 2.
func Adapt2[A, B, V any](fn func(context.Context, A, B) (V, error)) Func[V] {
	return func(ctx context.Context, args ...any) (V, error) {
		var zero V
		a, err := argAs[A](args, 0)
		if err != nil {
			return zero, err
		}
		b, err := argAs[B](args, 1)
		if err != nil {
			return zero, err
		}
		return fn(ctx, a, b)
	}
}

// Adapt3 converts a three-argument producer into a Func of arity 3.
func Adapt3[A, B, C, V any](fn func(context.Context, A, B, C) (V, error)) Func[V] {
	return func(ctx context.Context, args ...any) (V, error) {
		var zero V
		a, err := argAs[A](args, 0)
		if err != nil {
			return zero, err
		}
		b, err := argAs[B](args, 1)
		if err != nil {
			return zero, err
		}
		c, err := argAs[C](args, 2)
		if err != nil {
			return zero, err
		}
		return fn(ctx, a, b, c)
	}
}

// argAs returns args[i] as T. The absent marker yields the zero T.
func argAs[T any](args []any, i int) (T, error) {
	var zero T
	if args[i] == nil {
		return zero, nil
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, fmt.Errorf("%w: argument %d is %T, want %T", ErrArgumentType, i, args[i], zero)
	}
	return v, nil
}

// Memoized1 is a Memoized with a typed one-argument call.
type Memoized1[A, V any] struct {
	*Memoized[V]
}

// New1 memoizes a typed one-argument producer.
func New1[A, V any](config cache.Config, fn func(context.Context, A) (V, error), opts ...Option) (*Memoized1[A, V], error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	m, err := New(config, 1, Adapt1(fn), opts...)
	if err != nil {
		return nil, err
	}
	return &Memoized1[A, V]{Memoized: m}, nil
}

// Get calls the memoized producer with a.
func (m *Memoized1[A, V]) Get(ctx context.Context, a A) (V, error) {
	return m.Call(ctx, a)
}

// Memoized2 is a Memoized with a typed two-argument call.
type Memoized2[A, B, V any] struct {
	*Memoized[V]
}

// New2 memoizes a typed two-argument producer.
func New2[A, B, V any](config cache.Config, fn func(context.Context, A, B) (V, error), opts ...Option) (*Memoized2[A, B, V], error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	m, err := New(config, 2, Adapt2(fn), opts...)
	if err != nil {
		return nil, err
	}
	return &Memoized2[A, B, V]{Memoized: m}, nil
}

// Get calls the memoized producer with a and b.
func (m *Memoized2[A, B, V]) Get(ctx context.Context, a A, b B) (V, error) {
	return m.Call(ctx, a, b)
}
