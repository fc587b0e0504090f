package future

import (
	"context"
	"errors"
	"sync"
)

// ErrNilFuture is returned when a nil *Future is awaited through Pending.
var ErrNilFuture = errors.New("future: nil future")

// Pending is implemented by values that settle asynchronously.
// Every *Future[T] is Pending, whatever its T.
type Pending interface {
	// AwaitAny blocks until the value settles or ctx is done.
	AwaitAny(ctx context.Context) (any, error)
}

// Future is a value that settles exactly once with a result or an error.
type Future[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// New returns an unsettled future and the function that settles it.
// Only the first call to settle has an effect.
func New[T any]() (*Future[T], func(T, error)) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.settle
}

// Go runs fn in a new goroutine and returns a future of its result.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f, settle := New[T]()
	go func() {
		settle(fn(ctx))
	}()
	return f
}

// Resolved returns a future already settled with v.
func Resolved[T any](v T) *Future[T] {
	f, settle := New[T]()
	settle(v, nil)
	return f
}

// Failed returns a future already settled with err.
func Failed[T any](err error) *Future[T] {
	f, settle := New[T]()
	var zero T
	settle(zero, err)
	return f
}

func (f *Future[T]) settle(v T, err error) {
	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
	})
}

// Done returns a channel closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Settled reports whether the future has settled.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the future settles or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	default:
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the settled value without blocking.
// ok is false while the future is still pending.
func (f *Future[T]) Result() (val T, err error, ok bool) {
	if !f.Settled() {
		var zero T
		return zero, nil, false
	}
	return f.val, f.err, true
}

// AwaitAny implements Pending. A nil f, such as a typed nil stored in an
// options map, returns ErrNilFuture.
func (f *Future[T]) AwaitAny(ctx context.Context) (any, error) {
	if f == nil {
		return nil, ErrNilFuture
	}
	v, err := f.Await(ctx)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Then returns a future of fn applied to the result of f.
// An error from f skips fn and settles the new future with that error.
func Then[T, U any](ctx context.Context, f *Future[T], fn func(T) (U, error)) *Future[U] {
	return Go(ctx, func(ctx context.Context) (U, error) {
		v, err := f.Await(ctx)
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v)
	})
}

// AwaitValue awaits v while it is Pending, so a future of a future yields
// the innermost value. Anything that is not Pending is returned unchanged.
func AwaitValue(ctx context.Context, v any) (any, error) {
	for {
		p, ok := v.(Pending)
		if !ok {
			return v, nil
		}
		next, err := p.AwaitAny(ctx)
		if err != nil {
			return nil, err
		}
		v = next
	}
}
