package pipeline

import "context"

// Map transforms each value with fn. An error from fn ends the stream.
func Map[I, O any](p *Pipeline[I], fn func(context.Context, I) (O, error)) *Pipeline[O] {
	return FromFunc(func(ctx context.Context) Iterator[O] {
		return mapIterator(p.create(ctx), fn)
	})
}

// Filter keeps the values for which keep returns true.
func Filter[T any](p *Pipeline[T], keep func(T) bool) *Pipeline[T] {
	return FromFunc(func(ctx context.Context) Iterator[T] {
		return filterIterator(p.create(ctx), keep)
	})
}

// Tap calls fn on each value and passes it on unchanged. Use it for
// counting or progress reporting; an error from fn ends the stream.
func Tap[T any](p *Pipeline[T], fn func(context.Context, T) error) *Pipeline[T] {
	return Map(p, func(ctx context.Context, v T) (T, error) {
		if err := fn(ctx, v); err != nil {
			var zero T
			return zero, err
		}
		return v, nil
	})
}

// funcIter is an Iterator over a next function that closes its upstream.
type funcIter[T any] struct {
	next     func(ctx context.Context) (T, bool, error)
	upstream interface{ Close() error }
}

func (it *funcIter[T]) Next(ctx context.Context) (T, bool, error) { return it.next(ctx) }
func (it *funcIter[T]) Close() error                              { return it.upstream.Close() }

func mapIterator[I, O any](src Iterator[I], fn func(context.Context, I) (O, error)) Iterator[O] {
	return &funcIter[O]{upstream: src, next: func(ctx context.Context) (O, bool, error) {
		var zero O
		v, ok, err := src.Next(ctx)
		if err != nil || !ok {
			return zero, false, err
		}
		out, err := fn(ctx, v)
		if err != nil {
			return zero, false, err
		}
		return out, true, nil
	}}
}

func filterIterator[T any](src Iterator[T], keep func(T) bool) Iterator[T] {
	return &funcIter[T]{upstream: src, next: func(ctx context.Context) (T, bool, error) {
		for {
			v, ok, err := src.Next(ctx)
			if err != nil || !ok || keep(v) {
				return v, ok && err == nil, err
			}
		}
	}}
}
