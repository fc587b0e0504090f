package pipeline

import "context"

// Iterator pulls values one at a time.
type Iterator[T any] interface {
	// Next returns the next value, or ok == false once the stream is done.
	Next(ctx context.Context) (val T, ok bool, err error)
	// Close releases the iterator and everything upstream of it.
	Close() error
}

// Pipeline is a lazy description of a stream. Each run creates a fresh
// iterator chain; nothing is pulled until a terminal runs.
type Pipeline[T any] struct {
	create func(ctx context.Context) Iterator[T]
}

// Runnable is a pipeline bound to its terminal.
type Runnable struct {
	run func(ctx context.Context) error
}

// Run pulls the pipeline to completion, the first error or cancellation.
func (r *Runnable) Run(ctx context.Context) error {
	return r.run(ctx)
}

// From wraps an existing iterator. The pipeline can only be run once.
func From[T any](iter Iterator[T]) *Pipeline[T] {
	return FromFunc(func(context.Context) Iterator[T] { return iter })
}

// FromSlice streams the items of a slice.
func FromSlice[T any](items []T) *Pipeline[T] {
	return FromFunc(func(context.Context) Iterator[T] { return &sliceIter[T]{items: items} })
}

// FromFunc creates a pipeline whose runs each call fn for a new iterator.
func FromFunc[T any](fn func(ctx context.Context) Iterator[T]) *Pipeline[T] {
	return &Pipeline[T]{create: fn}
}

// Iter starts a run and returns its iterator. The caller must Close it.
func (p *Pipeline[T]) Iter(ctx context.Context) Iterator[T] {
	return p.create(ctx)
}

// Drain returns a Runnable passing every value to fn.
func Drain[T any](p *Pipeline[T], fn func(context.Context, T) error) *Runnable {
	return &Runnable{run: func(ctx context.Context) error {
		iter := p.create(ctx)
		defer iter.Close()
		return each(ctx, iter, fn)
	}}
}

// ForEach runs p and calls fn for every value.
func ForEach[T any](ctx context.Context, p *Pipeline[T], fn func(context.Context, T) error) error {
	return Drain(p, fn).Run(ctx)
}

// Collect runs p and returns every value. On error the values pulled so
// far are returned with it.
func Collect[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	var out []T
	iter := p.create(ctx)
	defer iter.Close()
	err := each(ctx, iter, func(_ context.Context, v T) error {
		out = append(out, v)
		return nil
	})
	return out, err
}

// each pulls iter until it is exhausted or fn or Next fails.
func each[T any](ctx context.Context, iter Iterator[T], fn func(context.Context, T) error) error {
	for {
		v, ok, err := iter.Next(ctx)
		if err != nil || !ok {
			return err
		}
		if err := fn(ctx, v); err != nil {
			return err
		}
	}
}

type sliceIter[T any] struct {
	items []T
	pos   int
}

func (it *sliceIter[T]) Next(context.Context) (T, bool, error) {
	if it.pos >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	v := it.items[it.pos]
	it.pos++
	return v, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }
