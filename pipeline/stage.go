package pipeline

import (
	"context"
)

// Stage turns a stream of I into a stream of O. Attach is called once per
// pipeline run with the upstream iterator; the returned iterator owns
// upstream and closes it.
type Stage[I, O any] interface {
	Attach(upstream Iterator[I]) Iterator[O]
}

// Buffered is implemented by stages that want a bounded buffer placed after
// them. HighWaterMark is the maximum number of units waiting downstream of
// the stage; 0 means none.
type Buffered interface {
	HighWaterMark() int
}

// Sink consumes a stream. Write is called once per value in order; Close is
// called exactly once after the last Write, including when the stream ends
// early with an error.
type Sink[T any] interface {
	Write(ctx context.Context, val T) error
	Close(ctx context.Context) error
}

// StageFunc adapts a function to a Stage.
type StageFunc[I, O any] func(upstream Iterator[I]) Iterator[O]

// Attach implements Stage.
func (f StageFunc[I, O]) Attach(upstream Iterator[I]) Iterator[O] { return f(upstream) }

// Via attaches s after p. A Buffered stage with a positive high water mark
// is followed by a Buffer of that size.
func Via[I, O any](p *Pipeline[I], s Stage[I, O]) *Pipeline[O] {
	out := &Pipeline[O]{
		create: func(ctx context.Context) Iterator[O] {
			return s.Attach(p.create(ctx))
		},
	}
	if b, ok := s.(Buffered); ok && b.HighWaterMark() > 0 {
		return Buffer(out, b.HighWaterMark())
	}
	return out
}

// Into creates a Runnable that writes every value of p to sink and then
// closes the sink. The sink is closed even if the pipeline or a write
// fails, using a context that is not canceled with ctx. The first error
// wins: pipeline or write error, then sink close error, then iterator close
// error.
func Into[T any](p *Pipeline[T], sink Sink[T]) *Runnable {
	return &Runnable{
		run: func(ctx context.Context) error {
			iter := p.create(ctx)
			runErr := drainInto(ctx, iter, sink)
			closeErr := sink.Close(context.WithoutCancel(ctx))
			iterErr := iter.Close()
			return firstError(runErr, closeErr, iterErr)
		},
	}
}

func drainInto[T any](ctx context.Context, iter Iterator[T], sink Sink[T]) error {
	for {
		val, ok, err := iter.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := sink.Write(ctx, val); err != nil {
			return err
		}
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
