package pipeline

import "context"

// Buffer decouples p from its consumer with a goroutine that reads ahead up
// to size values. The read-ahead stops at the first error, which is
// delivered after the values before it. Closing the returned iterator stops
// the goroutine and waits for it before closing upstream, so upstream never
// sees Close concurrently with Next.
func Buffer[T any](p *Pipeline[T], size int) *Pipeline[T] {
	if size <= 0 {
		size = 1
	}
	return FromFunc(func(ctx context.Context) Iterator[T] {
		ctx, cancel := context.WithCancel(ctx)
		b := &bufferIter[T]{
			upstream: p.create(ctx),
			items:    make(chan item[T], size),
			done:     make(chan struct{}),
			cancel:   cancel,
		}
		go b.fill(ctx)
		return b
	})
}

type item[T any] struct {
	val T
	err error
}

type bufferIter[T any] struct {
	upstream Iterator[T]
	items    chan item[T]
	done     chan struct{}
	cancel   context.CancelFunc
}

func (b *bufferIter[T]) fill(ctx context.Context) {
	defer close(b.done)
	defer close(b.items)
	for {
		v, ok, err := b.upstream.Next(ctx)
		if !ok && err == nil {
			return
		}
		select {
		case b.items <- item[T]{val: v, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (b *bufferIter[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	select {
	case it, open := <-b.items:
		if !open {
			return zero, false, nil
		}
		if it.err != nil {
			return zero, false, it.err
		}
		return it.val, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (b *bufferIter[T]) Close() error {
	b.cancel()
	<-b.done
	return b.upstream.Close()
}
