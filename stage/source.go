package stage

import (
	"context"
	stderrors "errors"
	"io"

	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/future"
	"github.com/kbukum/mediaflow/observability"
	"github.com/kbukum/mediaflow/options"
	"github.com/kbukum/mediaflow/pipeline"
)

// Source is a pipeline source over a demuxer engine.
type Source[U any] struct {
	*base
	engine *future.Future[engine.Demuxer[U]]
	eof    bool
}

// NewSource starts constructing a demuxer from cfg and returns the source
// stage. cfg is a configuration object, a future of one, or a bare input
// location string.
func NewSource[U any](ctx context.Context, cfg any, factory engine.Factory[engine.Demuxer[U]], opts StreamOptions) (*Source[U], error) {
	b, err := newBase(KindSource, opts)
	if err != nil {
		return nil, err
	}
	s := &Source[U]{base: b}
	s.engine = construct(ctx, b, func(ctx context.Context) (engine.Demuxer[U], error) {
		return createEngine(ctx, cfg, KindSource, factory)
	})
	return s, nil
}

// Engine returns the demuxer as a future.
func (s *Source[U]) Engine() *future.Future[engine.Demuxer[U]] { return s.engine }

// Pull reads exactly one unit. ok is false once the input is exhausted;
// after that Pull never touches the engine again.
func (s *Source[U]) Pull(ctx context.Context) (unit U, ok bool, err error) {
	err = s.run(ctx, observability.SpanStagePull, "pull", func(ctx context.Context) (int, error) {
		if s.eof {
			return 0, nil
		}
		d, err := s.engine.Await(ctx)
		if err != nil {
			return 0, err
		}
		s.transition(StateProcessing)
		u, err := d.Read(ctx)
		if stderrors.Is(err, io.EOF) {
			s.eof = true
			s.transition(StateFlushing)
			s.log.Debug("Source reached end of input")
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		unit, ok = u, true
		return 1, nil
	})
	if err != nil {
		var zero U
		return zero, false, err
	}
	return unit, ok, nil
}

// Pipeline returns a pipeline pulling from this source. Closing the
// pipeline's iterator closes the source.
func (s *Source[U]) Pipeline() *pipeline.Pipeline[U] {
	p := pipeline.FromFunc(func(context.Context) pipeline.Iterator[U] {
		return &sourceIter[U]{src: s}
	})
	if s.hwm > 0 {
		p = pipeline.Buffer(p, s.hwm)
	}
	return p
}

// Close releases the demuxer. It is safe to call more than once.
func (s *Source[U]) Close(ctx context.Context) error {
	return s.gate.Execute(ctx, func() error {
		if !s.markClosed() {
			return nil
		}
		d, err := s.engine.Await(ctx)
		if err != nil {
			return nil
		}
		return engine.Close(ctx, d)
	})
}

// Stop implements component.Component.
func (s *Source[U]) Stop(ctx context.Context) error { return s.Close(ctx) }

type sourceIter[U any] struct {
	src  *Source[U]
	done bool
}

func (it *sourceIter[U]) Next(ctx context.Context) (U, bool, error) {
	if it.done {
		var zero U
		return zero, false, nil
	}
	u, ok, err := it.src.Pull(ctx)
	if !ok {
		it.done = true
	}
	return u, ok, err
}

func (it *sourceIter[U]) Close() error {
	return it.src.Close(context.Background())
}

// createEngine resolves cfg and calls factory with the result.
func createEngine[E any](ctx context.Context, cfg any, kind Kind, factory engine.Factory[E]) (E, error) {
	var zero E
	opts, err := options.ResolveOptions(ctx, cfg)
	if err != nil {
		return zero, err
	}
	e, err := factory(ctx, opts)
	if err != nil {
		return zero, wrapCreation(kind, err)
	}
	return e, nil
}
