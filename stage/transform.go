package stage

import (
	"context"

	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/future"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/observability"
	"github.com/kbukum/mediaflow/pipeline"
)

// Transform is a pipeline stage over a decoder, encoder or filterer
// engine E. It consumes I and emits O.
type Transform[I, O, E any] struct {
	*base
	engine  *future.Future[E]
	process func(ctx context.Context, e E, in I) ([]O, error)
	flush   func(ctx context.Context, e E) ([]O, error)
}

// NewDecoder returns a decoder stage. Each packet is submitted on its own
// and every non-empty result is emitted as one batch of frames.
func NewDecoder[P, F any](ctx context.Context, cfg any, factory engine.Factory[engine.Codec[P, F]], opts TransformOptions[F]) (*Transform[P, []F, engine.Codec[P, F]], error) {
	b, err := newBase(KindDecoder, opts.StreamOptions)
	if err != nil {
		return nil, err
	}
	post := opts.PostProcess
	t := &Transform[P, []F, engine.Codec[P, F]]{
		base: b,
		process: func(ctx context.Context, c engine.Codec[P, F], in P) ([][]F, error) {
			out, err := c.Process(ctx, []P{in})
			if err != nil {
				return nil, err
			}
			return asBatch(ctx, out, post)
		},
		flush: func(ctx context.Context, c engine.Codec[P, F]) ([][]F, error) {
			out, err := c.Flush(ctx)
			if err != nil {
				return nil, err
			}
			return asBatch(ctx, out, post)
		},
	}
	t.engine = construct(ctx, b, func(ctx context.Context) (engine.Codec[P, F], error) {
		return createEngine(ctx, cfg, KindDecoder, factory)
	})
	return t, nil
}

// NewEncoder returns an encoder stage. It consumes frame batches and emits
// every encoded packet individually.
func NewEncoder[F, P any](ctx context.Context, cfg any, factory engine.Factory[engine.Codec[F, P]], opts TransformOptions[P]) (*Transform[[]F, P, engine.Codec[F, P]], error) {
	b, err := newBase(KindEncoder, opts.StreamOptions)
	if err != nil {
		return nil, err
	}
	post := opts.PostProcess
	t := &Transform[[]F, P, engine.Codec[F, P]]{
		base: b,
		process: func(ctx context.Context, c engine.Codec[F, P], in []F) ([]P, error) {
			out, err := c.Process(ctx, in)
			if err != nil {
				return nil, err
			}
			return postProcess(ctx, out, post)
		},
		flush: func(ctx context.Context, c engine.Codec[F, P]) ([]P, error) {
			out, err := c.Flush(ctx)
			if err != nil {
				return nil, err
			}
			return postProcess(ctx, out, post)
		},
	}
	t.engine = construct(ctx, b, func(ctx context.Context) (engine.Codec[F, P], error) {
		return createEngine(ctx, cfg, KindEncoder, factory)
	})
	return t, nil
}

// NewFilterer returns a filter graph stage. It consumes frame batches and
// emits one batch per non-empty output group, in the order the engine
// returned them. A filterer has no flush step.
func NewFilterer[I, O any](ctx context.Context, cfg any, factory engine.Factory[engine.Filterer[I, O]], opts TransformOptions[O]) (*Transform[[]I, []O, engine.Filterer[I, O]], error) {
	b, err := newBase(KindFilterer, opts.StreamOptions)
	if err != nil {
		return nil, err
	}
	post := opts.PostProcess
	t := &Transform[[]I, []O, engine.Filterer[I, O]]{
		base: b,
		process: func(ctx context.Context, f engine.Filterer[I, O], in []I) ([][]O, error) {
			groups, err := f.Filter(ctx, in)
			if err != nil {
				return nil, err
			}
			var out [][]O
			for _, g := range groups {
				batch, err := asBatch(ctx, g.Units, post)
				if err != nil {
					return nil, err
				}
				out = append(out, batch...)
			}
			return out, nil
		},
	}
	t.engine = construct(ctx, b, func(ctx context.Context) (engine.Filterer[I, O], error) {
		return createEngine(ctx, cfg, KindFilterer, factory)
	})
	return t, nil
}

// Engine returns the stage's engine as a future.
func (t *Transform[I, O, E]) Engine() *future.Future[E] { return t.engine }

// Process submits one input to the engine and returns the units to emit.
func (t *Transform[I, O, E]) Process(ctx context.Context, in I) ([]O, error) {
	var out []O
	err := t.run(ctx, observability.SpanStageProcess, "process", func(ctx context.Context) (int, error) {
		e, err := t.engine.Await(ctx)
		if err != nil {
			return 0, err
		}
		t.transition(StateProcessing)
		t.recordIn(ctx, 1)
		out, err = t.process(ctx, e, in)
		return len(out), err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Flush drains the engine at end of input and finalizes the stage. Its
// result is emitted like a Process result. Filterers finalize without
// calling the engine.
func (t *Transform[I, O, E]) Flush(ctx context.Context) ([]O, error) {
	var out []O
	err := t.run(ctx, observability.SpanStageFlush, "flush", func(ctx context.Context) (int, error) {
		e, err := t.engine.Await(ctx)
		if err != nil {
			return 0, err
		}
		t.transition(StateFlushing)
		if t.flush != nil {
			if out, err = t.flush(ctx, e); err != nil {
				return 0, err
			}
		}
		t.log.Debug("Stage flushed", logger.Fields(logger.FieldUnits, len(out)))
		return len(out), nil
	})
	if err != nil {
		return nil, err
	}
	return out, t.Close(ctx)
}

// Close releases the engine. It is safe to call more than once.
func (t *Transform[I, O, E]) Close(ctx context.Context) error {
	return t.gate.Execute(ctx, func() error {
		if !t.markClosed() {
			return nil
		}
		e, err := t.engine.Await(ctx)
		if err != nil {
			return nil
		}
		return engine.Close(ctx, e)
	})
}

// Stop implements component.Component.
func (t *Transform[I, O, E]) Stop(ctx context.Context) error { return t.Close(ctx) }

// Attach implements pipeline.Stage.
func (t *Transform[I, O, E]) Attach(upstream pipeline.Iterator[I]) pipeline.Iterator[O] {
	return &transformIter[I, O, E]{t: t, upstream: upstream}
}

// Via attaches t after p, adding a buffer when the high water mark is set.
func (t *Transform[I, O, E]) Via(p *pipeline.Pipeline[I]) *pipeline.Pipeline[O] {
	return pipeline.Via[I, O](p, t)
}

// transformIter pulls the next input only after every unit produced by
// the previous one has been taken.
type transformIter[I, O, E any] struct {
	t        *Transform[I, O, E]
	upstream pipeline.Iterator[I]
	pending  []O
	finished bool
}

func (it *transformIter[I, O, E]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	for {
		if len(it.pending) > 0 {
			u := it.pending[0]
			it.pending[0] = zero
			it.pending = it.pending[1:]
			return u, true, nil
		}
		if it.finished {
			return zero, false, nil
		}
		in, ok, err := it.upstream.Next(ctx)
		if err != nil {
			return zero, false, err
		}
		if !ok {
			it.finished = true
			if it.pending, err = it.t.Flush(ctx); err != nil {
				return zero, false, err
			}
			continue
		}
		if it.pending, err = it.t.Process(ctx, in); err != nil {
			return zero, false, err
		}
	}
}

func (it *transformIter[I, O, E]) Close() error {
	err := it.t.Close(context.Background())
	if uerr := it.upstream.Close(); err == nil {
		err = uerr
	}
	return err
}

func postProcess[U any](ctx context.Context, units []U, post func(context.Context, []U) ([]U, error)) ([]U, error) {
	if len(units) == 0 || post == nil {
		return units, nil
	}
	return post(ctx, units)
}

// asBatch wraps a non-empty, post-processed result as a single batch.
func asBatch[U any](ctx context.Context, units []U, post func(context.Context, []U) ([]U, error)) ([][]U, error) {
	units, err := postProcess(ctx, units, post)
	if err != nil || len(units) == 0 {
		return nil, err
	}
	return [][]U{units}, nil
}
