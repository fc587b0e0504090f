package stage

import (
	"context"

	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/observability"
	"github.com/kbukum/mediaflow/pipeline"
)

// PredicateFunc decides whether a unit is forwarded.
type PredicateFunc[U any] func(ctx context.Context, unit U) (bool, error)

// PredicateStage forwards the units its predicate accepts, unchanged. A
// predicate that fails drops the unit and the stream continues.
type PredicateStage[U any] struct {
	*base
	fn PredicateFunc[U]
}

// Predicate returns a filter stage over fn. It has no engine and is ready
// immediately.
func Predicate[U any](fn PredicateFunc[U], opts StreamOptions) (*PredicateStage[U], error) {
	b, err := newBase(KindPredicate, opts)
	if err != nil {
		return nil, err
	}
	b.transition(StateReady)
	b.settle(nil)
	return &PredicateStage[U]{base: b, fn: fn}, nil
}

// Accept evaluates the predicate for unit. A predicate error is logged and
// reported as false.
func (p *PredicateStage[U]) Accept(ctx context.Context, unit U) (bool, error) {
	var keep bool
	err := p.run(ctx, observability.SpanStageProcess, "process", func(ctx context.Context) (int, error) {
		p.transition(StateProcessing)
		p.recordIn(ctx, 1)
		ok, err := p.fn(ctx, unit)
		if err != nil {
			p.log.Warn("Predicate failed, dropping unit", logger.ErrorFields("process", err))
			return 0, nil
		}
		keep = ok
		if ok {
			return 1, nil
		}
		return 0, nil
	})
	return keep, err
}

// Close finalizes the stage. It is safe to call more than once.
func (p *PredicateStage[U]) Close(ctx context.Context) error {
	return p.gate.Execute(ctx, func() error {
		p.markClosed()
		return nil
	})
}

// Stop implements component.Component.
func (p *PredicateStage[U]) Stop(ctx context.Context) error { return p.Close(ctx) }

// Attach implements pipeline.Stage.
func (p *PredicateStage[U]) Attach(upstream pipeline.Iterator[U]) pipeline.Iterator[U] {
	return &predicateIter[U]{p: p, upstream: upstream}
}

// Via attaches p after upstream.
func (p *PredicateStage[U]) Via(upstream *pipeline.Pipeline[U]) *pipeline.Pipeline[U] {
	return pipeline.Via[U, U](upstream, p)
}

type predicateIter[U any] struct {
	p        *PredicateStage[U]
	upstream pipeline.Iterator[U]
}

func (it *predicateIter[U]) Next(ctx context.Context) (U, bool, error) {
	for {
		u, ok, err := it.upstream.Next(ctx)
		if err != nil || !ok {
			return u, ok, err
		}
		keep, err := it.p.Accept(ctx, u)
		if err != nil {
			var zero U
			return zero, false, err
		}
		if keep {
			return u, true, nil
		}
	}
}

func (it *predicateIter[U]) Close() error {
	err := it.p.Close(context.Background())
	if uerr := it.upstream.Close(); err == nil {
		err = uerr
	}
	return err
}
