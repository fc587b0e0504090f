package stage

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/mediaflow/component"
	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/future"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/observability"
	"github.com/kbukum/mediaflow/resilience"
)

// base carries what every stage shares: identity, lifecycle state, the
// single-flight gate and instrumentation.
type base struct {
	kind    Kind
	name    string
	id      string
	hwm     int
	log     *logger.Logger
	metrics *observability.StageMetrics
	gate    *resilience.Bulkhead

	mu           sync.Mutex
	state        State
	ready        chan struct{}
	constructErr error
}

func newBase(kind Kind, opts StreamOptions) (*base, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("%s-%s", kind, id[:8])
	}
	log := opts.Logger
	if log == nil {
		log = logger.Get("stage")
	}
	return &base{
		kind:    kind,
		name:    name,
		id:      id,
		hwm:     opts.HighWaterMark,
		log:     log.WithStage(name, kind.String(), id),
		metrics: opts.Metrics,
		gate:    resilience.NewSingleFlight(),
		state:   StateUninitialized,
		ready:   make(chan struct{}),
	}, nil
}

// Name implements component.Component.
func (b *base) Name() string { return b.name }

// ID returns the stage instance ID.
func (b *base) ID() string { return b.id }

// Kind returns the stage variant.
func (b *base) Kind() Kind { return b.kind }

// HighWaterMark implements pipeline.Buffered.
func (b *base) HighWaterMark() int { return b.hwm }

// State returns the current lifecycle state.
func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *base) info() observability.StageInfo {
	return observability.StageInfo{Name: b.name, Kind: b.kind.String(), ID: b.id}
}

// transition moves to state to. Closed is terminal and is never left.
func (b *base) transition(to State) {
	b.mu.Lock()
	from := b.state
	if from == StateClosed || from == to {
		b.mu.Unlock()
		return
	}
	b.state = to
	b.mu.Unlock()

	b.log.Debug("Stage state changed", logger.Fields(
		logger.FieldFrom, from.String(),
		logger.FieldState, to.String(),
	))
}

// markClosed moves to Closed and reports whether this call did it.
func (b *base) markClosed() bool {
	b.mu.Lock()
	if b.state == StateClosed {
		b.mu.Unlock()
		return false
	}
	from := b.state
	b.state = StateClosed
	b.mu.Unlock()

	b.log.Debug("Stage state changed", logger.Fields(
		logger.FieldFrom, from.String(),
		logger.FieldState, StateClosed.String(),
	))
	return true
}

// checkOpen returns a LifecycleError once the stage is closed.
func (b *base) checkOpen(op string) error {
	if s := b.State(); s == StateClosed {
		return errors.Lifecycle(op, s.String()).WithStage(b.name, op)
	}
	return nil
}

// settle records the outcome of construction and releases everyone
// waiting in awaitReady.
func (b *base) settle(err error) {
	b.mu.Lock()
	b.constructErr = err
	b.mu.Unlock()
	close(b.ready)
}

// awaitReady blocks until construction has finished and returns its error.
func (b *base) awaitReady(ctx context.Context) error {
	select {
	case <-b.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.constructErr
}

// run executes fn under the single-flight gate inside a traced operation.
// fn returns the number of units it produced or wrote.
func (b *base) run(ctx context.Context, spanName, op string, fn func(ctx context.Context) (int, error)) error {
	return b.gate.Execute(ctx, func() error {
		if err := b.checkOpen(op); err != nil {
			return err
		}
		if b.metrics != nil {
			b.metrics.AddInflight(ctx, b.name, b.kind.String(), 1)
			defer b.metrics.AddInflight(ctx, b.name, b.kind.String(), -1)
		}
		opCtx, o := observability.StartOperation(ctx, b.info(), spanName, op, b.metrics)
		n, err := fn(opCtx)
		if err != nil {
			err = b.fault(op, err)
		}
		o.End(opCtx, n, err)
		return err
	})
}

func (b *base) recordIn(ctx context.Context, n int) {
	if b.metrics != nil && n > 0 {
		b.metrics.RecordUnitsIn(ctx, b.name, b.kind.String(), n)
	}
}

// wrapCreation classifies an engine factory failure. Stage faults and
// context errors are kept as they are.
func wrapCreation(kind Kind, err error) error {
	if errors.IsCanceled(err) {
		return err
	}
	if errors.IsAppError(err) {
		return err
	}
	return errors.EngineCreation(kind.String(), err)
}

// fault tags err with the stage and operation. Errors that are not already
// stage faults become processing errors; context errors pass through.
func (b *base) fault(op string, err error) error {
	if errors.IsCanceled(err) {
		return err
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Processing(op, err)
	}
	return appErr.WithStage(b.name, op)
}

// Start implements component.Component: it waits for construction.
func (b *base) Start(ctx context.Context) error {
	return b.awaitReady(ctx)
}

// Health implements component.Component.
func (b *base) Health(context.Context) component.Health {
	h := component.Health{Name: b.name, Status: component.StatusHealthy}
	select {
	case <-b.ready:
	default:
		h.Status = component.StatusDegraded
		h.Message = "constructing"
		return h
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.constructErr != nil:
		h.Status = component.StatusUnhealthy
		h.Message = b.constructErr.Error()
	case b.state == StateClosed:
		h.Status = component.StatusUnhealthy
		h.Message = "closed"
	default:
		h.Message = b.state.String()
	}
	return h
}

// Describe implements component.Describable. busy and queued count calls
// inside and waiting on the single-flight gate.
func (b *base) Describe() component.Description {
	return component.Description{
		Name:    b.name,
		Type:    b.kind.String(),
		Details: fmt.Sprintf("state=%s hwm=%d busy=%d queued=%d", b.State(), b.hwm, b.gate.InUse(), b.gate.Waiting()),
	}
}

// construct runs create in the background, moving b through Resolving to
// Ready, and returns a future of the engine it creates. The future settles
// after the stage itself has settled.
func construct[E any](ctx context.Context, b *base, create func(ctx context.Context) (E, error)) *future.Future[E] {
	f, settleEngine := future.New[E]()
	b.transition(StateResolving)
	go func() {
		ctx, op := observability.StartOperation(ctx, b.info(), observability.SpanStageConstruct, "construct", b.metrics)
		e, err := create(ctx)
		if err != nil {
			err = b.fault("construct", err)
			b.log.Error("Stage construction failed", logger.ErrorFields("construct", err))
		} else {
			b.transition(StateReady)
		}
		op.End(ctx, 0, err)
		b.settle(err)
		settleEngine(e, err)
	}()
	return f
}
