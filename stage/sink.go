package stage

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/future"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/observability"
	"github.com/kbukum/mediaflow/options"
	"github.com/kbukum/mediaflow/pipeline"
	"github.com/kbukum/mediaflow/validation"
)

// Sink is a pipeline sink over a muxer engine.
//
// A sink either creates its muxer (NewSink) or reuses one owned by someone
// else (NewSinkFromEngine). The header is written once before the first
// unit and the trailer once on Close, but only by the sink that opened the
// output.
type Sink[U any] struct {
	*base
	engine *future.Future[engine.Muxer[U]]
	shared any
	header *headerSignal

	// Set during construction, read under the gate afterwards.
	ownsEngine    bool
	streams       []engine.Stream
	headerWritten bool
	trailerDone   bool
	written       int
}

// NewSink creates a muxer from cfg and returns the sink stage. Stream
// declarations come from "streams" (a non-empty list) or "stream" (a
// single declaration); each may hold pending values, and its "codecpar"
// entry is merged into the stream after it is declared. The output named
// by "url" or "filename" is opened and the header written during
// construction.
func NewSink[U any](ctx context.Context, cfg any, factory engine.Factory[engine.Muxer[U]], opts StreamOptions) (*Sink[U], error) {
	b, err := newBase(KindSink, opts)
	if err != nil {
		return nil, err
	}
	s := &Sink[U]{base: b, ownsEngine: true, header: &headerSignal{done: make(chan struct{})}}
	s.engine = construct(ctx, b, func(ctx context.Context) (engine.Muxer[U], error) {
		o, err := options.ResolveOptions(ctx, cfg)
		if err != nil {
			return nil, err
		}
		decls, err := streamDeclarations(o, true)
		if err != nil {
			return nil, err
		}
		m, err := factory(ctx, o.Without(options.KeyStreams, options.KeyStream))
		if err != nil {
			return nil, wrapCreation(KindSink, err)
		}
		if err := s.declareStreams(ctx, m, decls); err != nil {
			return nil, releaseOnError(ctx, m, err)
		}
		if err := s.openOutput(ctx, m, o.Target()); err != nil {
			return nil, releaseOnError(ctx, m, err)
		}
		return m, nil
	})
	s.shared = s.engine
	headerSignals.Store(s.shared, s.header)
	return s, nil
}

// NewSinkFromEngine returns a sink that writes into an existing muxer, such
// as another sink's Engine(). A "stream" or "streams" entry in cfg is
// declared on it. Output is opened, and header and trailer written, only
// when cfg names a target; otherwise another sink sharing the muxer does
// that, and writes here wait until it has written the header.
func NewSinkFromEngine[U any](ctx context.Context, muxer *future.Future[engine.Muxer[U]], cfg any, opts StreamOptions) (*Sink[U], error) {
	b, err := newBase(KindSink, opts)
	if err != nil {
		return nil, err
	}
	s := &Sink[U]{base: b, shared: muxer, header: headerFor(muxer)}
	s.engine = construct(ctx, b, func(ctx context.Context) (engine.Muxer[U], error) {
		o, err := options.ResolveOptions(ctx, cfg)
		if err != nil {
			return nil, err
		}
		decls, err := streamDeclarations(o, false)
		if err != nil {
			return nil, err
		}
		m, err := muxer.Await(ctx)
		if err != nil {
			return nil, wrapCreation(KindSink, err)
		}
		if err := s.declareStreams(ctx, m, decls); err != nil {
			return nil, err
		}
		if target := o.Target(); target != "" {
			if err := s.openOutput(ctx, m, target); err != nil {
				return nil, err
			}
		}
		return m, nil
	})
	return s, nil
}

// streamDeclarations extracts the stream list from resolved options. A
// sink creating its own muxer must declare at least one stream.
func streamDeclarations(o options.Options, required bool) ([]any, error) {
	if raw, ok := o[options.KeyStreams]; ok {
		list, err := asList(raw)
		if err != nil {
			return nil, errors.Configuration("streams is not a list").WithCause(err)
		}
		if appErr := validation.New().NotEmpty(options.KeyStreams, len(list)).Validate(); appErr != nil {
			return nil, appErr
		}
		return list, nil
	}
	if raw, ok := o[options.KeyStream]; ok && raw != nil {
		return []any{raw}, nil
	}
	if required {
		return nil, errors.MissingField(options.KeyStreams)
	}
	return nil, nil
}

// asList accepts any list of declarations. Elements may be pending and are
// checked once resolved.
func asList(v any) ([]any, error) {
	switch l := v.(type) {
	case []any:
		return l, nil
	default:
		opts, err := options.List(v)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(opts))
		for i, o := range opts {
			out[i] = o
		}
		return out, nil
	}
}

// declareStreams resolves each declaration, declares the stream without its
// codec parameters, then merges the resolved codec parameters into it.
func (s *Sink[U]) declareStreams(ctx context.Context, m engine.Muxer[U], decls []any) error {
	for i, raw := range decls {
		resolved, err := options.Resolve(ctx, raw)
		if err != nil {
			return err
		}
		decl, isMapping := options.AsOptions(resolved)
		v := validation.New().Custom(isMapping, fmt.Sprintf("streams[%d]", i), "must be a mapping")
		if v.HasErrors() {
			return v.Validate()
		}
		cp, hasCodecPar := decl[options.KeyCodecPar]
		st, err := m.NewStream(ctx, decl.Without(options.KeyCodecPar))
		if err != nil {
			return errors.EngineCreation(KindSink.String(), err).WithDetail("stream", i)
		}
		if hasCodecPar && cp != nil {
			params, err := options.ResolveOptions(ctx, cp)
			if err != nil {
				return err
			}
			if err := st.SetCodecParameters(ctx, params); err != nil {
				return errors.EngineCreation(KindSink.String(), err).WithDetail("stream", i)
			}
		}
		s.streams = append(s.streams, st)
		s.log.Debug("Stream declared", logger.Fields("index", st.Index()))
	}
	return nil
}

// openOutput opens target and writes the header. The sink then owns the
// output and writes the trailer on Close.
func (s *Sink[U]) openOutput(ctx context.Context, m engine.Muxer[U], target string) error {
	if err := m.OpenOutput(ctx, target); err != nil {
		return errors.EngineCreation(KindSink.String(), err).WithDetail("target", target)
	}
	if err := m.WriteHeader(ctx); err != nil {
		return errors.EngineCreation(KindSink.String(), err).WithDetail("target", target)
	}
	s.headerWritten = true
	s.header.mark()
	s.log.Debug("Header written", logger.Fields("target", target))
	return nil
}

// headerSignals maps a shared muxer future to the signal closed once some
// sink has written that muxer's header.
var headerSignals sync.Map

type headerSignal struct {
	once sync.Once
	done chan struct{}
}

func headerFor(muxer any) *headerSignal {
	sig, _ := headerSignals.LoadOrStore(muxer, &headerSignal{done: make(chan struct{})})
	return sig.(*headerSignal)
}

func (h *headerSignal) mark() { h.once.Do(func() { close(h.done) }) }

func (h *headerSignal) wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// releaseOnError closes a muxer whose sink failed to construct and returns
// err.
func releaseOnError(ctx context.Context, m any, err error) error {
	_ = engine.Close(ctx, m)
	return err
}

// Engine returns the muxer as a future.
func (s *Sink[U]) Engine() *future.Future[engine.Muxer[U]] { return s.engine }

// Streams returns the streams this sink declared. It waits for
// construction.
func (s *Sink[U]) Streams(ctx context.Context) ([]engine.Stream, error) {
	if err := s.awaitReady(ctx); err != nil {
		return nil, err
	}
	return s.streams, nil
}

// Write writes one unit. Writes are sequential and a call returns only
// once the unit has been handed to the muxer.
func (s *Sink[U]) Write(ctx context.Context, unit U) error {
	return s.WriteBatch(ctx, []U{unit})
}

// WriteBatch writes units in order as one sink operation.
func (s *Sink[U]) WriteBatch(ctx context.Context, units []U) error {
	return s.run(ctx, observability.SpanStageWrite, "write", func(ctx context.Context) (int, error) {
		m, err := s.engine.Await(ctx)
		if err != nil {
			return 0, err
		}
		if !s.headerWritten {
			if err := s.header.wait(ctx); err != nil {
				return 0, err
			}
		}
		s.transition(StateProcessing)
		s.recordIn(ctx, len(units))
		for i, u := range units {
			if err := m.WriteUnit(ctx, u); err != nil {
				return i, err
			}
			s.written++
		}
		return len(units), nil
	})
}

// Close writes the trailer if this sink wrote the header, then releases a
// muxer the sink created. It is safe to call more than once; only the
// first call does anything. A construction failure is returned here so an
// empty stream still reports it.
func (s *Sink[U]) Close(ctx context.Context) error {
	return s.gate.Execute(ctx, func() error {
		if s.State() == StateClosed {
			return nil
		}
		s.transition(StateFlushing)

		var err error
		opCtx, op := observability.StartOperation(ctx, s.info(), observability.SpanStageFinalize, "finalize", s.metrics)
		defer func() { op.End(opCtx, 0, err) }()
		defer s.markClosed()

		m, cerr := s.engine.Await(opCtx)
		if cerr != nil {
			err = cerr
			return err
		}
		if s.headerWritten || s.ownsEngine {
			headerSignals.CompareAndDelete(s.shared, s.header)
		}
		if s.headerWritten && !s.trailerDone {
			s.trailerDone = true
			if werr := m.WriteTrailer(opCtx); werr != nil {
				err = s.fault("finalize", werr)
				s.log.Error("Trailer write failed", logger.ErrorFields("finalize", err))
			} else {
				s.log.Debug("Trailer written", logger.Fields(logger.FieldUnits, s.written))
			}
		}
		if s.ownsEngine {
			if cerr := engine.Close(opCtx, m); cerr != nil && err == nil {
				err = s.fault("finalize", cerr)
			}
		}
		return err
	})
}

// Stop implements component.Component.
func (s *Sink[U]) Stop(ctx context.Context) error { return s.Close(ctx) }

// From returns a Runnable that writes every unit of p and closes s.
func (s *Sink[U]) From(p *pipeline.Pipeline[U]) *pipeline.Runnable {
	return pipeline.Into[U](p, s)
}

// Batches returns a pipeline sink that writes each batch with WriteBatch
// and closes s.
func (s *Sink[U]) Batches() pipeline.Sink[[]U] { return batchSink[U]{s} }

type batchSink[U any] struct{ s *Sink[U] }

func (b batchSink[U]) Write(ctx context.Context, units []U) error { return b.s.WriteBatch(ctx, units) }
func (b batchSink[U]) Close(ctx context.Context) error            { return b.s.Close(ctx) }
