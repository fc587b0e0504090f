package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/mediaflow/logger"
)

const stageTracerName = "github.com/kbukum/mediaflow/stage"

// TracerConfig configures span export for stage operations.
type TracerConfig struct {
	Service   Service
	Collector Collector
	// SampleRate is the share of traces kept, from 0 to 1.
	SampleRate float64
}

// DefaultTracerConfig samples everything to a local collector.
func DefaultTracerConfig(serviceName string) TracerConfig {
	return TracerConfig{
		Service:    defaultService(serviceName),
		Collector:  Collector{Endpoint: defaultCollector, Insecure: true},
		SampleRate: 1,
	}
}

func (c TracerConfig) sampler() sdktrace.Sampler {
	if c.SampleRate >= 1 {
		return sdktrace.AlwaysSample()
	}
	if c.SampleRate <= 0 {
		return sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRate))
}

// InitTracer installs a batching OTLP tracer provider as the global one.
// The caller shuts it down on exit to flush pending spans.
func InitTracer(ctx context.Context, cfg TracerConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Collector.Endpoint)}
	if cfg.Collector.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	res, err := cfg.Service.resource()
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(cfg.sampler()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	logger.Info("Tracing enabled", logger.Fields(
		"endpoint", cfg.Collector.Endpoint,
		"sample_rate", cfg.SampleRate,
	))
	return tp, nil
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Stage span names.
const (
	SpanStageConstruct = "stage.construct"
	SpanStagePull      = "stage.pull"
	SpanStageProcess   = "stage.process"
	SpanStageFlush     = "stage.flush"
	SpanStageWrite     = "stage.write"
	SpanStageFinalize  = "stage.finalize"
)

// Span attribute keys.
const (
	AttrStageName     = "stage.name"
	AttrStageKind     = "stage.kind"
	AttrStageID       = "stage.id"
	AttrOperationName = "operation.name"
	AttrUnits         = "stage.units"
	AttrDurationMs    = "duration_ms"
	AttrStatus        = "status"
	AttrErrorKind     = "error.kind"
	AttrErrorMessage  = "error.message"
)
