package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/mediaflow/logger"
)

// MeterConfig configures periodic export of the stage instruments.
type MeterConfig struct {
	Service   Service
	Collector Collector
	// Interval between exports; zero keeps the SDK default.
	Interval time.Duration
}

// DefaultMeterConfig exports to a local collector every 15s.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		Service:   defaultService(serviceName),
		Collector: Collector{Endpoint: defaultCollector, Insecure: true},
		Interval:  15 * time.Second,
	}
}

// InitMeter installs a periodic OTLP meter provider as the global one.
// The caller shuts it down on exit to flush the last readings.
func InitMeter(ctx context.Context, cfg MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Collector.Endpoint)}
	if cfg.Collector.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	res, err := cfg.Service.resource()
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("Metrics enabled", logger.Fields(
		"endpoint", cfg.Collector.Endpoint,
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// StageMetrics holds the metric instruments shared by all stages.
type StageMetrics struct {
	unitsIn           metric.Int64Counter
	unitsOut          metric.Int64Counter
	inflight          metric.Int64UpDownCounter
	operationDuration metric.Float64Histogram
	errorTotal        metric.Int64Counter
}

// NewStageMetrics creates the stage instruments on the given meter.
func NewStageMetrics(meter metric.Meter) (*StageMetrics, error) {
	unitsIn, err := meter.Int64Counter("stage.units.in",
		metric.WithDescription("Units accepted by a stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage.units.in counter: %w", err)
	}

	unitsOut, err := meter.Int64Counter("stage.units.out",
		metric.WithDescription("Units emitted or written by a stage"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage.units.out counter: %w", err)
	}

	inflight, err := meter.Int64UpDownCounter("stage.inflight",
		metric.WithDescription("Engine calls currently in flight"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage.inflight gauge: %w", err)
	}

	operationDuration, err := meter.Float64Histogram("stage.operation.duration",
		metric.WithDescription("Duration of stage operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage.operation.duration histogram: %w", err)
	}

	errorTotal, err := meter.Int64Counter("stage.errors",
		metric.WithDescription("Stage faults by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating stage.errors counter: %w", err)
	}

	return &StageMetrics{
		unitsIn:           unitsIn,
		unitsOut:          unitsOut,
		inflight:          inflight,
		operationDuration: operationDuration,
		errorTotal:        errorTotal,
	}, nil
}

func stageAttrs(stage, kind string, extra ...attribute.KeyValue) metric.MeasurementOption {
	return metric.WithAttributes(append([]attribute.KeyValue{
		attribute.String("stage", stage),
		attribute.String("kind", kind),
	}, extra...)...)
}

// RecordUnitsIn records n units accepted by a stage.
func (m *StageMetrics) RecordUnitsIn(ctx context.Context, stage, kind string, n int) {
	m.unitsIn.Add(ctx, int64(n), stageAttrs(stage, kind))
}

// RecordUnitsOut records n units emitted or written by a stage.
func (m *StageMetrics) RecordUnitsOut(ctx context.Context, stage, kind string, n int) {
	m.unitsOut.Add(ctx, int64(n), stageAttrs(stage, kind))
}

// AddInflight adjusts the in-flight engine call count.
func (m *StageMetrics) AddInflight(ctx context.Context, stage, kind string, delta int64) {
	m.inflight.Add(ctx, delta, stageAttrs(stage, kind))
}

// RecordOperation records a stage operation execution.
func (m *StageMetrics) RecordOperation(ctx context.Context, stage, kind, operation, status string, duration time.Duration) {
	m.operationDuration.Record(ctx, duration.Seconds(), stageAttrs(stage, kind,
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
}

// RecordError records a stage fault by kind.
func (m *StageMetrics) RecordError(ctx context.Context, stage, kind, errKind string) {
	m.errorTotal.Add(ctx, 1, stageAttrs(stage, kind, attribute.String("error_kind", errKind)))
}
