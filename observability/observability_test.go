package observability

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/mediaflow/errors"
)

func TestDefaultConfigs(t *testing.T) {
	tc := DefaultTracerConfig("test-service")
	mc := DefaultMeterConfig("test-service")

	for _, svc := range []Service{tc.Service, mc.Service} {
		if svc.Name != "test-service" || svc.Environment != "development" {
			t.Errorf("unexpected service %+v", svc)
		}
	}
	want := Collector{Endpoint: "localhost:4318", Insecure: true}
	if tc.Collector != want || mc.Collector != want {
		t.Errorf("expected collector %+v, got %+v and %+v", want, tc.Collector, mc.Collector)
	}
	if tc.SampleRate != 1 {
		t.Errorf("expected SampleRate 1, got %f", tc.SampleRate)
	}
	if mc.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", mc.Interval)
	}
}

func TestTracerConfigSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1, "AlwaysOnSampler"},
		{2, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.5, "ParentBased{root:TraceIDRatioBased{0.5}"},
	}
	for _, tc := range tests {
		got := TracerConfig{SampleRate: tc.rate}.sampler().Description()
		if !strings.HasPrefix(got, tc.want) {
			t.Errorf("rate %v: expected sampler %q, got %q", tc.rate, tc.want, got)
		}
	}
}

func TestNewStageMetrics_Noop(t *testing.T) {
	metrics, err := NewStageMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}

	ctx := context.Background()
	metrics.RecordUnitsIn(ctx, "decoder", "decode", 1)
	metrics.RecordUnitsOut(ctx, "decoder", "decode", 2)
	metrics.AddInflight(ctx, "decoder", "decode", 1)
	metrics.AddInflight(ctx, "decoder", "decode", -1)
	metrics.RecordOperation(ctx, "decoder", "decode", "process", "ok", 5*time.Millisecond)
	metrics.RecordError(ctx, "decoder", "decode", "processing")
}

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}
	return sums
}

func TestStageMetrics_Recorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := NewStageMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()
	metrics.RecordUnitsIn(ctx, "enc", "encode", 3)
	metrics.RecordUnitsOut(ctx, "enc", "encode", 2)
	metrics.RecordError(ctx, "enc", "encode", "processing")

	sums := collectSums(t, reader)
	if sums["stage.units.in"] != 3 {
		t.Errorf("expected 3 units in, got %d", sums["stage.units.in"])
	}
	if sums["stage.units.out"] != 2 {
		t.Errorf("expected 2 units out, got %d", sums["stage.units.out"])
	}
	if sums["stage.errors"] != 1 {
		t.Errorf("expected 1 error, got %d", sums["stage.errors"])
	}
}

func withRecorder(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func TestStartOperation_Success(t *testing.T) {
	exporter := withRecorder(t)
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())
	metrics, _ := NewStageMetrics(mp.Meter("test"))

	info := StageInfo{Name: "dec", Kind: "decode", ID: "id-1"}
	ctx, op := StartOperation(context.Background(), info, SpanStageProcess, "process", metrics)
	if op.Duration() < 0 {
		t.Error("expected non-negative duration")
	}
	op.End(ctx, 4, nil)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != SpanStageProcess {
		t.Errorf("expected span %s, got %s", SpanStageProcess, spans[0].Name)
	}
	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	for k, want := range map[string]string{AttrStageName: "dec", AttrStageKind: "decode", AttrStageID: "id-1", AttrStatus: "ok", AttrUnits: "4"} {
		if attrs[k] != want {
			t.Errorf("expected %s=%s, got %q", k, want, attrs[k])
		}
	}
	if sums := collectSums(t, reader); sums["stage.units.out"] != 4 {
		t.Errorf("expected 4 units out, got %d", sums["stage.units.out"])
	}
}

func TestStartOperation_Error(t *testing.T) {
	exporter := withRecorder(t)

	ctx, op := StartOperation(context.Background(), StageInfo{Name: "mux", Kind: "mux"}, SpanStageWrite, "write", nil)
	op.End(ctx, 0, errors.Processing("write", fmt.Errorf("disk full")))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status.Code)
	}
	found := false
	for _, kv := range spans[0].Attributes {
		if string(kv.Key) == AttrErrorKind && kv.Value.AsString() == string(errors.KindProcessing) {
			found = true
		}
	}
	if !found {
		t.Error("expected error.kind=processing attribute")
	}
}

func TestTracerAndMeter(t *testing.T) {
	if Tracer("test-tracer") == nil {
		t.Fatal("expected non-nil tracer")
	}
	if Meter("test-meter") == nil {
		t.Fatal("expected non-nil meter")
	}
}

func TestInitProviders(t *testing.T) {
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})
	ctx := context.Background()

	for _, rate := range []float64{0, 0.5, 1} {
		cfg := DefaultTracerConfig("test")
		cfg.SampleRate = rate
		tp, err := InitTracer(ctx, cfg)
		if err != nil {
			// semconv and resource.Default may disagree on schema URL.
			t.Skipf("InitTracer: %v", err)
		}
		if otel.GetTracerProvider() != tp {
			t.Errorf("rate %v: tracer provider not installed globally", rate)
		}
		_ = tp.Shutdown(ctx)
	}

	mp, err := InitMeter(ctx, DefaultMeterConfig("test"))
	if err != nil {
		t.Skipf("InitMeter: %v", err)
	}
	if otel.GetMeterProvider() != mp {
		t.Error("meter provider not installed globally")
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	_ = mp.Shutdown(shutdownCtx)
}
