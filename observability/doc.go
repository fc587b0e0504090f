// Package observability provides OpenTelemetry tracing and metrics for
// pipeline stages.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("mediaflow"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("mediaflow"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewStageMetrics(observability.Meter("mediaflow"))
//
// Every stage operation (construct, pull, process, flush, write, finalize)
// runs inside a span started by StartOperation and ended by
// Operation.End, which also records the stage metrics when set.
package observability
