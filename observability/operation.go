package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/mediaflow/errors"
)

// StageInfo identifies the stage an operation belongs to.
type StageInfo struct {
	Name string
	Kind string
	ID   string
}

// Operation tracks one traced stage operation.
type Operation struct {
	Stage     StageInfo
	Name      string
	StartTime time.Time
	Metrics   *StageMetrics

	span trace.Span
}

// StartOperation starts a span named spanName for a stage operation.
// If metrics is nil, metric recording is silently skipped.
func StartOperation(ctx context.Context, info StageInfo, spanName, operation string, metrics *StageMetrics) (context.Context, *Operation) {
	ctx, span := Tracer(stageTracerName).Start(ctx, spanName, trace.WithAttributes(
		attribute.String(AttrStageName, info.Name),
		attribute.String(AttrStageKind, info.Kind),
		attribute.String(AttrStageID, info.ID),
		attribute.String(AttrOperationName, operation),
	))
	return ctx, &Operation{
		Stage:     info,
		Name:      operation,
		StartTime: time.Now(),
		Metrics:   metrics,
		span:      span,
	}
}

// End ends the span and records the operation metrics. units is the number
// of units the operation emitted or wrote.
func (op *Operation) End(ctx context.Context, units int, err error) {
	duration := time.Since(op.StartTime)
	status := "ok"

	if err != nil {
		status = "error"
		errKind := string(errors.KindOfError(err))
		op.span.RecordError(err)
		op.span.SetStatus(codes.Error, err.Error())
		op.span.SetAttributes(
			attribute.String(AttrErrorKind, errKind),
			attribute.String(AttrErrorMessage, err.Error()),
		)
		if op.Metrics != nil {
			op.Metrics.RecordError(ctx, op.Stage.Name, op.Stage.Kind, errKind)
		}
	}

	op.span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int(AttrUnits, units),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	op.span.End()

	if op.Metrics != nil {
		op.Metrics.RecordOperation(ctx, op.Stage.Name, op.Stage.Kind, op.Name, status, duration)
		if units > 0 {
			op.Metrics.RecordUnitsOut(ctx, op.Stage.Name, op.Stage.Kind, units)
		}
	}
}

// Duration returns the elapsed time since the operation started.
func (op *Operation) Duration() time.Duration {
	return time.Since(op.StartTime)
}
