package pipeline

import (
	"context"
	"fmt"
	"time"

	"brfsspulse/internal/infrastructure"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	TracerName = "brfsspulse.pipeline"
)

// RunTracer provides OpenTelemetry instrumentation for pipeline runs.
// All methods tolerate a nil receiver so the runner works without
// observability wired in.
type RunTracer struct {
	tracer          trace.Tracer
	meter           metric.Meter
	businessMetrics *infrastructure.BusinessMetrics
}

// NewRunTracer creates a run tracer from initialized providers
func NewRunTracer(providers *infrastructure.OTelProviders) (*RunTracer, error) {
	businessMetrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	return &RunTracer{
		tracer:          otel.Tracer(TracerName),
		meter:           providers.Meter,
		businessMetrics: businessMetrics,
	}, nil
}

// TraceRun creates the span covering an entire pipeline run
func (rt *RunTracer) TraceRun(ctx context.Context, runID string, rowCount int) (context.Context, trace.Span) {
	if rt == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	ctx, span := rt.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("run.raw_rows", rowCount),
		),
	)

	rt.businessMetrics.RunExecutionsTotal.Add(ctx, 1)
	rt.businessMetrics.ActiveRuns.Add(ctx, 1)
	rt.businessMetrics.RowsIngested.Add(ctx, int64(rowCount))

	return ctx, span
}

// TraceStage creates a span for a single pipeline stage
func (rt *RunTracer) TraceStage(ctx context.Context, runID, stage string) (context.Context, trace.Span) {
	if rt == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	ctx, span := rt.tracer.Start(ctx, fmt.Sprintf("pipeline.stage.%s", stage),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("stage.name", stage),
		),
	)

	rt.businessMetrics.StageExecutionsTotal.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("stage", stage),
		),
	)

	return ctx, span
}

// RecordStageCompletion records the outcome of a stage on its span and metrics
func (rt *RunTracer) RecordStageCompletion(ctx context.Context, span trace.Span, stage string, duration time.Duration, success bool) {
	if rt == nil {
		return
	}

	status := "success"
	if !success {
		status = "failure"
	}

	span.SetAttributes(
		attribute.String("stage.status", status),
		attribute.Float64("stage.duration_seconds", duration.Seconds()),
	)

	rt.businessMetrics.StageDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("status", status),
		),
	)
}

// RecordRunCompletion records final run counters and closes out the run span
func (rt *RunTracer) RecordRunCompletion(ctx context.Context, span trace.Span, meta RunMetadata, duration time.Duration) {
	if rt == nil {
		return
	}

	span.SetAttributes(
		attribute.Bool("run.degraded", meta.Degraded),
		attribute.Int("run.processed_rows", meta.ProcessedRowCount),
		attribute.Int("run.rejected_rows", meta.RejectedRowCount),
		attribute.Float64("run.duration_seconds", duration.Seconds()),
	)

	status := "completed"
	if meta.Degraded {
		status = "degraded"
		rt.businessMetrics.RunsDegraded.Add(ctx, 1)
	}

	rt.businessMetrics.RunDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("status", status),
		),
	)
	rt.businessMetrics.ActiveRuns.Add(ctx, -1)
	rt.businessMetrics.RowsProcessed.Add(ctx, int64(meta.ProcessedRowCount))
	rt.businessMetrics.RowsRejected.Add(ctx, int64(meta.RejectedRowCount))
	rt.businessMetrics.DuplicatesRemoved.Add(ctx, int64(meta.DuplicatesRemoved))
	rt.businessMetrics.OutliersRemoved.Add(ctx, int64(meta.OutliersRemoved))

	infrastructure.AddSpanEvent(ctx, "run.completed", map[string]interface{}{
		"run_id":         meta.RunID,
		"status":         status,
		"processed_rows": meta.ProcessedRowCount,
		"rejected_rows":  meta.RejectedRowCount,
	})
}

// RecordRunError records a failed run on the span and error counters
func (rt *RunTracer) RecordRunError(ctx context.Context, span trace.Span, err error, duration time.Duration) {
	if rt == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	errType := string(GetErrorType(err))
	if errType == string(ErrorTypeCancellation) {
		rt.businessMetrics.RunCancellations.Add(ctx, 1)
	}

	rt.businessMetrics.PipelineErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("error_type", errType),
		),
	)
	rt.businessMetrics.RunDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("status", "failed"),
		),
	)
	rt.businessMetrics.ActiveRuns.Add(ctx, -1)
}
