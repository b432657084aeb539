// Tracing instrumentation for the engine.

package engine

import (
	"context"
	"fmt"

	"github.com/rahul/stepwise/internal/plan"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// startPlanSpan starts the span covering a whole execution.
func (e *Engine) startPlanSpan(ctx context.Context, p *plan.Plan) (context.Context, trace.Span) {
	ctx, span := e.tracer().Start(ctx, "plan.execute")
	span.SetAttributes(attribute.Int("plan.steps", len(p.Steps)))
	return ctx, span
}

// endPlanSpan ends the execution span with the result summary.
func endPlanSpan(span trace.Span, res *Result) {
	span.SetAttributes(
		attribute.String("plan.status", string(res.Status)),
		attribute.Int("plan.failed_steps", len(res.Failed())),
	)
	span.End()
}

// startStepSpan starts a span for one step.
func (e *Engine) startStepSpan(ctx context.Context, i int, step plan.Step) (context.Context, trace.Span) {
	ctx, span := e.tracer().Start(ctx, "step."+step.Operation)
	span.SetAttributes(
		attribute.Int("step.index", i),
		attribute.String("step.operation", step.Operation),
		attribute.Int("step.arguments", len(step.Arguments)),
	)
	return ctx, span
}

// endStepSpan ends a step span with its outcome.
func endStepSpan(span trace.Span, o Outcome) {
	span.SetAttributes(attribute.String("step.status", string(o.Status)))
	if !o.OK() {
		span.SetStatus(codes.Error, o.Detail)
		span.RecordError(fmt.Errorf("%s", o.Detail))
	}
	span.End()
}
