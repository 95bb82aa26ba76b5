package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "boardroom"

// StartStageSpan starts a span for one pipeline stage delivery.
func StartStageSpan(ctx context.Context, stage, targetID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "stage."+stage,
		trace.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("target.id", targetID),
		),
	)
}

// StartAgentSpan starts a span for one agent capability call.
func StartAgentSpan(ctx context.Context, op, agentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "agent."+op,
		trace.WithAttributes(
			attribute.String("agent.op", op),
			attribute.String("agent.id", agentID),
		),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
