package db

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelTracer adapts an OpenTelemetry tracer to the Tracer interface.
type OTelTracer struct {
	tracer trace.Tracer
	system string
}

// NewOTelTracer returns a Tracer backed by t. A nil t uses the global
// provider's "userstore/db" tracer. system is recorded as db.system.
func NewOTelTracer(t trace.Tracer, system string) *OTelTracer {
	if t == nil {
		t = otel.Tracer("userstore/db")
	}
	return &OTelTracer{tracer: t, system: system}
}

func (o *OTelTracer) StartSpan(ctx context.Context, query string) context.Context {
	ctx, _ = o.tracer.Start(ctx, "db."+statementVerb(query),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", o.system),
			attribute.String("db.statement", trimQuery(query)),
		),
	)
	return ctx
}

func (o *OTelTracer) EndSpan(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if err != nil && !IsNotFound(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

var _ Tracer = (*OTelTracer)(nil)
