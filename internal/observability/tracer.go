// Copyright 2024 ServerSentry Authors
//
// https://github.com/azzuwayed/serversentry
//
// Licensed under the MIT License. See LICENSE file in the project root for
// full license information.

package observability

import (
	"context"
	"io"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// NewTracerProvider returns a trace.TracerProvider that batches spans to w
// (typically the log file) as newline-delimited JSON, used to correlate a
// tick's plugin checks and dispatches under one trace.
func NewTracerProvider(w io.Writer) (*trace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	return trace.NewTracerProvider(trace.WithBatcher(exporter)), nil
}

// Tracer is the "serversentry/scheduler" tracer every tick span is created
// from.
func Tracer(tp oteltrace.TracerProvider) oteltrace.Tracer {
	return tp.Tracer("serversentry/scheduler")
}

// StartTick opens the root span for one scheduler tick, stamped with a
// fresh correlation id (spec.md §5 "each tick is independently
// traceable"). The returned id is set as the span's correlation_id
// attribute; notify.Event carries no copy of it.
func StartTick(ctx context.Context, tracer oteltrace.Tracer) (context.Context, oteltrace.Span, string) {
	correlationID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "scheduler.tick",
		oteltrace.WithAttributes(attribute.String("correlation_id", correlationID)))
	return ctx, span, correlationID
}

// StartStage opens a child span for one named stage of a tick (a plugin
// check, an evaluator pass, a dispatch call).
func StartStage(ctx context.Context, tracer oteltrace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	return tracer.Start(ctx, name, oteltrace.WithAttributes(attrs...))
}
