// Package telemetry wires OpenTelemetry tracing for battle resolution.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/freeeve/beachhead"

// Setup installs a global tracer provider exporting to endpoint over
// OTLP/HTTP. With no endpoint nothing is installed and the returned
// shutdown is a no-op.
func Setup(ctx context.Context, serviceName, endpoint string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return noop, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}

// Tracer returns the tracer battle code records spans with.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartRound opens a span for one battle round.
func StartRound(ctx context.Context, gameID, battleID string, round int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "battle.round", trace.WithAttributes(
		attribute.String("game.id", gameID),
		attribute.String("battle.id", battleID),
		attribute.Int("battle.round", round),
	))
}
