// Tracing for the deploystatus reconciliation pass and the daily notification.

package telemetry

import (
	"context"
	"runtime"
	"time"

	"github.com/nais/deploystatus/pkg/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	otrace "go.opentelemetry.io/otel/trace"
)

// Shows up as the instrumentation scope of every deploystatus span.
const instrumentationName = "github.com/nais/deploystatus"

// Spans are exported at most this long after they end.
const exportInterval = 5 * time.Second

var provider *trace.TracerProvider

// New installs a tracer provider for the daemon and returns it.
// Spans from Reconcile and Send carry serviceName and the build version as resource attributes.
//
// Without a collector URL the spans are still created, so log lines and span ids line up in tests,
// but they are dropped when they end.
//
// Shut the provider down before exiting so that the notification span of the last run is flushed.
func New(ctx context.Context, serviceName string, collectorURL string) (*trace.TracerProvider, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version.Version()),
		semconv.OSName(runtime.GOOS),
	)

	options := []trace.TracerProviderOption{trace.WithResource(res)}
	if len(collectorURL) > 0 {
		exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(collectorURL))
		if err != nil {
			return nil, err
		}
		options = append(options, trace.WithBatcher(exporter, trace.WithBatchTimeout(exportInterval)))
	}

	provider = trace.NewTracerProvider(options...)
	otel.SetTracerProvider(provider)

	return provider, nil
}

// Tracer is used to start the reconcile, promote and notify spans.
// Before New has run it hands out whatever the global provider gives, a no-op tracer by default.
func Tracer() otrace.Tracer {
	if provider == nil {
		return otel.Tracer(instrumentationName)
	}
	return provider.Tracer(instrumentationName)
}

// Failed marks the span as failed and attaches err as a span event.
func Failed(span otrace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
