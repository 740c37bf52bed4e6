package observability

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/robertarktes/venue-seat-holds/internal/config"
)

const flushTimeout = 5 * time.Second

// ShutdownFunc flushes buffered spans and stops the exporter.
type ShutdownFunc func(ctx context.Context) error

// SetupOTel installs the global tracer provider and W3C propagator for
// service. When cfg.OTLPEndpoint is empty no exporter is created, the global
// no-op provider is left in place and the returned ShutdownFunc does nothing.
func SetupOTel(ctx context.Context, cfg *config.Config, service string) (ShutdownFunc, error) {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	if cfg.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "otlp exporter for %s", cfg.OTLPEndpoint)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(service)),
		resource.WithHost(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "otel resource")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp, sdktrace.WithExportTimeout(flushTimeout)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// ShutdownWithTimeout calls shutdown bounded by flushTimeout and reports
// failures to logger.
func ShutdownWithTimeout(shutdown ShutdownFunc, logger Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.WithError(err).Warn("tracer shutdown failed")
	}
}
