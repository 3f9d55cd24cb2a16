// Package observability provides OpenTelemetry-based tracing, Prometheus
// metrics, and structured logging for the analyser pipeline.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	tracerName        = "bha"
	meterName         = "bha"
	defaultServiceName = "bha"
)

// Config holds observability configuration for one analyser invocation.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	LogLevel       slog.Level
	LogFormat      string // "json" or "text"
}

// Providers bundles the initialised tracer, meter, logger, and a
// Prometheus registry the CLI can optionally dump on exit.
type Providers struct {
	Tracer   trace.Tracer
	Meter    metric.Meter
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Shutdown func(ctx context.Context) error
}

// Init wires a tracer provider, a Prometheus-backed meter provider, and
// a TracingHandler-wrapped slog.Logger.
func Init(cfg Config) (Providers, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return Providers{}, fmt.Errorf("build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	registry := prometheus.NewRegistry()

	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(registry))
	if err != nil {
		return Providers{}, fmt.Errorf("build prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)

	logger := buildLogger(cfg)

	shutdown := func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}

	return Providers{
		Tracer:   tp.Tracer(tracerName),
		Meter:    mp.Meter(meterName),
		Logger:   logger,
		Registry: registry,
		Shutdown: shutdown,
	}, nil
}

func buildLogger(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var inner slog.Handler
	if cfg.LogFormat == "text" {
		inner = slog.NewTextHandler(os.Stderr, opts)
	} else {
		inner = slog.NewJSONHandler(os.Stderr, opts)
	}

	return slog.New(NewTracingHandler(inner, cfg.ServiceName, cfg.Environment))
}

// NoopShutdown is used in tests and one-shot code paths that never
// call Init but still want a well-typed shutdown function.
func NoopShutdown(context.Context) error { return nil }
