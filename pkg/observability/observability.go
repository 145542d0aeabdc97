// Package observability wires logging, tracing and metrics for the service.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config controls which exporters are started.
type Config struct {
	ServiceName  string
	Environment  string
	Version      string
	LogLevel     string
	OTLPEndpoint string
	OTLPInsecure bool
	SampleRate   float64
}

// Provider holds the process-wide telemetry providers.
type Provider struct {
	Logger             *slog.Logger
	TracerProvider     trace.TracerProvider
	MeterProvider      metric.MeterProvider
	PrometheusRegistry *prometheus.Registry

	shutdown []func(context.Context) error
}

// Observability is handed to every module constructor.
type Observability struct {
	Provider *Provider
	Tracer   trace.Tracer
}

// Init builds the logger, tracer provider, meter provider and Prometheus
// registry. OTLP exporters are only started when an endpoint is configured.
func Init(ctx context.Context, cfg Config) (*Observability, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "ringside"
	}

	logger := newLogger(cfg)

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.Version),
		attribute.String("deployment.environment", cfg.Environment),
	)

	p := &Provider{
		Logger:             logger,
		PrometheusRegistry: prometheus.NewRegistry(),
	}
	p.PrometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.OTLPEndpoint == "" {
		p.TracerProvider = noop.NewTracerProvider()
		p.MeterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
		logger.InfoContext(ctx, "OTLP endpoint not set, tracing disabled")
	} else {
		tp, err := newTracerProvider(ctx, cfg, res)
		if err != nil {
			return nil, err
		}
		p.TracerProvider = tp
		p.shutdown = append(p.shutdown, tp.Shutdown)

		mp, err := newMeterProvider(ctx, cfg, res)
		if err != nil {
			_ = tp.Shutdown(ctx)
			return nil, err
		}
		p.MeterProvider = mp
		p.shutdown = append(p.shutdown, mp.Shutdown)

		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Observability{
		Provider: p,
		Tracer:   p.TracerProvider.Tracer(cfg.ServiceName),
	}, nil
}

// Meter returns a named meter from the configured provider.
func (o *Observability) Meter(name string) metric.Meter {
	return o.Provider.MeterProvider.Meter(name)
}

// Shutdown flushes and stops the exporters.
func (o *Observability) Shutdown(ctx context.Context) error {
	var errs []error
	for _, fn := range o.Provider.shutdown {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newLogger(cfg Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(
		slog.String("service", cfg.ServiceName),
		slog.String("env", cfg.Environment),
	)
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 0.1
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
	), nil
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	), nil
}
