package observability

import (
	"context"

	"github.com/pullpaylabs/pullpay/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// SetupTelemetry installs the global OTLP tracer and meter providers when
// tracing is enabled. Exporter transport follows telemetry.protocol.
func SetupTelemetry(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) error {
	if !cfg.Telemetry.TracesEnabled {
		return nil
	}
	log = log.Named("observability")

	ctx := context.Background()
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.Telemetry.ServiceName),
		semconv.DeploymentEnvironment(cfg.App.Env),
	))
	if err != nil {
		return err
	}

	var (
		traceExp  sdktrace.SpanExporter
		metricExp sdkmetric.Exporter
	)

	switch cfg.Telemetry.Protocol {
	case "http":
		topts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Telemetry.Endpoint)}
		mopts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Telemetry.Endpoint)}
		if cfg.Telemetry.Insecure {
			topts = append(topts, otlptracehttp.WithInsecure())
			mopts = append(mopts, otlpmetrichttp.WithInsecure())
		}
		if traceExp, err = otlptracehttp.New(ctx, topts...); err != nil {
			return err
		}
		if metricExp, err = otlpmetrichttp.New(ctx, mopts...); err != nil {
			return err
		}
	default: // grpc
		topts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Telemetry.Endpoint)}
		mopts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Telemetry.Endpoint)}
		if cfg.Telemetry.Insecure {
			topts = append(topts, otlptracegrpc.WithInsecure())
			mopts = append(mopts, otlpmetricgrpc.WithInsecure())
		}
		if traceExp, err = otlptracegrpc.New(ctx, topts...); err != nil {
			return err
		}
		if metricExp, err = otlpmetricgrpc.New(ctx, mopts...); err != nil {
			return err
		}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	log.Info("otlp telemetry enabled",
		zap.String("endpoint", cfg.Telemetry.Endpoint),
		zap.String("protocol", cfg.Telemetry.Protocol),
	)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := tp.Shutdown(ctx); err != nil {
				log.Warn("tracer shutdown", zap.Error(err))
			}
			return mp.Shutdown(ctx)
		},
	})

	return nil
}
