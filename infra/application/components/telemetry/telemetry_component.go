package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/peakcary/stock-analysis-system-sub001/infra/application/components/logging"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/consts"
	"github.com/peakcary/stock-analysis-system-sub001/infra/application/core"
)

type TelemetryComponent struct {
	*core.BaseComponent
	cfg           *Config
	tp            *sdktrace.TracerProvider
	mp            *sdkmetric.MeterProvider
	shutdownFuncs []func(context.Context) error
}

func NewTelemetryComponent(cfg *Config) *TelemetryComponent {
	return &TelemetryComponent{
		BaseComponent: core.NewBaseComponent(consts.COMPONENT_TELEMETRY, consts.COMPONENT_LOGGING),
		cfg:           cfg,
	}
}

func (tc *TelemetryComponent) Start(ctx context.Context) error {
	if tc.cfg == nil || !tc.cfg.Enabled {
		return errors.New("telemetry disabled or missing config")
	}
	tc.cfg.applyDefaults()
	if tc.cfg.ServiceName == "" {
		return errors.New("telemetry service_name must be set")
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithAttributes(semconv.ServiceName(tc.cfg.ServiceName)),
	)
	if err != nil {
		return fmt.Errorf("resource init: %w", err)
	}
	if err := tc.initTracing(ctx, res); err != nil {
		return err
	}
	if err := tc.initMetrics(ctx, res); err != nil {
		_ = tc.shutdown(ctx)
		return err
	}

	otel.SetTracerProvider(tc.tp)
	otel.SetMeterProvider(tc.mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logging.Info(ctx, "telemetry component started",
		zap.String("exporter", string(tc.cfg.Exporter)),
		zap.Float64("sample_ratio", tc.cfg.SampleRatio),
		zap.String("service_name", tc.cfg.ServiceName))
	return tc.BaseComponent.Start(ctx)
}

func (tc *TelemetryComponent) grpcDialOptions() []grpc.DialOption {
	if tc.cfg.OTLP.Insecure {
		return nil
	}
	return []grpc.DialOption{grpc.WithUserAgent("stockimport-otlp")}
}

func (tc *TelemetryComponent) initTracing(ctx context.Context, res *resource.Resource) error {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(tc.cfg.SampleRatio))),
		sdktrace.WithResource(res),
	}
	switch tc.cfg.Exporter {
	case ExporterNone:
	case ExporterStdout:
		w, err := tc.stdoutWriter()
		if err != nil {
			return err
		}
		so := []stdouttrace.Option{stdouttrace.WithWriter(w)}
		if tc.cfg.StdoutPretty {
			so = append(so, stdouttrace.WithPrettyPrint())
		}
		exp, err := stdouttrace.New(so...)
		if err != nil {
			return fmt.Errorf("trace exporter init: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	case ExporterOTLP:
		if tc.cfg.OTLP == nil || tc.cfg.OTLP.Endpoint == "" {
			return errors.New("otlp exporter selected but otlp.endpoint empty")
		}
		oo := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(tc.cfg.OTLP.Endpoint),
			otlptracegrpc.WithTimeout(tc.cfg.OTLP.Timeout),
			otlptracegrpc.WithDialOption(tc.grpcDialOptions()...),
		}
		if tc.cfg.OTLP.Insecure {
			oo = append(oo, otlptracegrpc.WithInsecure())
		}
		exp, err := otlptracegrpc.New(ctx, oo...)
		if err != nil {
			return fmt.Errorf("trace exporter init: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	default:
		return fmt.Errorf("unsupported exporter: %s", tc.cfg.Exporter)
	}
	tc.tp = sdktrace.NewTracerProvider(opts...)
	tc.shutdownFuncs = append(tc.shutdownFuncs, tc.tp.Shutdown)
	return nil
}

func (tc *TelemetryComponent) initMetrics(ctx context.Context, res *resource.Resource) error {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	var (
		exp sdkmetric.Exporter
		err error
	)
	switch tc.cfg.Exporter {
	case ExporterNone:
	case ExporterStdout:
		w, werr := tc.stdoutWriter()
		if werr != nil {
			return werr
		}
		exp, err = stdoutmetric.New(stdoutmetric.WithWriter(w))
	case ExporterOTLP:
		oo := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(tc.cfg.OTLP.Endpoint),
			otlpmetricgrpc.WithTimeout(tc.cfg.OTLP.Timeout),
			otlpmetricgrpc.WithDialOption(tc.grpcDialOptions()...),
		}
		if tc.cfg.OTLP.Insecure {
			oo = append(oo, otlpmetricgrpc.WithInsecure())
		}
		exp, err = otlpmetricgrpc.New(ctx, oo...)
	}
	if err != nil {
		return fmt.Errorf("metric exporter init: %w", err)
	}
	if exp != nil {
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(tc.cfg.MetricInterval))))
	}
	tc.mp = sdkmetric.NewMeterProvider(opts...)
	tc.shutdownFuncs = append(tc.shutdownFuncs, tc.mp.Shutdown)
	return nil
}

func (tc *TelemetryComponent) stdoutWriter() (io.Writer, error) {
	if tc.cfg.StdoutFile == "" {
		return os.Stdout, nil
	}
	f, err := os.OpenFile(tc.cfg.StdoutFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open telemetry stdout file: %w", err)
	}
	tc.shutdownFuncs = append(tc.shutdownFuncs, func(context.Context) error { return f.Close() })
	return f, nil
}

func (tc *TelemetryComponent) shutdown(ctx context.Context) error {
	var errs []error
	for i := len(tc.shutdownFuncs) - 1; i >= 0; i-- {
		c, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := tc.shutdownFuncs[i](c); err != nil {
			errs = append(errs, err)
		}
		cancel()
	}
	tc.shutdownFuncs = nil
	return errors.Join(errs...)
}

func (tc *TelemetryComponent) Stop(ctx context.Context) error {
	defer func() { _ = tc.BaseComponent.Stop(ctx) }()
	if err := tc.shutdown(ctx); err != nil {
		logging.Warn(ctx, "telemetry shutdown error", zap.Error(err))
		return err
	}
	logging.Info(ctx, "telemetry stopped gracefully")
	return nil
}

func (tc *TelemetryComponent) HealthCheck() error {
	if err := tc.BaseComponent.HealthCheck(); err != nil {
		return err
	}
	if tc.tp == nil || tc.mp == nil {
		return errors.New("telemetry providers not initialized")
	}
	return nil
}

func (tc *TelemetryComponent) Tracer(name string) trace.Tracer {
	if tc.tp == nil {
		return otel.Tracer(name)
	}
	return tc.tp.Tracer(name)
}
